package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a wallet holder. Balance is only ever written by the ledger.
type User struct {
	UID       string          `json:"uid" example:"u_8f2c1"`
	Balance   decimal.Decimal `json:"balance" swaggertype:"string" example:"10.00"`
	Banned    bool            `json:"banned"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// UpsertUserRequest is sent by the client the first time it sees a uid.
type UpsertUserRequest struct {
	UID string `json:"uid" validate:"required,max=128"`
}

// BanRequest toggles whether a user may place orders.
type BanRequest struct {
	Banned *bool `json:"banned" validate:"required"`
}

// Session is returned by POST /users.
type Session struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BalanceResponse is returned by the balance endpoints.
type BalanceResponse struct {
	UID     string          `json:"uid"`
	Balance decimal.Decimal `json:"balance" swaggertype:"string" example:"10.00"`
}

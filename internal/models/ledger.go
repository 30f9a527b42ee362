package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxnReason explains why a balance changed.
type TxnReason string

const (
	ReasonOrderCharge TxnReason = "order_charge"
	ReasonOrderRefund TxnReason = "order_refund"
	ReasonAdminTopUp  TxnReason = "admin_topup"
	ReasonAdminDeduct TxnReason = "admin_deduct"
)

// Valid reports whether r is one of the known reasons.
func (r TxnReason) Valid() bool {
	switch r {
	case ReasonOrderCharge, ReasonOrderRefund, ReasonAdminTopUp, ReasonAdminDeduct:
		return true
	}
	return false
}

// WalletTxn is an immutable ledger entry. Delta is signed.
type WalletTxn struct {
	ID           string          `json:"id"`
	UID          string          `json:"uid"`
	Delta        decimal.Decimal `json:"delta" swaggertype:"string"`
	Reason       TxnReason       `json:"reason"`
	OrderID      *string         `json:"order_id,omitempty"`
	Meta         Metadata        `json:"meta,omitempty"`
	BalanceAfter decimal.Decimal `json:"balance_after" swaggertype:"string"`
	CreatedAt    time.Time       `json:"created_at"`
}

// AdjustBalanceRequest is used by the operator top-up and deduct endpoints.
type AdjustBalanceRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
	Note   string          `json:"note" validate:"max=200"`
}

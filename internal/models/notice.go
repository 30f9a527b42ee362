package models

import "time"

// Audience is the recipient class of a notification feed.
type Audience string

const (
	AudienceUser  Audience = "user"
	AudienceOwner Audience = "owner"
)

// Valid reports whether a is a known audience.
func (a Audience) Valid() bool {
	return a == AudienceUser || a == AudienceOwner
}

// Notice is one user- or operator-facing event. Notices are never mutated.
type Notice struct {
	ID            string    `json:"id"`
	Audience      Audience  `json:"audience"`
	TargetUID     *string   `json:"target_uid,omitempty"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	OrderID       *string   `json:"order_id,omitempty"`
	Code          *string   `json:"code,omitempty"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

package models

import "time"

// CodeStatus is the state of one pooled code.
type CodeStatus string

const (
	CodeAvailable CodeStatus = "available"
	CodeReserved  CodeStatus = "reserved"
	CodeConsumed  CodeStatus = "consumed"
)

// CodeEntry is a single-use digital code. Sealed holds the encrypted secret.
type CodeEntry struct {
	ID          string     `json:"id"`
	PoolKey     string     `json:"pool_key"`
	Sealed      []byte     `json:"-"`
	Status      CodeStatus `json:"status"`
	ReservedFor *string    `json:"reserved_for,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RestockRequest adds plaintext codes to a pool.
type RestockRequest struct {
	Codes []string `json:"codes" validate:"required,min=1,max=1000,dive,required,max=128"`
}

// RestockResult reports how many codes were stored.
type RestockResult struct {
	PoolKey    string `json:"pool_key"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
}

// PoolStock is the available count for one pool.
type PoolStock struct {
	PoolKey   string `json:"pool_key"`
	Available int    `json:"available"`
	Reserved  int    `json:"reserved"`
}

// CodeDelivery is what a user receives for a fulfilled code order.
type CodeDelivery struct {
	OrderID string `json:"order_id"`
	Code    string `json:"code"`
	QRImage string `json:"qr_image"`
}

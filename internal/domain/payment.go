package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// PaymentRecord is the reconciliation entry for one closed session. It is
// not authoritative for parking state; it references the session by its
// stored key and tracks whether the fee was actually collected.
type PaymentRecord struct {
	ID         int           `json:"id"`
	SessionKey string        `json:"session_key"`
	Plate      string        `json:"plate"`
	SpaceID    int           `json:"space_id"`
	StartTime  time.Time     `json:"start_time"`
	Fee        int64         `json:"fee"`
	Status     PaymentStatus `json:"status"`
	Method     null.String   `json:"method,omitempty"`
	Reference  null.String   `json:"reference,omitempty"`
	PaidAt     null.Time     `json:"paid_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type PaymentDTO struct {
	Plate     string `json:"plate" binding:"required"`
	SpaceID   int    `json:"space_id" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	Fee       int64  `json:"fee"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

type BatchGenerateDTO struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
	Force bool   `json:"force"`
}

package model

import "time"

// Document sequence type constants; also used as number prefixes.
const (
	SeqSubscription = "SUB"
	SeqInvoice      = "INV"
	SeqPayment      = "PAY"
	SeqOrder        = "ORD"
)

// DocumentSequence backs the monotonically increasing document numbers
// (SUB-000001, INV-000001, ...). Increments happen inside the caller's
// transaction so numbers are never handed out twice.
type DocumentSequence struct {
	DocType      string    `gorm:"type:varchar(10);primaryKey" json:"doc_type"`
	CurrentValue int64     `gorm:"type:bigint;not null;default:0" json:"current_value"`
	UpdatedAt    time.Time `json:"updated_at"`
}

package domain

import "time"

const EventTypeSaleRecorded = "sale.recorded"

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// SaleRecordedPayload is the JSON body of a sale.recorded outbox event.
type SaleRecordedPayload struct {
	SaleID        int64     `json:"sale_id"`
	ProductID     int64     `json:"book_id"`
	TotalPrice    int64     `json:"total_price"`
	AmountCharged int64     `json:"amount_charged"`
	Currency      string    `json:"currency"`
	SessionID     string    `json:"session_id"`
	RecordedAt    time.Time `json:"recorded_at"`
}

package domain

import "time"

type Sale struct {
	ID            int64     `json:"saleId"`
	ProductID     int64     `json:"bookId"`
	TotalPrice    int64     `json:"total_price"`
	SessionID     string    `json:"sessionId"`
	EventID       string    `json:"eventId"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	AmountCharged int64     `json:"amountCharged"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"sale_date"`
}

// SaleInput is what the fulfillment flow hands to the sale recorder.
type SaleInput struct {
	ProductID     int64
	TotalPrice    int64
	SessionID     string
	EventID       string
	CustomerEmail string
	AmountCharged int64
	Currency      string
}

package domain

import (
	"fmt"
	"strconv"
)

type EventKind string

const (
	EventCheckoutSessionCompleted EventKind = "checkout.session.completed"
	EventUnknown                  EventKind = "unknown"
)

// PaymentEvent is a verified gateway notification. Session is set only for
// EventCheckoutSessionCompleted.
type PaymentEvent struct {
	ID      string
	Type    string
	Kind    EventKind
	Session *CompletedSession
}

type CompletedSession struct {
	SessionID     string
	CustomerEmail string
	Metadata      map[string]string
	AmountTotal   int64
	Currency      string
}

// ProductID extracts the book reference. Missing or non-numeric ids are rejected
// rather than coerced.
func (s *CompletedSession) ProductID() (int64, error) {
	return parseProductID(s.Metadata)
}

func parseProductID(metadata map[string]string) (int64, error) {
	raw, ok := metadata[MetadataProductID]
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: metadata has no %s", ErrMalformedEvent, MetadataProductID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s %q is not a valid id", ErrMalformedEvent, MetadataProductID, raw)
	}
	return id, nil
}

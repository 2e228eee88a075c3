package domain

type FulfillmentStatus string

const (
	FulfillmentReceived   FulfillmentStatus = "RECEIVED"
	FulfillmentVerified   FulfillmentStatus = "VERIFIED"
	FulfillmentIgnored    FulfillmentStatus = "IGNORED"
	FulfillmentProcessing FulfillmentStatus = "PROCESSING"
	FulfillmentRecorded   FulfillmentStatus = "RECORDED"
	FulfillmentDelivered  FulfillmentStatus = "DELIVERED"
	FulfillmentDuplicate  FulfillmentStatus = "DUPLICATE"
	FulfillmentFailed     FulfillmentStatus = "FAILED"
)

var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentReceived:   {FulfillmentVerified},
	FulfillmentVerified:   {FulfillmentIgnored, FulfillmentProcessing},
	FulfillmentProcessing: {FulfillmentRecorded, FulfillmentDuplicate},
	FulfillmentRecorded:   {FulfillmentDelivered},
}

func (s FulfillmentStatus) IsTerminal() bool {
	switch s {
	case FulfillmentIgnored, FulfillmentDelivered, FulfillmentDuplicate, FulfillmentFailed:
		return true
	}
	return false
}

// Acknowledged reports whether the gateway should be told the event was handled.
func (s FulfillmentStatus) Acknowledged() bool {
	switch s {
	case FulfillmentIgnored, FulfillmentRecorded, FulfillmentDelivered, FulfillmentDuplicate:
		return true
	}
	return false
}

// String representation (for logging)
func (s FulfillmentStatus) String() string {
	return string(s)
}

// CanTransitionTo validates a step of the fulfillment state machine. FAILED is
// reachable from every non-terminal state.
func CanTransitionTo(from, to FulfillmentStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == FulfillmentFailed {
		return true
	}
	for _, next := range fulfillmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from FulfillmentStatus
		to   FulfillmentStatus
		want bool
	}{
		{"verify", FulfillmentReceived, FulfillmentVerified, true},
		{"skip verification", FulfillmentReceived, FulfillmentProcessing, false},
		{"ignore", FulfillmentVerified, FulfillmentIgnored, true},
		{"process", FulfillmentVerified, FulfillmentProcessing, true},
		{"record", FulfillmentProcessing, FulfillmentRecorded, true},
		{"duplicate", FulfillmentProcessing, FulfillmentDuplicate, true},
		{"deliver before record", FulfillmentProcessing, FulfillmentDelivered, false},
		{"deliver", FulfillmentRecorded, FulfillmentDelivered, true},
		{"fail from received", FulfillmentReceived, FulfillmentFailed, true},
		{"fail from recorded", FulfillmentRecorded, FulfillmentFailed, true},
		{"terminal ignored", FulfillmentIgnored, FulfillmentFailed, false},
		{"terminal delivered", FulfillmentDelivered, FulfillmentProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionTo(tt.from, tt.to))
		})
	}
}

func TestFulfillmentStatus_Acknowledged(t *testing.T) {
	assert.True(t, FulfillmentIgnored.Acknowledged())
	assert.True(t, FulfillmentDuplicate.Acknowledged())
	assert.True(t, FulfillmentDelivered.Acknowledged())
	assert.False(t, FulfillmentFailed.Acknowledged())
	assert.False(t, FulfillmentProcessing.Acknowledged())
}

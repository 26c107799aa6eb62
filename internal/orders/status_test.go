package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusPreparing, false},
		{StatusConfirmed, StatusPreparing, true},
		{StatusPreparing, StatusReady, true},
		{StatusReady, StatusDelivered, true},
		{StatusReady, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminalStatesHaveNoSuccessors(t *testing.T) {
	for s, next := range validNext {
		if s.IsTerminal() {
			assert.Empty(t, next, s)
		} else {
			assert.NotEmpty(t, next, s)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" Preparing ")
	assert.True(t, ok)
	assert.Equal(t, StatusPreparing, s)

	_, ok = ParseStatus("shipped")
	assert.False(t, ok)

	p, ok := ParsePaymentStatus("COMPLETED")
	assert.True(t, ok)
	assert.Equal(t, PaymentCompleted, p)
}

func TestInitialPaymentStatus(t *testing.T) {
	assert.Equal(t, PaymentCompleted, PaymentCard.InitialPaymentStatus())
	assert.Equal(t, PaymentPending, PaymentCash.InitialPaymentStatus())
}

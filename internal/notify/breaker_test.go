package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorwatch/pkg/platform/circuit"
)

func TestGuardedSender(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	relayDown := errors.New("connection refused")

	recorder := NewRecorder()
	recorder.FailFor("a@example.com", relayDown)
	recorder.FailFor("b@example.com", relayDown)
	breaker := circuit.New("smtp",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	sender := NewGuardedSender(recorder, breaker, nil)

	assert.ErrorIs(t, sender.Send(ctx, Message{To: "a@example.com"}), relayDown)
	assert.ErrorIs(t, sender.Send(ctx, Message{To: "b@example.com"}), relayDown)
	require.True(t, breaker.IsOpen())

	err := sender.Send(ctx, Message{To: "c@example.com"})
	assert.ErrorIs(t, err, ErrRelayUnavailable)
	assert.Empty(t, recorder.Sent(), "relay must not be called while open")

	// invalid messages never reach the breaker
	assert.ErrorIs(t, sender.Send(ctx, Message{}), ErrNoRecipient)

	now = now.Add(time.Minute)
	require.NoError(t, sender.Send(ctx, Message{To: "c@example.com"}))
	assert.False(t, breaker.IsOpen())
	assert.Len(t, recorder.SentTo("c@example.com"), 1)
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vendorwatch/pkg/platform/circuit"
)

// ErrRelayUnavailable is returned without contacting the relay while the
// circuit is open.
var ErrRelayUnavailable = errors.New("notify: relay circuit open")

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// GuardedSender stops calling a failing relay for a cooldown so one run does
// not wait on a dead SMTP server for every vendor.
type GuardedSender struct {
	next    Sender
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuardedSender(next Sender, breaker *circuit.Breaker, logger *slog.Logger) *GuardedSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardedSender{next: next, breaker: breaker, logger: logger}
}

func (g *GuardedSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if !g.breaker.Allow() {
		return fmt.Errorf("%w: %s", ErrRelayUnavailable, g.breaker.Name())
	}

	if err := g.next.Send(ctx, msg); err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "notification relay circuit opened", "breaker", g.breaker.Name(), "error", err)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "notification relay circuit closed", "breaker", g.breaker.Name())
	}
	return nil
}

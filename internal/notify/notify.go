// Package notify delivers plain-text messages to a single recipient.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

var ErrNoRecipient = errors.New("notify: message has no recipient")

// Message is one email-like notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	return nil
}

// LogNotifier writes messages to the logger instead of delivering them. Used
// when no SMTP relay is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "notification",
		"to", msg.To,
		"subject", msg.Subject,
		"body_bytes", len(msg.Body),
	)
	return nil
}

// Recorder keeps every message in memory. FailFor makes sends to the given
// recipients fail, which tests use to exercise delivery errors.
type Recorder struct {
	mu      sync.Mutex
	sent    []Message
	failFor map[string]error
}

func NewRecorder() *Recorder {
	return &Recorder{failFor: make(map[string]error)}
}

func (r *Recorder) FailFor(to string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failFor[to] = err
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFor[msg.To]; ok {
		return err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages in send order.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// SentTo returns the delivered messages for one recipient.
func (r *Recorder) SentTo(to string) []Message {
	var out []Message
	for _, m := range r.Sent() {
		if m.To == to {
			out = append(out, m)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

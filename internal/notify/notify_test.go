package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()

	t.Run("records delivered messages in order", func(t *testing.T) {
		r := NewRecorder()
		require.NoError(t, r.Send(ctx, Message{To: "a@example.com", Subject: "one"}))
		require.NoError(t, r.Send(ctx, Message{To: "b@example.com", Subject: "two"}))

		sent := r.Sent()
		require.Len(t, sent, 2)
		assert.Equal(t, "one", sent[0].Subject)
		assert.Len(t, r.SentTo("b@example.com"), 1)
	})

	t.Run("fails for configured recipients without recording", func(t *testing.T) {
		r := NewRecorder()
		boom := errors.New("mailbox unavailable")
		r.FailFor("down@example.com", boom)

		err := r.Send(ctx, Message{To: "down@example.com"})
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, r.Sent())
	})

	t.Run("rejects messages without a recipient", func(t *testing.T) {
		r := NewRecorder()
		assert.ErrorIs(t, r.Send(ctx, Message{To: "  "}), ErrNoRecipient)
	})
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(nil)
	assert.NoError(t, n.Send(context.Background(), Message{To: "a@example.com", Subject: "hi"}))
	assert.ErrorIs(t, n.Send(context.Background(), Message{}), ErrNoRecipient)
}

func TestSMTPNotifierCompose(t *testing.T) {
	n, err := NewSMTPNotifier(SMTPConfig{Addr: "localhost:25", From: "noreply@vendorwatch.example"})
	require.NoError(t, err)
	n.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	raw := string(n.compose(Message{To: "ops@acme.example", Subject: "Reminder", Body: "line one\nline two"}))

	assert.Contains(t, raw, "From: noreply@vendorwatch.example\r\n")
	assert.Contains(t, raw, "To: ops@acme.example\r\n")
	assert.Contains(t, raw, "Subject: Reminder\r\n")
	assert.Contains(t, raw, "Date: Tue, 10 Mar 2026 09:00:00 +0000\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline one\r\nline two"))
}

func TestNewSMTPNotifierValidation(t *testing.T) {
	_, err := NewSMTPNotifier(SMTPConfig{From: "a@example.com"})
	assert.Error(t, err)
	_, err = NewSMTPNotifier(SMTPConfig{Addr: "localhost:25"})
	assert.Error(t, err)
}

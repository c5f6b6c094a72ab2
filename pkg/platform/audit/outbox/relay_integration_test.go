//go:build integration

package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "vendorwatch/pkg/platform/audit"
	"vendorwatch/pkg/platform/audit/outbox"
	auditpg "vendorwatch/pkg/platform/audit/store/postgres"
	"vendorwatch/pkg/testutil/containers"
)

type capturedMessage struct {
	topic string
	key   string
	value []byte
}

type capturingPublisher struct {
	mu       sync.Mutex
	messages []capturedMessage
	failAt   int
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAt > 0 && len(p.messages)+1 == p.failAt {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, capturedMessage{topic: topic, key: string(key), value: value})
	return nil
}

type RelaySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpg.Store
}

func TestRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = auditpg.New(s.postgres.DB)
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_log", "outbox"))
}

func (s *RelaySuite) appendEvents(n int) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := range n {
		s.Require().NoError(s.store.Append(ctx, audit.Event{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			Action:     string(audit.EventVendorStatusAutoUpdated),
			EntityType: audit.EntityVendor,
			EntityID:   "vendor-" + string(rune('a'+i)),
			Payload:    map[string]any{"new_status": "NEEDS_RENEWAL"},
			RunID:      "run-1",
		}))
	}
}

func (s *RelaySuite) TestPublishesPendingEntriesOnce() {
	s.appendEvents(3)
	pub := &capturingPublisher{}
	relay := outbox.NewRelay(s.postgres.DB, pub, "vendorwatch.audit", outbox.WithBatchSize(10))

	n, err := relay.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Require().Len(pub.messages, 3)
	s.Equal("vendorwatch.audit", pub.messages[0].topic)
	s.Equal("vendor-a", pub.messages[0].key)
	s.Contains(string(pub.messages[0].value), `"action":"VENDOR_STATUS_AUTO_UPDATED"`)

	n, err = relay.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Zero(n)
	s.Len(pub.messages, 3)
}

func (s *RelaySuite) TestPublishFailureKeepsRemainingRows() {
	s.appendEvents(3)
	pub := &capturingPublisher{failAt: 2}
	relay := outbox.NewRelay(s.postgres.DB, pub, "vendorwatch.audit")

	n, err := relay.RelayOnce(context.Background())
	s.Require().Error(err)
	s.Equal(1, n)

	pub.failAt = 0
	n, err = relay.RelayOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Len(pub.messages, 3)
}

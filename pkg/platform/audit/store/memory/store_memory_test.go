package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	audit "vendorwatch/pkg/platform/audit"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) TestFiltering() {
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{Action: "A", EntityType: audit.EntityVendor, EntityID: "v1"}))
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{Action: "B", EntityType: audit.EntityVendor, EntityID: "v2"}))
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{Action: "A", EntityType: audit.EntityJob}))

	s.Run("by entity", func() {
		events, err := s.store.ListByEntity(s.ctx, audit.EntityVendor, "v1")
		s.Require().NoError(err)
		s.Len(events, 1)
	})

	s.Run("by action", func() {
		events, err := s.store.ListByAction(s.ctx, "A")
		s.Require().NoError(err)
		s.Len(events, 2)
	})

	s.Run("recent is newest first", func() {
		events, err := s.store.ListRecent(s.ctx, 2)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(audit.EntityJob, events[0].EntityType)
		s.Equal("B", events[1].Action)
	})
}

func (s *InMemoryStoreSuite) TestPayloadIsCopied() {
	payload := map[string]any{"count": 1}
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{Action: "A", Payload: payload}))
	payload["count"] = 2

	events, err := s.store.ListRecent(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(1, events[0].Payload["count"])
}

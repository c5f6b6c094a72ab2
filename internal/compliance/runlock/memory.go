// Package runlock provides mutual exclusion for compliance runs.
package runlock

import (
	"context"
	"sync"
	"time"

	"vendorwatch/pkg/platform/sentinel"
)

// Memory is a process-local lock. The TTL is ignored: the holder always
// releases through the returned func.
type Memory struct {
	mu   sync.Mutex
	held bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Acquire(_ context.Context, _ time.Duration) (func(context.Context) error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held {
		return nil, sentinel.ErrLocked
	}
	m.held = true

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			m.mu.Lock()
			m.held = false
			m.mu.Unlock()
		})
		return nil
	}, nil
}

package utils

import (
	"context"
	"sync"
)

// Sync is a one-shot synchronization point.
type Sync interface {
	Wait(ctx context.Context) bool
	Done() <-chan struct{}
}

// SyncTrigger triggers a Sync. Triggering it
// multiple times is allowed.
type SyncTrigger interface {
	Trigger()
}

type syncer struct {
	once  sync.Once
	state chan struct{}
}

func NewSyncPoint() (Sync, SyncTrigger) {
	s := &syncer{
		state: make(chan struct{}),
	}
	return s, s
}

func (s *syncer) Wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.state:
		return true
	}
}

func (s *syncer) Done() <-chan struct{} {
	return s.state
}

func (s *syncer) Trigger() {
	s.once.Do(func() { close(s.state) })
}

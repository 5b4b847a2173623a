// Package lock serializes label jobs that share the fixed data and output paths.
package lock

import (
	"context"
	"fmt"
	"sync"

	"labelprint/internal/domain"
)

// Local is an in-process mutex whose acquisition honors context cancellation.
type Local struct {
	slot chan struct{}
}

// NewLocal returns an unlocked Local.
func NewLocal() *Local {
	return &Local{slot: make(chan struct{}, 1)}
}

// Lock blocks until the lock is held or ctx ends. The returned func releases
// it and is safe to call more than once.
func (l *Local) Lock(ctx context.Context) (func(), error) {
	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrJobBusy, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-l.slot })
	}, nil
}

package core

// limiter.go bounds how many conversions run at once.
//
// Each conversion holds the whole document tree in memory, so the limiter
// uses a semaphore to cap parallel work. When every slot is taken, callers
// wait up to maxWait before failing with ErrTooManyConversions. WaitForDrain
// supports graceful shutdown.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyConversions is returned when no slot frees up within the wait time.
var ErrTooManyConversions = errors.New("too many concurrent conversions, please try again later")

const (
	DefaultMaxConcurrent = 5
	DefaultMaxWait       = 30 * time.Second
)

// Limiter is a counting semaphore with a bounded wait.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewLimiter creates a limiter allowing maxConcurrent simultaneous holders.
// Non-positive arguments fall back to the defaults.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire blocks until a slot is free, ctx is done or maxWait elapses.
// The caller must call Release after a nil return.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyConversions
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of slots currently held.
func (l *Limiter) ActiveCount() int {
	return int(l.active.Load())
}

// WaitForDrain blocks until no slot is held or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter for monitoring.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *Limiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

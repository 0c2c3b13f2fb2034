package adapter

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Clock defines an interface for time operations to enable mocking
//
//go:generate mockgen -source=clock.go -destination=../mocks/clock.go -package=mocks -mock_names=Clock=MockClock
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the standard time package
type RealClock struct{}

// NewClock creates a new real clock implementation
func NewClock() Clock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (c *RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// ClockTimer drives backoff waits from a Clock so cooldowns follow the injected time source
type ClockTimer struct {
	clock Clock
	c     <-chan time.Time
}

var _ backoff.Timer = (*ClockTimer)(nil)

// NewClockTimer creates a backoff timer backed by clock
func NewClockTimer(clock Clock) *ClockTimer {
	return &ClockTimer{clock: clock}
}

func (t *ClockTimer) Start(d time.Duration) {
	t.c = t.clock.After(d)
}

// Stop is a no-op; the pending channel from After is simply dropped
func (t *ClockTimer) Stop() {}

func (t *ClockTimer) C() <-chan time.Time {
	return t.c
}

// Package scheduler drives every periodic task in the process from one
// tick loop. Tasks are plain callbacks; they are expected to return quickly
// (typically by posting a message to an actor inbox).
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is advanced by hand in tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock { return &ManualClock{now: start} }

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Token identifies a registered task. The zero Token is never issued.
type Token uint64

type task struct {
	token    Token
	interval time.Duration
	due      time.Time
	fn       func(now time.Time)
}

type Scheduler struct {
	clock      Clock
	resolution time.Duration
	logger     *zap.Logger

	mu    sync.Mutex
	next  Token
	tasks []*task // registration order
}

func New(clock Clock, resolution time.Duration, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if resolution <= 0 {
		resolution = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{clock: clock, resolution: resolution, logger: logger}
}

func (s *Scheduler) Clock() Clock { return s.clock }

// Every registers fn to run each interval, first one interval from now.
func (s *Scheduler) Every(interval time.Duration, fn func(now time.Time)) Token {
	if interval <= 0 {
		interval = s.resolution
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.tasks = append(s.tasks, &task{
		token:    s.next,
		interval: interval,
		due:      s.clock.Now().Add(interval),
		fn:       fn,
	})
	return s.next
}

// Cancel removes a task. It reports whether the token was still registered.
func (s *Scheduler) Cancel(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.token == tok {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Fire runs every task due at now, in registration order, and returns how
// many ran. A task that fell several intervals behind runs once and is
// rescheduled past now.
func (s *Scheduler) Fire(now time.Time) int {
	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if now.Before(t.due) {
			continue
		}
		due = append(due, t)
		for !now.Before(t.due) {
			t.due = t.due.Add(t.interval)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.fn(now)
	}
	return len(due)
}

// Run fires due tasks at the configured resolution until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()
	s.logger.Info("scheduler started", zap.Duration("resolution", s.resolution))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", zap.Int("tasks", s.Len()))
			return nil
		case <-ticker.C:
			s.Fire(s.clock.Now())
		}
	}
}

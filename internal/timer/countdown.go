// Package timer implements the exam countdown clock. Remaining time is
// always derived from wall-clock timestamps, so dropped or delayed ticks
// never skew it.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
)

// DefaultDuration is the length of a full exam, 4h30.
const DefaultDuration = 16200 * time.Second

// Snapshot is the externally visible state of a countdown.
type Snapshot struct {
	Key       string `json:"key"`
	Duration  int64  `json:"duration"`
	Remaining int64  `json:"remaining"`
	Running   bool   `json:"running"`
	Finished  bool   `json:"finished"`
	Display   string `json:"display"`
}

// Countdown is a persisted countdown clock. It is safe for concurrent use.
// The finish callback runs at most once per run, outside the lock.
type Countdown struct {
	key      string
	duration time.Duration
	repo     repository.TimerRepository
	now      func() time.Time

	mu        sync.Mutex
	remaining int64 // seconds left as of lastStart
	running   bool
	lastStart time.Time
	fired     bool
	onFinish  func(ctx context.Context)
}

type Option func(*Countdown)

func WithClock(now func() time.Time) Option {
	return func(c *Countdown) { c.now = now }
}

// WithFinish sets the function called when the countdown reaches zero.
func WithFinish(fn func(ctx context.Context)) Option {
	return func(c *Countdown) { c.onFinish = fn }
}

// New restores the countdown stored under key, or starts a fresh one of the
// given duration. A countdown that was running keeps running and is charged
// for the time spent while nobody watched it.
func New(ctx context.Context, key string, duration time.Duration, repo repository.TimerRepository, opts ...Option) *Countdown {
	if duration <= 0 {
		duration = DefaultDuration
	}
	c := &Countdown{
		key:       key,
		duration:  duration,
		repo:      repo,
		now:       time.Now,
		remaining: int64(duration / time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}

	if repo != nil {
		if st, ok := repo.Load(ctx, key); ok {
			c.remaining = max(0, st.Remaining)
			c.running = st.Running && st.LastStartTs > 0
			if c.running {
				c.lastStart = time.UnixMilli(st.LastStartTs)
				c.fold()
			}
			// an expired run still owes its finish callback to the next Tick
			c.fired = st.Remaining <= 0 && !st.Running
			logger.FromContext(ctx).WithPrefix("timer").
				Debug("restored %s: remaining=%ds running=%t", key, c.remaining, c.running)
		}
	}
	c.mu.Lock()
	c.persistLocked(ctx)
	c.mu.Unlock()
	return c
}

// fold charges the time elapsed since lastStart. Callers hold mu or own c.
func (c *Countdown) fold() {
	if !c.running {
		return
	}
	elapsed := int64(c.now().Sub(c.lastStart) / time.Second)
	if elapsed <= 0 {
		return
	}
	c.remaining = max(0, c.remaining-elapsed)
	c.lastStart = c.lastStart.Add(time.Duration(elapsed) * time.Second)
	if c.remaining == 0 {
		c.running = false
	}
}

func (c *Countdown) persistLocked(ctx context.Context) {
	if c.repo == nil {
		return
	}
	st := models.TimerState{Remaining: c.remaining, Running: c.running}
	if c.running {
		st.LastStartTs = c.lastStart.UnixMilli()
	}
	if err := c.repo.Save(ctx, c.key, st); err != nil {
		logger.FromContext(ctx).WithPrefix("timer").Warn("failed to persist %s: %v", c.key, err)
	}
}

func (c *Countdown) Key() string             { return c.key }
func (c *Countdown) Duration() time.Duration { return c.duration }

// Start resumes the countdown. It does nothing when already running or when
// no time is left.
func (c *Countdown) Start(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.remaining <= 0 {
		return false
	}
	c.running = true
	c.lastStart = c.now()
	c.persistLocked(ctx)
	return true
}

// Pause stops the countdown, keeping the remaining time.
func (c *Countdown) Pause(ctx context.Context) bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return false
	}
	c.fold()
	c.running = false
	c.persistLocked(ctx)
	fire := c.shouldFireLocked()
	c.mu.Unlock()
	c.fire(ctx, fire)
	return true
}

// Reset stops the countdown and restores the full duration.
func (c *Countdown) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.remaining = int64(c.duration / time.Second)
	c.fired = false
	c.persistLocked(ctx)
}

// Tick reconciles the countdown with the wall clock. Calling it any number
// of times is safe. It reports whether the countdown is still running.
func (c *Countdown) Tick(ctx context.Context) bool {
	c.mu.Lock()
	wasRunning := c.running
	c.fold()
	if wasRunning && !c.running {
		c.persistLocked(ctx)
	}
	fire := c.shouldFireLocked()
	running := c.running
	c.mu.Unlock()
	c.fire(ctx, fire)
	return running
}

func (c *Countdown) shouldFireLocked() bool {
	if c.remaining > 0 || c.fired {
		return false
	}
	c.fired = true
	return true
}

func (c *Countdown) fire(ctx context.Context, fire bool) {
	if !fire {
		return
	}
	logger.FromContext(ctx).WithPrefix("timer").Info("countdown %s finished", c.key)
	if c.onFinish != nil {
		c.onFinish(ctx)
	}
}

// Remaining is the time left right now.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	left := c.remaining
	if c.running {
		left = max(0, left-int64(c.now().Sub(c.lastStart)/time.Second))
	}
	return time.Duration(left) * time.Second
}

func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && c.remaining > 0
}

func (c *Countdown) Snapshot() Snapshot {
	left := c.Remaining()
	secs := int64(left / time.Second)
	return Snapshot{
		Key:       c.key,
		Duration:  int64(c.duration / time.Second),
		Remaining: secs,
		Running:   c.Running() && secs > 0,
		Finished:  secs == 0,
		Display:   Format(left),
	}
}

// Run ticks once per interval until ctx is done or the countdown stops.
func (c *Countdown) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.Tick(ctx) {
				return
			}
		}
	}
}

// Format renders d as hh:mm:ss, truncated to whole seconds.
func Format(d time.Duration) string {
	s := max(0, int64(d/time.Second))
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

package client

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"moodchat/internal/app/message"
	"moodchat/internal/pkg/logx"
)

// Scheduler runs fn once after d. The returned stop cancels the run and
// reports whether it was still pending.
type Scheduler func(d time.Duration, fn func()) (stop func() bool)

// AfterFunc is the Scheduler backed by time.AfterFunc.
func AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// ReconnectPolicy is an exponential backoff with a hard attempt ceiling.
type ReconnectPolicy struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

// DefaultReconnectPolicy waits 6s, 12s, 24s, 48s and 96s, then gives up.
var DefaultReconnectPolicy = ReconnectPolicy{BaseDelay: 3 * time.Second, MaxAttempts: 5}

// Delay returns BaseDelay * 2^attempt.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<attempt)
}

// Reconnector decides whether and when a closed socket is dialed again.
// At most one reconnect is pending at a time.
type Reconnector struct {
	policy   ReconnectPolicy
	schedule Scheduler

	mu       sync.Mutex
	attempts int
	// gen invalidates callbacks of timers that were cancelled after they
	// started firing.
	gen  uint64
	stop func() bool

	logger zerolog.Logger
}

// NewReconnector returns a Reconnector using schedule for its timers.
func NewReconnector(policy ReconnectPolicy, schedule Scheduler) *Reconnector {
	if schedule == nil {
		schedule = AfterFunc
	}
	return &Reconnector{
		policy:   policy,
		schedule: schedule,
		logger:   logx.Component("reconnect"),
	}
}

// OnClose reacts to a socket closing with code. A manual close, or a close
// after MaxAttempts consecutive failures, schedules nothing and returns
// false. Otherwise reconnect is scheduled and its delay returned.
func (r *Reconnector) OnClose(code int, reconnect func()) (time.Duration, bool) {
	if code == message.CloseManual {
		return 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.attempts >= r.policy.MaxAttempts {
		r.logger.Warn().Int("attempts", r.attempts).Int("code", code).Msg("giving up on reconnect")
		return 0, false
	}

	r.attempts++
	delay := r.policy.Delay(r.attempts)

	r.cancelLocked()
	gen := r.gen
	r.stop = r.schedule(delay, func() {
		r.mu.Lock()
		if r.gen != gen {
			r.mu.Unlock()
			return
		}
		r.stop = nil
		r.mu.Unlock()

		reconnect()
	})

	r.logger.Info().
		Int("attempt", r.attempts).
		Int("max_attempts", r.policy.MaxAttempts).
		Int("code", code).
		Dur("delay", delay).
		Msg("reconnect scheduled")
	return delay, true
}

// Reset clears the attempt counter after a successful open or a manual
// disconnect.
func (r *Reconnector) Reset() {
	r.mu.Lock()
	r.attempts = 0
	r.mu.Unlock()
}

// Cancel stops the pending reconnect, if any, and reports whether one was
// pending. A timer that already fired will not call reconnect.
func (r *Reconnector) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := r.stop != nil
	r.cancelLocked()
	return pending
}

func (r *Reconnector) cancelLocked() {
	r.gen++
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}

// Attempts returns the number of consecutive failed connections.
func (r *Reconnector) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Pending reports whether a reconnect is scheduled.
func (r *Reconnector) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

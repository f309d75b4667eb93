package signal

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// JoinRateLimiter is a per-participant sliding window.
type JoinRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.ParticipantID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewJoinRateLimiter(limit int, interval time.Duration) *JoinRateLimiter {
	return &JoinRateLimiter{
		history:  make(map[domain.ParticipantID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *JoinRateLimiter) Allow(pid domain.ParticipantID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	fresh := freshSince(rl.history[pid], windowStart)

	if len(fresh) >= rl.limit {
		rl.history[pid] = fresh
		return false
	}

	rl.history[pid] = append(fresh, now)
	return true
}

// ForgetIdle drops pid's window when no attempt in it is still fresh.
func (rl *JoinRateLimiter) ForgetIdle(pid domain.ParticipantID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(freshSince(rl.history[pid], rl.now().Add(-rl.interval))) == 0 {
		delete(rl.history, pid)
	}
}

// Prune drops every window whose attempts have all expired and returns how
// many were removed.
func (rl *JoinRateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	windowStart := rl.now().Add(-rl.interval)
	removed := 0
	for pid, attempts := range rl.history {
		fresh := freshSince(attempts, windowStart)
		if len(fresh) == 0 {
			delete(rl.history, pid)
			removed++
			continue
		}
		rl.history[pid] = fresh
	}
	return removed
}

// Run prunes expired windows once per interval until ctx is done.
func (rl *JoinRateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := rl.Prune(); n > 0 {
				log.Debug().Str("module", "signal").Int("removed", n).Int("kept", rl.Len()).Msg("rate limiter pruned")
			}
		}
	}
}

func (rl *JoinRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.history)
}

func freshSince(attempts []time.Time, windowStart time.Time) []time.Time {
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}

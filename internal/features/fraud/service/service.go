package service

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gaming-rewards-backend/internal/common/logger"
)

const (
	reputationMin   = -100
	reputationMax   = 100
	fraudThreshold  = -50
	cleanActivityUp = 1
)

type identityState struct {
	windowStart time.Time
	count       int
	reputation  int
	denylisted  bool
}

// Limiter keeps per-identity sliding-window counters and a reputation
// score. Purely in-process: every check is a counter update, no I/O.
type Limiter struct {
	mu       sync.Mutex
	states   map[string]*identityState
	window   time.Duration
	ceiling  int
	denylist []string
	now      func() time.Time
	log      zerolog.Logger
}

func NewLimiter(window time.Duration, ceiling int, denylist []string) *Limiter {
	return &Limiter{
		states:   make(map[string]*identityState),
		window:   window,
		ceiling:  ceiling,
		denylist: denylist,
		now:      time.Now,
		log:      logger.For("fraud.limiter"),
	}
}

func (l *Limiter) state(identity string) *identityState {
	st, ok := l.states[identity]
	if !ok {
		st = &identityState{windowStart: l.now()}
		l.states[identity] = st
	}
	return st
}

// CheckLimit records a request and reports whether it is allowed.
// A false result means "retry later", not an error.
func (l *Limiter) CheckLimit(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.state(identity)
	now := l.now()
	if now.Sub(st.windowStart) >= l.window {
		st.windowStart = now
		st.count = 0
	}

	if st.count >= l.ceiling {
		l.log.Debug().Str("identity", identity).Int("count", st.count).Msg("rate ceiling hit")
		return false
	}
	st.count++
	return true
}

// RecordEvent moves the identity's reputation by delta, clamped to
// [-100, 100]. Negative deltas come from fraud signals, small positive
// ones from clean activity.
func (l *Limiter) RecordEvent(identity string, delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.state(identity)
	st.reputation += delta
	if st.reputation > reputationMax {
		st.reputation = reputationMax
	}
	if st.reputation < reputationMin {
		st.reputation = reputationMin
	}
}

// RecordClean bumps reputation slowly on clean activity.
func (l *Limiter) RecordClean(identity string) {
	l.RecordEvent(identity, cleanActivityUp)
}

// Flag matches fingerprint against the denylist; on a hit the identity is
// marked and its reputation takes a hard penalty. Returns whether it hit.
func (l *Limiter) Flag(identity, fingerprint string) bool {
	matched := false
	for _, p := range l.denylist {
		if p != "" && strings.Contains(fingerprint, p) {
			matched = true
			break
		}
	}

	l.mu.Lock()
	st := l.state(identity)
	if matched {
		st.denylisted = true
	}
	l.mu.Unlock()

	if matched {
		l.log.Warn().Str("identity", identity).Str("fingerprint", fingerprint).Msg("denylist match")
		l.RecordEvent(identity, -25)
	}
	return matched
}

// IsFraudulent reports reputation below threshold or a denylist hit.
func (l *Limiter) IsFraudulent(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[identity]
	if !ok {
		return false
	}
	return st.denylisted || st.reputation < fraudThreshold
}

// Reputation returns the current score, 0 for unknown identities.
func (l *Limiter) Reputation(identity string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[identity]
	if !ok {
		return 0
	}
	return st.reputation
}

// WithClock overrides the time source. Test hook.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

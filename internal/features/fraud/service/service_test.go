package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckLimitCeilingAndWindowReset(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l := NewLimiter(60*time.Second, 3, nil).WithClock(func() time.Time { return now })

	assert.True(t, l.CheckLimit("alice"))
	assert.True(t, l.CheckLimit("alice"))
	assert.True(t, l.CheckLimit("alice"))
	assert.False(t, l.CheckLimit("alice"), "fourth request inside the window must be denied")

	// 59s in: still the same window.
	now = base.Add(59 * time.Second)
	assert.False(t, l.CheckLimit("alice"))

	// Window boundary: counter resets.
	now = base.Add(60 * time.Second)
	assert.True(t, l.CheckLimit("alice"))
}

func TestCheckLimitIsolatesIdentities(t *testing.T) {
	l := NewLimiter(60*time.Second, 1, nil)

	assert.True(t, l.CheckLimit("alice"))
	assert.False(t, l.CheckLimit("alice"))
	assert.True(t, l.CheckLimit("bob"), "bob's counter is independent of alice's")
}

func TestReputationClamped(t *testing.T) {
	l := NewLimiter(time.Minute, 10, nil)

	l.RecordEvent("alice", -500)
	assert.Equal(t, -100, l.Reputation("alice"))

	l.RecordEvent("alice", 500)
	assert.Equal(t, 100, l.Reputation("alice"))
}

func TestIsFraudulentBelowThreshold(t *testing.T) {
	l := NewLimiter(time.Minute, 10, nil)

	l.RecordEvent("alice", -50)
	assert.False(t, l.IsFraudulent("alice"), "-50 is exactly the threshold, not below it")

	l.RecordEvent("alice", -1)
	assert.True(t, l.IsFraudulent("alice"))
}

func TestCleanActivityRecoversReputation(t *testing.T) {
	l := NewLimiter(time.Minute, 10, nil)

	l.RecordEvent("alice", -51)
	assert.True(t, l.IsFraudulent("alice"))

	l.RecordClean("alice")
	assert.Equal(t, -50, l.Reputation("alice"))
	assert.False(t, l.IsFraudulent("alice"))
}

func TestDenylistFlag(t *testing.T) {
	l := NewLimiter(time.Minute, 10, []string{"badtool", "cheat-engine"})

	assert.False(t, l.Flag("alice", "legit-client/1.0"))
	assert.False(t, l.IsFraudulent("alice"))

	assert.True(t, l.Flag("mallory", "cheat-engine/7.4"))
	assert.True(t, l.IsFraudulent("mallory"), "denylist hit marks the identity regardless of reputation")
	assert.Equal(t, -25, l.Reputation("mallory"))
}

func TestUnknownIdentityDefaults(t *testing.T) {
	l := NewLimiter(time.Minute, 10, nil)

	assert.False(t, l.IsFraudulent("nobody"))
	assert.Equal(t, 0, l.Reputation("nobody"))
}

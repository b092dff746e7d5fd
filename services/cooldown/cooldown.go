package cooldown

import (
	"sync"
	"time"

	"botfoundation/models"
)

type bucketKey struct {
	userID  string
	command string
}

type bucket struct {
	window time.Duration
	hits   []time.Time
}

// Tracker enforces per-user, per-command sliding window rate limits
type Tracker struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[bucketKey]*bucket
}

func NewTracker() *Tracker {
	return &Tracker{
		now:     time.Now,
		buckets: make(map[bucketKey]*bucket),
	}
}

// WithClock overrides the time source
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// prune drops hits that fell out of the window ending at now
func (b *bucket) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.hits) && !b.hits[i].After(cutoff) {
		i++
	}
	b.hits = b.hits[i:]
}

// Check consumes one slot for the user and command. When the limit is reached
// it returns false and how long until the oldest hit leaves the window; nothing
// is recorded in that case.
func (t *Tracker) Check(userID, command string, policy models.CooldownPolicy) (bool, time.Duration) {
	if !policy.Enabled() {
		return true, 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	key := bucketKey{userID: userID, command: command}
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{}
		t.buckets[key] = b
	}
	b.window = policy.Window
	b.prune(now)

	if len(b.hits) >= policy.MaxInvocations {
		retryAfter := b.hits[0].Add(policy.Window).Sub(now)
		return false, retryAfter
	}

	b.hits = append(b.hits, now)
	return true, 0
}

// Reset forgets all hits of a user for a command
func (t *Tracker) Reset(userID, command string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.buckets, bucketKey{userID: userID, command: command})
}

// Sweep removes buckets whose hits have all expired and returns how many were removed
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for key, b := range t.buckets {
		b.prune(now)
		if len(b.hits) == 0 {
			delete(t.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked buckets
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}

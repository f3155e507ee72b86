package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests step time manually.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1700000000, 0)} }

func TestGetWithinTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock[string](clock.Now)

	c.Set("msg-1", "cached headers", time.Minute)

	clock.Advance(30 * time.Second)
	v, ok := c.Get("msg-1")
	assert.True(t, ok)
	assert.Equal(t, "cached headers", v)
}

func TestExactTTLBoundaryIsStillVisible(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock[int](clock.Now)

	c.Set("k", 42, time.Minute)

	// elapsed == ttl: entry remains visible, expiry is strictly after ttl
	clock.Advance(time.Minute)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	clock.Advance(time.Nanosecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestExpiredEntryIsEvictedLazily(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock[int](clock.Now)

	c.Set("k", 1, time.Second)
	clock.Advance(2 * time.Second)

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestSetOverwritesAndResetsTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock[int](clock.Now)

	c.Set("k", 1, time.Second)
	clock.Advance(900 * time.Millisecond)
	c.Set("k", 2, time.Second)
	clock.Advance(900 * time.Millisecond)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestMissOnUnknownKey(t *testing.T) {
	c := New[string]()
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestStart_IDFormat(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1736000000, 0)}
	r := NewRegistry(WithClock(clk.Now))

	id, err := r.Start("alice")
	require.NoError(t, err)

	parts := strings.SplitN(id, ":", 3)
	require.Len(t, parts, 3)
	assert.Equal(t, "alice", parts[0])
	assert.Equal(t, "1736000000", parts[1])
	assert.NotEmpty(t, parts[2])

	s, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, "alice", s.Owner)
	assert.Equal(t, clk.Now(), s.CreatedAt)
	assert.Equal(t, s.CreatedAt, s.LastSeen)
}

func TestStart_EmptyIdentity(t *testing.T) {
	_, err := NewRegistry().Start("")
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestStart_ConcurrentSameSecondIsUnique(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1736000000, 0)}
	r := NewRegistry(WithClock(clk.Now))

	const n = 100
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Start("alice")
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, r.Len())
}

func TestTouch(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1736000000, 0)}
	r := NewRegistry(WithClock(clk.Now))
	id, err := r.Start("alice")
	require.NoError(t, err)

	clk.Advance(time.Minute)
	r.Touch(id)
	s, _ := r.Get(id)
	assert.Equal(t, clk.Now(), s.LastSeen)

	// desconhecido: no-op, não cria sessão
	r.Touch("ghost")
	_, ok := r.Get("ghost")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestGet_ReturnsCopy(t *testing.T) {
	r := NewRegistry()
	id, err := r.Start("alice")
	require.NoError(t, err)

	s, _ := r.Get(id)
	s.Owner = "mallory"

	again, _ := r.Get(id)
	assert.Equal(t, "alice", again.Owner)
}

func TestCleanup_RemovesIdleSessions(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1736000000, 0)}
	r := NewRegistry(WithClock(clk.Now), WithIdleTTL(time.Hour))

	idle, _ := r.Start("alice")
	active, _ := r.Start("bob")

	clk.Advance(50 * time.Minute)
	r.Touch(active)
	clk.Advance(20 * time.Minute)

	assert.Equal(t, 1, r.Cleanup())
	_, ok := r.Get(idle)
	assert.False(t, ok)
	_, ok = r.Get(active)
	assert.True(t, ok)
}

func TestStartJanitor(t *testing.T) {
	r := NewRegistry(WithIdleTTL(time.Millisecond), WithCleanupEvery(5*time.Millisecond))
	_, err := r.Start("alice")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartJanitor(ctx)

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
}

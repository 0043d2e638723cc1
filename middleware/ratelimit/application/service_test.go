package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"sector-gateway/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLimiter struct {
	dec domain.Decision
}

func (f fakeLimiter) Admit() domain.Decision { return f.dec }

type fakeStore struct {
	lim  domain.Limiter
	keys []domain.Key
}

func (s *fakeStore) Get(k domain.Key) domain.Limiter {
	s.keys = append(s.keys, k)
	return s.lim
}

type recordingStats struct {
	events []domain.StatsEvent
	err    error
}

func (r *recordingStats) Record(_ context.Context, ev domain.StatsEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestService_Decide_AllowsWhenNoStore(t *testing.T) {
	dec := Service{}.Decide("k")
	assert.True(t, dec.Allowed)
	assert.Zero(t, dec.RetryAfter)
}

func TestService_Decide_AllowsWhenStoreHasNoLimiter(t *testing.T) {
	dec := Service{Store: &fakeStore{}}.Decide("k")
	assert.True(t, dec.Allowed)
}

func TestService_Decide_PassesThroughLimiterDecision(t *testing.T) {
	store := &fakeStore{lim: fakeLimiter{dec: domain.Decision{Allowed: false, RetryAfter: 2500 * time.Millisecond}}}
	dec := Service{Store: store}.Decide("user:alice")

	assert.False(t, dec.Allowed)
	assert.Equal(t, 2500*time.Millisecond, dec.RetryAfter)
	assert.Equal(t, []domain.Key{"user:alice"}, store.keys)
}

func TestService_Admit_ReturnsRemaining(t *testing.T) {
	store := &fakeStore{lim: fakeLimiter{dec: domain.Decision{Allowed: true, Remaining: 7}}}

	remaining, err := Service{Store: store}.Admit(context.Background(), "k", "")
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)
}

func TestService_Admit_DeniedReturnsLimitError(t *testing.T) {
	store := &fakeStore{lim: fakeLimiter{dec: domain.Decision{RetryAfter: 1500 * time.Millisecond}}}

	_, err := Service{Store: store}.Admit(context.Background(), "k", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimitExceeded)

	var lerr *domain.LimitError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, domain.Key("k"), lerr.Key)
	assert.Equal(t, 2, lerr.RetryAfterSeconds())
	assert.Equal(t, "rate limit exceeded. Try again in 2s", lerr.Error())
}

func TestService_Admit_RecordsStats(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	stats := &recordingStats{}
	svc := Service{
		Store: &fakeStore{lim: fakeLimiter{dec: domain.Decision{Allowed: true}}},
		Stats: stats,
		Route: "analyze",
		Now:   func() time.Time { return at },
	}

	_, err := svc.Admit(context.Background(), "user:bob", "technology")
	require.NoError(t, err)

	require.Len(t, stats.events, 1)
	assert.Equal(t, domain.StatsEvent{
		Key:     "user:bob",
		Allowed: true,
		Route:   "analyze",
		Sector:  "technology",
		At:      at,
	}, stats.events[0])
}

func TestService_Admit_StatsFailureDoesNotDeny(t *testing.T) {
	svc := Service{
		Store: &fakeStore{lim: fakeLimiter{dec: domain.Decision{Allowed: true, Remaining: 3}}},
		Stats: &recordingStats{err: errors.New("redis down")},
	}

	remaining, err := svc.Admit(context.Background(), "k", "")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

package application

import (
	"context"
	"log/slog"
	"time"

	"sector-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão
// ou um *domain.LimitError.
type Service struct {
	Store domain.LimiterStore
	Stats domain.StatsStore
	// Route rotula os eventos de estatística (ex: "analyze", "login").
	Route string
	Now   func() time.Time
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	lim := s.Store.Get(key)
	if lim == nil {
		return domain.Decision{Allowed: true}
	}
	return lim.Admit()
}

// Admit decide e grava a estatística. Retorna a cota restante, ou um
// *domain.LimitError (errors.Is(err, domain.ErrRateLimitExceeded)).
func (s Service) Admit(ctx context.Context, key domain.Key, sector string) (int, error) {
	dec := s.Decide(key)
	s.record(ctx, key, sector, dec.Allowed)

	if !dec.Allowed {
		return 0, &domain.LimitError{Key: key, RetryAfter: dec.RetryAfter}
	}
	return dec.Remaining, nil
}

func (s Service) record(ctx context.Context, key domain.Key, sector string, allowed bool) {
	if s.Stats == nil {
		return
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	err := s.Stats.Record(ctx, domain.StatsEvent{
		Key:     key,
		Allowed: allowed,
		Route:   s.Route,
		Sector:  sector,
		At:      now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "ratelimit: stats record failed", "route", s.Route, "error", err)
	}
}

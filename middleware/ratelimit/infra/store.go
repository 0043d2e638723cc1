package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sector-gateway/middleware/ratelimit/domain"
)

// Store é uma janela deslizante (contagem exata) por chave, com cache de
// buckets e limpeza periódica de chaves inativas.
//
// O mutex do Store protege apenas o mapa (lookup/criação) e nunca espera o
// lock de um bucket. Cada bucket tem seu próprio mutex, então chaves
// diferentes não serializam entre si.
type Store struct {
	mu           sync.Mutex
	entries      map[string]*bucket
	maxRequests  int
	window       time.Duration
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

// bucket guarda os timestamps admitidos dentro da janela, em ordem.
type bucket struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	now      func() time.Time
	hits     []time.Time
	lastSeen atomic.Int64 // unix nanos
}

type StoreOption func(*Store)

func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(maxRequests int, window time.Duration, opts ...StoreOption) *Store {
	s := &Store{
		entries:      make(map[string]*bucket),
		maxRequests:  maxRequests,
		window:       window,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	// idleTTL menor que a janela apagaria buckets com hits ainda válidos
	if s.idleTTL < s.window {
		s.idleTTL = s.window
	}
	return s
}

func (s *Store) MaxRequests() int            { return s.maxRequests }
func (s *Store) Window() time.Duration       { return s.window }
func (s *Store) CleanupEvery() time.Duration { return s.cleanupEvery }
func (s *Store) Now() time.Time              { return s.now() }

// Get implementa domain.LimiterStore.
func (s *Store) Get(key domain.Key) domain.Limiter {
	return s.getBucket(string(key))
}

func (s *Store) getBucket(key string) *bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.entries[key]; ok {
		// marca uso ainda sob s.mu: o Cleanup não pode remover um bucket já entregue
		b.touch(s.now())
		return b
	}
	b := &bucket{max: s.maxRequests, window: s.window, now: s.now}
	b.touch(s.now())
	s.entries[key] = b
	return b
}

// Admit é o read-modify-write do bucket, sempre sob o lock da chave.
func (b *bucket) Admit() domain.Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.touch(now)
	b.prune(now)

	if len(b.hits) >= b.max {
		retry := b.window - now.Sub(b.hits[0])
		if retry < 0 {
			retry = 0
		}
		return domain.Decision{Allowed: false, RetryAfter: retry}
	}

	b.hits = append(b.hits, now)
	return domain.Decision{Allowed: true, Remaining: b.max - len(b.hits)}
}

// prune remove timestamps com now - t >= window. Caller segura b.mu.
func (b *bucket) prune(now time.Time) {
	i := 0
	for i < len(b.hits) && now.Sub(b.hits[i]) >= b.window {
		i++
	}
	if i == 0 {
		return
	}
	// copia para não reter o array antigo indefinidamente
	b.hits = append(b.hits[:0:0], b.hits[i:]...)
}

func (b *bucket) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.hits)
}

func (b *bucket) touch(t time.Time) { b.lastSeen.Store(t.UnixNano()) }

func (b *bucket) idleSince() time.Time {
	return time.Unix(0, b.lastSeen.Load())
}

// Len retorna o número de chaves em cache.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove buckets sem uso há mais de idleTTL.
func (s *Store) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, b := range s.entries {
		if b.idleSince().Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *Store) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

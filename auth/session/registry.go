// Package session guarda registros leves de sessão, indexados por session id.
//
// A validade de autenticação é do token; a sessão só serve para chave de rate
// limit e para rastrear atividade (last-seen). Sessões inativas por mais de
// IdleTTL são removidas pelo janitor.
package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidIdentity = errors.New("session: identity is required")

type Session struct {
	ID        string
	Owner     string
	CreatedAt time.Time
	LastSeen  time.Time
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
	newSuffix    func() string
}

type Option func(*Registry)

func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) { r.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) Option {
	return func(r *Registry) { r.cleanupEvery = d }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions:     make(map[string]*Session),
		idleTTL:      time.Hour,
		cleanupEvery: 5 * time.Minute,
		now:          time.Now,
		newSuffix:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start cria uma sessão para identity. O id é "<identity>:<unix>:<uuid>";
// o sufixo aleatório evita colisão entre logins concorrentes no mesmo segundo.
func (r *Registry) Start(identity string) (string, error) {
	if strings.TrimSpace(identity) == "" {
		return "", ErrInvalidIdentity
	}
	now := r.now()
	id := identity + ":" + strconv.FormatInt(now.Unix(), 10) + ":" + r.newSuffix()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &Session{ID: id, Owner: identity, CreatedAt: now, LastSeen: now}
	return id, nil
}

// Touch atualiza LastSeen. Id desconhecido é no-op.
func (r *Registry) Touch(id string) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastSeen = now
	}
}

// Get devolve uma cópia; o mapa interno nunca sai do registry.
func (r *Registry) Get(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cleanup remove sessões com LastSeen anterior a now - idleTTL.
// Retorna quantas foram removidas.
func (r *Registry) Cleanup() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor roda Cleanup periodicamente até ctx encerrar.
func (r *Registry) StartJanitor(ctx context.Context) {
	if r.cleanupEvery <= 0 || r.idleTTL <= 0 {
		return
	}

	t := time.NewTicker(r.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.Cleanup()
			}
		}
	}()
}

// Package token emite e verifica tokens de identidade assinados (JWT HMAC) com expiração.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken indica ausência do token ou header Authorization malformado.
	ErrMissingToken = errors.New("token: missing token")
	// ErrInvalidToken cobre assinatura inválida, algoritmo errado e claims ausentes/malformados.
	ErrInvalidToken = errors.New("token: invalid token")
	// ErrExpiredToken indica now >= exp.
	ErrExpiredToken = errors.New("token: token expired")
	// ErrInvalidIdentity é devolvido por Issue para identidade vazia.
	ErrInvalidIdentity = errors.New("token: identity is required")
)

// DefaultAlg é o algoritmo usado quando Config.Alg está vazio.
const DefaultAlg = "HS256"

var signingMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

type Config struct {
	Secret []byte
	Alg    string
	TTL    time.Duration
	// Now é o relógio usado em emissão e verificação (testes).
	Now func() time.Time
}

// Token é o resultado de Issue. Value é o JWT compacto.
type Token struct {
	Value     string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service emite e verifica tokens HMAC assinados. Não guarda estado: qualquer
// instância com o mesmo segredo verifica o token. Não há leeway, então o
// desvio de relógio entre instâncias fica por conta do deploy.
type Service struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

func New(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token: ttl must be > 0")
	}
	alg := strings.ToUpper(strings.TrimSpace(cfg.Alg))
	if alg == "" {
		alg = DefaultAlg
	}
	method, ok := signingMethods[alg]
	if !ok {
		return nil, fmt.Errorf("token: unsupported alg %q", cfg.Alg)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{secret: cfg.Secret, method: method, ttl: cfg.TTL, now: now}, nil
}

func (s *Service) TTL() time.Duration { return s.ttl }

// Issue assina {sub, iat, exp=iat+TTL}.
func (s *Service) Issue(identity string) (Token, error) {
	if strings.TrimSpace(identity) == "" {
		return Token{}, ErrInvalidIdentity
	}

	iat := s.now().Truncate(time.Second)
	exp := iat.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   identity,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("token: sign: %w", err)
	}
	return Token{Value: signed, Subject: identity, IssuedAt: iat, ExpiresAt: exp}, nil
}

// Verify devolve o subject de um token válido.
func (s *Service) Verify(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	var claims jwt.RegisteredClaims
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredToken
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	if claims.IssuedAt == nil {
		return "", fmt.Errorf("%w: missing iat", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// ParseBearer extrai o token de "Authorization: Bearer <token>".
func ParseBearer(header string) (string, error) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", ErrMissingToken
	}
	return tok, nil
}

// IsAuthError agrupa os erros que o transport traduz para 401.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken)
}

// Package pipeline orquestra uma análise de setor:
//
//	validar setor -> rate limit -> coletar notícias -> normalizar -> analisar -> renderizar
//
// O Pipeline não guarda estado por chamada e não segura lock durante as
// chamadas externas; o estado compartilhado (buckets, sessões) fica nos
// componentes injetados.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"sector-gateway/analysis"
	"sector-gateway/auth/session"
	"sector-gateway/middleware/ratelimit/domain"
	"sector-gateway/news"
	"sector-gateway/report"
)

const (
	MinSectorLen = 3
	MaxSectorLen = 50

	DefaultCollectTimeout = 15 * time.Second
	DefaultAnalyzeTimeout = 30 * time.Second
)

// Admitter é satisfeito por application.Service.
type Admitter interface {
	Admit(ctx context.Context, key domain.Key, sector string) (int, error)
}

// Sessions é o subconjunto do session.Registry que o pipeline usa.
type Sessions interface {
	Get(id string) (session.Session, bool)
	Touch(id string)
}

type Pipeline struct {
	Limiter  Admitter
	Sessions Sessions
	Source   news.Source
	// Analyzer nil significa "sem credencial": usa analysis.FallbackText e
	// nenhuma chamada externa de análise é feita.
	Analyzer analysis.Analyzer
	Renderer report.Renderer

	CollectTimeout time.Duration
	AnalyzeTimeout time.Duration
	Logger         *slog.Logger
}

type Request struct {
	Identity  string
	SessionID string
	Sector    string
}

type Report struct {
	Sector   string `json:"sector"`
	Markdown string `json:"markdown"`

	// Remaining é a cota de rate limit após esta chamada.
	Remaining int `json:"-"`
}

// ValidateSector aplica trim + lower-case e exige 3..50 caracteres.
func ValidateSector(raw string) (string, error) {
	sector := strings.ToLower(strings.TrimSpace(raw))
	n := utf8.RuneCountInString(sector)
	if n < MinSectorLen || n > MaxSectorLen {
		return "", &ValidationError{
			Field: "sector",
			Msg:   "must be between 3 and 50 characters",
		}
	}
	return sector, nil
}

func (p *Pipeline) Analyze(ctx context.Context, req Request) (Report, error) {
	log := p.logger()

	sector, err := ValidateSector(req.Sector)
	if err != nil {
		return Report{}, err
	}

	key := p.rateKey(ctx, req)
	remaining := 0
	if p.Limiter != nil {
		remaining, err = p.Limiter.Admit(ctx, key, sector)
		if err != nil {
			log.InfoContext(ctx, "pipeline: rate limited", "key", string(key), "error", err)
			return Report{}, err
		}
	}
	log.DebugContext(ctx, "pipeline: admitted", "key", string(key), "remaining", remaining)

	raw, err := p.collect(ctx, sector)
	if err != nil {
		log.ErrorContext(ctx, "pipeline: collection failed", "sector", sector, "error", err)
		return Report{}, &StageError{Stage: StageCollect, Err: err}
	}
	items := news.Normalize(raw)
	log.DebugContext(ctx, "pipeline: collected", "sector", sector, "items", len(items))

	text, err := p.analyze(ctx, sector, items)
	if err != nil {
		log.ErrorContext(ctx, "pipeline: analysis failed", "sector", sector, "error", err)
		return Report{}, &StageError{Stage: StageAnalyze, Err: err}
	}

	renderer := p.Renderer
	if renderer == nil {
		renderer = report.Markdown{}
	}
	md := renderer.Render(sector, text, items)

	log.InfoContext(ctx, "pipeline: report ready", "sector", sector, "items", len(items), "remaining", remaining)
	return Report{Sector: sector, Markdown: md, Remaining: remaining}, nil
}

// rateKey usa a sessão só quando ela existe e pertence à identidade;
// senão a chave é a própria identidade. Sessão válida tem last-seen atualizado.
// Mais restrito que "chave por session id se presente": um id inventado ou
// alheio não abre janela nova.
func (p *Pipeline) rateKey(ctx context.Context, req Request) domain.Key {
	if req.SessionID != "" && p.Sessions != nil {
		if s, ok := p.Sessions.Get(req.SessionID); ok && s.Owner == req.Identity {
			p.Sessions.Touch(req.SessionID)
			return domain.Key("session:" + req.SessionID)
		}
		p.logger().DebugContext(ctx, "pipeline: session ignored", "session_id", req.SessionID)
	}
	return domain.Key("user:" + req.Identity)
}

func (p *Pipeline) collect(ctx context.Context, sector string) ([]news.RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, orDefault(p.CollectTimeout, DefaultCollectTimeout))
	defer cancel()
	return p.Source.Fetch(ctx, sector)
}

func (p *Pipeline) analyze(ctx context.Context, sector string, items []news.Item) (string, error) {
	if p.Analyzer == nil {
		return analysis.FallbackText(sector), nil
	}
	ctx, cancel := context.WithTimeout(ctx, orDefault(p.AnalyzeTimeout, DefaultAnalyzeTimeout))
	defer cancel()
	return p.Analyzer.Analyze(ctx, sector, items)
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

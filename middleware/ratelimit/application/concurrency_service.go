package application

import (
	"context"
	"errors"
	"time"

	"sector-gateway/middleware/ratelimit/domain"
)

// ErrSaturated indica que nenhuma vaga ficou livre dentro do AcquireTimeout.
var ErrSaturated = errors.New("concurrency: no free slot")

// ConcurrencyService limita quantas requisições ficam em andamento ao mesmo
// tempo, sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga e devolve a função de release.
//
// Sem Pool o limite está desligado. Com AcquireTimeout <= 0 espera até o ctx
// do chamador encerrar. Se o próprio ctx do chamador encerrou, devolve ctx.Err();
// se foi o timeout de aquisição, devolve ErrSaturated.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if ok {
		return release, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrSaturated
}

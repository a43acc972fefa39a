package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/jhoicas/insumos-api/internal/domain"
)

// retryTx ejecuta op con un timeout por intento y la reintenta con backoff exponencial
// mientras falle por concurrencia o timeout. Cualquier otro error se devuelve sin reintentar.
func retryTx[T any](ctx context.Context, cfg Config, log zerolog.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		attemptCtx := ctx
		cancel := func() {}
		if cfg.TxTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.TxTimeout)
		}
		defer cancel()

		res, err := op(attemptCtx)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = errors.Join(domain.ErrTimeout, err)
		}
		if !domain.IsRetryable(err) {
			return res, backoff.Permanent(err)
		}
		log.Debug().Err(err).Int("attempt", attempt).Msg("transacción reintentable")
		return res, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(max(cfg.MaxRetries, 0)+1)),
	)
}

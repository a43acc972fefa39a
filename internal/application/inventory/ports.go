package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/insumos-api/internal/domain/inventory"
)

// ReplayGuard lock distribuido para que una sola instancia recalcule el stock de una tienda a la vez.
type ReplayGuard interface {
	// Acquire devuelve un contexto que se cancela si el lock se pierde mientras se trabaja,
	// la función de liberación, o ErrConflict si otra instancia tiene el lock.
	Acquire(ctx context.Context, key string) (lockCtx context.Context, release func(), err error)
}

// StatsInvalidator descarta las estadísticas cacheadas de una tienda tras una escritura en el ledger.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, shopID string)
}

// Config parámetros del ledger (ver pkg/config).
type Config struct {
	Policy     inventory.StockPolicy
	MaxRetries int
	TxTimeout  time.Duration
}

// DefaultConfig valores usados cuando la configuración no define otros.
func DefaultConfig() Config {
	return Config{Policy: inventory.StockPolicyReject, MaxRetries: 5, TxTimeout: 5 * time.Second}
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) {}

type noopGuard struct{}

func (noopGuard) Acquire(ctx context.Context, _ string) (context.Context, func(), error) {
	return ctx, func() {}, nil
}

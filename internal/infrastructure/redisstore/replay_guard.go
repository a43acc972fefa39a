package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/jhoicas/insumos-api/internal/application/inventory"
	"github.com/jhoicas/insumos-api/internal/domain"
)

var _ inventory.ReplayGuard = (*ReplayGuard)(nil)

const defaultLockTTL = 30 * time.Second

// ReplayGuard lock distribuido (redislock) para que una sola instancia reconstruya el stock de una tienda.
// Mientras el lock está tomado se renueva cada ttl/2, así una reconstrucción larga no lo pierde por expiración.
type ReplayGuard struct {
	locker *redislock.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewReplayGuard construye el guard. ttl acota cuánto sobrevive el lock si la instancia muere sin liberarlo.
func NewReplayGuard(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ReplayGuard {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &ReplayGuard{locker: redislock.New(rdb), ttl: ttl, log: log}
}

// Acquire obtiene el lock sin esperar. ErrConflict si otra instancia ya lo tiene.
// El contexto devuelto se cancela con causa ErrConflict si una renovación falla.
func (g *ReplayGuard) Acquire(ctx context.Context, key string) (context.Context, func(), error) {
	lock, err := g.locker.Obtain(ctx, "insumos:lock:"+key, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, nil, fmt.Errorf("%w: replay en curso (%s)", domain.ErrConflict, key)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("obtener lock %s: %w", key, err)
	}

	lockCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go g.keepAlive(lockCtx, cancel, lock, key, done)

	var once sync.Once
	return lockCtx, func() {
		once.Do(func() {
			cancel(nil)
			<-done
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				g.log.Warn().Err(err).Str("key", key).Msg("redis: liberar lock")
			}
		})
	}, nil
}

// refresher lo cumple *redislock.Lock.
type refresher interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
}

func (g *ReplayGuard) keepAlive(ctx context.Context, cancel context.CancelCauseFunc, lock refresher, key string, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(g.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lock.Refresh(ctx, g.ttl, nil); err != nil {
				if ctx.Err() != nil {
					return
				}
				g.log.Error().Err(err).Str("key", key).Msg("redis: lock de replay perdido, se cancela la reconstrucción")
				cancel(fmt.Errorf("%w: lock de replay perdido (%s)", domain.ErrConflict, key))
				return
			}
		}
	}
}

package memory

import (
	"context"

	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

var _ repository.IdempotencyRepository = (*IdempotencyRepository)(nil)

// IdempotencyRepository llaves de idempotencia. Reserve toma un lock sobre la llave que se
// mantiene hasta el fin de la transacción: un segundo intento con la misma llave espera a que
// el primero confirme (y entonces ve su resultado) o revierta (y entonces la reserva él).
type IdempotencyRepository struct {
	t *txn
}

func idempotencyKey(shopID, scope, key string) string { return shopID + "|" + scope + "|" + key }

func (r *IdempotencyRepository) Reserve(ctx context.Context, shopID, scope, key string) (string, error) {
	k := idempotencyKey(shopID, scope, key)
	if err := r.t.lock(ctx, "idempotency:"+k); err != nil {
		return "", err
	}
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idempotency[k], nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, shopID, scope, key, resultID string) error {
	s := r.t.s
	k := idempotencyKey(shopID, scope, key)
	return r.t.write(nil, func() { s.idempotency[k] = resultID })
}

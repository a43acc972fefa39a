package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

var _ repository.IdempotencyRepository = (*IdempotencyRepo)(nil)

// IdempotencyRepo llaves de idempotencia sobre PostgreSQL. Usar siempre con una tx.
type IdempotencyRepo struct {
	q Querier
}

// NewIdempotencyRepository construye el adaptador.
func NewIdempotencyRepository(q Querier) *IdempotencyRepo {
	return &IdempotencyRepo{q: q}
}

// Reserve inserta la llave. Si otra tx la insertó y no ha terminado, el INSERT espera sobre el
// índice único; si esa tx confirmó, se devuelve su result_id.
func (r *IdempotencyRepo) Reserve(ctx context.Context, shopID, scope, key string) (string, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO idempotency_keys (shop_id, scope, key, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (shop_id, scope, key) DO NOTHING`, shopID, scope, key)
	if err != nil {
		return "", fmt.Errorf("reserve idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return "", nil
	}
	var resultID *string
	err = r.q.QueryRow(ctx, `
		SELECT result_id FROM idempotency_keys
		WHERE shop_id = $1 AND scope = $2 AND key = $3`, shopID, scope, key).Scan(&resultID)
	if err != nil {
		return "", fmt.Errorf("read idempotency key: %w", err)
	}
	if resultID == nil {
		return "", nil
	}
	return *resultID, nil
}

// Complete asocia el resultado a la llave reservada en esta tx.
func (r *IdempotencyRepo) Complete(ctx context.Context, shopID, scope, key, resultID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE idempotency_keys SET result_id = $4
		WHERE shop_id = $1 AND scope = $2 AND key = $3`, shopID, scope, key, resultID)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

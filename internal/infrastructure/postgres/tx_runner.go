package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout acota la espera por un
// SELECT FOR UPDATE (0 = sin límite propio, solo el del contexto).
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los errores se clasifican con la taxonomía de dominio (ver classify).
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classify(ctx, fmt.Errorf("begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if r.lockTimeout > 0 {
		// SET no admite parámetros; el valor es un entero controlado por la configuración.
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())); err != nil {
			return classify(ctx, fmt.Errorf("set lock_timeout: %w", err))
		}
	}

	if err := fn(NewRepos(tx)); err != nil {
		return classify(ctx, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(ctx, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// NewRepos repositorios sobre q: el pool para lecturas sueltas o una pgx.Tx dentro de Run.
func NewRepos(q Querier) repository.Repos {
	return repository.Repos{
		Ingredients:  NewIngredientRepository(q),
		Transactions: NewInventoryTransactionRepository(q),
		Batches:      NewBatchRepository(q),
		Recipes:      NewRecipeRepository(q),
		Idempotency:  NewIdempotencyRepository(q),
	}
}

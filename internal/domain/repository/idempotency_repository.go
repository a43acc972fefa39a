package repository

import "context"

// Alcances de las llaves de idempotencia.
const (
	IdempotencyScopeTransaction = "transaction"
	IdempotencyScopeBatch       = "batch"
)

// IdempotencyRepository llaves de idempotencia enviadas por el cliente.
// Debe usarse dentro de la misma transacción que la escritura que protege.
type IdempotencyRepository interface {
	// Reserve reserva la llave. Si ya fue completada devuelve el ID del resultado original.
	// Una llave en uso por otra transacción concurrente bloquea hasta que ésta termine.
	Reserve(ctx context.Context, shopID, scope, key string) (existingResultID string, err error)
	// Complete asocia el resultado a la llave reservada.
	Complete(ctx context.Context, shopID, scope, key, resultID string) error
}

package repository

import "context"

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Ingredients  IngredientRepository
	Transactions InventoryTransactionRepository
	Batches      BatchRepository
	Recipes      RecipeRepository
	Idempotency  IdempotencyRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil; rollback completo en cualquier otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}

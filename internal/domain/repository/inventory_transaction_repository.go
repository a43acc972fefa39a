package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
)

// TransactionFilter filtro y cursor keyset; orden transaction_date DESC, id DESC.
type TransactionFilter struct {
	ShopID       string
	IngredientID string
	BatchID      string
	Type         string
	From         *time.Time
	To           *time.Time
	BeforeDate   *time.Time
	BeforeID     string
	Limit        int
}

// InventoryTransactionRepository puerto del ledger. Solo inserción: no hay Update ni Delete.
type InventoryTransactionRepository interface {
	Create(ctx context.Context, tx *entity.InventoryTransaction) error
	GetByID(ctx context.Context, id string) (*entity.InventoryTransaction, error)
	List(ctx context.Context, f TransactionFilter) ([]*entity.InventoryTransaction, error)
	// SumSignedDelta Σ delta con signo de todas las transacciones del insumo (replay).
	SumSignedDelta(ctx context.Context, ingredientID string) (decimal.Decimal, error)
	// SumCostByType Σ total_cost agrupado por tipo, opcionalmente en [from, to].
	SumCostByType(ctx context.Context, shopID string, from, to *time.Time) (map[string]decimal.Decimal, error)
}

package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
)

// BatchFilter cursor keyset; orden created_at DESC, id DESC.
type BatchFilter struct {
	ShopID       string
	BeforeCreate *time.Time
	BeforeID     string
	Limit        int
}

// BatchRepository puerto de persistencia para lotes de compra y sus líneas.
type BatchRepository interface {
	// Create inserta la cabecera y todas sus líneas.
	Create(ctx context.Context, b *entity.IngredientBatch) error
	GetByID(ctx context.Context, id string) (*entity.IngredientBatch, error)
	List(ctx context.Context, f BatchFilter) ([]*entity.IngredientBatch, error)
	// SumTotalCost Σ total_cost de los lotes; con rango, solo los que inician dentro de [from, to].
	SumTotalCost(ctx context.Context, shopID string, from, to *time.Time) (decimal.Decimal, error)
}

package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
)

// IngredientFilter filtro y cursor keyset para listar insumos ordenados por (name_key, id).
type IngredientFilter struct {
	ShopID       string
	Search       string // subcadena sobre el nombre normalizado
	AfterNameKey string
	AfterID      string
	Limit        int
}

// IngredientRepository define el puerto de persistencia para Ingredient (DIP).
// GetByID/GetForUpdate devuelven (nil, nil) si no existe.
type IngredientRepository interface {
	Create(ctx context.Context, ing *entity.Ingredient) error
	GetByID(ctx context.Context, id string) (*entity.Ingredient, error)
	// GetForUpdate bloquea la fila del insumo hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Ingredient, error)
	GetByShopAndNameKey(ctx context.Context, shopID, nameKey string) (*entity.Ingredient, error)
	// Update persiste metadatos y precio de catálogo. Nunca toca CurrentStock.
	Update(ctx context.Context, ing *entity.Ingredient) error
	// UpdateStock escribe la proyección de stock; solo lo usa el ledger dentro de su transacción.
	UpdateStock(ctx context.Context, id string, stock decimal.Decimal, at time.Time) error
	List(ctx context.Context, f IngredientFilter) ([]*entity.Ingredient, error)
	ListIDsByShop(ctx context.Context, shopID string) ([]string, error)
	CountReferences(ctx context.Context, id string) (entity.IngredientReferences, error)
	AverageUnitPrice(ctx context.Context, shopID string) (decimal.Decimal, error)
	Delete(ctx context.Context, id string) error
}

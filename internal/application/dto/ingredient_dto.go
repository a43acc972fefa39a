package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateIngredientRequest entrada para crear un insumo. El stock inicia en 0.
// Sin unit_price el precio de catálogo queda en 0 y las transacciones sin precio explícito costarán 0.
type CreateIngredientRequest struct {
	Name      string          `json:"name" validate:"required,min=1,max=120"`
	Unit      string          `json:"unit" validate:"required,min=1,max=20"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// UpdateIngredientRequest entrada para actualizar metadatos y precio de catálogo (sin stock).
type UpdateIngredientRequest struct {
	Name      *string          `json:"name" validate:"omitempty,min=1,max=120"`
	Unit      *string          `json:"unit" validate:"omitempty,min=1,max=20"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// ListIngredientsRequest query de GET /api/ingredients.
type ListIngredientsRequest struct {
	Search string `query:"search" validate:"max=120"`
	CursorRequest
}

// IngredientResponse salida de un insumo.
type IngredientResponse struct {
	ID               string          `json:"id"`
	ShopID           string          `json:"shop_id"`
	Name             string          `json:"name"`
	Unit             string          `json:"unit"`
	CurrentUnitPrice decimal.Decimal `json:"current_unit_price"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IngredientListResponse página de insumos.
type IngredientListResponse struct {
	Items []IngredientResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

// StockDriftResponse resultado de recalcular el stock desde el ledger.
type StockDriftResponse struct {
	IngredientID string          `json:"ingredient_id"`
	StoredStock  decimal.Decimal `json:"stored_stock"`
	LedgerStock  decimal.Decimal `json:"ledger_stock"`
	Drift        decimal.Decimal `json:"drift"`
	Repaired     bool            `json:"repaired"`
}

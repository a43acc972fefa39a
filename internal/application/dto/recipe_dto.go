package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecipeLineRequest ingrediente y cantidad de una receta.
type RecipeLineRequest struct {
	IngredientID string          `json:"ingredient_id" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// RecipeQuoteRequest body para POST /api/recipes/quote (costeo sin persistir).
type RecipeQuoteRequest struct {
	Lines        []RecipeLineRequest `json:"lines" validate:"required,min=1,dive"`
	SellingPrice decimal.Decimal     `json:"selling_price"`
}

// SaveRecipeRequest body para PUT /api/recipes/products/:productId.
type SaveRecipeRequest struct {
	Lines        []RecipeLineRequest `json:"lines" validate:"required,min=1,dive"`
	SellingPrice decimal.Decimal     `json:"selling_price"`
}

// RecipeLineResponse línea con la foto de catálogo.
type RecipeLineResponse struct {
	IngredientID      string          `json:"ingredient_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	SnapshotName      string          `json:"snapshot_name"`
	SnapshotUnit      string          `json:"snapshot_unit"`
	SnapshotUnitPrice decimal.Decimal `json:"snapshot_unit_price"`
	LineCost          decimal.Decimal `json:"line_cost"`
}

// MarginResponse margen sobre precio de venta. Nulo si el precio es 0.
type MarginResponse struct {
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profit_percent"`
}

// RecipeCostResponse costo total de ingredientes de un producto o borrador.
type RecipeCostResponse struct {
	ProductID           string               `json:"product_id,omitempty"`
	Lines               []RecipeLineResponse `json:"lines"`
	TotalIngredientCost decimal.Decimal      `json:"total_ingredient_cost"`
	SellingPrice        decimal.Decimal      `json:"selling_price"`
	Margin              *MarginResponse      `json:"margin"`
	SnapshotAt          *time.Time           `json:"snapshot_at,omitempty"`
}

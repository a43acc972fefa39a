package inventory

import (
	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// Margin rentabilidad de un producto frente a su costo de ingredientes.
type Margin struct {
	Profit        decimal.Decimal
	ProfitPercent decimal.Decimal
}

// ComputeCost Σ quantity × snapshot_unit_price sobre las líneas de la receta.
func ComputeCost(lines []entity.RecipeLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Cost())
	}
	return total
}

// ComputeMargin profit = precio − costo; profit% = profit / precio × 100.
// Con precio de venta cero el margen no está definido y se devuelve nil.
func ComputeMargin(sellingPrice, ingredientCost decimal.Decimal) *Margin {
	if sellingPrice.IsZero() {
		return nil
	}
	profit := sellingPrice.Sub(ingredientCost)
	return &Margin{
		Profit:        profit,
		ProfitPercent: profit.Div(sellingPrice).Mul(hundred),
	}
}

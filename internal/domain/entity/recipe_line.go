package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecipeLine ingrediente de un producto con la foto (nombre, unidad, precio) tomada al agregarlo.
// El costo del producto se calcula siempre sobre la foto, nunca sobre el catálogo vivo.
type RecipeLine struct {
	ProductID         string
	IngredientID      string
	Quantity          decimal.Decimal
	SnapshotUnitPrice decimal.Decimal
	SnapshotName      string
	SnapshotUnit      string
	CreatedAt         time.Time
}

// Cost costo de la línea: Quantity × SnapshotUnitPrice.
func (l RecipeLine) Cost() decimal.Decimal {
	return l.Quantity.Mul(l.SnapshotUnitPrice)
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ingredient representa un insumo del catálogo de una tienda.
// CurrentStock es una proyección del ledger: solo cambia al aplicar una InventoryTransaction.
type Ingredient struct {
	ID               string
	ShopID           string
	Name             string
	NameKey          string // nombre normalizado (case folding), único por tienda
	Unit             string // kg, g, l, ml, unidades...
	CurrentUnitPrice decimal.Decimal
	CurrentStock     decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IngredientReferences conteo de registros históricos que apuntan a un insumo.
type IngredientReferences struct {
	Transactions int
	BatchLines   int
	RecipeLines  int
}

// Any indica si existe al menos una referencia.
func (r IngredientReferences) Any() bool {
	return r.Transactions > 0 || r.BatchLines > 0 || r.RecipeLines > 0
}

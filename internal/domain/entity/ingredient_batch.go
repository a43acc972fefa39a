package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// IngredientBatch compra agrupada de varios insumos. Se crea completa o no se crea.
type IngredientBatch struct {
	ID          string
	ShopID      string
	Category    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Notes       string
	TotalCost   decimal.Decimal // Σ Subtotal de sus líneas
	CreatedBy   string
	CreatedAt   time.Time
	Lines       []BatchLineItem
}

// BatchLineItem línea de un lote; cada una produce una transacción purchase.
type BatchLineItem struct {
	BatchID      string
	LineNo       int
	IngredientID string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
}

// Subtotal de la línea, redondeado a los 6 decimales que guarda la BD.
// TotalCost del lote y de cada transacción se derivan de este mismo valor.
func (l BatchLineItem) Subtotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Round(6)
}

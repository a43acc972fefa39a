package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de transacción del ledger. El tipo determina el signo del efecto sobre el stock.
const (
	TransactionTypePurchase   = "purchase"   // compra, suma
	TransactionTypeUsage      = "usage"      // consumo, resta
	TransactionTypeAdjustment = "adjustment" // ajuste, con signo propio
	TransactionTypeWaste      = "waste"      // merma, resta
	TransactionTypeReturn     = "return"     // devolución, suma
)

// TransactionTypes en orden estable (reportes, validación).
var TransactionTypes = []string{
	TransactionTypePurchase,
	TransactionTypeUsage,
	TransactionTypeAdjustment,
	TransactionTypeWaste,
	TransactionTypeReturn,
}

// Códigos de motivo para ajustes.
const (
	ReasonCountCorrection = "count_correction"
	ReasonSpoilage        = "spoilage"
	ReasonTheft           = "theft"
	ReasonDataEntryFix    = "data_entry_fix"
	ReasonOther           = "other"
)

// AdjustmentReasons códigos de motivo aceptados para transacciones de ajuste.
var AdjustmentReasons = []string{
	ReasonCountCorrection,
	ReasonSpoilage,
	ReasonTheft,
	ReasonDataEntryFix,
	ReasonOther,
}

// InventoryTransaction es un evento inmutable del ledger de un insumo.
// Las correcciones se hacen con una nueva transacción, nunca editando esta.
type InventoryTransaction struct {
	ID              string
	ShopID          string
	IngredientID    string
	BatchID         string // vacío si no proviene de un lote
	Type            string
	Quantity        decimal.Decimal // magnitud; en adjustment lleva signo
	ReasonCode      string
	UnitPrice       decimal.Decimal // congelado al registrar
	TotalCost       decimal.Decimal // |Quantity| × UnitPrice, congelado al registrar
	BalanceAfter    decimal.Decimal // stock del insumo inmediatamente después de aplicarla
	TransactionDate time.Time
	Notes           string
	RecordedBy      string
	CreatedAt       time.Time
}

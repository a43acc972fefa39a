package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordTransactionRequest body para POST /api/inventory/transactions.
// UnitPrice omitido = precio vigente del catálogo al registrar.
type RecordTransactionRequest struct {
	IngredientID    string           `json:"ingredient_id" validate:"required"`
	Type            string           `json:"type" validate:"required,oneof=purchase usage adjustment waste return"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price,omitempty"`
	ReasonCode      string           `json:"reason_code,omitempty" validate:"omitempty,oneof=count_correction spoilage theft data_entry_fix other"`
	Notes           string           `json:"notes,omitempty" validate:"max=500"`
	TransactionDate *time.Time       `json:"transaction_date,omitempty"`
}

// ListTransactionsRequest query de GET /api/inventory/transactions.
type ListTransactionsRequest struct {
	IngredientID string `query:"ingredient_id"`
	Type         string `query:"type" validate:"omitempty,oneof=purchase usage adjustment waste return"`
	From         string `query:"from"` // YYYY-MM-DD o RFC3339
	To           string `query:"to"`
	CursorRequest
}

// TransactionResponse salida de una transacción del ledger.
type TransactionResponse struct {
	ID              string          `json:"id"`
	IngredientID    string          `json:"ingredient_id"`
	BatchID         string          `json:"batch_id,omitempty"`
	Type            string          `json:"type"`
	Quantity        decimal.Decimal `json:"quantity"`
	ReasonCode      string          `json:"reason_code,omitempty"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	TransactionDate time.Time       `json:"transaction_date"`
	Notes           string          `json:"notes,omitempty"`
	RecordedBy      string          `json:"recorded_by"`
	CreatedAt       time.Time       `json:"created_at"`
	Replayed        bool            `json:"replayed,omitempty"` // true si se devolvió por llave de idempotencia
}

// TransactionListResponse página del ledger.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// BatchLineRequest línea de un lote de compra. unit_price es obligatorio: "0" debe enviarse explícito.
type BatchLineRequest struct {
	IngredientID string           `json:"ingredient_id" validate:"required"`
	Quantity     decimal.Decimal  `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price" validate:"required"`
}

// CreateBatchRequest body para POST /api/inventory/batches.
type CreateBatchRequest struct {
	Category    string             `json:"category" validate:"required,max=80"`
	PeriodStart time.Time          `json:"period_start" validate:"required"`
	PeriodEnd   time.Time          `json:"period_end" validate:"required"`
	Notes       string             `json:"notes,omitempty" validate:"max=500"`
	Lines       []BatchLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// BatchLineResponse línea de un lote en la salida.
type BatchLineResponse struct {
	IngredientID string          `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// BatchResponse salida de un lote con sus líneas (y opcionalmente sus transacciones).
type BatchResponse struct {
	ID           string                `json:"id"`
	Category     string                `json:"category"`
	PeriodStart  time.Time             `json:"period_start"`
	PeriodEnd    time.Time             `json:"period_end"`
	Notes        string                `json:"notes,omitempty"`
	TotalCost    decimal.Decimal       `json:"total_cost"`
	CreatedBy    string                `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	Lines        []BatchLineResponse   `json:"lines"`
	Transactions []TransactionResponse `json:"transactions,omitempty"`
	Replayed     bool                  `json:"replayed,omitempty"`
}

// BatchListResponse página de lotes.
type BatchListResponse struct {
	Items []BatchResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

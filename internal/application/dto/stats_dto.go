package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatsRequest query de GET /api/stats (rango opcional).
type StatsRequest struct {
	From string `query:"from"` // YYYY-MM-DD o RFC3339
	To   string `query:"to"`
}

// StatsResponse agregados derivados del ledger y de los lotes; nada se persiste.
type StatsResponse struct {
	TotalInvestment  decimal.Decimal            `json:"total_investment"`   // Σ total_cost de todos los lotes
	PeriodSpend      decimal.Decimal            `json:"period_spend"`       // Σ total_cost de lotes del rango
	AverageUnitPrice decimal.Decimal            `json:"average_unit_price"` // promedio de current_unit_price
	ByType           map[string]decimal.Decimal `json:"by_type"`            // Σ total_cost por tipo de transacción
	From             *time.Time                 `json:"from,omitempty"`
	To               *time.Time                 `json:"to,omitempty"`
	GeneratedAt      time.Time                  `json:"generated_at"`
}

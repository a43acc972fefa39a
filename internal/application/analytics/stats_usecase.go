// Package analytics contiene los casos de uso de reportes: estadísticas del inventario
// derivadas del ledger y de los lotes, su versión PDF y la exportación del ledger a Excel.
package analytics

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	"github.com/jhoicas/insumos-api/internal/domain"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

// StatsCache caché de lectura de estadísticas por tienda. Nunca guarda stock.
// Cada Invalidate avanza la versión de la tienda; Set con una versión vieja no escribe,
// así un cálculo que empezó antes de una escritura no deja valores viejos en caché.
type StatsCache interface {
	Version(ctx context.Context, shopID string) (version int64, ok bool)
	Get(ctx context.Context, shopID, rangeKey string) (*dto.StatsResponse, bool)
	Set(ctx context.Context, shopID, rangeKey string, version int64, stats *dto.StatsResponse)
	Invalidate(ctx context.Context, shopID string)
}

// StatsReportGenerator genera el PDF de estadísticas.
type StatsReportGenerator interface {
	GenerateStatsReport(stats *dto.StatsResponse, shopID string) ([]byte, error)
}

// TransactionExporter vuelca una secuencia de transacciones a una hoja de cálculo.
type TransactionExporter interface {
	ExportTransactions(rows iter.Seq2[*entity.InventoryTransaction, error], names map[string]string) ([]byte, error)
}

// TransactionSource secuencia perezosa del ledger (LedgerUseCase.All).
type TransactionSource interface {
	All(ctx context.Context, f repository.TransactionFilter) iter.Seq2[*entity.InventoryTransaction, error]
}

// StatsUseCase agrega el ledger, los lotes y el catálogo en lectura.
// Nada se persiste: cada llamada recalcula (o lee del caché, que el ledger invalida).
type StatsUseCase struct {
	transactions repository.InventoryTransactionRepository
	batches      repository.BatchRepository
	ingredients  repository.IngredientRepository
	ledger       TransactionSource
	cache        StatsCache
	pdf          StatsReportGenerator
	xlsx         TransactionExporter
	log          zerolog.Logger
}

// NewStatsUseCase construye el caso de uso. cache, pdf y xlsx pueden ser nil.
func NewStatsUseCase(
	transactions repository.InventoryTransactionRepository,
	batches repository.BatchRepository,
	ingredients repository.IngredientRepository,
	ledger TransactionSource,
	cache StatsCache,
	pdf StatsReportGenerator,
	xlsx TransactionExporter,
	log zerolog.Logger,
) *StatsUseCase {
	return &StatsUseCase{
		transactions: transactions,
		batches:      batches,
		ingredients:  ingredients,
		ledger:       ledger,
		cache:        cache,
		pdf:          pdf,
		xlsx:         xlsx,
		log:          log,
	}
}

// GetStats calcula {total_investment, period_spend, average_unit_price, by_type}.
// Sin rango, period_spend = total_investment y by_type cubre todo el historial.
//
// Cuatro consultas en paralelo:
//  1. SumTotalCost(sin rango)   → TotalInvestment
//  2. SumTotalCost(rango)       → PeriodSpend
//  3. AverageUnitPrice          → AverageUnitPrice
//  4. SumCostByType(rango)      → ByType
func (uc *StatsUseCase) GetStats(ctx context.Context, shopID string, in dto.StatsRequest) (*dto.StatsResponse, error) {
	from, err := dto.ParseDate(in.From, false)
	if err != nil {
		return nil, domain.NewValidationError("from", "fecha inválida")
	}
	to, err := dto.ParseDate(in.To, true)
	if err != nil {
		return nil, domain.NewValidationError("to", "fecha inválida")
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, domain.NewValidationError("from", "debe ser anterior a to")
	}

	rangeKey := rangeKey(from, to)
	var (
		version   int64
		cacheable bool
	)
	if uc.cache != nil {
		if cached, ok := uc.cache.Get(ctx, shopID, rangeKey); ok {
			return cached, nil
		}
		// la versión se lee antes de consultar
		version, cacheable = uc.cache.Version(ctx, shopID)
	}

	// ── Goroutines para paralelizar las consultas ─────────────────────────────
	type sumResult struct {
		v   decimal.Decimal
		err error
	}
	type byTypeResult struct {
		m   map[string]decimal.Decimal
		err error
	}
	totalCh := make(chan sumResult, 1)
	periodCh := make(chan sumResult, 1)
	avgCh := make(chan sumResult, 1)
	typeCh := make(chan byTypeResult, 1)

	go func() {
		v, err := uc.batches.SumTotalCost(ctx, shopID, nil, nil)
		totalCh <- sumResult{v, err}
	}()
	go func() {
		if from == nil && to == nil {
			periodCh <- sumResult{}
			return
		}
		v, err := uc.batches.SumTotalCost(ctx, shopID, from, to)
		periodCh <- sumResult{v, err}
	}()
	go func() {
		v, err := uc.ingredients.AverageUnitPrice(ctx, shopID)
		avgCh <- sumResult{v, err}
	}()
	go func() {
		m, err := uc.transactions.SumCostByType(ctx, shopID, from, to)
		typeCh <- byTypeResult{m, err}
	}()

	total, period, avg, byType := <-totalCh, <-periodCh, <-avgCh, <-typeCh
	if total.err != nil {
		return nil, fmt.Errorf("stats: inversión total: %w", total.err)
	}
	if period.err != nil {
		return nil, fmt.Errorf("stats: gasto del periodo: %w", period.err)
	}
	if avg.err != nil {
		return nil, fmt.Errorf("stats: precio promedio: %w", avg.err)
	}
	if byType.err != nil {
		return nil, fmt.Errorf("stats: costo por tipo: %w", byType.err)
	}
	if from == nil && to == nil {
		period.v = total.v
	}

	// Todos los tipos presentes, aunque sumen 0.
	types := make(map[string]decimal.Decimal, len(entity.TransactionTypes))
	for _, t := range entity.TransactionTypes {
		types[t] = decimal.Zero
	}
	for t, v := range byType.m {
		types[t] = v
	}

	stats := &dto.StatsResponse{
		TotalInvestment:  total.v,
		PeriodSpend:      period.v,
		AverageUnitPrice: avg.v,
		ByType:           types,
		From:             from,
		To:               to,
		GeneratedAt:      time.Now().UTC(),
	}
	if cacheable {
		uc.cache.Set(ctx, shopID, rangeKey, version, stats)
	}
	return stats, nil
}

// StatsReportPDF genera el PDF de las estadísticas del rango.
func (uc *StatsUseCase) StatsReportPDF(ctx context.Context, shopID string, in dto.StatsRequest) ([]byte, error) {
	if uc.pdf == nil {
		return nil, fmt.Errorf("stats: generador PDF no configurado")
	}
	stats, err := uc.GetStats(ctx, shopID, in)
	if err != nil {
		return nil, err
	}
	return uc.pdf.GenerateStatsReport(stats, shopID)
}

// ExportTransactionsXLSX exporta el ledger filtrado a un archivo .xlsx.
func (uc *StatsUseCase) ExportTransactionsXLSX(ctx context.Context, f repository.TransactionFilter) ([]byte, error) {
	if uc.xlsx == nil {
		return nil, fmt.Errorf("stats: exportador xlsx no configurado")
	}
	names := map[string]string{}
	page := repository.IngredientFilter{ShopID: f.ShopID, Limit: 500}
	for {
		list, err := uc.ingredients.List(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, ing := range list {
			names[ing.ID] = ing.Name
		}
		if len(list) < page.Limit {
			break
		}
		page.AfterNameKey, page.AfterID = list[len(list)-1].NameKey, list[len(list)-1].ID
	}
	out, err := uc.xlsx.ExportTransactions(uc.ledger.All(ctx, f), names)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("shop_id", f.ShopID).Int("bytes", len(out)).Msg("ledger exportado")
	return out, nil
}

func rangeKey(from, to *time.Time) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	return format(from) + "|" + format(to)
}

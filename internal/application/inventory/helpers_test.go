package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-api/internal/application/analytics"
	"github.com/jhoicas/insumos-api/internal/application/catalog"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	appinv "github.com/jhoicas/insumos-api/internal/application/inventory"
	domaininv "github.com/jhoicas/insumos-api/internal/domain/inventory"
	"github.com/jhoicas/insumos-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testShop  = "shop-panaderia"
	otherShop = "shop-otra"
	testActor = "user-1"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type env struct {
	store   *memory.Store
	catalog *catalog.UseCase
	ledger  *appinv.LedgerUseCase
	batches *appinv.BatchUseCase
	stats   *analytics.StatsUseCase
}

// newEnv arma los casos de uso sobre el store en memoria con la política indicada.
func newEnv(t *testing.T, policy domaininv.StockPolicy) *env {
	t.Helper()
	store := memory.New()
	repos := store.Repos()
	log := zerolog.Nop()
	cfg := appinv.Config{Policy: policy, MaxRetries: 5, TxTimeout: 2 * time.Second}

	ledger := appinv.NewLedgerUseCase(store, repos.Transactions, repos.Ingredients, nil, nil, cfg, log)
	return &env{
		store:   store,
		catalog: catalog.NewUseCase(repos.Ingredients, store, log),
		ledger:  ledger,
		batches: appinv.NewBatchUseCase(ledger, repos.Batches, repos.Transactions, log),
		stats:   analytics.NewStatsUseCase(repos.Transactions, repos.Batches, repos.Ingredients, ledger, nil, nil, nil, log),
	}
}

func (e *env) ingredient(t *testing.T, shopID, name, unit, price string) string {
	t.Helper()
	ing, err := e.catalog.Create(context.Background(), shopID, dto.CreateIngredientRequest{Name: name, Unit: unit, UnitPrice: d(price)})
	require.NoError(t, err)
	return ing.ID
}

func (e *env) stock(t *testing.T, shopID, id string) decimal.Decimal {
	t.Helper()
	ing, err := e.catalog.Get(context.Background(), shopID, id)
	require.NoError(t, err)
	return ing.CurrentStock
}

func (e *env) record(ingID, txType, qty string, unitPrice *decimal.Decimal) (*dto.TransactionResponse, error) {
	return e.ledger.Record(context.Background(), appinv.RecordInput{
		ShopID: testShop,
		Actor:  testActor,
		RecordTransactionRequest: dto.RecordTransactionRequest{
			IngredientID: ingID,
			Type:         txType,
			Quantity:     d(qty),
			UnitPrice:    unitPrice,
		},
	})
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "esperado %s, obtenido %s %v", want, got, msgAndArgs)
}

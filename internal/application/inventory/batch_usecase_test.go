package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-api/internal/application/dto"
	appinv "github.com/jhoicas/insumos-api/internal/application/inventory"
	"github.com/jhoicas/insumos-api/internal/domain"
	domaininv "github.com/jhoicas/insumos-api/internal/domain/inventory"
)

var (
	periodStart = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 4, 7, 0, 0, 0, 0, time.UTC)
)

func batchInput(lines ...dto.BatchLineRequest) appinv.CreateBatchInput {
	return appinv.CreateBatchInput{
		ShopID: testShop,
		Actor:  testActor,
		CreateBatchRequest: dto.CreateBatchRequest{
			Category:    "compra semanal",
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			Lines:       lines,
		},
	}
}

func line(id, qty, price string) dto.BatchLineRequest {
	return dto.BatchLineRequest{IngredientID: id, Quantity: d(qty), UnitPrice: dp(price)}
}

func TestCreateBatch_AzucarYMantequilla(t *testing.T) {
	e := newEnv(t, domaininv.StockPolicyReject)
	sugar := e.ingredient(t, testShop, "Sugar", "kg", "1.00")
	butter := e.ingredient(t, testShop, "Butter", "kg", "2.50")

	b, err := e.batches.Create(context.Background(), batchInput(line(sugar, "10", "1.20"), line(butter, "5", "3.00")))
	require.NoError(t, err)
	requireDecimal(t, "27.00", b.TotalCost)
	require.Len(t, b.Lines, 2)
	requireDecimal(t, "12.00", b.Lines[0].Subtotal)
	requireDecimal(t, "15.00", b.Lines[1].Subtotal)
	require.Len(t, b.Transactions, 2)
	for _, tx := range b.Transactions {
		assert.Equal(t, "purchase", tx.Type)
		assert.Equal(t, b.ID, tx.BatchID)
		assert.True(t, tx.TransactionDate.Equal(periodEnd))
	}

	requireDecimal(t, "10", e.stock(t, testShop, sugar))
	requireDecimal(t, "5", e.stock(t, testShop, butter))

	got, err := e.batches.Get(context.Background(), testShop, b.ID)
	require.NoError(t, err)
	assert.Len(t, got.Lines, 2)
	assert.Len(t, got.Transactions, 2)

	txs, err := e.batches.Transactions(context.Background(), testShop, b.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	// el lote de otra tienda no es visible
	_, err = e.batches.Get(context.Background(), otherShop, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateBatch_InsumoInexistenteNoAplicaNada(t *testing.T) {
	e := newEnv(t, domaininv.StockPolicyReject)
	sugar := e.ingredient(t, testShop, "Sugar", "kg", "1.00")
	foreign := e.ingredient(t, otherShop, "Butter", "kg", "3.00")

	for _, missing := range []string{"no-existe", foreign} {
		_, err := e.batches.Create(context.Background(), batchInput(line(sugar, "10", "1.20"), line(missing, "5", "3.00")))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}

	requireDecimal(t, "0", e.stock(t, testShop, sugar))
	list, err := e.batches.List(context.Background(), testShop, dto.CursorRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	txs, err := e.ledger.List(context.Background(), testShop, dto.ListTransactionsRequest{})
	require.NoError(t, err)
	assert.Empty(t, txs.Items)
}

func TestCreateBatch_Validaciones(t *testing.T) {
	e := newEnv(t, domaininv.StockPolicyReject)
	sugar := e.ingredient(t, testShop, "Sugar", "kg", "1.00")

	inverted := batchInput(line(sugar, "1", "1"))
	inverted.PeriodStart, inverted.PeriodEnd = periodEnd, periodStart

	noActor := batchInput(line(sugar, "1", "1"))
	noActor.Actor = ""

	tests := []struct {
		name  string
		in    appinv.CreateBatchInput
		field string
	}{
		{"sin líneas", batchInput(), "lines"},
		{"periodo invertido", inverted, "period_start"},
		{"cantidad cero", batchInput(line(sugar, "0", "1")), "lines[0].quantity"},
		{"precio negativo", batchInput(line(sugar, "1", "1"), line(sugar, "1", "-2")), "lines[1].unit_price"},
		{"sin actor", noActor, "created_by"},
		{"precio omitido", batchInput(dto.BatchLineRequest{IngredientID: sugar, Quantity: d("1")}), "lines[0].unit_price"},
		{"cantidad con 7 decimales", batchInput(line(sugar, "0.0000004", "1")), "lines[0].quantity"},
		{"precio con 7 decimales", batchInput(line(sugar, "1", "0.1234567")), "lines[0].unit_price"},
		{"cantidad fuera de rango", batchInput(line(sugar, "1000000000000", "1")), "lines[0].quantity"},
		{"total fuera de rango", batchInput(line(sugar, "1000000", "1000000")), "total_cost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.batches.Create(context.Background(), tt.in)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "se esperaba ValidationError, se obtuvo %v", err)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
	requireDecimal(t, "0", e.stock(t, testShop, sugar))
}

func TestCreateBatch_TotalIgualASumaDeTransaccionesConSubtotalesRedondeados(t *testing.T) {
	e := newEnv(t, domaininv.StockPolicyReject)
	yeast := e.ingredient(t, testShop, "Yeast", "g", "0")

	b, err := e.batches.Create(context.Background(), batchInput(
		line(yeast, "0.5", "0.000001"),
		line(yeast, "0.5", "0.000001"),
	))
	require.NoError(t, err)

	sum := decimal.Zero
	for _, tx := range b.Transactions {
		requireDecimal(t, "0.000001", tx.TotalCost, "0.5 × 0.000001 se guarda con 6 decimales")
		sum = sum.Add(tx.TotalCost)
	}
	requireDecimal(t, "0.000002", b.TotalCost)
	requireDecimal(t, sum.String(), b.TotalCost, "el total del lote coincide con sus transacciones")
	for _, l := range b.Lines {
		requireDecimal(t, "0.000001", l.Subtotal)
	}
}

func TestCreateBatch_LineasRepetidasDelMismoInsumo(t *testing.T) {
	e := newEnv(t, domaininv.StockPolicyReject)
	sugar := e.ingredient(t, testShop, "Sugar", "kg", "1.00")

	b, err := e.batches.Create(context.Background(), batchInput(line(sugar, "2", "1.00"), line(sugar, "3", "1.10")))
	require.NoError(t, err)
	requireDecimal(t, "5.30", b.TotalCost)
	requireDecimal(t, "5", e.stock(t, testShop, sugar))
	requireDecimal(t, "5", b.Transactions[1].BalanceAfter)
}

func TestCreateBatch_Idempotencia(t *testing.T) {
	e := newEnv(t, domaininv.StockPolicyReject)
	sugar := e.ingredient(t, testShop, "Sugar", "kg", "1.00")
	in := batchInput(line(sugar, "10", "1.20"))
	in.IdempotencyKey = "lote-abril"

	first, err := e.batches.Create(context.Background(), in)
	require.NoError(t, err)
	second, err := e.batches.Create(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Transactions, 1)
	requireDecimal(t, "10", e.stock(t, testShop, sugar))
}

func TestCreateBatch_LotesCruzadosNoSeBloquean(t *testing.T) {
	e := newEnv(t, domaininv.StockPolicyReject)
	sugar := e.ingredient(t, testShop, "Sugar", "kg", "1.00")
	butter := e.ingredient(t, testShop, "Butter", "kg", "3.00")

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lines := []dto.BatchLineRequest{line(sugar, "1", "1"), line(butter, "1", "3")}
			if i%2 == 1 {
				lines[0], lines[1] = lines[1], lines[0]
			}
			_, err := e.batches.Create(context.Background(), batchInput(lines...))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	requireDecimal(t, fmt.Sprint(n), e.stock(t, testShop, sugar))
	requireDecimal(t, fmt.Sprint(n), e.stock(t, testShop, butter))
}

func TestListBatches_Cursor(t *testing.T) {
	e := newEnv(t, domaininv.StockPolicyReject)
	sugar := e.ingredient(t, testShop, "Sugar", "kg", "1.00")
	for range 3 {
		_, err := e.batches.Create(context.Background(), batchInput(line(sugar, "1", "1")))
		require.NoError(t, err)
	}

	page1, err := e.batches.List(context.Background(), testShop, dto.CursorRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	require.NotEmpty(t, page1.Page.NextCursor)
	assert.False(t, page1.Items[0].CreatedAt.Before(page1.Items[1].CreatedAt))

	page2, err := e.batches.List(context.Background(), testShop, dto.CursorRequest{Limit: 2, Cursor: page1.Page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.Empty(t, page2.Page.NextCursor)

	ids := map[string]bool{page1.Items[0].ID: true, page1.Items[1].ID: true, page2.Items[0].ID: true}
	assert.Len(t, ids, 3)
}

package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-api/internal/application/analytics"
	"github.com/jhoicas/insumos-api/internal/application/catalog"
	"github.com/jhoicas/insumos-api/internal/application/costing"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	appinv "github.com/jhoicas/insumos-api/internal/application/inventory"
	domaininv "github.com/jhoicas/insumos-api/internal/domain/inventory"
	apphttp "github.com/jhoicas/insumos-api/internal/interfaces/http"
	"github.com/jhoicas/insumos-api/internal/infrastructure/memory"
	"github.com/jhoicas/insumos-api/internal/infrastructure/pdf"
	"github.com/jhoicas/insumos-api/internal/infrastructure/xlsx"
	pkgjwt "github.com/jhoicas/insumos-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// buildAPI arma la API completa sobre el store en memoria.
func buildAPI(t *testing.T, checks map[string]apphttp.Pinger) *fiber.App {
	t.Helper()
	store := memory.New()
	repos := store.Repos()
	log := zerolog.Nop()
	cfg := appinv.Config{Policy: domaininv.StockPolicyReject, MaxRetries: 3, TxTimeout: 2 * time.Second}

	ledger := appinv.NewLedgerUseCase(store, repos.Transactions, repos.Ingredients, nil, nil, cfg, log)
	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler})
	apphttp.Router(app, apphttp.RouterDeps{
		CatalogUC: catalog.NewUseCase(repos.Ingredients, store, log),
		LedgerUC:  ledger,
		BatchUC:   appinv.NewBatchUseCase(ledger, repos.Batches, repos.Transactions, log),
		CostingUC: costing.NewUseCase(repos.Ingredients, repos.Recipes, log),
		StatsUC: analytics.NewStatsUseCase(repos.Transactions, repos.Batches, repos.Ingredients, ledger, nil,
			pdf.NewMarotoPDFGenerator(), xlsx.NewExporter(), log),
		Health:    apphttp.NewHealthHandler(checks),
		JWTSecret: testJWTSecret,
		JWTIssuer: testIssuer,
	})
	return app
}

func bearer(t *testing.T, shopID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, pkgjwt.Identity{UserID: testUserID, ShopID: shopID, Role: role}, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

type call struct {
	method, path, auth string
	body               any
	headers            map[string]string
}

func do(t *testing.T, app *fiber.App, c call) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, rd)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func createIngredient(t *testing.T, app *fiber.App, auth, name, price string) dto.IngredientResponse {
	t.Helper()
	resp, body := do(t, app, call{method: http.MethodPost, path: "/api/ingredients", auth: auth,
		body: map[string]any{"name": name, "unit": "kg", "unit_price": price}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return decode[dto.IngredientResponse](t, body)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "esperado %s, obtenido %s", want, got)
}

// ──────────────────────────────────────────────────────────────────────────────
// Health y auth
// ──────────────────────────────────────────────────────────────────────────────

func TestHealth_SinDependencias(t *testing.T) {
	app := buildAPI(t, nil)
	resp, body := do(t, app, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestHealth_DependenciaCaida(t *testing.T) {
	app := buildAPI(t, map[string]apphttp.Pinger{
		"postgres": apphttp.PingFunc(func(context.Context) error { return nil }),
		"redis":    apphttp.PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
	})
	resp, body := do(t, app, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	out := decode[map[string]string](t, body)
	assert.Equal(t, "degraded", out["status"])
	assert.Equal(t, "up", out["postgres"])
	assert.Equal(t, "down", out["redis"])
}

func TestAPI_SinTokenRetorna401(t *testing.T) {
	app := buildAPI(t, nil)
	resp, body := do(t, app, call{method: http.MethodGet, path: "/api/ingredients"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "MISSING_TOKEN")
}

// ──────────────────────────────────────────────────────────────────────────────
// Insumos
// ──────────────────────────────────────────────────────────────────────────────

func TestIngredients_CrearDuplicarYValidar(t *testing.T) {
	app := buildAPI(t, nil)
	auth := bearer(t, testShopID, apphttp.RoleStaff)

	ing := createIngredient(t, app, auth, "Flour", "0.75")
	assert.Equal(t, "Flour", ing.Name)
	assert.True(t, ing.CurrentStock.IsZero())

	resp, body := do(t, app, call{method: http.MethodPost, path: "/api/ingredients", auth: auth,
		body: map[string]any{"name": "FLOUR", "unit": "kg"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "DUPLICATE")

	resp, body = do(t, app, call{method: http.MethodPost, path: "/api/ingredients", auth: auth,
		body: map[string]any{"name": "Salt", "unit": "kg", "unit_price": "-1"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decode[dto.ErrorResponse](t, body)
	assert.Equal(t, "VALIDATION", errResp.Code)
	assert.Contains(t, errResp.Fields, "unit_price")

	resp, body = do(t, app, call{method: http.MethodGet, path: "/api/ingredients?search=flo", auth: auth})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.IngredientListResponse](t, body)
	require.Len(t, list.Items, 1)
	assert.Equal(t, ing.ID, list.Items[0].ID)
}

func TestIngredients_OtraTiendaNoVeElInsumo(t *testing.T) {
	app := buildAPI(t, nil)
	ing := createIngredient(t, app, bearer(t, testShopID, apphttp.RoleStaff), "Flour", "0.75")

	resp, _ := do(t, app, call{method: http.MethodGet, path: "/api/ingredients/" + ing.ID, auth: bearer(t, "shop-ajena", apphttp.RoleAdmin)})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIngredients_BorradoPorRolYReferencias(t *testing.T) {
	app := buildAPI(t, nil)
	staff := bearer(t, testShopID, apphttp.RoleStaff)
	admin := bearer(t, testShopID, apphttp.RoleAdmin)
	used := createIngredient(t, app, staff, "Flour", "0.75")
	unused := createIngredient(t, app, staff, "Salt", "0.10")

	resp, _ := do(t, app, call{method: http.MethodPost, path: "/api/inventory/transactions", auth: staff,
		body: map[string]any{"ingredient_id": used.ID, "type": "purchase", "quantity": "5"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, app, call{method: http.MethodDelete, path: "/api/ingredients/" + unused.ID, auth: staff})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := do(t, app, call{method: http.MethodDelete, path: "/api/ingredients/" + used.ID, auth: admin})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "CONFLICT")

	resp, _ = do(t, app, call{method: http.MethodDelete, path: "/api/ingredients/" + unused.ID, auth: bearer(t, testShopID, apphttp.RoleSeller)})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestIngredients_DriftYRebuild(t *testing.T) {
	app := buildAPI(t, nil)
	staff := bearer(t, testShopID, apphttp.RoleStaff)
	ing := createIngredient(t, app, staff, "Flour", "0.75")

	resp, body := do(t, app, call{method: http.MethodGet, path: "/api/ingredients/" + ing.ID + "/stock-drift", auth: staff})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	drift := decode[[]dto.StockDriftResponse](t, body)
	require.Len(t, drift, 1)
	assert.True(t, drift[0].Drift.IsZero())

	resp, _ = do(t, app, call{method: http.MethodPost, path: "/api/ingredients/" + ing.ID + "/rebuild-stock", auth: staff})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = do(t, app, call{method: http.MethodPost, path: "/api/ingredients/" + ing.ID + "/rebuild-stock", auth: bearer(t, testShopID, apphttp.RoleAdmin)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ledger
// ──────────────────────────────────────────────────────────────────────────────

func TestTransactions_RegistroStockInsuficienteEIdempotencia(t *testing.T) {
	app := buildAPI(t, nil)
	auth := bearer(t, testShopID, apphttp.RoleStaff)
	flour := createIngredient(t, app, auth, "Flour", "0.75")

	idem := map[string]string{apphttp.HeaderIdempotencyKey: "compra-1"}
	purchase := map[string]any{"ingredient_id": flour.ID, "type": "purchase", "quantity": "100", "unit_price": "0.80"}

	resp, body := do(t, app, call{method: http.MethodPost, path: "/api/inventory/transactions", auth: auth, body: purchase, headers: idem})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	first := decode[dto.TransactionResponse](t, body)
	requireDecimal(t, "80", first.TotalCost)
	requireDecimal(t, "100", first.BalanceAfter)
	assert.Equal(t, testUserID, first.RecordedBy)

	resp, body = do(t, app, call{method: http.MethodPost, path: "/api/inventory/transactions", auth: auth, body: purchase, headers: idem})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replay := decode[dto.TransactionResponse](t, body)
	assert.Equal(t, first.ID, replay.ID)
	assert.True(t, replay.Replayed)

	resp, body = do(t, app, call{method: http.MethodPost, path: "/api/inventory/transactions", auth: auth,
		body: map[string]any{"ingredient_id": flour.ID, "type": "usage", "quantity": "150"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, body).Code)

	resp, body = do(t, app, call{method: http.MethodGet, path: "/api/ingredients/" + flour.ID, auth: auth})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	requireDecimal(t, "100", decode[dto.IngredientResponse](t, body).CurrentStock)

	resp, body = do(t, app, call{method: http.MethodGet, path: "/api/inventory/transactions/" + first.ID, auth: auth})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first.ID, decode[dto.TransactionResponse](t, body).ID)

	resp, _ = do(t, app, call{method: http.MethodGet, path: "/api/inventory/transactions/" + first.ID, auth: bearer(t, "shop-ajena", apphttp.RoleStaff)})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, app, call{method: http.MethodGet, path: "/api/inventory/transactions?type=purchase", auth: auth})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[dto.TransactionListResponse](t, body).Items, 1)
}

func TestTransactions_CuerpoInvalido(t *testing.T) {
	app := buildAPI(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/transactions", bytes.NewReader([]byte("{no-json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, testShopID, apphttp.RoleStaff))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransactions_ExportXLSX(t *testing.T) {
	app := buildAPI(t, nil)
	auth := bearer(t, testShopID, apphttp.RoleStaff)
	flour := createIngredient(t, app, auth, "Flour", "0.75")
	resp, _ := do(t, app, call{method: http.MethodPost, path: "/api/inventory/transactions", auth: auth,
		body: map[string]any{"ingredient_id": flour.ID, "type": "purchase", "quantity": "3"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, app, call{method: http.MethodGet, path: "/api/inventory/transactions/export.xlsx", auth: auth})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("PK")), "un .xlsx es un zip")
}

// ──────────────────────────────────────────────────────────────────────────────
// Lotes, recetas y estadísticas
// ──────────────────────────────────────────────────────────────────────────────

func TestBatches_CrearYConsultar(t *testing.T) {
	app := buildAPI(t, nil)
	auth := bearer(t, testShopID, apphttp.RoleStaff)
	sugar := createIngredient(t, app, auth, "Sugar", "1.00")
	butter := createIngredient(t, app, auth, "Butter", "2.50")

	resp, body := do(t, app, call{method: http.MethodPost, path: "/api/inventory/batches", auth: auth, body: map[string]any{
		"category":     "compra semanal",
		"period_start": "2026-04-01T00:00:00Z",
		"period_end":   "2026-04-07T00:00:00Z",
		"lines": []map[string]any{
			{"ingredient_id": sugar.ID, "quantity": "10", "unit_price": "1.20"},
			{"ingredient_id": butter.ID, "quantity": "5", "unit_price": "3.00"},
		},
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	batch := decode[dto.BatchResponse](t, body)
	requireDecimal(t, "27", batch.TotalCost)
	assert.Len(t, batch.Transactions, 2)

	resp, body = do(t, app, call{method: http.MethodGet, path: "/api/inventory/batches/" + batch.ID, auth: auth})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, batch.ID, decode[dto.BatchResponse](t, body).ID)

	resp, body = do(t, app, call{method: http.MethodGet, path: "/api/stats", auth: auth})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	stats := decode[dto.StatsResponse](t, body)
	requireDecimal(t, "27", stats.TotalInvestment)
	requireDecimal(t, "27", stats.ByType["purchase"])

	resp, body = do(t, app, call{method: http.MethodGet, path: "/api/stats/report.pdf?from=2026-04-01", auth: auth})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp, _ = do(t, app, call{method: http.MethodGet, path: "/api/stats?from=ayer", auth: auth})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecipes_CotizarGuardarYCostear(t *testing.T) {
	app := buildAPI(t, nil)
	auth := bearer(t, testShopID, apphttp.RoleStaff)
	flour := createIngredient(t, app, auth, "Flour", "0.75")
	sugar := createIngredient(t, app, auth, "Sugar", "1.20")
	lines := []map[string]any{
		{"ingredient_id": flour.ID, "quantity": "0.5"},
		{"ingredient_id": sugar.ID, "quantity": "0.2"},
	}

	resp, body := do(t, app, call{method: http.MethodPost, path: "/api/recipes/quote", auth: auth,
		body: map[string]any{"lines": lines, "selling_price": "5.00"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	quote := decode[dto.RecipeCostResponse](t, body)
	requireDecimal(t, "0.615", quote.TotalIngredientCost)
	require.NotNil(t, quote.Margin)
	requireDecimal(t, "87.7", quote.Margin.ProfitPercent)

	resp, body = do(t, app, call{method: http.MethodPut, path: "/api/recipes/products/chocolate-cake", auth: auth,
		body: map[string]any{"lines": lines}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, app, call{method: http.MethodGet, path: "/api/recipes/products/chocolate-cake?selling_price=5", auth: auth})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	requireDecimal(t, "4.385", decode[dto.RecipeCostResponse](t, body).Margin.Profit)

	resp, _ = do(t, app, call{method: http.MethodGet, path: "/api/recipes/products/chocolate-cake?selling_price=abc", auth: auth})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, call{method: http.MethodGet, path: "/api/recipes/products/sin-receta", auth: auth})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

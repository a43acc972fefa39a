package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/insumos-api/internal/application/analytics"
	"github.com/jhoicas/insumos-api/internal/application/catalog"
	"github.com/jhoicas/insumos-api/internal/application/costing"
	"github.com/jhoicas/insumos-api/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CatalogUC *catalog.UseCase
	LedgerUC  *inventory.LedgerUseCase
	BatchUC   *inventory.BatchUseCase
	CostingUC *costing.UseCase
	StatsUC   *analytics.StatsUseCase
	Health    *HealthHandler
	JWTSecret string
	JWTIssuer string // vacío: no se verifica iss
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	health := deps.Health
	if health == nil {
		health = NewHealthHandler(nil)
	}
	app.Get("/health", health.Health)

	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	// Catálogo de insumos
	ingredients := protected.Group("/ingredients")
	ingredientHandler := NewIngredientHandler(deps.CatalogUC, deps.LedgerUC)
	ingredients.Post("/", ingredientHandler.Create)
	ingredients.Get("/", ingredientHandler.List)
	ingredients.Get("/:id", ingredientHandler.GetByID)
	ingredients.Put("/:id", ingredientHandler.Update)
	ingredients.Delete("/:id", RequireRole(RoleAdmin, RoleSeller), ingredientHandler.Delete)
	ingredients.Get("/:id/stock-drift", ingredientHandler.StockDrift)
	ingredients.Post("/:id/rebuild-stock", RequireRole(RoleAdmin), ingredientHandler.RebuildStock)

	// Ledger de transacciones (export.xlsx antes de /:id)
	inv := protected.Group("/inventory")
	txHandler := NewTransactionHandler(deps.LedgerUC, deps.StatsUC)
	inv.Post("/transactions", txHandler.Record)
	inv.Get("/transactions", txHandler.List)
	inv.Get("/transactions/export.xlsx", txHandler.ExportXLSX)
	inv.Get("/transactions/:id", txHandler.GetByID)

	// Lotes de compra
	batchHandler := NewBatchHandler(deps.BatchUC)
	inv.Post("/batches", batchHandler.Create)
	inv.Get("/batches", batchHandler.List)
	inv.Get("/batches/:id", batchHandler.GetByID)

	// Costeo de recetas
	recipes := protected.Group("/recipes")
	recipeHandler := NewRecipeHandler(deps.CostingUC)
	recipes.Post("/quote", recipeHandler.Quote)
	recipes.Put("/products/:productId", recipeHandler.SaveProductRecipe)
	recipes.Get("/products/:productId", recipeHandler.ProductCost)

	// Estadísticas
	stats := protected.Group("/stats")
	statsHandler := NewStatsHandler(deps.StatsUC)
	stats.Get("/", statsHandler.GetStats)
	stats.Get("/report.pdf", statsHandler.ReportPDF)
}

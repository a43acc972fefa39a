package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/application/costing"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	"github.com/jhoicas/insumos-api/internal/domain"
)

// RecipeHandler costeo de recetas (protegido).
type RecipeHandler struct {
	uc *costing.UseCase
}

// NewRecipeHandler construye el handler.
func NewRecipeHandler(uc *costing.UseCase) *RecipeHandler {
	return &RecipeHandler{uc: uc}
}

// Quote godoc
// @Summary      Cotizar receta
// @Description  Costea un borrador con los precios vigentes del catálogo sin guardar nada.
// @Tags         recipes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecipeQuoteRequest  true  "lines, selling_price"
// @Success      200   {object}  dto.RecipeCostResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/recipes/quote [post]
func (h *RecipeHandler) Quote(c *fiber.Ctx) error {
	var in dto.RecipeQuoteRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Quote(c.UserContext(), GetShopID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SaveProductRecipe godoc
// @Summary      Guardar receta de un producto
// @Description  Reemplaza las líneas del producto con la foto de precios de este momento.
// @Tags         recipes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        productId  path  string                true  "ID del producto (catálogo externo)"
// @Param        body       body  dto.SaveRecipeRequest  true  "lines, selling_price"
// @Success      200   {object}  dto.RecipeCostResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/recipes/products/{productId} [put]
func (h *RecipeHandler) SaveProductRecipe(c *fiber.Ctx) error {
	var in dto.SaveRecipeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.SaveProductRecipe(c.UserContext(), GetShopID(c), c.Params("productId"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ProductCost godoc
// @Summary      Costo y margen de un producto
// @Description  Se calcula con la foto de precios guardada; cambios posteriores del catálogo no lo afectan.
// @Tags         recipes
// @Security     Bearer
// @Produce      json
// @Param        productId      path   string  true   "ID del producto"
// @Param        selling_price  query  string  false  "Precio de venta (sin él, margin = null)"
// @Success      200  {object}  dto.RecipeCostResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/recipes/products/{productId} [get]
func (h *RecipeHandler) ProductCost(c *fiber.Ctx) error {
	price := decimal.Zero
	if raw := c.Query("selling_price"); raw != "" {
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return writeError(c, domain.NewValidationError("selling_price", "número inválido"))
		}
		price = p
	}
	out, err := h.uc.ProductCost(c.UserContext(), GetShopID(c), c.Params("productId"), price)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/insumos-api/internal/application/catalog"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	"github.com/jhoicas/insumos-api/internal/application/inventory"
)

// IngredientHandler catálogo de insumos y reparación de stock (protegido).
type IngredientHandler struct {
	uc     *catalog.UseCase
	ledger *inventory.LedgerUseCase
}

// NewIngredientHandler construye el handler.
func NewIngredientHandler(uc *catalog.UseCase, ledger *inventory.LedgerUseCase) *IngredientHandler {
	return &IngredientHandler{uc: uc, ledger: ledger}
}

// Create godoc
// @Summary      Crear insumo
// @Description  El stock inicia en 0; solo cambia con transacciones del ledger.
// @Tags         ingredients
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateIngredientRequest  true  "name, unit, unit_price"
// @Success      201   {object}  dto.IngredientResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ingredients [post]
func (h *IngredientHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateIngredientRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), GetShopID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar insumos
// @Tags         ingredients
// @Security     Bearer
// @Produce      json
// @Param        search  query  string  false  "Filtro por nombre (sin distinguir mayúsculas)"
// @Param        cursor  query  string  false  "next_cursor de la página anterior"
// @Param        limit   query  int     false  "Tamaño de página (1-100, por defecto 20)"
// @Success      200  {object}  dto.IngredientListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/ingredients [get]
func (h *IngredientHandler) List(c *fiber.Ctx) error {
	in := dto.ListIngredientsRequest{Search: c.Query("search"), CursorRequest: cursorRequest(c)}
	out, err := h.uc.List(c.UserContext(), GetShopID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener insumo
// @Tags         ingredients
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del insumo"
// @Success      200  {object}  dto.IngredientResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ingredients/{id} [get]
func (h *IngredientHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), GetShopID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar insumo
// @Description  Cambia nombre, unidad o precio vigente. No altera transacciones ya registradas.
// @Tags         ingredients
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID del insumo"
// @Param        body  body  dto.UpdateIngredientRequest  true  "Campos a cambiar"
// @Success      200   {object}  dto.IngredientResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ingredients/{id} [put]
func (h *IngredientHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateIngredientRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Update(c.UserContext(), GetShopID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar insumo
// @Description  Solo si ninguna transacción, línea de lote o receta lo referencia.
// @Tags         ingredients
// @Security     Bearer
// @Param        id   path  string  true  "ID del insumo"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/ingredients/{id} [delete]
func (h *IngredientHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), GetShopID(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StockDrift godoc
// @Summary      Verificar stock contra el ledger
// @Description  Compara current_stock con la suma de deltas del ledger sin escribir.
// @Tags         ingredients
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del insumo"
// @Success      200  {array}   dto.StockDriftResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ingredients/{id}/stock-drift [get]
func (h *IngredientHandler) StockDrift(c *fiber.Ctx) error {
	out, err := h.ledger.VerifyStock(c.UserContext(), GetShopID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RebuildStock godoc
// @Summary      Recalcular stock desde el ledger
// @Description  Reescribe current_stock con la suma de deltas y reporta la diferencia encontrada.
// @Tags         ingredients
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del insumo"
// @Success      200  {array}   dto.StockDriftResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/ingredients/{id}/rebuild-stock [post]
func (h *IngredientHandler) RebuildStock(c *fiber.Ctx) error {
	out, err := h.ledger.RebuildStock(c.UserContext(), GetShopID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func cursorRequest(c *fiber.Ctx) dto.CursorRequest {
	return dto.CursorRequest{Cursor: c.Query("cursor"), Limit: c.QueryInt("limit")}
}

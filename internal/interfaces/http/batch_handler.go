package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	"github.com/jhoicas/insumos-api/internal/application/inventory"
)

// BatchHandler lotes de compra (protegido).
type BatchHandler struct {
	uc *inventory.BatchUseCase
}

// NewBatchHandler construye el handler.
func NewBatchHandler(uc *inventory.BatchUseCase) *BatchHandler {
	return &BatchHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar lote de compra
// @Description  Cabecera, líneas y una transacción purchase por línea en una sola transacción: o se aplica todo o nada.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                  false  "Llave de idempotencia del cliente"
// @Param        body             body    dto.CreateBatchRequest  true   "category, period_start, period_end, lines"
// @Success      201  {object}  dto.BatchResponse
// @Success      200  {object}  dto.BatchResponse  "Respuesta repetida por idempotencia"
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/inventory/batches [post]
func (h *BatchHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), inventory.CreateBatchInput{
		ShopID:             GetShopID(c),
		Actor:              GetUserID(c),
		IdempotencyKey:     c.Get(HeaderIdempotencyKey),
		CreateBatchRequest: in,
	})
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusCreated
	if out.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(out)
}

// List godoc
// @Summary      Listar lotes
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        cursor  query  string  false  "next_cursor de la página anterior"
// @Param        limit   query  int     false  "Tamaño de página (1-100)"
// @Success      200  {object}  dto.BatchListResponse
// @Router       /api/inventory/batches [get]
func (h *BatchHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), GetShopID(c), cursorRequest(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener lote
// @Description  Incluye líneas y las transacciones purchase que generó.
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.BatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/batches/{id} [get]
func (h *BatchHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), GetShopID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

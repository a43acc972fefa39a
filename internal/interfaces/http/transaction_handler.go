package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/insumos-api/internal/application/analytics"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	"github.com/jhoicas/insumos-api/internal/application/inventory"
)

// HeaderIdempotencyKey llave que el cliente repite al reintentar una escritura.
const HeaderIdempotencyKey = "Idempotency-Key"

// TransactionHandler ledger de transacciones de insumos (protegido).
type TransactionHandler struct {
	ledger *inventory.LedgerUseCase
	stats  *analytics.StatsUseCase
}

// NewTransactionHandler construye el handler.
func NewTransactionHandler(ledger *inventory.LedgerUseCase, stats *analytics.StatsUseCase) *TransactionHandler {
	return &TransactionHandler{ledger: ledger, stats: stats}
}

// Record godoc
// @Summary      Registrar transacción de inventario
// @Description  purchase/return suman, usage/waste restan, adjustment aplica la cantidad con signo y exige reason_code.
// @Description  Repetir la petición con el mismo Idempotency-Key devuelve la transacción original (replayed=true).
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                        false  "Llave de idempotencia del cliente"
// @Param        body             body    dto.RecordTransactionRequest  true   "ingredient_id, type, quantity, unit_price?, reason_code?"
// @Success      201  {object}  dto.TransactionResponse
// @Success      200  {object}  dto.TransactionResponse  "Respuesta repetida por idempotencia"
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/inventory/transactions [post]
func (h *TransactionHandler) Record(c *fiber.Ctx) error {
	var in dto.RecordTransactionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.ledger.Record(c.UserContext(), inventory.RecordInput{
		ShopID:                   GetShopID(c),
		Actor:                    GetUserID(c),
		IdempotencyKey:           c.Get(HeaderIdempotencyKey),
		RecordTransactionRequest: in,
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
// @Summary      Listar transacciones
// @Description  Más reciente primero (transaction_date, id).
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        ingredient_id  query  string  false  "Filtrar por insumo"
// @Param        type           query  string  false  "purchase | usage | adjustment | waste | return"
// @Param        from           query  string  false  "YYYY-MM-DD o RFC3339"
// @Param        to             query  string  false  "YYYY-MM-DD o RFC3339"
// @Param        cursor         query  string  false  "next_cursor de la página anterior"
// @Param        limit          query  int     false  "Tamaño de página (1-100)"
// @Success      200  {object}  dto.TransactionListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/transactions [get]
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	out, err := h.ledger.List(c.UserContext(), GetShopID(c), listTransactionsRequest(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener transacción
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transacción"
// @Success      200  {object}  dto.TransactionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/transactions/{id} [get]
func (h *TransactionHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.ledger.Get(c.UserContext(), GetShopID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ExportXLSX godoc
// @Summary      Exportar ledger a Excel
// @Tags         inventory
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        ingredient_id  query  string  false  "Filtrar por insumo"
// @Param        type           query  string  false  "Tipo de transacción"
// @Param        from           query  string  false  "YYYY-MM-DD o RFC3339"
// @Param        to             query  string  false  "YYYY-MM-DD o RFC3339"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/transactions/export.xlsx [get]
func (h *TransactionHandler) ExportXLSX(c *fiber.Ctx) error {
	filter, err := inventory.Filter(GetShopID(c), listTransactionsRequest(c))
	if err != nil {
		return writeError(c, err)
	}
	file, err := h.stats.ExportTransactionsXLSX(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	name := fmt.Sprintf("transacciones_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(file)
}

func listTransactionsRequest(c *fiber.Ctx) dto.ListTransactionsRequest {
	return dto.ListTransactionsRequest{
		IngredientID:  c.Query("ingredient_id"),
		Type:          c.Query("type"),
		From:          c.Query("from"),
		To:            c.Query("to"),
		CursorRequest: cursorRequest(c),
	}
}

package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/insumos-api/internal/application/analytics"
	"github.com/jhoicas/insumos-api/internal/application/dto"
)

// StatsHandler estadísticas del inventario de insumos (protegido).
type StatsHandler struct {
	uc *analytics.StatsUseCase
}

// NewStatsHandler construye el handler.
func NewStatsHandler(uc *analytics.StatsUseCase) *StatsHandler {
	return &StatsHandler{uc: uc}
}

// GetStats godoc
// @Summary      Estadísticas de inventario
// @Description  total_investment, period_spend (lotes cuyo period_start cae en el rango), average_unit_price y by_type.
// @Tags         stats
// @Security     Bearer
// @Produce      json
// @Param        from  query  string  false  "YYYY-MM-DD o RFC3339"
// @Param        to    query  string  false  "YYYY-MM-DD o RFC3339"
// @Success      200  {object}  dto.StatsResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stats [get]
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	out, err := h.uc.GetStats(c.UserContext(), GetShopID(c), statsRequest(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ReportPDF godoc
// @Summary      Reporte PDF de estadísticas
// @Tags         stats
// @Security     Bearer
// @Produce      application/pdf
// @Param        from  query  string  false  "YYYY-MM-DD o RFC3339"
// @Param        to    query  string  false  "YYYY-MM-DD o RFC3339"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stats/report.pdf [get]
func (h *StatsHandler) ReportPDF(c *fiber.Ctx) error {
	file, err := h.uc.StatsReportPDF(c.UserContext(), GetShopID(c), statsRequest(c))
	if err != nil {
		return writeError(c, err)
	}
	name := fmt.Sprintf("estadisticas_insumos_%s.pdf", time.Now().UTC().Format("20060102"))
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+name+`"`)
	return c.Send(file)
}

func statsRequest(c *fiber.Ctx) dto.StatsRequest {
	return dto.StatsRequest{From: c.Query("from"), To: c.Query("to")}
}

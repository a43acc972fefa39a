// Package pdf genera el reporte de estadísticas de inventario de insumos.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + Tienda     │  Rango + Fecha de generación │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: Inversión total | Gasto del periodo | Precio prom. │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Tipo de transacción | Costo total                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: leyenda                                            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-api/internal/application/analytics"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
)

var _ analytics.StatsReportGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// Etiquetas de los tipos de transacción en el reporte.
var typeLabels = map[string]string{
	entity.TransactionTypePurchase:   "Compras",
	entity.TransactionTypeUsage:      "Consumo",
	entity.TransactionTypeAdjustment: "Ajustes",
	entity.TransactionTypeWaste:      "Mermas",
	entity.TransactionTypeReturn:     "Devoluciones",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa analytics.StatsReportGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateStatsReport genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateStatsReport(stats *dto.StatsResponse, shopID string) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Estadísticas de insumos", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(stats, shopID))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(stats))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(byTypeRows(stats.ByType)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(row.New(8).Add(col.New(12).Add(
		text.New("Valores derivados del ledger de transacciones y de los lotes de compra; "+
			"el costo de cada transacción queda fijo al registrarla.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: título + tienda (izq) y rango + fecha de generación (der).
func headerRow(stats *dto.StatsResponse, shopID string) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("ESTADÍSTICAS DE INSUMOS", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Tienda: "+shopID, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("Periodo: "+rangeLabel(stats.From, stats.To), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Generado: "+stats.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
		),
	)
}

// summaryRow: los tres indicadores principales.
func summaryRow(stats *dto.StatsResponse) core.Row {
	metric := func(label string, v decimal.Decimal) core.Col {
		return col.New(4).Add(
			text.New(label, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1, Align: align.Center}),
			text.New("$"+formatMoney(v), props.Text{Style: fontstyle.Bold, Size: 12, Top: 7, Align: align.Center}),
		)
	}
	return row.New(18).Add(
		metric("Inversión total", stats.TotalInvestment),
		metric("Gasto del periodo", stats.PeriodSpend),
		metric("Precio unitario promedio", stats.AverageUnitPrice),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Tipo de transacción", 8, align.Left),
		h("Costo total", 4, align.Right),
	)
}

// byTypeRows: una fila por tipo, en el orden estable de entity.TransactionTypes.
func byTypeRows(byType map[string]decimal.Decimal) []core.Row {
	rows := make([]core.Row, 0, len(entity.TransactionTypes))
	for _, t := range entity.TransactionTypes {
		rows = append(rows, row.New(7).Add(
			col.New(8).Add(text.New(typeLabels[t], props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(4).Add(text.New("$"+formatMoney(byType[t]), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func rangeLabel(from, to *time.Time) string {
	switch {
	case from == nil && to == nil:
		return "todo el historial"
	case from == nil:
		return "hasta " + to.Format("02/01/2006")
	case to == nil:
		return "desde " + from.Format("02/01/2006")
	}
	return from.Format("02/01/2006") + " – " + to.Format("02/01/2006")
}

// formatMoney redondea a 2 decimales e inserta puntos de miles.
// Ej: 25000.5 → "25.000,50", -1234 → "-1.234,00"
func formatMoney(v decimal.Decimal) string {
	s := v.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3+4)
	if v.IsNegative() {
		buf = append(buf, '-')
	}
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf) + "," + frac
}

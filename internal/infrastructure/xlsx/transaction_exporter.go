// Package xlsx exporta el ledger de insumos a hojas de cálculo (excelize).
package xlsx

import (
	"fmt"
	"iter"

	"github.com/xuri/excelize/v2"
	"github.com/jhoicas/insumos-api/internal/application/analytics"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
)

var _ analytics.TransactionExporter = (*Exporter)(nil)

const sheetName = "Transacciones"

var headings = []any{
	"Fecha", "Insumo", "Tipo", "Cantidad", "Motivo", "Precio unitario",
	"Costo total", "Saldo después", "Lote", "Registrado por", "Notas", "ID",
}

// Exporter escribe el ledger fila por fila con el StreamWriter de excelize,
// sin cargar toda la secuencia en memoria.
type Exporter struct{}

// NewExporter construye el exportador.
func NewExporter() *Exporter { return &Exporter{} }

// ExportTransactions consume rows y devuelve el .xlsx. names traduce ingredient_id → nombre.
func (e *Exporter) ExportTransactions(rows iter.Seq2[*entity.InventoryTransaction, error], names map[string]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("xlsx: renombrar hoja: %w", err)
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, fmt.Errorf("xlsx: stream writer: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx: estilo: %w", err)
	}
	if err := sw.SetRow("A1", headings, excelize.RowOpts{StyleID: bold}); err != nil {
		return nil, fmt.Errorf("xlsx: encabezados: %w", err)
	}

	rowNo := 2
	for t, err := range rows {
		if err != nil {
			return nil, err
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowNo)
		name := names[t.IngredientID]
		if name == "" {
			name = t.IngredientID
		}
		err := sw.SetRow(cell, []any{
			t.TransactionDate.Format("2006-01-02 15:04:05"),
			name,
			t.Type,
			t.Quantity.InexactFloat64(),
			t.ReasonCode,
			t.UnitPrice.InexactFloat64(),
			t.TotalCost.InexactFloat64(),
			t.BalanceAfter.InexactFloat64(),
			t.BatchID,
			t.RecordedBy,
			t.Notes,
			t.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("xlsx: fila %d: %w", rowNo, err)
		}
		rowNo++
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("xlsx: flush: %w", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: escribir: %w", err)
	}
	return buf.Bytes(), nil
}

package inventory

import (
	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/domain"
)

// AmountScale decimales que persisten las columnas NUMERIC(18,6) de cantidades, precios y costos.
const AmountScale = 6

// maxAmount primer valor que no cabe en NUMERIC(18,6): 12 dígitos enteros.
var maxAmount = decimal.New(1, 18-AmountScale)

// CheckAmount devuelve el motivo por el que v no se puede guardar sin perder precisión, o "" si cabe.
func CheckAmount(v decimal.Decimal) string {
	if !v.Equal(v.Truncate(AmountScale)) {
		return "admite como máximo 6 decimales"
	}
	if v.Abs().GreaterThanOrEqual(maxAmount) {
		return "excede el valor máximo (" + maxAmount.String() + ")"
	}
	return ""
}

// ValidateAmount envuelve CheckAmount en un ValidationError sobre field.
func ValidateAmount(field string, v decimal.Decimal) *domain.ValidationError {
	if msg := CheckAmount(v); msg != "" {
		return domain.NewValidationError(field, msg)
	}
	return nil
}

// RoundCost lleva un costo calculado a la escala persistida (mitad lejos de cero).
func RoundCost(v decimal.Decimal) decimal.Decimal {
	return v.Round(AmountScale)
}

package inventory

import (
	"slices"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/domain"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
)

// StockPolicy decide qué pasa cuando una transacción dejaría el stock en negativo.
type StockPolicy string

const (
	// StockPolicyReject rechaza la transacción con ValidationError (por defecto).
	StockPolicyReject StockPolicy = "reject"
	// StockPolicyAllow permite el stock negativo como señal de calidad de datos.
	StockPolicyAllow StockPolicy = "allow"
)

// ParseStockPolicy interpreta el valor de configuración; vacío o desconocido = reject.
func ParseStockPolicy(s string) StockPolicy {
	if StockPolicy(s) == StockPolicyAllow {
		return StockPolicyAllow
	}
	return StockPolicyReject
}

// IsValidType indica si t es un tipo de transacción conocido.
func IsValidType(t string) bool {
	return slices.Contains(entity.TransactionTypes, t)
}

// IsValidReason indica si r es un código de motivo de ajuste conocido.
func IsValidReason(r string) bool {
	return slices.Contains(entity.AdjustmentReasons, r)
}

// SignedDelta efecto de una transacción sobre el stock:
// purchase/return +q, usage/waste −q, adjustment q con su propio signo.
func SignedDelta(txType string, quantity decimal.Decimal) decimal.Decimal {
	switch txType {
	case entity.TransactionTypePurchase, entity.TransactionTypeReturn:
		return quantity.Abs()
	case entity.TransactionTypeUsage, entity.TransactionTypeWaste:
		return quantity.Abs().Neg()
	case entity.TransactionTypeAdjustment:
		return quantity
	}
	return decimal.Zero
}

// TotalCost |quantity| × unitPrice, redondeado a AmountScale.
func TotalCost(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return RoundCost(quantity.Abs().Mul(unitPrice))
}

// ValidateQuantity aplica las reglas de cantidad según el tipo.
func ValidateQuantity(txType string, quantity decimal.Decimal) *domain.ValidationError {
	if quantity.IsZero() {
		return domain.NewValidationError("quantity", "debe ser distinta de cero")
	}
	if txType != entity.TransactionTypeAdjustment && quantity.IsNegative() {
		return domain.NewValidationError("quantity", "debe ser positiva; la dirección la define el tipo")
	}
	return ValidateAmount("quantity", quantity)
}

// ApplyDelta calcula el nuevo stock y verifica el piso según la política.
// Con StockPolicyAllow devuelve belowFloor=true para que el caller lo registre.
func ApplyDelta(current, delta decimal.Decimal, policy StockPolicy) (next decimal.Decimal, belowFloor bool, err error) {
	next = current.Add(delta)
	if msg := CheckAmount(next); msg != "" {
		return current, false, domain.NewValidationError("quantity", "el stock resultante "+msg)
	}
	if !next.IsNegative() {
		return next, false, nil
	}
	if policy == StockPolicyAllow {
		return next, true, nil
	}
	return current, true, domain.NewValidationError("quantity", "stock insuficiente: disponible "+current.String()).
		WithCause(domain.ErrInsufficientStock)
}

// ReplayStock recalcula el stock a partir del log completo.
func ReplayStock(txs []*entity.InventoryTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(SignedDelta(t.Type, t.Quantity))
	}
	return total
}

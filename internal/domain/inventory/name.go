package inventory

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeName devuelve la clave de unicidad de un nombre de insumo:
// espacios colapsados y case folding Unicode ("Harina", "HARINA" y "harina" colisionan).
func NormalizeName(name string) string {
	collapsed := strings.Join(strings.Fields(name), " ")
	return cases.Fold().String(collapsed)
}

// CleanName recorta y colapsa espacios conservando mayúsculas para mostrar.
func CleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

package repository

import (
	"context"

	"github.com/jhoicas/insumos-api/internal/domain/entity"
)

// RecipeRepository persistencia de las líneas de receta (con foto de precio) de productos externos.
type RecipeRepository interface {
	// ReplaceProductLines reemplaza todas las líneas del producto por las indicadas.
	ReplaceProductLines(ctx context.Context, shopID, productID string, lines []entity.RecipeLine) error
	ListByProduct(ctx context.Context, shopID, productID string) ([]entity.RecipeLine, error)
}

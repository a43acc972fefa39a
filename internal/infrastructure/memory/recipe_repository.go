package memory

import (
	"context"
	"slices"

	"github.com/jhoicas/insumos-api/internal/domain"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

var _ repository.RecipeRepository = (*RecipeRepository)(nil)

// RecipeRepository líneas de receta por producto externo.
type RecipeRepository struct {
	t *txn
}

func recipeKey(shopID, productID string) string { return shopID + "|" + productID }

func (r *RecipeRepository) ReplaceProductLines(_ context.Context, shopID, productID string, lines []entity.RecipeLine) error {
	s := r.t.s
	c := slices.Clone(lines)
	return r.t.write(func() error {
		for _, l := range c {
			if _, ok := s.ingredients[l.IngredientID]; !ok {
				return domain.ErrConflict
			}
		}
		return nil
	}, func() { s.recipes[recipeKey(shopID, productID)] = c })
}

func (r *RecipeRepository) ListByProduct(_ context.Context, shopID, productID string) ([]entity.RecipeLine, error) {
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.recipes[recipeKey(shopID, productID)]), nil
}

package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/domain"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

var _ repository.IngredientRepository = (*IngredientRepository)(nil)

// IngredientRepository implementación en memoria del catálogo.
type IngredientRepository struct {
	t *txn
}

// lookup lee considerando las escrituras pendientes de la transacción. Requiere s.mu tomado.
func (r *IngredientRepository) lookup(id string) *entity.Ingredient {
	if ing, ok := r.t.overlay[id]; ok {
		return ing
	}
	return r.t.s.ingredients[id]
}

func (r *IngredientRepository) stage(ing *entity.Ingredient) {
	if r.t.active {
		r.t.overlay[ing.ID] = cloneIngredient(ing)
	}
}

func (r *IngredientRepository) Create(_ context.Context, ing *entity.Ingredient) error {
	s := r.t.s
	c := cloneIngredient(ing)
	err := r.t.write(func() error {
		for _, other := range s.ingredients {
			if other.ShopID == c.ShopID && other.NameKey == c.NameKey {
				return domain.ErrDuplicate
			}
		}
		return nil
	}, func() { s.ingredients[c.ID] = c })
	if err == nil {
		r.stage(c)
	}
	return err
}

func (r *IngredientRepository) GetByID(_ context.Context, id string) (*entity.Ingredient, error) {
	r.t.s.mu.RLock()
	defer r.t.s.mu.RUnlock()
	return cloneIngredient(r.lookup(id)), nil
}

// GetForUpdate toma el lock de la fila hasta el fin de la transacción y lee el valor vigente.
func (r *IngredientRepository) GetForUpdate(ctx context.Context, id string) (*entity.Ingredient, error) {
	if err := r.t.lock(ctx, "ingredient:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *IngredientRepository) GetByShopAndNameKey(_ context.Context, shopID, nameKey string) (*entity.Ingredient, error) {
	r.t.s.mu.RLock()
	defer r.t.s.mu.RUnlock()
	for _, ing := range r.t.s.ingredients {
		if ing.ShopID == shopID && ing.NameKey == nameKey {
			return cloneIngredient(r.lookup(ing.ID)), nil
		}
	}
	return nil, nil
}

// Update persiste metadatos y precio. El stock guardado no se toca.
func (r *IngredientRepository) Update(_ context.Context, ing *entity.Ingredient) error {
	s := r.t.s
	c := cloneIngredient(ing)
	return r.t.write(func() error {
		cur, ok := s.ingredients[c.ID]
		if !ok {
			return domain.ErrNotFound
		}
		for _, other := range s.ingredients {
			if other.ID != c.ID && other.ShopID == cur.ShopID && other.NameKey == c.NameKey {
				return domain.ErrDuplicate
			}
		}
		return nil
	}, func() {
		cur := s.ingredients[c.ID]
		cur.Name, cur.NameKey, cur.Unit = c.Name, c.NameKey, c.Unit
		cur.CurrentUnitPrice, cur.UpdatedAt = c.CurrentUnitPrice, c.UpdatedAt
	})
}

func (r *IngredientRepository) UpdateStock(_ context.Context, id string, stock decimal.Decimal, at time.Time) error {
	s := r.t.s
	if r.t.active {
		s.mu.RLock()
		cur := cloneIngredient(r.lookup(id))
		s.mu.RUnlock()
		if cur == nil {
			return domain.ErrNotFound
		}
		cur.CurrentStock, cur.UpdatedAt = stock, at
		r.stage(cur)
	}
	return r.t.write(func() error {
		if _, ok := s.ingredients[id]; !ok {
			return domain.ErrNotFound
		}
		return nil
	}, func() {
		cur := s.ingredients[id]
		cur.CurrentStock, cur.UpdatedAt = stock, at
	})
}

func (r *IngredientRepository) List(_ context.Context, f repository.IngredientFilter) ([]*entity.Ingredient, error) {
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Ingredient, 0)
	for _, ing := range s.ingredients {
		if ing.ShopID != f.ShopID {
			continue
		}
		if f.Search != "" && !strings.Contains(ing.NameKey, f.Search) {
			continue
		}
		if f.AfterID != "" && (ing.NameKey < f.AfterNameKey || (ing.NameKey == f.AfterNameKey && ing.ID <= f.AfterID)) {
			continue
		}
		out = append(out, cloneIngredient(ing))
	}
	slices.SortFunc(out, func(a, b *entity.Ingredient) int {
		if c := strings.Compare(a.NameKey, b.NameKey); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *IngredientRepository) ListIDsByShop(_ context.Context, shopID string) ([]string, error) {
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0)
	for id, ing := range s.ingredients {
		if ing.ShopID == shopID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *IngredientRepository) CountReferences(_ context.Context, id string) (entity.IngredientReferences, error) {
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.references(id), nil
}

// references requiere s.mu tomado.
func (s *Store) references(id string) entity.IngredientReferences {
	var refs entity.IngredientReferences
	for _, t := range s.transactions {
		if t.IngredientID == id {
			refs.Transactions++
		}
	}
	for _, b := range s.batches {
		for _, l := range b.Lines {
			if l.IngredientID == id {
				refs.BatchLines++
			}
		}
	}
	for _, lines := range s.recipes {
		for _, l := range lines {
			if l.IngredientID == id {
				refs.RecipeLines++
			}
		}
	}
	return refs
}

func (r *IngredientRepository) AverageUnitPrice(_ context.Context, shopID string) (decimal.Decimal, error) {
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, n := decimal.Zero, 0
	for _, ing := range s.ingredients {
		if ing.ShopID == shopID {
			sum = sum.Add(ing.CurrentUnitPrice)
			n++
		}
	}
	if n == 0 {
		return decimal.Zero, nil
	}
	return sum.Div(decimal.NewFromInt(int64(n))), nil
}

// Delete falla con ErrConflict si al aplicar existe alguna referencia (equivale a ON DELETE RESTRICT).
func (r *IngredientRepository) Delete(_ context.Context, id string) error {
	s := r.t.s
	if r.t.active {
		r.t.overlay[id] = nil
	}
	return r.t.write(func() error {
		if _, ok := s.ingredients[id]; !ok {
			return domain.ErrNotFound
		}
		if s.references(id).Any() {
			return domain.ErrConflict
		}
		return nil
	}, func() { delete(s.ingredients, id) })
}

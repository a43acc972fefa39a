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

var _ repository.BatchRepository = (*BatchRepository)(nil)

// BatchRepository lotes en memoria; cabecera y líneas se guardan juntas.
type BatchRepository struct {
	t *txn
}

func (r *BatchRepository) Create(_ context.Context, b *entity.IngredientBatch) error {
	s := r.t.s
	c := cloneBatch(b)
	return r.t.write(func() error {
		if _, ok := s.batches[c.ID]; ok {
			return domain.ErrDuplicate
		}
		for _, l := range c.Lines {
			if _, ok := s.ingredients[l.IngredientID]; !ok {
				return domain.ErrConflict
			}
		}
		return nil
	}, func() { s.batches[c.ID] = c })
}

func (r *BatchRepository) GetByID(_ context.Context, id string) (*entity.IngredientBatch, error) {
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBatch(s.batches[id]), nil
}

func (r *BatchRepository) List(_ context.Context, f repository.BatchFilter) ([]*entity.IngredientBatch, error) {
	s := r.t.s
	s.mu.RLock()
	out := make([]*entity.IngredientBatch, 0)
	for _, b := range s.batches {
		if b.ShopID != f.ShopID {
			continue
		}
		if f.BeforeCreate != nil {
			if b.CreatedAt.After(*f.BeforeCreate) ||
				(b.CreatedAt.Equal(*f.BeforeCreate) && b.ID >= f.BeforeID) {
				continue
			}
		}
		out = append(out, cloneBatch(b))
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *entity.IngredientBatch) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *BatchRepository) SumTotalCost(_ context.Context, shopID string, from, to *time.Time) (decimal.Decimal, error) {
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, b := range s.batches {
		if b.ShopID == shopID && inRange(b.PeriodStart, from, to) {
			total = total.Add(b.TotalCost)
		}
	}
	return total, nil
}

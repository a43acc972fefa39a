package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/domain"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/inventory"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

var _ repository.InventoryTransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository ledger en memoria. Solo inserción.
type TransactionRepository struct {
	t *txn
}

func (r *TransactionRepository) Create(_ context.Context, tx *entity.InventoryTransaction) error {
	s := r.t.s
	c := cloneTransaction(tx)
	return r.t.write(func() error {
		if _, ok := s.txByID[c.ID]; ok {
			return domain.ErrDuplicate
		}
		if _, ok := s.ingredients[c.IngredientID]; !ok {
			return domain.ErrConflict
		}
		return nil
	}, func() {
		s.transactions = append(s.transactions, c)
		s.txByID[c.ID] = c
	})
}

func (r *TransactionRepository) GetByID(_ context.Context, id string) (*entity.InventoryTransaction, error) {
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTransaction(s.txByID[id]), nil
}

func inRange(at time.Time, from, to *time.Time) bool {
	if from != nil && at.Before(*from) {
		return false
	}
	if to != nil && at.After(*to) {
		return false
	}
	return true
}

func (r *TransactionRepository) List(_ context.Context, f repository.TransactionFilter) ([]*entity.InventoryTransaction, error) {
	s := r.t.s
	s.mu.RLock()
	out := make([]*entity.InventoryTransaction, 0)
	for _, t := range s.transactions {
		if t.ShopID != f.ShopID ||
			(f.IngredientID != "" && t.IngredientID != f.IngredientID) ||
			(f.BatchID != "" && t.BatchID != f.BatchID) ||
			(f.Type != "" && t.Type != f.Type) ||
			!inRange(t.TransactionDate, f.From, f.To) {
			continue
		}
		if f.BeforeDate != nil {
			if t.TransactionDate.After(*f.BeforeDate) ||
				(t.TransactionDate.Equal(*f.BeforeDate) && t.ID >= f.BeforeID) {
				continue
			}
		}
		out = append(out, cloneTransaction(t))
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *entity.InventoryTransaction) int {
		if c := b.TransactionDate.Compare(a.TransactionDate); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *TransactionRepository) SumSignedDelta(_ context.Context, ingredientID string) (decimal.Decimal, error) {
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	var txs []*entity.InventoryTransaction
	for _, t := range s.transactions {
		if t.IngredientID == ingredientID {
			txs = append(txs, t)
		}
	}
	return inventory.ReplayStock(txs), nil
}

func (r *TransactionRepository) SumCostByType(_ context.Context, shopID string, from, to *time.Time) (map[string]decimal.Decimal, error) {
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]decimal.Decimal{}
	for _, t := range s.transactions {
		if t.ShopID != shopID || !inRange(t.TransactionDate, from, to) {
			continue
		}
		out[t.Type] = out[t.Type].Add(t.TotalCost)
	}
	return out, nil
}

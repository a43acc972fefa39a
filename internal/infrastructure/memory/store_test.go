package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-api/internal/domain"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

func seedIngredient(t *testing.T, s *Store, id string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.Repos().Ingredients.Create(context.Background(), &entity.Ingredient{
		ID: id, ShopID: "shop-1", Name: id, NameKey: id, Unit: "kg", CreatedAt: now, UpdatedAt: now,
	}))
}

func TestRun_ErrorDescartaEscrituras(t *testing.T) {
	s := New()
	seedIngredient(t, s, "flour")
	boom := errors.New("boom")

	err := s.Run(context.Background(), func(r repository.Repos) error {
		require.NoError(t, r.Ingredients.UpdateStock(context.Background(), "flour", decimal.NewFromInt(7), time.Now()))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Repos().Ingredients.GetByID(context.Background(), "flour")
	require.NoError(t, err)
	assert.True(t, got.CurrentStock.IsZero())
}

func TestRun_LecturaDeEscriturasPropias(t *testing.T) {
	s := New()
	seedIngredient(t, s, "flour")

	err := s.Run(context.Background(), func(r repository.Repos) error {
		if err := r.Ingredients.UpdateStock(context.Background(), "flour", decimal.NewFromInt(3), time.Now()); err != nil {
			return err
		}
		inTx, err := r.Ingredients.GetForUpdate(context.Background(), "flour")
		require.NoError(t, err)
		assert.Equal(t, "3", inTx.CurrentStock.String())

		// fuera de la transacción aún no se ve
		outside, err := s.Repos().Ingredients.GetByID(context.Background(), "flour")
		require.NoError(t, err)
		assert.True(t, outside.CurrentStock.IsZero())
		return nil
	})
	require.NoError(t, err)

	got, err := s.Repos().Ingredients.GetByID(context.Background(), "flour")
	require.NoError(t, err)
	assert.Equal(t, "3", got.CurrentStock.String())
}

func TestRun_CheckFallidoEnCommitNoAplicaNada(t *testing.T) {
	s := New()
	seedIngredient(t, s, "flour")
	now := time.Now().UTC()

	err := s.Run(context.Background(), func(r repository.Repos) error {
		if err := r.Ingredients.UpdateStock(context.Background(), "flour", decimal.NewFromInt(5), now); err != nil {
			return err
		}
		// insumo inexistente: el check de la transacción falla al confirmar
		return r.Transactions.Create(context.Background(), &entity.InventoryTransaction{
			ID: "tx-1", ShopID: "shop-1", IngredientID: "ghost", Type: entity.TransactionTypePurchase,
			Quantity: decimal.NewFromInt(5), TransactionDate: now, CreatedAt: now,
		})
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.Repos().Ingredients.GetByID(context.Background(), "flour")
	require.NoError(t, err)
	assert.True(t, got.CurrentStock.IsZero())
}

func TestGetForUpdate_EsperaAlDuenoYRespetaElContexto(t *testing.T) {
	s := New()
	seedIngredient(t, s, "flour")

	locked := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Run(context.Background(), func(r repository.Repos) error {
			_, err := r.Ingredients.GetForUpdate(context.Background(), "flour")
			close(locked)
			<-done
			return err
		})
	}()
	<-locked

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, func(r repository.Repos) error {
		_, err := r.Ingredients.GetForUpdate(ctx, "flour")
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(done)
	require.Eventually(t, func() bool {
		return s.Run(context.Background(), func(r repository.Repos) error {
			_, err := r.Ingredients.GetForUpdate(context.Background(), "flour")
			return err
		}) == nil
	}, time.Second, 10*time.Millisecond)
}

func TestIdempotency_SegundaReservaVeElResultado(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, func(r repository.Repos) error {
		prev, err := r.Idempotency.Reserve(ctx, "shop-1", repository.IdempotencyScopeTransaction, "k1")
		require.NoError(t, err)
		assert.Empty(t, prev)
		return r.Idempotency.Complete(ctx, "shop-1", repository.IdempotencyScopeTransaction, "k1", "tx-1")
	}))

	require.NoError(t, s.Run(ctx, func(r repository.Repos) error {
		prev, err := r.Idempotency.Reserve(ctx, "shop-1", repository.IdempotencyScopeTransaction, "k1")
		require.NoError(t, err)
		assert.Equal(t, "tx-1", prev)

		other, err := r.Idempotency.Reserve(ctx, "shop-2", repository.IdempotencyScopeTransaction, "k1")
		require.NoError(t, err)
		assert.Empty(t, other)
		return nil
	}))
}

func TestDelete_ReferenciadoEsConflicto(t *testing.T) {
	s := New()
	seedIngredient(t, s, "flour")
	seedIngredient(t, s, "salt")
	now := time.Now().UTC()
	require.NoError(t, s.Repos().Batches.Create(context.Background(), &entity.IngredientBatch{
		ID: "b-1", ShopID: "shop-1", CreatedAt: now,
		Lines: []entity.BatchLineItem{{BatchID: "b-1", LineNo: 1, IngredientID: "flour", Quantity: decimal.NewFromInt(1)}},
	}))

	assert.ErrorIs(t, s.Repos().Ingredients.Delete(context.Background(), "flour"), domain.ErrConflict)
	assert.NoError(t, s.Repos().Ingredients.Delete(context.Background(), "salt"))
	assert.ErrorIs(t, s.Repos().Ingredients.Delete(context.Background(), "salt"), domain.ErrNotFound)

	refs, err := s.Repos().Ingredients.CountReferences(context.Background(), "flour")
	require.NoError(t, err)
	assert.Equal(t, 1, refs.BatchLines)
}

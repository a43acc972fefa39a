package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	"github.com/jhoicas/insumos-api/internal/domain"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/inventory"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

// BatchUseCase registra compras agrupadas: cabecera, líneas y una transacción purchase por línea
// en una sola transacción de BD. Si una línea falla no queda nada aplicado.
type BatchUseCase struct {
	ledger       *LedgerUseCase
	batches      repository.BatchRepository
	transactions repository.InventoryTransactionRepository
	log          zerolog.Logger
}

// NewBatchUseCase construye el caso de uso sobre el ledger.
func NewBatchUseCase(
	ledger *LedgerUseCase,
	batches repository.BatchRepository,
	transactions repository.InventoryTransactionRepository,
	log zerolog.Logger,
) *BatchUseCase {
	return &BatchUseCase{ledger: ledger, batches: batches, transactions: transactions, log: log}
}

// CreateBatchInput entrada para Create. Actor es quien registra el lote.
type CreateBatchInput struct {
	ShopID         string
	Actor          string
	IdempotencyKey string
	dto.CreateBatchRequest
}

type batchResult struct {
	batch    *entity.IngredientBatch
	txs      []*entity.InventoryTransaction
	replayed bool
}

// Create valida el lote, bloquea las filas de sus insumos en orden ascendente de id
// (dos lotes concurrentes nunca esperan uno al otro en ciclo), inserta cabecera, líneas
// y transacciones, y aplica los deltas de stock.
func (uc *BatchUseCase) Create(ctx context.Context, in CreateBatchInput) (*dto.BatchResponse, error) {
	if err := validateBatch(in); err != nil {
		return nil, err
	}
	cfg := uc.ledger.cfg
	res, err := retryTx(ctx, cfg, uc.log, func(ctx context.Context) (batchResult, error) {
		var out batchResult
		err := uc.ledger.txRunner.Run(ctx, func(r repository.Repos) error {
			if in.IdempotencyKey != "" {
				prevID, err := r.Idempotency.Reserve(ctx, in.ShopID, repository.IdempotencyScopeBatch, in.IdempotencyKey)
				if err != nil {
					return err
				}
				if prevID != "" {
					prev, err := r.Batches.GetByID(ctx, prevID)
					if err != nil {
						return err
					}
					if prev == nil {
						return domain.ErrNotFound
					}
					out = batchResult{batch: prev, replayed: true}
					return nil
				}
			}

			ids := make([]string, 0, len(in.Lines))
			for _, l := range in.Lines {
				if !slices.Contains(ids, l.IngredientID) {
					ids = append(ids, l.IngredientID)
				}
			}
			slices.Sort(ids)
			locked := make(map[string]*entity.Ingredient, len(ids))
			for _, id := range ids {
				ing, err := r.Ingredients.GetForUpdate(ctx, id)
				if err != nil {
					return err
				}
				if ing == nil || ing.ShopID != in.ShopID {
					return fmt.Errorf("insumo %s: %w", id, domain.ErrNotFound)
				}
				locked[id] = ing
			}

			now := time.Now().UTC()
			b := &entity.IngredientBatch{
				ID:          uuid.New().String(),
				ShopID:      in.ShopID,
				Category:    strings.TrimSpace(in.Category),
				PeriodStart: in.PeriodStart.UTC(),
				PeriodEnd:   in.PeriodEnd.UTC(),
				Notes:       in.Notes,
				TotalCost:   decimal.Zero,
				CreatedBy:   in.Actor,
				CreatedAt:   now,
				Lines:       make([]entity.BatchLineItem, 0, len(in.Lines)),
			}
			for i, l := range in.Lines {
				line := entity.BatchLineItem{
					BatchID:      b.ID,
					LineNo:       i + 1,
					IngredientID: l.IngredientID,
					Quantity:     l.Quantity,
					UnitPrice:    *l.UnitPrice,
				}
				b.Lines = append(b.Lines, line)
				b.TotalCost = b.TotalCost.Add(line.Subtotal())
			}
			if err := r.Batches.Create(ctx, b); err != nil {
				return err
			}

			txs := make([]*entity.InventoryTransaction, 0, len(b.Lines))
			for _, line := range b.Lines {
				t := &entity.InventoryTransaction{
					ID:              uuid.New().String(),
					ShopID:          in.ShopID,
					IngredientID:    line.IngredientID,
					BatchID:         b.ID,
					Type:            entity.TransactionTypePurchase,
					Quantity:        line.Quantity,
					UnitPrice:       line.UnitPrice,
					TotalCost:       line.Subtotal(),
					TransactionDate: b.PeriodEnd,
					Notes:           b.Category,
					RecordedBy:      in.Actor,
					CreatedAt:       now,
				}
				if _, err := uc.ledger.post(ctx, r, locked[line.IngredientID], t); err != nil {
					return err
				}
				txs = append(txs, t)
			}
			if in.IdempotencyKey != "" {
				if err := r.Idempotency.Complete(ctx, in.ShopID, repository.IdempotencyScopeBatch, in.IdempotencyKey, b.ID); err != nil {
					return err
				}
			}
			out = batchResult{batch: b, txs: txs}
			return nil
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	if !res.replayed {
		uc.ledger.stats.Invalidate(ctx, in.ShopID)
		uc.log.Info().Str("shop_id", in.ShopID).Str("batch_id", res.batch.ID).
			Int("lines", len(res.batch.Lines)).Str("total_cost", res.batch.TotalCost.String()).
			Msg("lote registrado")
	}
	if res.txs == nil {
		if res.txs, err = uc.batchTransactions(ctx, in.ShopID, res.batch.ID); err != nil {
			return nil, err
		}
	}
	resp := ToBatchResponse(res.batch, res.txs)
	resp.Replayed = res.replayed
	return resp, nil
}

func validateBatch(in CreateBatchInput) error {
	verr := &domain.ValidationError{}
	if err := dto.Validate(in.CreateBatchRequest); err != nil && !errors.As(err, &verr) {
		return err
	}
	if in.Actor == "" {
		verr.Add("created_by", "required")
	}
	if !in.PeriodStart.IsZero() && !in.PeriodEnd.IsZero() && in.PeriodStart.After(in.PeriodEnd) {
		verr.Add("period_start", "debe ser anterior o igual a period_end")
	}
	total := decimal.Zero
	for i, l := range in.Lines {
		switch {
		case !l.Quantity.IsPositive():
			verr.Add(fmt.Sprintf("lines[%d].quantity", i), "debe ser mayor a 0")
		case inventory.CheckAmount(l.Quantity) != "":
			verr.Add(fmt.Sprintf("lines[%d].quantity", i), inventory.CheckAmount(l.Quantity))
		}
		if l.UnitPrice == nil {
			verr.Add(fmt.Sprintf("lines[%d].unit_price", i), "required")
			continue
		}
		switch {
		case l.UnitPrice.IsNegative():
			verr.Add(fmt.Sprintf("lines[%d].unit_price", i), "debe ser mayor o igual a 0")
		case inventory.CheckAmount(*l.UnitPrice) != "":
			verr.Add(fmt.Sprintf("lines[%d].unit_price", i), inventory.CheckAmount(*l.UnitPrice))
		}
		total = total.Add(inventory.TotalCost(l.Quantity, *l.UnitPrice))
	}
	if verr.Empty() {
		if msg := inventory.CheckAmount(total); msg != "" {
			verr.Add("total_cost", msg)
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// Get obtiene un lote con sus líneas y las transacciones que generó.
func (uc *BatchUseCase) Get(ctx context.Context, shopID, id string) (*dto.BatchResponse, error) {
	b, err := uc.batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil || b.ShopID != shopID {
		return nil, domain.ErrNotFound
	}
	txs, err := uc.batchTransactions(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	return ToBatchResponse(b, txs), nil
}

// Transactions devuelve las transacciones purchase generadas por un lote.
func (uc *BatchUseCase) Transactions(ctx context.Context, shopID, batchID string) ([]dto.TransactionResponse, error) {
	txs, err := uc.batchTransactions(ctx, shopID, batchID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, *ToTransactionResponse(t))
	}
	return out, nil
}

func (uc *BatchUseCase) batchTransactions(ctx context.Context, shopID, batchID string) ([]*entity.InventoryTransaction, error) {
	var out []*entity.InventoryTransaction
	for t, err := range uc.ledger.All(ctx, repository.TransactionFilter{ShopID: shopID, BatchID: batchID}) {
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// List devuelve una página de lotes, más reciente primero.
func (uc *BatchUseCase) List(ctx context.Context, shopID string, in dto.CursorRequest) (*dto.BatchListResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	in.Normalize()
	f := repository.BatchFilter{ShopID: shopID, Limit: in.Limit + 1}
	if parts := dto.DecodeCursor(in.Cursor, 2); parts != nil {
		at, err := time.Parse(time.RFC3339Nano, parts[0])
		if err != nil {
			return nil, domain.NewValidationError("cursor", "cursor inválido")
		}
		f.BeforeCreate, f.BeforeID = &at, parts[1]
	} else if in.Cursor != "" {
		return nil, domain.NewValidationError("cursor", "cursor inválido")
	}
	list, err := uc.batches.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := &dto.BatchListResponse{Items: make([]dto.BatchResponse, 0, len(list)), Page: dto.PageResponse{Limit: in.Limit}}
	if len(list) > in.Limit {
		list = list[:in.Limit]
		last := list[len(list)-1]
		out.Page.NextCursor = dto.EncodeCursor(last.CreatedAt.Format(time.RFC3339Nano), last.ID)
	}
	for _, b := range list {
		out.Items = append(out.Items, *ToBatchResponse(b, nil))
	}
	return out, nil
}

// ToBatchResponse convierte el lote (y opcionalmente sus transacciones) a DTO.
func ToBatchResponse(b *entity.IngredientBatch, txs []*entity.InventoryTransaction) *dto.BatchResponse {
	resp := &dto.BatchResponse{
		ID:          b.ID,
		Category:    b.Category,
		PeriodStart: b.PeriodStart,
		PeriodEnd:   b.PeriodEnd,
		Notes:       b.Notes,
		TotalCost:   b.TotalCost,
		CreatedBy:   b.CreatedBy,
		CreatedAt:   b.CreatedAt,
		Lines:       make([]dto.BatchLineResponse, 0, len(b.Lines)),
	}
	for _, l := range b.Lines {
		resp.Lines = append(resp.Lines, dto.BatchLineResponse{
			IngredientID: l.IngredientID,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Subtotal:     l.Subtotal(),
		})
	}
	for _, t := range txs {
		resp.Transactions = append(resp.Transactions, *ToTransactionResponse(t))
	}
	return resp
}

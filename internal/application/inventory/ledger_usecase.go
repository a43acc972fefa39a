package inventory

import (
	"context"
	"errors"
	"iter"
	"slices"
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

const pageSize = 200

// LedgerUseCase registra transacciones de inventario. Cada registro inserta el evento y
// actualiza el stock del insumo en la misma transacción de BD, con la fila del insumo
// bloqueada (SELECT FOR UPDATE): dos escrituras sobre el mismo insumo se serializan,
// insumos distintos avanzan en paralelo.
type LedgerUseCase struct {
	txRunner     repository.TxRunner
	transactions repository.InventoryTransactionRepository
	ingredients  repository.IngredientRepository
	guard        ReplayGuard
	stats        StatsInvalidator
	cfg          Config
	log          zerolog.Logger
}

// NewLedgerUseCase construye el caso de uso. guard y stats pueden ser nil.
func NewLedgerUseCase(
	txRunner repository.TxRunner,
	transactions repository.InventoryTransactionRepository,
	ingredients repository.IngredientRepository,
	guard ReplayGuard,
	stats StatsInvalidator,
	cfg Config,
	log zerolog.Logger,
) *LedgerUseCase {
	if guard == nil {
		guard = noopGuard{}
	}
	if stats == nil {
		stats = noopInvalidator{}
	}
	return &LedgerUseCase{
		txRunner:     txRunner,
		transactions: transactions,
		ingredients:  ingredients,
		guard:        guard,
		stats:        stats,
		cfg:          cfg,
		log:          log,
	}
}

// RecordInput entrada para Record. Actor es quien registra (user_id del token).
type RecordInput struct {
	ShopID         string
	Actor          string
	IdempotencyKey string
	dto.RecordTransactionRequest
}

type recordResult struct {
	tx         *entity.InventoryTransaction
	replayed   bool
	belowFloor bool
}

// Record valida, bloquea la fila del insumo, verifica el piso de stock, inserta la transacción
// y actualiza el stock; todo o nada. Con IdempotencyKey, un reintento del cliente devuelve la
// transacción original marcada como replayed sin volver a tocar el stock.
func (uc *LedgerUseCase) Record(ctx context.Context, in RecordInput) (*dto.TransactionResponse, error) {
	if err := validateRecord(in); err != nil {
		return nil, err
	}
	res, err := retryTx(ctx, uc.cfg, uc.log, func(ctx context.Context) (recordResult, error) {
		var out recordResult
		err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
			if in.IdempotencyKey != "" {
				prevID, err := r.Idempotency.Reserve(ctx, in.ShopID, repository.IdempotencyScopeTransaction, in.IdempotencyKey)
				if err != nil {
					return err
				}
				if prevID != "" {
					prev, err := r.Transactions.GetByID(ctx, prevID)
					if err != nil {
						return err
					}
					if prev == nil {
						return domain.ErrNotFound
					}
					out = recordResult{tx: prev, replayed: true}
					return nil
				}
			}

			ing, err := r.Ingredients.GetForUpdate(ctx, in.IngredientID)
			if err != nil {
				return err
			}
			if ing == nil || ing.ShopID != in.ShopID {
				return domain.ErrNotFound
			}
			unitPrice := ing.CurrentUnitPrice
			if in.UnitPrice != nil {
				unitPrice = *in.UnitPrice
			}
			now := time.Now().UTC()
			date := now
			if in.TransactionDate != nil {
				date = in.TransactionDate.UTC()
			}
			t := &entity.InventoryTransaction{
				ID:              uuid.New().String(),
				ShopID:          in.ShopID,
				IngredientID:    ing.ID,
				Type:            in.Type,
				Quantity:        in.Quantity,
				ReasonCode:      in.ReasonCode,
				UnitPrice:       unitPrice,
				TotalCost:       inventory.TotalCost(in.Quantity, unitPrice),
				TransactionDate: date,
				Notes:           in.Notes,
				RecordedBy:      in.Actor,
				CreatedAt:       now,
			}
			if verr := inventory.ValidateAmount("total_cost", t.TotalCost); verr != nil {
				return verr
			}
			belowFloor, err := uc.post(ctx, r, ing, t)
			if err != nil {
				return err
			}
			if in.IdempotencyKey != "" {
				if err := r.Idempotency.Complete(ctx, in.ShopID, repository.IdempotencyScopeTransaction, in.IdempotencyKey, t.ID); err != nil {
					return err
				}
			}
			out = recordResult{tx: t, belowFloor: belowFloor}
			return nil
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}

	if res.replayed {
		uc.log.Info().Str("shop_id", in.ShopID).Str("transaction_id", res.tx.ID).Msg("llave de idempotencia repetida, se devuelve la transacción original")
	} else {
		uc.stats.Invalidate(ctx, in.ShopID)
		if res.belowFloor {
			uc.log.Warn().
				Str("shop_id", in.ShopID).
				Str("ingredient_id", res.tx.IngredientID).
				Str("transaction_id", res.tx.ID).
				Str("balance_after", res.tx.BalanceAfter.String()).
				Msg("stock negativo: revisar calidad de datos")
		}
	}
	resp := ToTransactionResponse(res.tx)
	resp.Replayed = res.replayed
	return resp, nil
}

// post aplica t sobre ing, cuya fila ya está bloqueada por la transacción de r.
// Inserta el evento con su BalanceAfter y escribe el nuevo stock.
func (uc *LedgerUseCase) post(ctx context.Context, r repository.Repos, ing *entity.Ingredient, t *entity.InventoryTransaction) (belowFloor bool, err error) {
	next, belowFloor, err := inventory.ApplyDelta(ing.CurrentStock, inventory.SignedDelta(t.Type, t.Quantity), uc.cfg.Policy)
	if err != nil {
		return belowFloor, err
	}
	t.BalanceAfter = next
	if err := r.Transactions.Create(ctx, t); err != nil {
		return belowFloor, err
	}
	if err := r.Ingredients.UpdateStock(ctx, ing.ID, next, t.CreatedAt); err != nil {
		return belowFloor, err
	}
	ing.CurrentStock = next
	return belowFloor, nil
}

func validateRecord(in RecordInput) error {
	verr := &domain.ValidationError{}
	if err := dto.Validate(in.RecordTransactionRequest); err != nil && !errors.As(err, &verr) {
		return err
	}
	if in.Actor == "" {
		verr.Add("recorded_by", "required")
	}
	if inventory.IsValidType(in.Type) {
		if qerr := inventory.ValidateQuantity(in.Type, in.Quantity); qerr != nil {
			for k, v := range qerr.Fields {
				verr.Add(k, v)
			}
		}
	}
	if in.UnitPrice != nil {
		if in.UnitPrice.IsNegative() {
			verr.Add("unit_price", "debe ser mayor o igual a 0")
		} else if msg := inventory.CheckAmount(*in.UnitPrice); msg != "" {
			verr.Add("unit_price", msg)
		}
	}
	if in.Type == entity.TransactionTypeAdjustment && in.ReasonCode == "" {
		verr.Add("reason_code", "requerido en ajustes")
	}
	if in.ReasonCode != "" && !inventory.IsValidReason(in.ReasonCode) {
		verr.Add("reason_code", "oneof")
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// Get obtiene una transacción de la tienda.
func (uc *LedgerUseCase) Get(ctx context.Context, shopID, id string) (*dto.TransactionResponse, error) {
	t, err := uc.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.ShopID != shopID {
		return nil, domain.ErrNotFound
	}
	return ToTransactionResponse(t), nil
}

// Filter construye el filtro de repositorio a partir de la query HTTP.
func Filter(shopID string, in dto.ListTransactionsRequest) (repository.TransactionFilter, error) {
	if err := dto.Validate(in); err != nil {
		return repository.TransactionFilter{}, err
	}
	f := repository.TransactionFilter{ShopID: shopID, IngredientID: in.IngredientID, Type: in.Type}
	from, err := dto.ParseDate(in.From, false)
	if err != nil {
		return f, domain.NewValidationError("from", "fecha inválida")
	}
	to, err := dto.ParseDate(in.To, true)
	if err != nil {
		return f, domain.NewValidationError("to", "fecha inválida")
	}
	if from != nil && to != nil && from.After(*to) {
		return f, domain.NewValidationError("from", "debe ser anterior a to")
	}
	f.From, f.To = from, to
	return f, nil
}

// List devuelve una página del ledger, más reciente primero.
func (uc *LedgerUseCase) List(ctx context.Context, shopID string, in dto.ListTransactionsRequest) (*dto.TransactionListResponse, error) {
	f, err := Filter(shopID, in)
	if err != nil {
		return nil, err
	}
	in.Normalize()
	if parts := dto.DecodeCursor(in.Cursor, 2); parts != nil {
		at, perr := time.Parse(time.RFC3339Nano, parts[0])
		if perr != nil {
			return nil, domain.NewValidationError("cursor", "cursor inválido")
		}
		f.BeforeDate, f.BeforeID = &at, parts[1]
	} else if in.Cursor != "" {
		return nil, domain.NewValidationError("cursor", "cursor inválido")
	}
	f.Limit = in.Limit + 1
	list, err := uc.transactions.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := &dto.TransactionListResponse{Items: make([]dto.TransactionResponse, 0, len(list)), Page: dto.PageResponse{Limit: in.Limit}}
	if len(list) > in.Limit {
		list = list[:in.Limit]
		last := list[len(list)-1]
		out.Page.NextCursor = dto.EncodeCursor(last.TransactionDate.Format(time.RFC3339Nano), last.ID)
	}
	for _, t := range list {
		out.Items = append(out.Items, *ToTransactionResponse(t))
	}
	return out, nil
}

// All recorre el ledger filtrado de forma perezosa (transaction_date DESC, id DESC).
// Puede recorrerse varias veces; cada recorrido vuelve a consultar desde el inicio.
func (uc *LedgerUseCase) All(ctx context.Context, f repository.TransactionFilter) iter.Seq2[*entity.InventoryTransaction, error] {
	return func(yield func(*entity.InventoryTransaction, error) bool) {
		page := f
		page.Limit = pageSize
		page.BeforeDate, page.BeforeID = nil, ""
		for {
			list, err := uc.transactions.List(ctx, page)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, t := range list {
				if !yield(t, nil) {
					return
				}
			}
			if len(list) < pageSize {
				return
			}
			last := list[len(list)-1]
			at := last.TransactionDate
			page.BeforeDate, page.BeforeID = &at, last.ID
		}
	}
}

// SumCostByType Σ total_cost por tipo de transacción, opcionalmente en [from, to].
func (uc *LedgerUseCase) SumCostByType(ctx context.Context, shopID string, from, to *time.Time) (map[string]decimal.Decimal, error) {
	return uc.transactions.SumCostByType(ctx, shopID, from, to)
}

// VerifyStock compara el stock guardado con el que resulta de reproducir el ledger, sin escribir.
func (uc *LedgerUseCase) VerifyStock(ctx context.Context, shopID, ingredientID string) ([]dto.StockDriftResponse, error) {
	return uc.replay(ctx, shopID, ingredientID, false)
}

// RebuildStock recalcula current_stock desde el ledger completo y corrige las diferencias.
// ingredientID vacío = todos los insumos de la tienda.
func (uc *LedgerUseCase) RebuildStock(ctx context.Context, shopID, ingredientID string) ([]dto.StockDriftResponse, error) {
	return uc.replay(ctx, shopID, ingredientID, true)
}

func (uc *LedgerUseCase) replay(ctx context.Context, shopID, ingredientID string, repair bool) ([]dto.StockDriftResponse, error) {
	ctx, release, err := uc.guard.Acquire(ctx, "ledger-replay:"+shopID)
	if err != nil {
		return nil, err
	}
	defer release()

	var ids []string
	if ingredientID != "" {
		ids = []string{ingredientID}
	} else {
		ids, err = uc.ingredients.ListIDsByShop(ctx, shopID)
		if err != nil {
			return nil, err
		}
		slices.Sort(ids)
	}

	out := make([]dto.StockDriftResponse, 0, len(ids))
	repaired := false
	for _, id := range ids {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		d, err := retryTx(ctx, uc.cfg, uc.log, func(ctx context.Context) (dto.StockDriftResponse, error) {
			var d dto.StockDriftResponse
			err := uc.txRunner.Run(ctx, func(r repository.Repos) error {
				ing, err := r.Ingredients.GetForUpdate(ctx, id)
				if err != nil {
					return err
				}
				if ing == nil || ing.ShopID != shopID {
					return domain.ErrNotFound
				}
				ledger, err := r.Transactions.SumSignedDelta(ctx, id)
				if err != nil {
					return err
				}
				d = dto.StockDriftResponse{
					IngredientID: id,
					StoredStock:  ing.CurrentStock,
					LedgerStock:  ledger,
					Drift:        ing.CurrentStock.Sub(ledger),
				}
				if repair && !d.Drift.IsZero() {
					if err := r.Ingredients.UpdateStock(ctx, id, ledger, time.Now().UTC()); err != nil {
						return err
					}
					d.Repaired = true
				}
				return nil
			})
			return d, err
		})
		if err != nil {
			// lock perdido: se reporta el conflicto, no la cancelación
			if cause := context.Cause(ctx); cause != nil && errors.Is(cause, domain.ErrConflict) {
				return nil, cause
			}
			return nil, err
		}
		if !d.Drift.IsZero() {
			uc.log.Warn().Str("shop_id", shopID).Str("ingredient_id", id).
				Str("stored", d.StoredStock.String()).Str("ledger", d.LedgerStock.String()).
				Bool("repaired", d.Repaired).Msg("diferencia entre stock y ledger")
		}
		repaired = repaired || d.Repaired
		out = append(out, d)
	}
	if repaired {
		uc.stats.Invalidate(ctx, shopID)
	}
	return out, nil
}

// ToTransactionResponse convierte la entidad a su DTO de salida.
func ToTransactionResponse(t *entity.InventoryTransaction) *dto.TransactionResponse {
	if t == nil {
		return nil
	}
	return &dto.TransactionResponse{
		ID:              t.ID,
		IngredientID:    t.IngredientID,
		BatchID:         t.BatchID,
		Type:            t.Type,
		Quantity:        t.Quantity,
		ReasonCode:      t.ReasonCode,
		UnitPrice:       t.UnitPrice,
		TotalCost:       t.TotalCost,
		BalanceAfter:    t.BalanceAfter,
		TransactionDate: t.TransactionDate,
		Notes:           t.Notes,
		RecordedBy:      t.RecordedBy,
		CreatedAt:       t.CreatedAt,
	}
}

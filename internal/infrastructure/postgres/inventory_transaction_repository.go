package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

var _ repository.InventoryTransactionRepository = (*InventoryTransactionRepo)(nil)

// InventoryTransactionRepo ledger sobre PostgreSQL (usable con pool o tx). Solo inserción.
type InventoryTransactionRepo struct {
	q Querier
}

// NewInventoryTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryTransactionRepository(q Querier) *InventoryTransactionRepo {
	return &InventoryTransactionRepo{q: q}
}

const transactionColumns = `id, shop_id, ingredient_id, batch_id, type, quantity, reason_code, unit_price,
	total_cost, balance_after, transaction_date, notes, recorded_by, created_at`

func scanTransaction(row pgx.Row) (*entity.InventoryTransaction, error) {
	var t entity.InventoryTransaction
	var batchID *string
	err := row.Scan(&t.ID, &t.ShopID, &t.IngredientID, &batchID, &t.Type, &t.Quantity, &t.ReasonCode,
		&t.UnitPrice, &t.TotalCost, &t.BalanceAfter, &t.TransactionDate, &t.Notes, &t.RecordedBy, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if batchID != nil {
		t.BatchID = *batchID
	}
	return &t, nil
}

// Create inserta una transacción del ledger.
func (r *InventoryTransactionRepo) Create(ctx context.Context, t *entity.InventoryTransaction) error {
	query := `
		INSERT INTO inventory_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	var batchID *string
	if t.BatchID != "" {
		batchID = &t.BatchID
	}
	_, err := r.q.Exec(ctx, query,
		t.ID, t.ShopID, t.IngredientID, batchID, t.Type, t.Quantity, t.ReasonCode, t.UnitPrice,
		t.TotalCost, t.BalanceAfter, t.TransactionDate, t.Notes, t.RecordedBy, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create inventory transaction: %w", err)
	}
	return nil
}

// GetByID obtiene una transacción por ID.
func (r *InventoryTransactionRepo) GetByID(ctx context.Context, id string) (*entity.InventoryTransaction, error) {
	t, err := scanTransaction(r.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM inventory_transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory transaction: %w", err)
	}
	return t, nil
}

// List transacciones filtradas, transaction_date DESC, id DESC, desde el cursor.
func (r *InventoryTransactionRepo) List(ctx context.Context, f repository.TransactionFilter) ([]*entity.InventoryTransaction, error) {
	w := &where{}
	w.add("shop_id = $%d", f.ShopID)
	if f.IngredientID != "" {
		w.add("ingredient_id = $%d", f.IngredientID)
	}
	if f.BatchID != "" {
		w.add("batch_id = $%d", f.BatchID)
	}
	if f.Type != "" {
		w.add("type = $%d", f.Type)
	}
	if f.From != nil {
		w.add("transaction_date >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("transaction_date <= $%d", *f.To)
	}
	if f.BeforeDate != nil {
		w.add2("(transaction_date, id) < ($%d, $%d)", *f.BeforeDate, f.BeforeID)
	}
	query := `SELECT ` + transactionColumns + ` FROM inventory_transactions` + w.String() +
		` ORDER BY transaction_date DESC, id DESC` + w.limit(f.Limit)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory transactions: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory transaction: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// SumSignedDelta reproduce el ledger del insumo: Σ +q (purchase/return), −q (usage/waste), q (adjustment).
func (r *InventoryTransactionRepo) SumSignedDelta(ctx context.Context, ingredientID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE
			WHEN type IN ('purchase', 'return') THEN ABS(quantity)
			WHEN type IN ('usage', 'waste') THEN -ABS(quantity)
			ELSE quantity
		END), 0)
		FROM inventory_transactions WHERE ingredient_id = $1`
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, ingredientID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum signed delta: %w", err)
	}
	return total, nil
}

// SumCostByType Σ total_cost agrupado por tipo, opcionalmente en [from, to].
func (r *InventoryTransactionRepo) SumCostByType(ctx context.Context, shopID string, from, to *time.Time) (map[string]decimal.Decimal, error) {
	w := &where{}
	w.add("shop_id = $%d", shopID)
	if from != nil {
		w.add("transaction_date >= $%d", *from)
	}
	if to != nil {
		w.add("transaction_date <= $%d", *to)
	}
	rows, err := r.q.Query(ctx, `SELECT type, COALESCE(SUM(total_cost), 0) FROM inventory_transactions`+w.String()+` GROUP BY type`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("sum cost by type: %w", err)
	}
	defer rows.Close()
	out := map[string]decimal.Decimal{}
	for rows.Next() {
		var typ string
		var total decimal.Decimal
		if err := rows.Scan(&typ, &total); err != nil {
			return nil, fmt.Errorf("scan cost by type: %w", err)
		}
		out[typ] = total
	}
	return out, rows.Err()
}

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

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo lotes de compra y sus líneas sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `id, shop_id, category, period_start, period_end, notes, total_cost, created_by, created_at`

func scanBatch(row pgx.Row) (*entity.IngredientBatch, error) {
	var b entity.IngredientBatch
	err := row.Scan(&b.ID, &b.ShopID, &b.Category, &b.PeriodStart, &b.PeriodEnd, &b.Notes, &b.TotalCost, &b.CreatedBy, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserta la cabecera y las líneas en un solo round-trip (pgx.Batch).
func (r *BatchRepo) Create(ctx context.Context, b *entity.IngredientBatch) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO ingredient_batches (`+batchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.ShopID, b.Category, b.PeriodStart, b.PeriodEnd, b.Notes, b.TotalCost, b.CreatedBy, b.CreatedAt)
	for _, l := range b.Lines {
		batch.Queue(`
			INSERT INTO batch_line_items (batch_id, line_no, ingredient_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			b.ID, l.LineNo, l.IngredientID, l.Quantity, l.UnitPrice)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("create ingredient batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote con sus líneas.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.IngredientBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, `SELECT `+batchColumns+` FROM ingredient_batches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ingredient batch: %w", err)
	}
	rows, err := r.q.Query(ctx, `
		SELECT batch_id, line_no, ingredient_id, quantity, unit_price
		FROM batch_line_items WHERE batch_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("get batch lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.BatchLineItem, error) {
		var l entity.BatchLineItem
		err := row.Scan(&l.BatchID, &l.LineNo, &l.IngredientID, &l.Quantity, &l.UnitPrice)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan batch lines: %w", err)
	}
	b.Lines = lines
	return b, nil
}

// List cabeceras de lotes (sin líneas), created_at DESC, id DESC, desde el cursor.
func (r *BatchRepo) List(ctx context.Context, f repository.BatchFilter) ([]*entity.IngredientBatch, error) {
	w := &where{}
	w.add("shop_id = $%d", f.ShopID)
	if f.BeforeCreate != nil {
		w.add2("(created_at, id) < ($%d, $%d)", *f.BeforeCreate, f.BeforeID)
	}
	query := `SELECT ` + batchColumns + ` FROM ingredient_batches` + w.String() + ` ORDER BY created_at DESC, id DESC` + w.limit(f.Limit)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list ingredient batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.IngredientBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// SumTotalCost Σ total_cost; con rango, solo lotes cuyo period_start cae en [from, to].
func (r *BatchRepo) SumTotalCost(ctx context.Context, shopID string, from, to *time.Time) (decimal.Decimal, error) {
	w := &where{}
	w.add("shop_id = $%d", shopID)
	if from != nil {
		w.add("period_start >= $%d", *from)
	}
	if to != nil {
		w.add("period_start <= $%d", *to)
	}
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(total_cost), 0) FROM ingredient_batches`+w.String(), w.args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum batch total cost: %w", err)
	}
	return total, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

var _ repository.RecipeRepository = (*RecipeRepo)(nil)

// RecipeRepo líneas de receta con foto de precio, por producto externo.
type RecipeRepo struct {
	q Querier
}

// NewRecipeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRecipeRepository(q Querier) *RecipeRepo {
	return &RecipeRepo{q: q}
}

// ReplaceProductLines borra las líneas del producto e inserta las nuevas en un pgx.Batch.
// Fuera de una tx, el batch implícito de pgx ya corre como una sola transacción.
func (r *RecipeRepo) ReplaceProductLines(ctx context.Context, shopID, productID string, lines []entity.RecipeLine) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM product_recipe_lines WHERE shop_id = $1 AND product_id = $2`, shopID, productID)
	for _, l := range lines {
		batch.Queue(`
			INSERT INTO product_recipe_lines
				(shop_id, product_id, ingredient_id, quantity, snapshot_unit_price, snapshot_name, snapshot_unit, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			shopID, productID, l.IngredientID, l.Quantity, l.SnapshotUnitPrice, l.SnapshotName, l.SnapshotUnit, l.CreatedAt)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return classify(ctx, err)
		}
		return fmt.Errorf("replace recipe lines: %w", err)
	}
	return nil
}

// ListByProduct líneas guardadas del producto en orden de inserción.
func (r *RecipeRepo) ListByProduct(ctx context.Context, shopID, productID string) ([]entity.RecipeLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT product_id, ingredient_id, quantity, snapshot_unit_price, snapshot_name, snapshot_unit, created_at
		FROM product_recipe_lines WHERE shop_id = $1 AND product_id = $2
		ORDER BY created_at, ingredient_id`, shopID, productID)
	if err != nil {
		return nil, fmt.Errorf("list recipe lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.RecipeLine, error) {
		var l entity.RecipeLine
		err := row.Scan(&l.ProductID, &l.IngredientID, &l.Quantity, &l.SnapshotUnitPrice, &l.SnapshotName, &l.SnapshotUnit, &l.CreatedAt)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan recipe lines: %w", err)
	}
	return lines, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/insumos-api/internal/domain"
	"github.com/jhoicas/insumos-api/internal/domain/entity"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
)

var _ repository.IngredientRepository = (*IngredientRepo)(nil)

// IngredientRepo implementación de IngredientRepository sobre PostgreSQL (usable con pool o tx).
type IngredientRepo struct {
	q Querier
}

// NewIngredientRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIngredientRepository(q Querier) *IngredientRepo {
	return &IngredientRepo{q: q}
}

const ingredientColumns = `id, shop_id, name, name_key, unit, current_unit_price, current_stock, created_at, updated_at`

func scanIngredient(row pgx.Row) (*entity.Ingredient, error) {
	var i entity.Ingredient
	err := row.Scan(&i.ID, &i.ShopID, &i.Name, &i.NameKey, &i.Unit,
		&i.CurrentUnitPrice, &i.CurrentStock, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create persiste un insumo nuevo. ErrDuplicate si (shop_id, name_key) ya existe.
func (r *IngredientRepo) Create(ctx context.Context, ing *entity.Ingredient) error {
	query := `
		INSERT INTO ingredients (` + ingredientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		ing.ID, ing.ShopID, ing.Name, ing.NameKey, ing.Unit,
		ing.CurrentUnitPrice, ing.CurrentStock, ing.CreatedAt, ing.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create ingredient: %w", err)
	}
	return nil
}

func (r *IngredientRepo) get(ctx context.Context, query string, args ...any) (*entity.Ingredient, error) {
	ing, err := scanIngredient(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ing, nil
}

// GetByID obtiene un insumo por ID.
func (r *IngredientRepo) GetByID(ctx context.Context, id string) (*entity.Ingredient, error) {
	ing, err := r.get(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	return ing, nil
}

// GetForUpdate obtiene el insumo y bloquea la fila para update (SELECT FOR UPDATE).
func (r *IngredientRepo) GetForUpdate(ctx context.Context, id string) (*entity.Ingredient, error) {
	ing, err := r.get(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("get ingredient for update: %w", err)
	}
	return ing, nil
}

// GetByShopAndNameKey busca por nombre normalizado dentro de la tienda.
func (r *IngredientRepo) GetByShopAndNameKey(ctx context.Context, shopID, nameKey string) (*entity.Ingredient, error) {
	ing, err := r.get(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE shop_id = $1 AND name_key = $2`, shopID, nameKey)
	if err != nil {
		return nil, fmt.Errorf("get ingredient by name: %w", err)
	}
	return ing, nil
}

// Update actualiza metadatos y precio de catálogo. No toca current_stock.
func (r *IngredientRepo) Update(ctx context.Context, ing *entity.Ingredient) error {
	query := `
		UPDATE ingredients
		SET name = $2, name_key = $3, unit = $4, current_unit_price = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, ing.ID, ing.Name, ing.NameKey, ing.Unit, ing.CurrentUnitPrice, ing.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update ingredient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStock escribe la proyección de stock. Solo debe llamarse con la fila bloqueada.
func (r *IngredientRepo) UpdateStock(ctx context.Context, id string, stock decimal.Decimal, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE ingredients SET current_stock = $2, updated_at = $3 WHERE id = $1`, id, stock, at)
	if err != nil {
		return fmt.Errorf("update ingredient stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List insumos de la tienda ordenados por (name_key, id), desde el cursor.
func (r *IngredientRepo) List(ctx context.Context, f repository.IngredientFilter) ([]*entity.Ingredient, error) {
	w := &where{}
	w.add("shop_id = $%d", f.ShopID)
	if f.Search != "" {
		w.add("strpos(name_key, $%d) > 0", f.Search)
	}
	if f.AfterID != "" {
		w.add2("(name_key, id) > ($%d, $%d)", f.AfterNameKey, f.AfterID)
	}
	query := `SELECT ` + ingredientColumns + ` FROM ingredients` + w.String() + ` ORDER BY name_key, id` + w.limit(f.Limit)
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()
	var list []*entity.Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		list = append(list, ing)
	}
	return list, rows.Err()
}

// ListIDsByShop IDs de todos los insumos de la tienda, ordenados.
func (r *IngredientRepo) ListIDsByShop(ctx context.Context, shopID string) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM ingredients WHERE shop_id = $1 ORDER BY id`, shopID)
	if err != nil {
		return nil, fmt.Errorf("list ingredient ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list ingredient ids: %w", err)
	}
	return ids, nil
}

// CountReferences cuenta transacciones, líneas de lote y líneas de receta que apuntan al insumo.
func (r *IngredientRepo) CountReferences(ctx context.Context, id string) (entity.IngredientReferences, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM inventory_transactions WHERE ingredient_id = $1),
			(SELECT COUNT(*) FROM batch_line_items WHERE ingredient_id = $1),
			(SELECT COUNT(*) FROM product_recipe_lines WHERE ingredient_id = $1)`
	var refs entity.IngredientReferences
	if err := r.q.QueryRow(ctx, query, id).Scan(&refs.Transactions, &refs.BatchLines, &refs.RecipeLines); err != nil {
		return refs, fmt.Errorf("count ingredient references: %w", err)
	}
	return refs, nil
}

// AverageUnitPrice promedio de current_unit_price de la tienda; 0 si no hay insumos.
func (r *IngredientRepo) AverageUnitPrice(ctx context.Context, shopID string) (decimal.Decimal, error) {
	var avg decimal.Decimal
	err := r.q.QueryRow(ctx, `SELECT COALESCE(AVG(current_unit_price), 0) FROM ingredients WHERE shop_id = $1`, shopID).Scan(&avg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("average unit price: %w", err)
	}
	return avg, nil
}

// Delete elimina el insumo. Una FK aún vigente (23503) se reporta como ErrConflict.
func (r *IngredientRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM ingredients WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return domain.ErrConflict
		}
		return fmt.Errorf("delete ingredient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

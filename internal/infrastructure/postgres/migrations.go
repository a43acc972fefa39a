package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema esquema del ledger de insumos. Idempotente: puede ejecutarse en cada arranque.
// Las FK con ON DELETE RESTRICT respaldan la regla de no borrar insumos referenciados.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ingredients (
		id                 TEXT PRIMARY KEY,
		shop_id            TEXT NOT NULL,
		name               TEXT NOT NULL,
		name_key           TEXT NOT NULL,
		unit               TEXT NOT NULL,
		current_unit_price NUMERIC(18,6) NOT NULL DEFAULT 0 CHECK (current_unit_price >= 0),
		current_stock      NUMERIC(18,6) NOT NULL DEFAULT 0,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL,
		CONSTRAINT ingredients_shop_name_key UNIQUE (shop_id, name_key)
	)`,
	`CREATE TABLE IF NOT EXISTS ingredient_batches (
		id           TEXT PRIMARY KEY,
		shop_id      TEXT NOT NULL,
		category     TEXT NOT NULL,
		period_start TIMESTAMPTZ NOT NULL,
		period_end   TIMESTAMPTZ NOT NULL,
		notes        TEXT NOT NULL DEFAULT '',
		total_cost   NUMERIC(18,6) NOT NULL,
		created_by   TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		CHECK (period_start <= period_end)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ingredient_batches_shop_created ON ingredient_batches (shop_id, created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ingredient_batches_shop_period ON ingredient_batches (shop_id, period_start)`,
	`CREATE TABLE IF NOT EXISTS batch_line_items (
		batch_id      TEXT NOT NULL REFERENCES ingredient_batches(id) ON DELETE RESTRICT,
		line_no       INT NOT NULL,
		ingredient_id TEXT NOT NULL REFERENCES ingredients(id) ON DELETE RESTRICT,
		quantity      NUMERIC(18,6) NOT NULL CHECK (quantity > 0),
		unit_price    NUMERIC(18,6) NOT NULL CHECK (unit_price >= 0),
		PRIMARY KEY (batch_id, line_no)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_batch_line_items_ingredient ON batch_line_items (ingredient_id)`,
	`CREATE TABLE IF NOT EXISTS inventory_transactions (
		id               TEXT PRIMARY KEY,
		shop_id          TEXT NOT NULL,
		ingredient_id    TEXT NOT NULL REFERENCES ingredients(id) ON DELETE RESTRICT,
		batch_id         TEXT REFERENCES ingredient_batches(id) ON DELETE RESTRICT,
		type             TEXT NOT NULL CHECK (type IN ('purchase','usage','adjustment','waste','return')),
		quantity         NUMERIC(18,6) NOT NULL CHECK (quantity <> 0),
		reason_code      TEXT NOT NULL DEFAULT '',
		unit_price       NUMERIC(18,6) NOT NULL CHECK (unit_price >= 0),
		total_cost       NUMERIC(18,6) NOT NULL,
		balance_after    NUMERIC(18,6) NOT NULL,
		transaction_date TIMESTAMPTZ NOT NULL,
		notes            TEXT NOT NULL DEFAULT '',
		recorded_by      TEXT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_transactions_shop_date ON inventory_transactions (shop_id, transaction_date DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_transactions_ingredient ON inventory_transactions (ingredient_id)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_transactions_batch ON inventory_transactions (batch_id) WHERE batch_id IS NOT NULL`,
	// El ledger es de solo inserción también a nivel de BD.
	`CREATE OR REPLACE FUNCTION inventory_transactions_append_only() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'inventory_transactions es de solo inserción';
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_inventory_transactions_append_only ON inventory_transactions`,
	`CREATE TRIGGER trg_inventory_transactions_append_only
		BEFORE UPDATE OR DELETE ON inventory_transactions
		FOR EACH ROW EXECUTE FUNCTION inventory_transactions_append_only()`,
	`CREATE TABLE IF NOT EXISTS product_recipe_lines (
		shop_id             TEXT NOT NULL,
		product_id          TEXT NOT NULL,
		ingredient_id       TEXT NOT NULL REFERENCES ingredients(id) ON DELETE RESTRICT,
		quantity            NUMERIC(18,6) NOT NULL CHECK (quantity > 0),
		snapshot_unit_price NUMERIC(18,6) NOT NULL,
		snapshot_name       TEXT NOT NULL,
		snapshot_unit       TEXT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (shop_id, product_id, ingredient_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_recipe_lines_ingredient ON product_recipe_lines (ingredient_id)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		shop_id    TEXT NOT NULL,
		scope      TEXT NOT NULL,
		key        TEXT NOT NULL,
		result_id  TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (shop_id, scope, key)
	)`,
}

// Migrate crea o actualiza el esquema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migración %d: %w", i, err)
		}
	}
	return nil
}

// Package bootstrap arma los casos de uso sobre el almacenamiento configurado.
// Lo comparten cmd/api y cmd/ledger-replay.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/jhoicas/insumos-api/internal/application/analytics"
	"github.com/jhoicas/insumos-api/internal/application/catalog"
	"github.com/jhoicas/insumos-api/internal/application/costing"
	"github.com/jhoicas/insumos-api/internal/application/inventory"
	domaininv "github.com/jhoicas/insumos-api/internal/domain/inventory"
	"github.com/jhoicas/insumos-api/internal/domain/repository"
	"github.com/jhoicas/insumos-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/insumos-api/internal/infrastructure/pdf"
	"github.com/jhoicas/insumos-api/internal/infrastructure/postgres"
	"github.com/jhoicas/insumos-api/internal/infrastructure/redisstore"
	"github.com/jhoicas/insumos-api/internal/infrastructure/xlsx"
	"github.com/jhoicas/insumos-api/pkg/config"
	"github.com/jhoicas/insumos-api/pkg/logger"
)

// App casos de uso listos y las dependencias que /health sondea.
type App struct {
	Catalog *catalog.UseCase
	Ledger  *inventory.LedgerUseCase
	Batches *inventory.BatchUseCase
	Costing *costing.UseCase
	Stats   *analytics.StatsUseCase

	Checks map[string]func(ctx context.Context) error

	closers []func()
}

// Build abre el almacenamiento (y Redis si está configurado) y construye los casos de uso.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Checks: map[string]func(ctx context.Context) error{}}

	var (
		repos    repository.Repos
		txRunner repository.TxRunner
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		store := memory.New()
		repos, txRunner = store.Repos(), store
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			a.Close()
			return nil, fmt.Errorf("migraciones: %w", err)
		}
		repos, txRunner = postgres.NewRepos(pool), postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout)
		a.Checks["postgres"] = pool.Ping
	}

	var (
		cache       analytics.StatsCache
		invalidator inventory.StatsInvalidator
		guard       inventory.ReplayGuard
	)
	if cfg.Redis.Enabled() {
		rdb, err := redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			// sin Redis la API sigue: sin caché y sin lock entre instancias
			log.Warn().Err(err).Msg("redis no disponible, se continúa sin caché")
		} else {
			a.closers = append(a.closers, func() { _ = rdb.Close() })
			statsCache := redisstore.NewStatsCache(rdb, cfg.Stats.CacheTTL, log.Component("stats-cache"))
			cache, invalidator = statsCache, statsCache
			guard = redisstore.NewReplayGuard(rdb, cfg.Ledger.TxTimeout*10, log.Component("replay-guard"))
			a.Checks["redis"] = pingRedis(rdb)
		}
	}

	ledgerCfg := inventory.Config{
		Policy:     domaininv.ParseStockPolicy(cfg.Ledger.NegativeStockPolicy),
		MaxRetries: cfg.Ledger.MaxRetries,
		TxTimeout:  cfg.Ledger.TxTimeout,
	}
	a.Catalog = catalog.NewUseCase(repos.Ingredients, txRunner, log.Component("catalog"))
	a.Ledger = inventory.NewLedgerUseCase(txRunner, repos.Transactions, repos.Ingredients, guard, invalidator, ledgerCfg, log.Component("ledger"))
	a.Batches = inventory.NewBatchUseCase(a.Ledger, repos.Batches, repos.Transactions, log.Component("batches"))
	a.Costing = costing.NewUseCase(repos.Ingredients, repos.Recipes, log.Component("costing"))
	a.Stats = analytics.NewStatsUseCase(
		repos.Transactions, repos.Batches, repos.Ingredients, a.Ledger,
		cache, infrapdf.NewMarotoPDFGenerator(), xlsx.NewExporter(), log.Component("stats"),
	)

	log.Info().
		Str("storage", cfg.Storage.Driver).
		Bool("redis", cache != nil).
		Str("negative_stock_policy", string(ledgerCfg.Policy)).
		Int("max_retries", ledgerCfg.MaxRetries).
		Dur("tx_timeout", ledgerCfg.TxTimeout).
		Msg("casos de uso listos")
	return a, nil
}

// Close libera conexiones en orden inverso a su apertura.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func pingRedis(rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}

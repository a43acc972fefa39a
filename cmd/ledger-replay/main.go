// ledger-replay recalcula el stock de los insumos de una tienda a partir del ledger.
//
// Uso:
//
//	go run ./cmd/ledger-replay -shop-id <id> [-ingredient-id <id>] [-repair]
//
// Sin -repair solo reporta diferencias (no escribe). Con -repair reescribe current_stock
// con la suma de deltas del ledger bajo el lock de cada fila. Sale con código 2 si encontró
// diferencias sin repararlas.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jhoicas/insumos-api/internal/bootstrap"
	"github.com/jhoicas/insumos-api/pkg/config"
	"github.com/jhoicas/insumos-api/pkg/logger"
)

func main() {
	shopID := flag.String("shop-id", "", "Tienda a verificar (obligatorio).")
	ingredientID := flag.String("ingredient-id", "", "Opcional: solo este insumo.")
	repair := flag.Bool("repair", false, "Reescribir current_stock cuando difiere del ledger.")
	timeout := flag.Duration("timeout", 5*time.Minute, "Tiempo máximo total.")
	flag.Parse()

	if strings.TrimSpace(*shopID) == "" {
		fmt.Fprintln(os.Stderr, "-shop-id es obligatorio")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Service: "ledger-replay"})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	deps, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer deps.Close()

	run := deps.Ledger.VerifyStock
	if *repair {
		run = deps.Ledger.RebuildStock
	}
	report, err := run(ctx, strings.TrimSpace(*shopID), strings.TrimSpace(*ingredientID))
	if err != nil {
		log.Error().Err(err).Str("shop_id", *shopID).Msg("replay del ledger")
		deps.Close()
		os.Exit(1)
	}

	drifted := 0
	for _, d := range report {
		if !d.Drift.IsZero() {
			drifted++
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	log.Info().Str("shop_id", *shopID).Int("ingredients", len(report)).
		Int("drifted", drifted).Bool("repair", *repair).Msg("replay terminado")
	if drifted > 0 && !*repair {
		deps.Close()
		os.Exit(2)
	}
}

package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/jhoicas/insumos-api/internal/application/analytics"
	"github.com/jhoicas/insumos-api/internal/application/dto"
	"github.com/jhoicas/insumos-api/internal/application/inventory"
)

var (
	_ analytics.StatsCache       = (*StatsCache)(nil)
	_ inventory.StatsInvalidator = (*StatsCache)(nil)
)

// errStaleStats la versión de la tienda cambió entre el cálculo y el Set.
var errStaleStats = errors.New("estadísticas calculadas sobre una versión vieja")

// StatsCache guarda las estadísticas de cada tienda en un hash (campo = rango consultado),
// de modo que invalidar una tienda es un único DEL. Junto al hash vive un contador de versión:
// Invalidate lo incrementa y Set solo escribe bajo WATCH si sigue siendo la versión leída
// antes de calcular. Los fallos de Redis solo se registran: la consulta cae a la BD.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewStatsCache construye el caché con el TTL indicado.
func NewStatsCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl, log: log}
}

func statsKey(shopID string) string   { return "insumos:stats:" + shopID }
func versionKey(shopID string) string { return statsKey(shopID) + ":v" }

// Version devuelve la versión actual de la tienda. ok=false si Redis no responde:
// en ese caso el resultado no se cachea.
func (c *StatsCache) Version(ctx context.Context, shopID string) (int64, bool) {
	v, err := c.rdb.Get(ctx, versionKey(shopID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.log.Warn().Err(err).Str("shop_id", shopID).Msg("redis: leer versión de estadísticas")
		return 0, false
	}
	return v, true
}

func (c *StatsCache) Get(ctx context.Context, shopID, rangeKey string) (*dto.StatsResponse, bool) {
	raw, err := c.rdb.HGet(ctx, statsKey(shopID), rangeKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("shop_id", shopID).Msg("redis: leer estadísticas")
		}
		return nil, false
	}
	var stats dto.StatsResponse
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.log.Warn().Err(err).Str("shop_id", shopID).Msg("redis: estadísticas corruptas")
		return nil, false
	}
	return &stats, true
}

// Set guarda stats solo si la versión de la tienda sigue siendo version.
func (c *StatsCache) Set(ctx context.Context, shopID, rangeKey string, version int64, stats *dto.StatsResponse) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	key, vkey := statsKey(shopID), versionKey(shopID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleStats
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, rangeKey, raw)
			p.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, vkey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleStats), errors.Is(err, redis.TxFailedErr):
		c.log.Debug().Str("shop_id", shopID).Msg("redis: estadísticas descartadas por escritura concurrente")
	default:
		c.log.Warn().Err(err).Str("shop_id", shopID).Msg("redis: guardar estadísticas")
	}
}

// Invalidate descarta todas las estadísticas cacheadas de la tienda y avanza su versión.
func (c *StatsCache) Invalidate(ctx context.Context, shopID string) {
	ctx = context.WithoutCancel(ctx)
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, versionKey(shopID))
		p.Del(ctx, statsKey(shopID))
		return nil
	})
	if err != nil {
		c.log.Warn().Err(err).Str("shop_id", shopID).Msg("redis: invalidar estadísticas")
	}
}

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "reject", cfg.Ledger.NegativeStockPolicy)
	assert.Equal(t, 5, cfg.Ledger.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Ledger.TxTimeout)
	assert.Equal(t, time.Minute, cfg.Stats.CacheTTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, int32(25), cfg.DB.MaxConns)
	assert.Equal(t, int32(2), cfg.DB.MinConns)
	assert.Equal(t, time.Hour, cfg.DB.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, cfg.DB.MaxConnIdleTime)
	assert.Zero(t, cfg.DB.StatementTimeout)
	assert.Empty(t, cfg.JWT.Issuer, "sin JWT_ISSUER no se verifica el emisor")
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("STORAGE_DRIVER", "MEMORY")
	v.Set("LEDGER_NEGATIVE_STOCK_POLICY", "allow")
	v.Set("LEDGER_MAX_RETRIES", "2")
	v.Set("LEDGER_TX_TIMEOUT_MS", "250")
	v.Set("REDIS_ADDR", "localhost:6379")
	v.Set("STATS_CACHE_TTL_SECONDS", 30)
	v.Set("DB_MAX_CONNS", "8")
	v.Set("DB_MIN_CONNS", "1")
	v.Set("DB_STATEMENT_TIMEOUT_MS", "1500")
	v.Set("JWT_ISSUER", "identidad")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "allow", cfg.Ledger.NegativeStockPolicy)
	assert.Equal(t, 2, cfg.Ledger.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Ledger.TxTimeout)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Stats.CacheTTL)
	assert.Equal(t, int32(8), cfg.DB.MaxConns)
	assert.Equal(t, int32(1), cfg.DB.MinConns)
	assert.Equal(t, 1500*time.Millisecond, cfg.DB.StatementTimeout)
	assert.Equal(t, "identidad", cfg.JWT.Issuer)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"driver desconocido", "STORAGE_DRIVER", "mysql"},
		{"política desconocida", "LEDGER_NEGATIVE_STOCK_POLICY", "clamp"},
		{"reintentos negativos", "LEDGER_MAX_RETRIES", "-1"},
		{"timeout cero", "LEDGER_TX_TIMEOUT_MS", "0"},
		{"pool sin conexiones", "DB_MAX_CONNS", "0"},
		{"mínimo mayor que máximo", "DB_MIN_CONNS", "40"},
		{"statement timeout negativo", "DB_STATEMENT_TIMEOUT_MS", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			_, err := fromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "insumos", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/insumos?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}

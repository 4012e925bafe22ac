package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 5*time.Minute, cfg.OTP.PhoneTTL)
	assert.Equal(t, int64(2<<20), cfg.Upload.MaxBytes)
	assert.True(t, cfg.Orders.StrictTransitions)
	assert.Equal(t, "db", cfg.Invoice.SequenceBackend)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ORDERS_STRICT_TRANSITIONS", "false")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("PUBLIC_BASE_URL", "https://menu.example.com/")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Orders.StrictTransitions)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "https://menu.example.com", cfg.App.PublicBaseURL)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", Username: "u", Password: "p", Database: "x", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/x?sslmode=disable", d.DSN())
}

func TestLocationFallback(t *testing.T) {
	cfg := &Config{App: AppConfig{Timezone: "Nowhere/Invalid"}}
	assert.Equal(t, time.Local, cfg.Location())
}

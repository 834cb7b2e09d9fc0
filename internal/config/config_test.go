package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONTENT_STORE", "")
	t.Setenv("OTP_EXPIRATION", "")

	cfg := Load()
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, StoreDynamo, cfg.ContentStore)
	assert.Equal(t, 10*time.Minute, cfg.OTPExpiry)
	assert.Equal(t, "posts", cfg.DynamoTables.Posts)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CONTENT_STORE", "Postgres")
	t.Setenv("PUBLIC_BASE_URL", "https://cdn.example.com/")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("POSTGRES_MAX_CONNS", "7")

	cfg := Load()
	assert.Equal(t, StorePostgres, cfg.ContentStore)
	assert.Equal(t, "https://cdn.example.com", cfg.PublicBaseURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int32(7), cfg.PostgresMaxConns)
}

func TestGetEnvDuration_Milliseconds(t *testing.T) {
	t.Setenv("OTP_EXPIRATION", "600000")
	assert.Equal(t, 10*time.Minute, getEnvDuration("OTP_EXPIRATION", time.Second))
}

func TestGetEnvDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("OTP_EXPIRATION", "soon")
	assert.Equal(t, time.Second, getEnvDuration("OTP_EXPIRATION", time.Second))
}

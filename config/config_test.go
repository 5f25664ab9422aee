package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"food-order-service/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendGorm, cfg.StoreBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.Equal(t, 10, cfg.AuthRateBurst)
}

func TestLoadRequiresSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestValidateBackend(t *testing.T) {
	cfg := &Config{JWTSecret: "s", StoreBackend: "mongo", TokenTTL: time.Hour}
	assert.ErrorContains(t, cfg.Validate(), "STORE_BACKEND")
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSOrigins: "http://localhost:3000, https://food.example.com,"}
	assert.Equal(t, []string{"http://localhost:3000", "https://food.example.com"}, cfg.AllowedOrigins())
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := &Config{
		StoreBackend:     BackendGorm,
		SQLitePath:       filepath.Join(t.TempDir(), "orders.db"),
		DBConnectTimeout: time.Second,
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	s, err := OpenStore(cfg, log)
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &store.GormStore{}, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenStoreMemory(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s, err := OpenStore(&Config{StoreBackend: BackendMemory}, log)
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

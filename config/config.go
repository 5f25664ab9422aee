package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"food-order-service/store"

	"github.com/glebarez/sqlite"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	BackendGorm   = "gorm"
	BackendMemory = "memory"
)

type Config struct {
	Port    string `env:"PORT,default=8080"`
	GinMode string `env:"GIN_MODE,default=debug"`

	StoreBackend     string        `env:"STORE_BACKEND,default=gorm"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	SQLitePath       string        `env:"SQLITE_PATH,default=food_orders.db"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,default=168h"`

	// Bootstrap admin, created at boot when both email and password are set.
	AdminName     string `env:"ADMIN_NAME,default=Admin User"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	LogLevel       string  `env:"LOG_LEVEL,default=info"`
	CORSOrigins    string  `env:"CORS_ORIGINS,default=*"`
	AuthRatePerSec float64 `env:"AUTH_RATE_PER_SEC,default=5"`
	AuthRateBurst  int     `env:"AUTH_RATE_BURST,default=10"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.StoreBackend {
	case BackendGorm, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendGorm, BackendMemory, c.StoreBackend)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) Release() bool {
	return c.GinMode == "release"
}

func NewLogger(c *Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if c.Release() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("log_level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// OpenStore builds the store selected by STORE_BACKEND.
func OpenStore(c *Config, log *logrus.Logger) (store.Store, error) {
	if c.StoreBackend == BackendMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	db, err := openDB(c)
	if err != nil {
		return nil, err
	}
	s := store.NewGormStore(db)

	ctx, cancel := context.WithTimeout(context.Background(), c.DBConnectTimeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := s.AutoMigrate(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	log.WithField("dialect", db.Dialector.Name()).Info("database connected and migrated")
	return s, nil
}

func openDB(c *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if c.DatabaseURL != "" {
		dialector = postgres.Open(c.DatabaseURL)
	} else {
		dialector = sqlite.Open(c.SQLitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	if c.DatabaseURL == "" {
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

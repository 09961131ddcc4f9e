package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"prod"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR"`

	Storage  Storage
	Cache    Cache
	Beds24   Beds24
	Sync     Sync
	Property Property
}

type Storage struct {
	Driver   string `env:"STORAGE_DRIVER" envDefault:"mysql"` // mysql|memory
	MySQLDSN string `env:"MYSQL_DSN" envDefault:"root:root@tcp(localhost:3306)/venue?parseTime=true&charset=utf8mb4&loc=UTC"`
	Migrate  bool   `env:"MIGRATE" envDefault:"true"`
}

type Cache struct {
	// empty RedisAddr selects the in-process cache
	RedisAddr string        `env:"REDIS_ADDR"`
	RedisPass string        `env:"REDIS_PASSWORD"`
	RedisDB   int           `env:"REDIS_DB" envDefault:"0"`
	TTL       time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

type Beds24 struct {
	BaseURL string `env:"BEDS24_BASE_URL" envDefault:"https://beds24.com/api/v2"`
	Token   string `env:"BEDS24_TOKEN"`
	RPS     int    `env:"BEDS24_RPS" envDefault:"2"`
}

type Sync struct {
	Workers    int    `env:"SYNC_WORKERS" envDefault:"4"`
	Schedule   string `env:"SYNC_SCHEDULE" envDefault:"@every 15m"`
	WindowDays int    `env:"SYNC_WINDOW_DAYS" envDefault:"180"`
}

type Property struct {
	StaffAPIKey       string          `env:"STAFF_API_KEY"`
	Currency          string          `env:"CURRENCY" envDefault:"EUR"`
	CheckinWindowDays int             `env:"CHECKIN_WINDOW_DAYS" envDefault:"3"`
	CashTolerance     decimal.Decimal `env:"CASH_TOLERANCE" envDefault:"0.00"`
	ProposalValidDays int             `env:"PROPOSAL_VALID_DAYS" envDefault:"30"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}
	c.Property.Currency = strings.ToUpper(c.Property.Currency)

	switch c.Storage.Driver {
	case "mysql", "memory":
	default:
		return Config{}, fmt.Errorf("STORAGE_DRIVER must be mysql or memory, got %q", c.Storage.Driver)
	}
	if c.Sync.WindowDays <= 0 || c.Sync.WindowDays > 366 {
		return Config{}, fmt.Errorf("SYNC_WINDOW_DAYS must be within 1..366, got %d", c.Sync.WindowDays)
	}
	if c.Property.StaffAPIKey == "" {
		log.Warn().Msg("STAFF_API_KEY is empty; staff endpoints are unauthenticated")
	}
	return c, nil
}

func (c Config) Dev() bool { return c.AppEnv == "dev" || c.AppEnv == "development" }

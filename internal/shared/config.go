package shared

import (
	"errors"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string        `env:"APP_ENV" env-default:"prod"`
	HTTPAddr    string        `env:"HTTP_ADDR" env-default:":8080"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" env-default:"60s"`
	MetricsAddr string        `env:"METRICS_ADDR"`

	MarriottBase  string `env:"MARRIOTT_BASE_URL" env-default:"https://www.marriott.com"`
	AssetOrigin   string `env:"MARRIOTT_ASSET_ORIGIN" env-default:"https://cache.marriott.com"`
	BookingOrigin string `env:"MARRIOTT_BOOKING_ORIGIN" env-default:"https://www.marriott.com"`

	UpstreamTimeout     time.Duration `env:"UPSTREAM_TIMEOUT" env-default:"30s"`
	UpstreamRPS         float64       `env:"UPSTREAM_RPS" env-default:"5"`
	UpstreamMaxAttempts int           `env:"UPSTREAM_MAX_ATTEMPTS" env-default:"3"`
	RatesStepDelay      time.Duration `env:"RATES_STEP_DELAY" env-default:"500ms"`

	PageSize       int           `env:"PAGE_SIZE" env-default:"5"`
	FacetBucketCap int           `env:"FACET_BUCKET_CAP" env-default:"20"`
	SessionTTL     time.Duration `env:"SESSION_TTL" env-default:"24h"`

	RedisAddr string `env:"REDIS_ADDR"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" env-default:"0"`
	MySQLDSN  string `env:"MYSQL_DSN"`

	WidgetDir    string `env:"WIDGET_DIR" env-default:"./widgets"`
	StdioWorkers int    `env:"STDIO_WORKERS" env-default:"4"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads an optional .env file, then the environment. Bad values fall
// back to defaults with a warning rather than stopping the process.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}
	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		log.Warn().Err(err).Msg("invalid environment, using defaults where unparsable")
	}
	return c.withFallbacks()
}

func (c Config) withFallbacks() Config {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 60 * time.Second
	}
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = 30 * time.Second
	}
	if c.UpstreamRPS <= 0 {
		c.UpstreamRPS = 5
	}
	if c.UpstreamMaxAttempts <= 0 {
		c.UpstreamMaxAttempts = 3
	}
	if c.RatesStepDelay < 0 {
		c.RatesStepDelay = 0
	}
	if c.PageSize <= 0 {
		c.PageSize = 5
	}
	if c.FacetBucketCap <= 0 {
		c.FacetBucketCap = 20
	}
	if c.SessionTTL < 0 {
		c.SessionTTL = 24 * time.Hour
	}
	if c.StdioWorkers <= 0 {
		c.StdioWorkers = 4
	}
	if c.MarriottBase == "" {
		log.Warn().Msg("MARRIOTT_BASE_URL is empty")
	}
	return c
}

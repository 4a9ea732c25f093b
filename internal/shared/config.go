package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"pnr_cleaner/internal/domain"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	RequestTimeout time.Duration
	MetricsAddr    string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	CacheTTL       time.Duration

	InputPath       string
	CleanOutputPath string
	GenerateCount   int
	GenerateSeed    uint64
	Airports        []string

	ConfirmBase          string
	ConfirmKey           string
	ConfirmRPS           int
	Workers              int
	MaxRetries           int
	BackoffBase          time.Duration
	BackoffMax           time.Duration
	SystemicFailureRatio float64
	SimLatency           time.Duration
	SimFailureRate       float64
}

// Load reads the environment, after applying a .env file when one exists.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env could not be parsed")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		RequestTimeout: time.Duration(atoi("HTTP_REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		MetricsAddr:    env("METRICS_ADDR", ""),
		MySQLDSN:       env("MYSQL_DSN", ""),
		RedisAddr:      env("REDIS_ADDR", ""),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		InputPath:       env("INPUT_PATH", ""),
		CleanOutputPath: env("CLEAN_OUTPUT_PATH", ""),
		GenerateCount:   atoi("GENERATE_COUNT", 200),
		GenerateSeed:    uint64(atoi("GENERATE_SEED", 1)), // #nosec G115 -- seed only
		Airports:        splitList(env("AIRPORT_CODES", strings.Join(domain.DefaultAirports, ","))),

		ConfirmBase:          env("CONFIRM_BASE_URL", ""),
		ConfirmKey:           env("CONFIRM_API_KEY", ""),
		ConfirmRPS:           atoi("CONFIRM_RPS", 20),
		Workers:              atoi("CONFIRM_WORKERS", 5),
		MaxRetries:           atoi("CONFIRM_MAX_RETRIES", 3),
		BackoffBase:          time.Duration(atoi("CONFIRM_BACKOFF_MS", 200)) * time.Millisecond,
		BackoffMax:           time.Duration(atoi("CONFIRM_BACKOFF_MAX_MS", 5000)) * time.Millisecond,
		SystemicFailureRatio: atof("SYSTEMIC_FAILURE_RATIO", 1.0),
		SimLatency:           time.Duration(atoi("SIM_LATENCY_MS", 50)) * time.Millisecond,
		SimFailureRate:       atof("SIM_FAILURE_RATE", 0.1),
	}
	if c.ConfirmBase != "" && c.ConfirmKey == "" {
		log.Warn().Msg("CONFIRM_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

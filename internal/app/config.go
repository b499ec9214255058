package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"

	dbpkg "github.com/lumenlms/lms-backend/internal/data/db"
	"github.com/lumenlms/lms-backend/internal/observability"
	"github.com/lumenlms/lms-backend/internal/platform/envutil"
	"github.com/lumenlms/lms-backend/internal/platform/logger"
)

type Config struct {
	Port    string
	LogMode string

	DB dbpkg.Config

	JWTSecretKey string
	JWTIssuer    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProgressLockTTL  time.Duration
	ProgressLockWait time.Duration

	CORSAllowedOrigins []string
	MetricsEnabled     bool

	OTel observability.OtelConfig
}

// LoadDotEnv loads a .env file when present. A missing file is not an error.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:    envutil.String("PORT", "8080"),
		LogMode: envutil.String("LOG_MODE", "development"),
		DB: dbpkg.Config{
			Driver:           envutil.String("DB_DRIVER", dbpkg.DriverPostgres),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "lms"),
			SQLitePath:       envutil.String("SQLITE_PATH", "lms.db"),
		},
		JWTSecretKey:       envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:          envutil.String("JWT_ISSUER", ""),
		RedisAddr:          envutil.String("REDIS_ADDR", ""),
		RedisPassword:      envutil.String("REDIS_PASSWORD", ""),
		RedisDB:            envutil.Int("REDIS_DB", 0),
		ProgressLockTTL:    envutil.Seconds("PROGRESS_LOCK_TTL_SECONDS", 10*time.Second),
		ProgressLockWait:   envutil.Seconds("PROGRESS_LOCK_WAIT_SECONDS", 5*time.Second),
		CORSAllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS"),
		MetricsEnabled:     envutil.Bool("METRICS_ENABLED", true),
		OTel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "lms-backend"),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("SERVICE_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 1.0),
		},
	}
	if log != nil && cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY is not set; every authenticated request will be rejected")
	}
	return cfg
}

func (c Config) Validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case dbpkg.DriverPostgres, dbpkg.DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("missing PORT")
	}
	if c.ProgressLockTTL <= 0 {
		return fmt.Errorf("PROGRESS_LOCK_TTL_SECONDS must be positive")
	}
	return nil
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

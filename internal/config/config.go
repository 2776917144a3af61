package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Security  SecurityConfig
	Schedule  ScheduleConfig
	Telemetry TelemetryConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver   string // "sqlite" or "postgres"
	Path     string
	URL      string
	MaxConns int32
	MinConns int32
}

type SecurityConfig struct {
	JWTSecret         string
	CSRFSecret        string
	SessionDuration   time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CSPEnabled        bool
	HSTSEnabled       bool
	CORSOrigins       []string
}

// ScheduleConfig selects the reading of custom weekly and monthly intervals
type ScheduleConfig struct {
	CustomWeekRequiresWeekday     bool
	CustomMonthRequiresDayOfMonth bool
}

type TelemetryConfig struct {
	MetricsEnabled bool
	TracingEnabled bool
	ServiceName    string
	OTLPEndpoint   string
	SampleRate     float64
}

type LogConfig struct {
	Level string
}

var defaults = map[string]interface{}{
	"PORT":                                  "8080",
	"ENVIRONMENT":                           "development",
	"SHUTDOWN_TIMEOUT":                      "15s",
	"REQUEST_TIMEOUT":                       "60s",
	"DATABASE_DRIVER":                       "sqlite",
	"DATABASE_PATH":                         "./data/adherence.db",
	"DATABASE_URL":                          "",
	"DB_MAX_CONNS":                          20,
	"DB_MIN_CONNS":                          2,
	"JWT_SECRET":                            "",
	"CSRF_SECRET":                           "",
	"SESSION_DURATION":                      "336h",
	"RATE_LIMIT_REQUESTS":                   100,
	"RATE_LIMIT_WINDOW":                     "1m",
	"CSP_ENABLED":                           true,
	"HSTS_ENABLED":                          true,
	"CORS_ORIGINS":                          "https://*,http://localhost:*",
	"SCHEDULE_CUSTOM_WEEK_REQUIRES_WEEKDAY": false,
	"SCHEDULE_CUSTOM_MONTH_REQUIRES_DAY":    false,
	"METRICS_ENABLED":                       true,
	"TRACING_ENABLED":                       false,
	"OTEL_SERVICE_NAME":                     "adherence-tracker",
	"OTEL_EXPORTER_OTLP_ENDPOINT":           "localhost:4317",
	"OTEL_SAMPLE_RATE":                      1.0,
	"LOG_LEVEL":                             "info",
}

// Load reads configuration from environment variables, with an optional .env
// file in the working directory underneath them.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}

	// A missing .env is fine
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			Environment:     v.GetString("ENVIRONMENT"),
			ShutdownTimeout: durationOr(v, "SHUTDOWN_TIMEOUT", 15*time.Second),
			RequestTimeout:  durationOr(v, "REQUEST_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DATABASE_DRIVER")),
			Path:     v.GetString("DATABASE_PATH"),
			URL:      v.GetString("DATABASE_URL"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
			MinConns: v.GetInt32("DB_MIN_CONNS"),
		},
		Security: SecurityConfig{
			JWTSecret:         v.GetString("JWT_SECRET"),
			CSRFSecret:        v.GetString("CSRF_SECRET"),
			SessionDuration:   durationOr(v, "SESSION_DURATION", 336*time.Hour),
			RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
			RateLimitWindow:   durationOr(v, "RATE_LIMIT_WINDOW", time.Minute),
			CSPEnabled:        v.GetBool("CSP_ENABLED"),
			HSTSEnabled:       v.GetBool("HSTS_ENABLED"),
			CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		},
		Schedule: ScheduleConfig{
			CustomWeekRequiresWeekday:     v.GetBool("SCHEDULE_CUSTOM_WEEK_REQUIRES_WEEKDAY"),
			CustomMonthRequiresDayOfMonth: v.GetBool("SCHEDULE_CUSTOM_MONTH_REQUIRES_DAY"),
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: v.GetBool("METRICS_ENABLED"),
			TracingEnabled: v.GetBool("TRACING_ENABLED"),
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			OTLPEndpoint:   v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SampleRate:     v.GetFloat64("OTEL_SAMPLE_RATE"),
		},
		Log: LogConfig{
			Level: strings.ToLower(v.GetString("LOG_LEVEL")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.Security.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.Security.CSRFSecret == "" {
		return ErrMissingCSRFSecret
	}
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return ErrUnknownDatabaseDriver
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var (
	ErrMissingJWTSecret      = &ConfigError{"JWT_SECRET environment variable is required"}
	ErrMissingCSRFSecret     = &ConfigError{"CSRF_SECRET environment variable is required"}
	ErrUnknownDatabaseDriver = &ConfigError{"DATABASE_DRIVER must be sqlite or postgres"}
	ErrMissingDatabaseURL    = &ConfigError{"DATABASE_URL is required when DATABASE_DRIVER is postgres"}
)

type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

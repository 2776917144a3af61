package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("CSRF_SECRET", "csrf-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./data/adherence.db", cfg.Database.Path)
	assert.Equal(t, 336*time.Hour, cfg.Security.SessionDuration)
	assert.Equal(t, 100, cfg.Security.RateLimitRequests)
	assert.Equal(t, []string{"https://*", "http://localhost:*"}, cfg.Security.CORSOrigins)
	assert.False(t, cfg.Schedule.CustomWeekRequiresWeekday)
	assert.False(t, cfg.Schedule.CustomMonthRequiresDayOfMonth)
	assert.True(t, cfg.Telemetry.MetricsEnabled)
	assert.False(t, cfg.Telemetry.TracingEnabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/adherence")
	t.Setenv("DB_MAX_CONNS", "7")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("SESSION_DURATION", "not-a-duration")
	t.Setenv("SCHEDULE_CUSTOM_WEEK_REQUIRES_WEEKDAY", "true")
	t.Setenv("SCHEDULE_CUSTOM_MONTH_REQUIRES_DAY", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, int32(7), cfg.Database.MaxConns)
	assert.Equal(t, 30*time.Second, cfg.Security.RateLimitWindow)
	assert.Equal(t, 336*time.Hour, cfg.Security.SessionDuration)
	assert.True(t, cfg.Schedule.CustomWeekRequiresWeekday)
	assert.True(t, cfg.Schedule.CustomMonthRequiresDayOfMonth)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "missing jwt secret",
			env:     map[string]string{"JWT_SECRET": "", "CSRF_SECRET": "x"},
			wantErr: ErrMissingJWTSecret,
		},
		{
			name:    "missing csrf secret",
			env:     map[string]string{"JWT_SECRET": "x", "CSRF_SECRET": ""},
			wantErr: ErrMissingCSRFSecret,
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"JWT_SECRET": "x", "CSRF_SECRET": "x", "DATABASE_DRIVER": "mysql"},
			wantErr: ErrUnknownDatabaseDriver,
		},
		{
			name:    "postgres without url",
			env:     map[string]string{"JWT_SECRET": "x", "CSRF_SECRET": "x", "DATABASE_DRIVER": "postgres", "DATABASE_URL": ""},
			wantErr: ErrMissingDatabaseURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

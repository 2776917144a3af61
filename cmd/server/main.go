package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"adherence-tracker/internal/auth"
	"adherence-tracker/internal/config"
	"adherence-tracker/internal/handlers"
	"adherence-tracker/internal/middleware"
	"adherence-tracker/internal/models"
	"adherence-tracker/internal/observability/metrics"
	"adherence-tracker/internal/observability/tracing"
	"adherence-tracker/internal/schedule"
	"adherence-tracker/internal/services"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "adherence-tracker",
		Short:   "Medication schedule and adherence API",
		Version: version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(pruneAuditCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runServer(cfg, logger)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := context.Background()
			store, err := openBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.close()

			if err := store.migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Migrations applied on %s.\n", cfg.Database.Driver)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			role, _ := cmd.Flags().GetString("role")
			patients, _ := cmd.Flags().GetStringSlice("patients")
			if user == "" {
				return fmt.Errorf("--user is required")
			}
			switch role {
			case models.RolePatient, models.RoleFamily, models.RoleDoctor:
			default:
				return fmt.Errorf("--role must be patient, family or doctor")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			jwtManager := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionDuration)
			token, err := jwtManager.GenerateToken(user, role, patients)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("user", "", "User id carried in the token")
	cmd.Flags().String("role", models.RolePatient, "patient, family or doctor")
	cmd.Flags().StringSlice("patients", nil, "Patient ids a family member or doctor may access")
	return cmd
}

func pruneAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune-audit",
		Short: "Delete audit entries older than a number of days",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := context.Background()
			store, err := openBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.close()

			svc := services.NewAdherenceService(store.meds, store.doses, store.audit, services.WithLogger(logger))
			n, err := svc.PruneAudit(ctx, days)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d audit entries.\n", n)
			return nil
		},
	}
	cmd.Flags().Int("days", 365, "Retention in days")
	return cmd
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Log.Level, err)
	}

	zc := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func runServer(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	tp, err := tracing.Start(ctx, tracing.FromConfig(cfg, version))
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.close()
	logger.Info("connected to database", zap.String("driver", cfg.Database.Driver))

	if err := store.migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Telemetry.MetricsEnabled {
		m = metrics.New(nil)
	}

	svc := services.NewAdherenceService(store.meds, store.doses, store.audit,
		services.WithPolicy(schedule.Policy{
			CustomWeekRequiresWeekday:     cfg.Schedule.CustomWeekRequiresWeekday,
			CustomMonthRequiresDayOfMonth: cfg.Schedule.CustomMonthRequiresDayOfMonth,
		}),
		services.WithLogger(logger),
		services.WithMetrics(m),
	)

	router := handlers.NewRouter(handlers.RouterConfig{
		Service:        svc,
		JWT:            auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionDuration),
		CSRF:           middleware.NewCSRFProtection(cfg.Security.CSRFSecret),
		RateLimiter:    middleware.NewRateLimiter(cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow),
		Metrics:        m,
		Logger:         logger,
		Ready:          store.ping,
		CORSOrigins:    cfg.Security.CORSOrigins,
		CSPEnabled:     cfg.Security.CSPEnabled,
		HSTSEnabled:    cfg.Security.HSTSEnabled,
		RequestTimeout: cfg.Server.RequestTimeout,
		ServiceName:    cfg.Telemetry.ServiceName,
	})

	srv := &http.Server{
		Addr:              ":" + strings.TrimPrefix(cfg.Server.Port, ":"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

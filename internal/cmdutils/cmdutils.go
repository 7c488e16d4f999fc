// Package cmdutils turns business functions into cobra commands that load the
// configuration and bring up the ambient services they need.
package cmdutils

import (
	"context"
	"fmt"
	"log/slog"
	"syscall"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/health"
	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/openkcm/common-sdk/pkg/status"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/property360/usersession/internal/config"
)

const readinessTimeout = 5 * time.Second

// Kind selects what is brought up around a command's business function.
type Kind int

const (
	// Job runs with logging only.
	Job Kind = iota
	// Service also exports telemetry and serves the liveness and readiness endpoints.
	Service
)

func (k Kind) String() string {
	if k == Service {
		return "service"
	}
	return "job"
}

// BusinessFunc is the body of a command.
type BusinessFunc func(ctx context.Context, cfg *config.Config) error

// Command returns a cobra command that loads the configuration and runs fn.
func Command(kind Kind, use, short, long, buildInfo string, fn BusinessFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(buildInfo)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if err := run(cmd.Context(), kind, cfg, fn); err != nil {
				return fmt.Errorf("running %s: %w", use, err)
			}

			return nil
		},
	}
}

func run(ctx context.Context, kind Kind, cfg *config.Config, fn BusinessFunc) error {
	if err := logger.InitAsDefault(cfg.Logger, cfg.Application); err != nil {
		return oops.In("main").Wrapf(err, "Failed to initialise the logger")
	}
	slogctx.Debug(ctx, "Starting the application", "kind", kind, slog.Any("config", cfg))

	if kind == Service {
		if err := otlp.Init(ctx, &cfg.Application, &cfg.Telemetry, &cfg.Logger); err != nil {
			return oops.In("main").Wrapf(err, "Failed to load the telemetry")
		}

		go func() {
			if err := startStatusServer(ctx, cfg); err != nil {
				slogctx.Error(ctx, "Failure on the status server", "error", err)
				_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
			}
		}()
	}

	if err := fn(ctx, cfg); err != nil {
		return oops.In("main").Wrapf(err, "Failed to run the %s", kind)
	}

	return nil
}

// defaults apply to keys the configuration files leave out.
var defaults = map[string]any{
	"database.port":                  "5432",
	"valkey.prefix":                  "usersession",
	"localStore.driver":              string(config.LocalStoreSQLite),
	"localStore.path":                "usersession.db",
	"session.recentlyViewedCapacity": 5,
}

func loadConfig(buildInfo string) (*config.Config, error) {
	cfg := &config.Config{}

	err := commoncfg.LoadConfig(cfg, defaults, "/etc/usersession", "$HOME/.usersession", ".")
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if err := commoncfg.UpdateConfigVersion(&cfg.BaseConfig, buildInfo); err != nil {
		return nil, fmt.Errorf("updating the version configuration: %w", err)
	}

	return cfg, nil
}

func statusListener(ctx context.Context, state health.State) {
	attrs := make([]any, 0, 2+2*len(state.CheckState))
	attrs = append(attrs, "status", state.Status)
	for name, check := range state.CheckState {
		attrs = append(attrs, name, check.Status)
	}
	slogctx.Info(ctx, "Readiness status changed", attrs...)
}

// startStatusServer serves liveness and readiness. The service is ready while
// the profile store answers.
func startStatusServer(ctx context.Context, cfg *config.Config) error {
	dsn, err := cfg.Database.DSN()
	if err != nil {
		return fmt.Errorf("building the profile store DSN: %w", err)
	}

	liveness := status.WithLiveness(
		health.NewHandler(health.NewChecker(health.WithDisabledAutostart())),
	)
	readiness := status.WithReadiness(
		health.NewHandler(health.NewChecker(
			health.WithDisabledAutostart(),
			health.WithTimeout(readinessTimeout),
			health.WithDatabaseChecker("pgx", dsn),
			health.WithStatusListener(statusListener),
		)),
	)

	if err := status.Start(ctx, &cfg.BaseConfig, liveness, readiness); err != nil {
		return fmt.Errorf("starting status server: %w", err)
	}

	return nil
}

package main

import (
	"context"
	"os"
	"time"

	"github.com/radiflow/radiflow/pkg/cmd"
	"github.com/radiflow/radiflow/pkg/config"
	"github.com/radiflow/radiflow/pkg/engine"
	"github.com/radiflow/radiflow/pkg/log"
	"github.com/radiflow/radiflow/pkg/otelhelper"
	"github.com/radiflow/radiflow/pkg/scheduler"
	"github.com/radiflow/radiflow/pkg/tenant"
	cli "github.com/urfave/cli/v3"
)

const defaultResyncInterval = 5 * time.Minute

func main() {
	logger := log.WithModule("radiflow-scheduler")

	command := &cli.Command{
		Name:                  "radiflow-scheduler",
		EnableShellCompletion: true,
		Usage:                 "Fire scheduled automations across tenants",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "tenants-file",
				Usage:    "Path to the tenants.yaml roster",
				Required: true,
				Sources:  cli.EnvVars("TENANTS_FILE"),
			},
			&cli.DurationFlag{
				Name:    "resync-interval",
				Usage:   "How often to re-read each tenant's scheduled automations",
				Value:   defaultResyncInterval,
				Sources: cli.EnvVars("RESYNC_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Radiflow Scheduler")

			roster, err := config.LoadTenants(command.String("tenants-file"))
			if err != nil {
				return err
			}

			registry := cmd.NewRegistry(logger)
			condRegistry := cmd.NewConditionRegistry(logger)

			eng := engine.New(logger, registry, condRegistry)

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "radiflow-scheduler")
				if err != nil {
					return err
				}

				eng = eng.WithTracer(tracer)
			}

			tenants := tenant.NewManager(logger, cmd.NewPersistence)
			defer func() {
				err := tenants.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close tenant stores", "error", err)
				}
			}()

			runner := scheduler.NewEngineRunner(logger, eng, tenants)
			adapter := scheduler.NewAdapter(logger, runner)

			manager := NewSchedulerManager(
				adapter,
				tenants,
				roster,
				command.Duration("resync-interval"),
				logger,
			)

			return manager.Start(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

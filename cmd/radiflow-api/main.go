package main

import (
	"context"
	"os"

	"github.com/radiflow/radiflow/pkg/cmd"
	"github.com/radiflow/radiflow/pkg/engine"
	"github.com/radiflow/radiflow/pkg/log"
	"github.com/radiflow/radiflow/pkg/otelhelper"
	"github.com/radiflow/radiflow/pkg/tenant"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9080

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "radiflow-api",
		Usage:                 "Accept automation events and expose execution traces",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
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

			logger.InfoContext(ctx, "Initializing Radiflow API")

			registry := cmd.NewRegistry(logger)
			condRegistry := cmd.NewConditionRegistry(logger)

			eng := engine.New(logger, registry, condRegistry)

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "radiflow-api")
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

			eventBus := cmd.NewEventBus(command.String("event-bus"), "radiflow-api", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(logger, eng, tenants, eventBus)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/radiflow/radiflow/pkg/cmd"
	"github.com/radiflow/radiflow/pkg/engine"
	"github.com/radiflow/radiflow/pkg/log"
	"github.com/radiflow/radiflow/pkg/otelhelper"
	"github.com/radiflow/radiflow/pkg/queue"
	"github.com/radiflow/radiflow/pkg/tenant"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "radiflow-engine",
		EnableShellCompletion: true,
		Usage:                 "Evaluate queued automation events in the background",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus provider (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the list-based event intake (disabled when empty)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-queue",
				Usage:   "Redis list the intake consumes",
				Value:   "radiflow:events",
				Sources: cli.EnvVars("REDIS_QUEUE"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "engine-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("radiflow-engine").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing Radiflow Engine")

			registry := cmd.NewRegistry(logger)
			condRegistry := cmd.NewConditionRegistry(logger)

			eng := engine.New(logger, registry, condRegistry)

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "radiflow-engine")
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

			eventBus := cmd.NewEventBus(command.String("event-bus"), "radiflow-engine", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			var intake *queue.Intake

			if addr := command.String("redis-addr"); addr != "" {
				var err error

				intake, err = queue.NewIntake(ctx, queue.Config{
					Addr:  addr,
					Queue: command.String("redis-queue"),
				}, eventBus, logger)
				if err != nil {
					return err
				}
			}

			worker := NewWorkerManager(workerID, eng, tenants, eventBus, intake, logger)

			err := worker.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

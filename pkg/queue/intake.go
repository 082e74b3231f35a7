// Package queue consumes automation events pushed onto a Redis list by the
// RADIUS provisioning side and republishes them onto the event bus. It exists
// for deployments where producers cannot speak Kafka directly.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/radiflow/radiflow/pkg/events"
	"github.com/radiflow/radiflow/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const defaultQueue = "radiflow:events"

// Publisher is the downstream the intake feeds, satisfied by the event bus.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Intake blocks on a Redis list and forwards well-formed envelopes to the
// bus. Malformed payloads are logged and dropped; they carry no tenant
// coordinates so there is nowhere to route them.
type Intake struct {
	queue     string
	client    redis.UniversalClient
	publisher Publisher
	logger    *slog.Logger
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// NewIntake connects to Redis and verifies the connection.
func NewIntake(ctx context.Context, cfg Config, publisher Publisher, logger *slog.Logger) (*Intake, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}

	if cfg.Queue == "" {
		cfg.Queue = defaultQueue
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	intake := &Intake{
		queue:     cfg.Queue,
		client:    client,
		publisher: publisher,
		stopCh:    make(chan struct{}),
		logger: logger.With(
			"module", "queue_intake",
			"queue", cfg.Queue,
		),
	}

	intake.logger.InfoContext(ctx, "Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)

	return intake, nil
}

// Start launches the consumer loop.
func (i *Intake) Start(ctx context.Context) {
	i.wg.Add(1)

	go i.consume(ctx)
}

func (i *Intake) consume(ctx context.Context) {
	defer i.wg.Done()

	i.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-i.stopCh:
			i.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			i.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			err := i.processMessage(ctx)
			if err != nil {
				i.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// queuedPayload is the wire shape producers push: tenant coordinates plus the
// domain event.
type queuedPayload struct {
	Tenant models.TenantConnection `json:"tenant"`
	Event  *models.AutomationEvent `json:"event"`
}

func (i *Intake) processMessage(ctx context.Context) error {
	result, err := i.client.BLPop(ctx, 1*time.Second, i.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	return i.forward(ctx, result[1])
}

// forward decodes one raw queue message and publishes it as a bus envelope.
func (i *Intake) forward(ctx context.Context, message string) error {
	var payload queuedPayload
	if err := json.Unmarshal([]byte(message), &payload); err != nil {
		i.logger.WarnContext(ctx, "Dropping malformed queue message", "error", err)

		return nil
	}

	if payload.Event == nil || payload.Tenant.TenantID == "" {
		i.logger.WarnContext(ctx, "Dropping queue message without tenant or event")

		return nil
	}

	envelope := events.NewAutomationEventQueued(payload.Tenant, payload.Event)

	err := i.publisher.Publish(ctx, envelope)
	if err != nil {
		return fmt.Errorf("failed to publish queued event: %w", err)
	}

	i.logger.InfoContext(ctx, "Forwarded queued event",
		"tenant_id", payload.Tenant.TenantID,
		"trigger_type", payload.Event.TriggerType,
	)

	return nil
}

// Stop halts the consumer and closes the Redis client.
func (i *Intake) Stop(ctx context.Context) error {
	i.logger.InfoContext(ctx, "Stopping queue intake")

	close(i.stopCh)
	i.wg.Wait()

	if i.client != nil {
		err := i.client.Close()
		if err != nil {
			i.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}

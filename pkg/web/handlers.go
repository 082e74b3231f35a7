package web

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/radiflow/radiflow/pkg/engine"
	"github.com/radiflow/radiflow/pkg/eventbus"
	"github.com/radiflow/radiflow/pkg/events"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/persistence"
	"github.com/radiflow/radiflow/pkg/tenant"
)

// Tenant coordinates for read endpoints travel in headers; the fire-event
// body carries them inline instead.
const (
	TenantIDHeader  = "X-Tenant-Id"
	TenantURLHeader = "X-Tenant-Database-Url"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

type APIHandlers struct {
	logger    *slog.Logger
	engine    *engine.Engine
	tenants   *tenant.Manager
	publisher eventbus.EventPublisher
	validator *validator.Validate
}

func NewAPIHandlers(
	logger *slog.Logger,
	eng *engine.Engine,
	tenants *tenant.Manager,
	publisher eventbus.EventPublisher,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		logger:    logger.With("module", "web"),
		engine:    eng,
		tenants:   tenants,
		publisher: publisher,
		validator: validate,
	}
}

// FireEvent is the single write endpoint: it accepts one domain event and
// either evaluates it inline or queues it for the background worker.
func (h *APIHandlers) FireEvent(c fiber.Ctx) error {
	req := &FireEventRequest{}
	if err := c.Bind().JSON(req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if req.Tenant.TenantID == "" {
		return badRequest(c, "tenant.tenant_id is required")
	}

	if req.Event == nil || req.Event.TriggerType == "" {
		return badRequest(c, "event.triggerType is required")
	}

	if err := h.validator.Struct(req.Event); err != nil {
		return badRequest(c, "Invalid event: "+err.Error())
	}

	if req.Event.OccurredAt.IsZero() {
		req.Event.OccurredAt = time.Now().UTC()
	}

	if req.Background {
		envelope := events.NewAutomationEventQueued(req.Tenant, req.Event)

		err := h.publisher.Publish(c.Context(), envelope)
		if err != nil {
			return internalError(c, err)
		}

		return c.Status(fiber.StatusAccepted).JSON(FireEventResponse{
			Status:  "queued",
			EventID: envelope.ID,
		})
	}

	store, err := h.tenants.Store(c.Context(), req.Tenant)
	if err != nil {
		return internalError(c, err)
	}

	err = h.engine.FireEvent(c.Context(), store, req.Event)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(FireEventResponse{Status: "completed"})
}

// GetAutomations lists the automations currently eligible to run.
func (h *APIHandlers) GetAutomations(c fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	automations, err := store.Automations().ListRunnable(c.Context())
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(fiber.Map{"automations": automations})
}

// GetAutomation returns one automation by id.
func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	automation, err := store.Automations().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(automation)
}

// GetExecutions pages all execution logs newest-first.
func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid pagination parameters: "+err.Error())
	}

	logs, err := store.ExecutionLogs().List(c.Context(), limit, offset)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(ExecutionLogsResponse{Logs: logs, Limit: limit, Offset: offset})
}

// GetAutomationExecutions pages one automation's execution logs.
func (h *APIHandlers) GetAutomationExecutions(c fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid pagination parameters: "+err.Error())
	}

	logs, err := store.ExecutionLogs().ListByAutomation(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(ExecutionLogsResponse{Logs: logs, Limit: limit, Offset: offset})
}

// GetExecution returns one execution log.
func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	log, err := store.ExecutionLogs().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(log)
}

// GetExecutionSteps returns the ordered steps of one execution log.
func (h *APIHandlers) GetExecutionSteps(c fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	logID := c.Params("id")

	// Surface a 404 for unknown logs instead of an empty step list.
	_, err = store.ExecutionLogs().GetByID(c.Context(), logID)
	if err != nil {
		return handleStoreError(c, err)
	}

	steps, err := store.ExecutionSteps().ListByLog(c.Context(), logID)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(fiber.Map{"steps": steps})
}

// HealthCheck reports service liveness, and tenant store health when the
// tenant headers are present.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if c.Get(TenantIDHeader) == "" {
		return c.JSON(fiber.Map{"status": "healthy"})
	}

	store, err := h.store(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	err = store.HealthCheck(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

//nolint:ireturn // Persistence is the package's seam.
func (h *APIHandlers) store(c fiber.Ctx) (persistence.Persistence, error) {
	conn := models.TenantConnection{
		TenantID:    c.Get(TenantIDHeader),
		DatabaseURL: c.Get(TenantURLHeader),
	}

	return h.tenants.Store(c.Context(), conn)
}

func parsePagination(c fiber.Ctx) (int, int, error) {
	limit := defaultPageLimit
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}

		limit = parsed
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}

		offset = parsed
	}

	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}

// Package conditions evaluates workflow condition nodes against event
// context. Every built-in is intentionally fail-open: missing or malformed
// context data must never silently block an automation.
package conditions

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/radiflow/radiflow/pkg/models"
)

// Condition is a pure predicate over the event context.
type Condition func(eventContext map[string]any) bool

// Registry maps condition types to predicates. Unknown types evaluate to
// true with a warning.
type Registry struct {
	logger     *slog.Logger
	conditions map[string]Condition
}

// NewRegistry creates a registry with the built-in conditions registered.
func NewRegistry(logger *slog.Logger) *Registry {
	r := &Registry{
		logger:     logger.With("module", "conditions"),
		conditions: make(map[string]Condition),
	}

	r.Register(models.ConditionBalanceCheck, BalanceCheck)
	r.Register(models.ConditionUserStatus, UserStatus)
	r.Register(models.ConditionDateCheck, DateCheck)

	return r
}

// Register adds or replaces a condition type.
func (r *Registry) Register(conditionType string, condition Condition) {
	r.conditions[conditionType] = condition
}

// Evaluate runs the predicate for the given condition type.
func (r *Registry) Evaluate(conditionType string, eventContext map[string]any) bool {
	condition, ok := r.conditions[conditionType]
	if !ok {
		r.logger.Warn("Unknown condition type, defaulting to true", "condition_type", conditionType)

		return true
	}

	return condition(eventContext)
}

// BalanceCheck is true iff a numeric balance entry is greater than zero.
// Missing or unparseable balances evaluate to false.
func BalanceCheck(eventContext map[string]any) bool {
	value, ok := eventContext["balance"]
	if !ok {
		return false
	}

	balance, ok := toFloat(value)
	if !ok {
		return false
	}

	return balance > 0
}

// UserStatus returns the boolean enabled entry, defaulting to true when
// absent or not a boolean.
func UserStatus(eventContext map[string]any) bool {
	value, ok := eventContext["enabled"]
	if !ok {
		return true
	}

	enabled, ok := value.(bool)
	if !ok {
		return true
	}

	return enabled
}

// DateCheck is true iff an expiration entry parses as a date in the future,
// defaulting to true when missing or unparseable.
func DateCheck(eventContext map[string]any) bool {
	value, ok := eventContext["expiration"]
	if !ok {
		return true
	}

	expiration, ok := toTime(value)
	if !ok {
		return true
	}

	return expiration.After(time.Now().UTC())
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			parsed, err := time.Parse(layout, v)
			if err == nil {
				return parsed, true
			}
		}

		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

package httprequest

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultStatusPattern accepts any 2xx response.
const DefaultStatusPattern = "200-299"

// StatusPattern is a parsed expected-status expression: a comma-separated
// mix of single codes and inclusive min-max ranges, e.g. "200-299,304".
type StatusPattern struct {
	source string
	ranges []statusRange
}

type statusRange struct {
	min int
	max int
}

// ParseStatusPattern parses the expression. An empty expression resolves to
// the default 2xx pattern.
func ParseStatusPattern(expr string) (*StatusPattern, error) {
	if strings.TrimSpace(expr) == "" {
		expr = DefaultStatusPattern
	}

	pattern := &StatusPattern{source: expr}

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		min, max, ok := strings.Cut(part, "-")
		if !ok {
			max = min
		}

		low, err := strconv.Atoi(strings.TrimSpace(min))
		if err != nil {
			return nil, fmt.Errorf("invalid status code %q in pattern %q", min, expr)
		}

		high, err := strconv.Atoi(strings.TrimSpace(max))
		if err != nil {
			return nil, fmt.Errorf("invalid status code %q in pattern %q", max, expr)
		}

		if high < low {
			return nil, fmt.Errorf("inverted range %q in pattern %q", part, expr)
		}

		pattern.ranges = append(pattern.ranges, statusRange{min: low, max: high})
	}

	if len(pattern.ranges) == 0 {
		return nil, fmt.Errorf("empty status pattern %q", expr)
	}

	return pattern, nil
}

// Matches reports whether the status code falls inside any range.
func (p *StatusPattern) Matches(code int) bool {
	for _, r := range p.ranges {
		if code >= r.min && code <= r.max {
			return true
		}
	}

	return false
}

// String returns the original expression.
func (p *StatusPattern) String() string {
	return p.source
}

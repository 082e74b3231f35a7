// Package template resolves {{placeholder}} tokens in action configuration
// against event-derived variables.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Resolve substitutes every {{key}} token with the matching variable. An
// unmatched placeholder is left verbatim so a broken mapping is visible in
// the recorded request instead of silently collapsing to an empty string.
func Resolve(input string, vars map[string]any) string {
	if input == "" {
		return input
	}

	return placeholderPattern.ReplaceAllStringFunc(input, func(token string) string {
		key := placeholderPattern.FindStringSubmatch(token)[1]

		value, ok := vars[key]
		if !ok {
			return token
		}

		return formatValue(value)
	})
}

// formatValue renders a variable the way it should appear inside a URL or
// body. JSON-decoded numbers arrive as float64 and must not print in
// scientific notation.
func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FormatForCLI formats an error for terminal display.
// Non-structured errors are shown as internal errors.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var se *SearchError
	if !errors.As(err, &se) {
		se = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", se.Message))
	if se.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", se.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", se.Code))
	return sb.String()
}

// LogAttrs flattens an error into key-value pairs for slog.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	var se *SearchError
	if !errors.As(err, &se) {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", se.Code,
		"error", se.Message,
		"category", string(se.Category),
		"retryable", se.Retryable,
	}
	if se.Cause != nil {
		attrs = append(attrs, "cause", se.Cause.Error())
	}

	keys := make([]string, 0, len(se.Details))
	for k := range se.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, "detail_"+k, se.Details[k])
	}
	return attrs
}

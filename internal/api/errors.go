package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrUnauthorized marks a 401 from any endpoint. It is recovered
// globally (credential clear + re-login), never surfaced per call.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx response with a best-effort human-readable
// message extracted from the body.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// UserMessage flattens any error from this package into a displayable
// string. StatusError keeps its "(code)" annotation; transport failures
// collapse to a generic line.
func UserMessage(err error, fallback string) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	if errors.Is(err, ErrUnauthorized) {
		return "Session expired. Please login again."
	}
	if fallback != "" {
		return fallback
	}
	return "Request failed. Please try again."
}

// decodeErrorMessage extracts a message from an error body that may be
// JSON ({error: ...} and friends) or raw bytes depending on endpoint.
func decodeErrorMessage(body []byte, contentType, fallback string) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fallback
	}

	if strings.Contains(contentType, "json") || strings.HasPrefix(trimmed, "{") {
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err == nil {
			for _, key := range []string{"error", "detail", "message"} {
				if v, ok := payload[key].(string); ok && v != "" {
					return v
				}
			}
		}
	}

	// Binary-typed bodies often carry plain text; keep it when readable.
	if utf8.ValidString(trimmed) {
		if len(trimmed) > 200 {
			trimmed = trimmed[:200]
		}
		return trimmed
	}
	return fallback
}

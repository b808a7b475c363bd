// Package httpx holds response helpers shared by the outbound HTTP adapters.
package httpx

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 512

func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// StatusError is a non-2xx response with the start of its body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// NewStatusError reads at most maxErrorBody bytes of resp.Body.
func NewStatusError(resp *http.Response) *StatusError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

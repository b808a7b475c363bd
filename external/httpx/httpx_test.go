package httpx

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestIsSuccess(t *testing.T) {
	for code, want := range map[int]bool{199: false, 200: true, 204: true, 299: true, 301: false, 500: false} {
		if got := IsSuccess(code); got != want {
			t.Fatalf("IsSuccess(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestNewStatusError_TruncatesBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadGateway,
		Body:       io.NopCloser(strings.NewReader(strings.Repeat("x", 2*maxErrorBody))),
	}

	err := NewStatusError(resp)

	if err.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
	if len(err.Body) != maxErrorBody {
		t.Fatalf("expected body of %d bytes, got %d", maxErrorBody, len(err.Body))
	}
}

func TestStatusError_EmptyBody(t *testing.T) {
	err := &StatusError{StatusCode: http.StatusNotFound}
	if err.Error() != "status 404" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/vibebot/external/httpx"
	"github.com/foxseedlab/vibebot/internal/webhook"
)

func TestSendLiveStatus_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendLiveStatus(context.Background(), webhook.LiveStatusPayload{ChannelID: "vc-1"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendLiveStatus_Success(t *testing.T) {
	var got webhook.LiveStatusPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if ev := r.Header.Get(EventHeader); ev != EventLiveStarted {
			t.Errorf("unexpected event header: %s", ev)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	changedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sender := NewHTTPSender(server.URL)
	err := sender.SendLiveStatus(context.Background(), webhook.LiveStatusPayload{
		GuildID:     "guild-1",
		ChannelID:   "vc-1",
		ChannelName: "General",
		Live:        true,
		ChangedAt:   changedAt,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.ChannelID != "vc-1" || got.ChannelName != "General" || !got.Live {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if !got.ChangedAt.Equal(changedAt) {
		t.Fatalf("unexpected changed_at: %v", got.ChangedAt)
	}
}

func TestSendLiveStatus_Non2xxNamesTransition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ev := r.Header.Get(EventHeader); ev != EventLiveEnded {
			t.Errorf("unexpected event header: %s", ev)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("unknown channel"))
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	err := sender.SendLiveStatus(context.Background(), webhook.LiveStatusPayload{ChannelID: "vc-1", Live: false})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), EventLiveEnded) || !strings.Contains(err.Error(), "vc-1") {
		t.Fatalf("expected transition and channel in error, got %v", err)
	}
	var statusErr *httpx.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected a status error, got %T", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Body != "unknown channel" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

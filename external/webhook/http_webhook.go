package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/foxseedlab/vibebot/external/httpx"
	"github.com/foxseedlab/vibebot/internal/webhook"
)

const (
	requestTimeout = 10 * time.Second

	// EventHeader lets receivers route a delivery without decoding the body.
	EventHeader      = "X-Vibebot-Event"
	EventLiveStarted = "live.started"
	EventLiveEnded   = "live.ended"
)

type HTTPSender struct {
	webhookURL string
	client     *http.Client
}

func NewHTTPSender(webhookURL string) webhook.Sender {
	return &HTTPSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: requestTimeout},
	}
}

func liveStatusEvent(live bool) string {
	if live {
		return EventLiveStarted
	}
	return EventLiveEnded
}

// SendLiveStatus posts one channel transition. An unset URL disables delivery.
func (s *HTTPSender) SendLiveStatus(ctx context.Context, payload webhook.LiveStatusPayload) error {
	if s.webhookURL == "" {
		return nil
	}
	event := liveStatusEvent(payload.Live)

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s for channel %s: %w", event, payload.ChannelID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, event)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver %s for channel %s: %w", event, payload.ChannelID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !httpx.IsSuccess(resp.StatusCode) {
		return fmt.Errorf("%s for channel %s rejected: %w", event, payload.ChannelID, httpx.NewStatusError(resp))
	}
	return nil
}

package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/foxseedlab/vibebot/external/httpx"
	"github.com/foxseedlab/vibebot/internal/live"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultTokenURL = "https://id.twitch.tv/oauth2/token"
	DefaultHelixURL = "https://api.twitch.tv/helix"

	requestTimeout = 10 * time.Second
)

type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	HelixURL     string
	HTTPClient   *http.Client
}

type Client struct {
	clientID string
	helixURL string
	http     *http.Client
	tokens   *TokenCache
}

type streamsResponse struct {
	Data []struct {
		UserLogin string `json:"user_login"`
		Type      string `json:"type"`
	} `json:"data"`
}

func NewClient(cfg Config) *Client {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.HelixURL == "" {
		cfg.HelixURL = DefaultHelixURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		clientID: cfg.ClientID,
		helixURL: cfg.HelixURL,
		http:     cfg.HTTPClient,
		tokens: NewTokenCache(&clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}, cfg.HTTPClient),
	}
}

var _ live.Oracle = (*Client)(nil)

func (c *Client) IsLive(ctx context.Context, login string) (bool, error) {
	isLive, status, tok, err := c.fetchStream(ctx, login)
	if err != nil {
		return false, err
	}
	if status == http.StatusUnauthorized {
		c.tokens.Invalidate(tok)
		isLive, status, _, err = c.fetchStream(ctx, login)
		if err != nil {
			return false, err
		}
	}
	if !httpx.IsSuccess(status) {
		return false, fmt.Errorf("helix streams returned status %d", status)
	}
	return isLive, nil
}

func (c *Client) fetchStream(ctx context.Context, login string) (bool, int, *oauth2.Token, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return false, 0, nil, fmt.Errorf("failed to get twitch app token: %w", err)
	}
	endpoint := c.helixURL + "/streams?" + url.Values{"user_login": {login}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, 0, tok, err
	}
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err := c.http.Do(req)
	if err != nil {
		return false, 0, tok, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !httpx.IsSuccess(resp.StatusCode) {
		return false, resp.StatusCode, tok, nil
	}
	var body streamsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, resp.StatusCode, tok, fmt.Errorf("failed to decode helix streams: %w", err)
	}
	for _, s := range body.Data {
		if s.Type == "live" {
			return true, resp.StatusCode, tok, nil
		}
	}
	return false, resp.StatusCode, tok, nil
}

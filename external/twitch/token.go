package twitch

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const defaultTokenTimeout = 15 * time.Second

// TokenCache holds one app access token for the process. Concurrent callers that find it
// missing or expired share a single refresh request.
type TokenCache struct {
	cfg        *clientcredentials.Config
	httpClient *http.Client
	timeout    time.Duration
	group      singleflight.Group

	mu    sync.RWMutex
	token *oauth2.Token
}

func NewTokenCache(cfg *clientcredentials.Config, httpClient *http.Client) *TokenCache {
	return &TokenCache{cfg: cfg, httpClient: httpClient, timeout: defaultTokenTimeout}
}

func (c *TokenCache) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if tok.Valid() {
		return tok, nil
	}

	v, err, _ := c.group.Do("app_token", func() (any, error) {
		c.mu.RLock()
		cached := c.token
		c.mu.RUnlock()
		if cached.Valid() {
			return cached, nil
		}
		// The refresh is shared, so one caller's cancellation must not fail the
		// others; it is bounded by its own deadline instead.
		tokenCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		if c.httpClient != nil {
			tokenCtx = context.WithValue(tokenCtx, oauth2.HTTPClient, c.httpClient)
		}
		fresh, err := c.cfg.Token(tokenCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.token = fresh
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

// Invalidate drops the cached token if it is still the given one.
func (c *TokenCache) Invalidate(tok *oauth2.Token) {
	c.mu.Lock()
	if c.token == tok {
		c.token = nil
	}
	c.mu.Unlock()
}

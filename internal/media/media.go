package media

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoResults   = errors.New("no results for query")
	ErrNotPlaylist = errors.New("query is not a playlist")
)

// Item is a playable source. SourceURL is the page URL, not a stream URL; stream URLs expire.
type Item struct {
	Title     string
	SourceURL string
	Duration  time.Duration
}

type Resolver interface {
	// Resolve turns a URL or free-text search into a single item.
	Resolve(ctx context.Context, query string) (Item, error)
	ResolvePlaylist(ctx context.Context, query string) ([]Item, error)
	// StreamURL returns a short-lived direct audio URL for a resolved item.
	StreamURL(ctx context.Context, sourceURL string) (string, error)
}

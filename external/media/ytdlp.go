package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/vibebot/internal/media"
	"github.com/lrstanley/go-ytdlp"
)

const (
	itemPrintTemplate = "%(webpage_url,url)s\t%(title)s\t%(duration)s"
	audioFormat       = "bestaudio[ext=webm]/bestaudio"
	searchPrefix      = "ytsearch1:"
)

type YTDLPResolver struct {
	maxPlaylistItems int
}

func NewYTDLPResolver(maxPlaylistItems int) media.Resolver {
	return &YTDLPResolver{maxPlaylistItems: maxPlaylistItems}
}

func (r *YTDLPResolver) Resolve(ctx context.Context, query string) (media.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return media.Item{}, media.ErrNoResults
	}

	var (
		res *ytdlp.Result
		err error
	)
	if isURL(query) {
		res, err = ytdlp.New().
			NoPlaylist().
			Print(itemPrintTemplate).
			NoWarnings().
			IgnoreConfig().
			Run(ctx, query)
	} else {
		res, err = ytdlp.New().
			FlatPlaylist().
			Print(itemPrintTemplate).
			NoWarnings().
			IgnoreConfig().
			Run(ctx, searchPrefix+query)
	}
	if err != nil {
		return media.Item{}, fmt.Errorf("yt-dlp failed: %w", err)
	}
	items := parseItems(res.Stdout)
	if len(items) == 0 {
		return media.Item{}, media.ErrNoResults
	}
	return items[0], nil
}

func (r *YTDLPResolver) ResolvePlaylist(ctx context.Context, query string) ([]media.Item, error) {
	query = strings.TrimSpace(query)
	if !isURL(query) {
		return nil, media.ErrNotPlaylist
	}
	res, err := ytdlp.New().
		FlatPlaylist().
		Print(itemPrintTemplate).
		PlaylistItems(fmt.Sprintf("1-%d", r.maxPlaylistItems)).
		NoWarnings().
		IgnoreConfig().
		Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}
	items := parseItems(res.Stdout)
	if len(items) == 0 {
		return nil, media.ErrNoResults
	}
	return items, nil
}

func (r *YTDLPResolver) StreamURL(ctx context.Context, sourceURL string) (string, error) {
	res, err := ytdlp.New().
		Format(audioFormat).
		NoPlaylist().
		Print("%(url)s").
		NoWarnings().
		IgnoreConfig().
		Run(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w", err)
	}
	for _, l := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if l = strings.TrimSpace(l); isURL(l) {
			return l, nil
		}
	}
	return "", fmt.Errorf("yt-dlp returned no stream url for %s", sourceURL)
}

// parseItems reads one tab separated item per line as printed by itemPrintTemplate.
func parseItems(stdout string) []media.Item {
	ls := strings.Split(strings.TrimSpace(stdout), "\n")
	items := make([]media.Item, 0, len(ls))
	for _, l := range ls {
		ps := strings.Split(l, "\t")
		if len(ps) < 3 || !isURL(ps[0]) {
			continue
		}
		title := ps[1]
		if title == "" || title == "NA" {
			title = ps[0]
		}
		items = append(items, media.Item{
			Title:     title,
			SourceURL: ps[0],
			Duration:  parseSeconds(ps[2]),
		})
	}
	return items
}

func parseSeconds(s string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s) + "s")
	if err != nil || d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

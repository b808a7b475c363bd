package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/vibebot/internal/discord"
	"github.com/foxseedlab/vibebot/internal/playback"
)

// SnapshotSource is the read side of *playback.Manager.
type SnapshotSource interface {
	ActiveGuilds() []string
	Snapshot(guildID string) (playback.Snapshot, bool)
}

type messageSender interface {
	SendChannelMessage(channelID, content string) (string, error)
	EditChannelMessage(channelID, messageID, content string) error
}

// NowPlayingBoard posts playback notices to the queue's text channel and keeps
// the latest now-playing message updated with the track position.
type NowPlayingBoard struct {
	discord messageSender

	mu     sync.Mutex
	boards map[string]boardMessage
}

type boardMessage struct {
	messageID string
	trackID   string
	content   string
}

var _ playback.Notifier = (*NowPlayingBoard)(nil)

func NewNowPlayingBoard(dc discord.Client) *NowPlayingBoard {
	return newNowPlayingBoard(dc)
}

func newNowPlayingBoard(sender messageSender) *NowPlayingBoard {
	return &NowPlayingBoard{
		discord: sender,
		boards:  make(map[string]boardMessage),
	}
}

func (b *NowPlayingBoard) NowPlaying(ctx context.Context, textChannelID string, track playback.Track) {
	content := fmt.Sprintf(messageNowPlayingFormat, trackLabel(track))
	messageID, err := b.discord.SendChannelMessage(textChannelID, content)
	if err != nil {
		slog.Error("failed to post now playing", "error", err, "channel_id", textChannelID, "track_id", track.ID)
		return
	}
	b.mu.Lock()
	b.boards[textChannelID] = boardMessage{messageID: messageID, trackID: track.ID, content: content}
	b.mu.Unlock()
}

func (b *NowPlayingBoard) QueueFinished(ctx context.Context, textChannelID string) {
	b.forget(textChannelID)
	b.send(textChannelID, messageQueueDone)
}

func (b *NowPlayingBoard) TrackFailed(ctx context.Context, textChannelID string, track playback.Track, err error) {
	slog.Warn("track failed", "error", err, "channel_id", textChannelID, "track_id", track.ID)
	b.send(textChannelID, fmt.Sprintf(messageTrackFailedFormat, trackLabel(track)))
}

func (b *NowPlayingBoard) SessionFailed(ctx context.Context, textChannelID string, err error) {
	slog.Warn("playback session failed", "error", err, "channel_id", textChannelID)
	b.forget(textChannelID)
	b.send(textChannelID, messageSessionFailed)
}

func (b *NowPlayingBoard) send(channelID, content string) {
	if _, err := b.discord.SendChannelMessage(channelID, content); err != nil {
		slog.Error("failed to send channel message", "error", err, "channel_id", channelID)
	}
}

func (b *NowPlayingBoard) forget(channelID string) {
	b.mu.Lock()
	delete(b.boards, channelID)
	b.mu.Unlock()
}

// Run refreshes the boards every interval until ctx is done.
func (b *NowPlayingBoard) Run(ctx context.Context, source SnapshotSource, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Refresh(source)
		}
	}
}

// Refresh edits each board whose track is still playing.
func (b *NowPlayingBoard) Refresh(source SnapshotSource) {
	snapshots := make([]playback.Snapshot, 0)
	for _, guildID := range source.ActiveGuilds() {
		if snap, ok := source.Snapshot(guildID); ok {
			snapshots = append(snapshots, snap)
		}
	}

	for _, snap := range snapshots {
		track, ok := snap.NowPlaying()
		if !ok {
			continue
		}
		b.mu.Lock()
		board, ok := b.boards[snap.TextChannelID]
		b.mu.Unlock()
		if !ok || board.trackID != track.ID {
			continue
		}
		content := nowPlayingMessage(snap)
		if content == board.content {
			continue
		}
		if err := b.discord.EditChannelMessage(snap.TextChannelID, board.messageID, content); err != nil {
			slog.Warn("failed to refresh now playing", "error", err, "guild_id", snap.GuildID, "channel_id", snap.TextChannelID)
			continue
		}
		b.mu.Lock()
		if cur, ok := b.boards[snap.TextChannelID]; ok && cur.messageID == board.messageID {
			cur.content = content
			b.boards[snap.TextChannelID] = cur
		}
		b.mu.Unlock()
	}
}

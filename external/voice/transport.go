package voice

import (
	"context"
	"log/slog"
	"sync"

	"github.com/foxseedlab/vibebot/internal/audio"
	"github.com/foxseedlab/vibebot/internal/discord"
	"github.com/foxseedlab/vibebot/internal/media"
	"github.com/foxseedlab/vibebot/internal/voice"
)

// DiscordTransport plays audio into Discord voice channels.
type DiscordTransport struct {
	discord    discord.Client
	resolver   media.Resolver
	newEncoder audio.EncoderFactory
	openPCM    pcmOpener
}

func NewDiscordTransport(dc discord.Client, resolver media.Resolver, newEncoder audio.EncoderFactory, ffmpegPath string) *DiscordTransport {
	return &DiscordTransport{
		discord:    dc,
		resolver:   resolver,
		newEncoder: newEncoder,
		openPCM:    ffmpegOpener(ffmpegPath),
	}
}

var _ voice.Transport = (*DiscordTransport)(nil)

func (t *DiscordTransport) CanJoin(channelID string) (bool, error) {
	return t.discord.CanConnectAndSpeak(channelID)
}

func (t *DiscordTransport) Join(_ context.Context, req voice.JoinRequest, sink voice.EventSink) (voice.Connection, error) {
	vc, err := t.discord.JoinVoiceChannel(req.GuildID, req.ChannelID)
	if err != nil {
		return nil, err
	}
	c := &connection{transport: t, vc: vc, req: req, sink: sink}
	slog.Info("voice transport joined", "guild_id", req.GuildID, "channel_id", req.ChannelID, "session_id", req.SessionID)
	c.emit(voice.Event{Kind: voice.EventReady})
	return c, nil
}

type connection struct {
	transport *DiscordTransport
	vc        discord.VoiceConnection
	req       voice.JoinRequest
	sink      voice.EventSink

	mu        sync.Mutex
	players   []*player
	destroyed bool
}

// emit delivers an event from its own goroutine.
func (c *connection) emit(ev voice.Event) {
	ev.GuildID = c.req.GuildID
	ev.SessionID = c.req.SessionID
	go c.sink(ev)
}

func (c *connection) NewPlayer() voice.Player {
	p := newPlayer(c)
	c.mu.Lock()
	c.players = append(c.players, p)
	c.mu.Unlock()
	return p
}

func (c *connection) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	players := c.players
	c.players = nil
	c.mu.Unlock()

	for _, p := range players {
		p.Stop()
	}
	if err := c.vc.Disconnect(); err != nil {
		slog.Warn("failed to disconnect voice connection", "error", err, "guild_id", c.req.GuildID, "session_id", c.req.SessionID)
	}
}

package voice

import (
	"context"
	"time"
)

type EventKind int

const (
	EventReady EventKind = iota + 1
	EventTrackEnded
	EventTransportError
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventTrackEnded:
		return "track_ended"
	case EventTransportError:
		return "transport_error"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a transport notification. Events must never be delivered from inside a
// Transport, Connection or Player call; adapters send them from their own goroutines.
type Event struct {
	Kind      EventKind
	GuildID   string
	SessionID string
	// PlayID identifies the Play call a TrackEnded event belongs to.
	PlayID uint64
	// ChannelID is set on Disconnected events that originate from the gateway.
	ChannelID string
	Err       error
}

type EventSink func(Event)

type JoinRequest struct {
	GuildID   string
	ChannelID string
	SessionID string
}

type PlayRequest struct {
	PlayID    uint64
	SourceURL string
	Offset    time.Duration
	Volume    int
}

type Transport interface {
	// CanJoin reports whether the bot may connect and speak in the channel.
	CanJoin(channelID string) (bool, error)
	// Join connects to the channel. Ready is reported through sink once audio can be sent.
	Join(ctx context.Context, req JoinRequest, sink EventSink) (Connection, error)
}

type Connection interface {
	NewPlayer() Player
	Destroy()
}

type Player interface {
	// Play replaces whatever is playing. A TrackEnded event with the same PlayID is sent
	// when the stream ends by itself or fails; Stop and replacement send nothing.
	// Play always starts unpaused.
	Play(req PlayRequest) error
	Stop()
	SetPaused(paused bool)
	SetVolume(volume int)
}

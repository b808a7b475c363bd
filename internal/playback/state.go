package playback

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// State is the lifecycle of a guild queue. StateIdle means the guild has no entry.
type State int

const (
	StateIdle       State = iota
	StateConnecting       // join issued, waiting for the transport to report ready
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatTrack
	RepeatQueue
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatTrack:
		return "track"
	case RepeatQueue:
		return "queue"
	default:
		return "unknown"
	}
}

func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return RepeatOff, nil
	case "track", "song", "one":
		return RepeatTrack, nil
	case "queue", "all":
		return RepeatQueue, nil
	default:
		return RepeatOff, errors.Newf("unknown repeat mode: %q", s)
	}
}

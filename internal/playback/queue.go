package playback

import (
	"time"

	"github.com/foxseedlab/vibebot/internal/voice"
)

// Track is immutable once enqueued.
type Track struct {
	ID          string
	Title       string
	SourceURL   string
	Duration    time.Duration
	RequesterID string
}

// GuildQueue is the per-guild session. Only the Manager touches it, under the guild lock.
type GuildQueue struct {
	GuildID        string
	TextChannelID  string
	VoiceChannelID string
	SessionID      string
	Tracks         []Track
	Volume         int
	Repeat         RepeatMode
	State          State

	conn   voice.Connection
	player voice.Player
	playID uint64
	clock  playClock
}

func (q *GuildQueue) head() (Track, bool) {
	if len(q.Tracks) == 0 {
		return Track{}, false
	}
	return q.Tracks[0], true
}

// advance drops the finished head and applies the repeat mode.
// A skipped track is never replayed by repeat-track.
func (q *GuildQueue) advance(skipped bool) Track {
	finished := q.Tracks[0]
	q.Tracks = q.Tracks[1:]
	switch {
	case q.Repeat == RepeatTrack && !skipped:
		q.Tracks = append([]Track{finished}, q.Tracks...)
	case q.Repeat == RepeatQueue:
		q.Tracks = append(q.Tracks, finished)
	}
	return finished
}

// removeAt removes a pending track by its 1-based queue position. Position 1 is the head.
func (q *GuildQueue) removeAt(position int) (Track, error) {
	if position < 2 || position > len(q.Tracks) {
		return Track{}, ErrIndexOutOfRange
	}
	i := position - 1
	removed := q.Tracks[i]
	q.Tracks = append(q.Tracks[:i], q.Tracks[i+1:]...)
	return removed, nil
}

func (q *GuildQueue) clearPending() int {
	if len(q.Tracks) <= 1 {
		return 0
	}
	n := len(q.Tracks) - 1
	q.Tracks = q.Tracks[:1]
	return n
}

func (q *GuildQueue) shufflePending(shuffle func(n int, swap func(i, j int))) {
	if len(q.Tracks) <= 2 {
		return
	}
	pending := q.Tracks[1:]
	shuffle(len(pending), func(i, j int) {
		pending[i], pending[j] = pending[j], pending[i]
	})
}

type playClock struct {
	offset      time.Duration
	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
}

func (c *playClock) start(now time.Time, offset time.Duration) {
	*c = playClock{offset: offset, startedAt: now}
}

func (c *playClock) pause(now time.Time) {
	if c.pausedAt.IsZero() {
		c.pausedAt = now
	}
}

func (c *playClock) resume(now time.Time) {
	if !c.pausedAt.IsZero() {
		c.pausedTotal += now.Sub(c.pausedAt)
		c.pausedAt = time.Time{}
	}
}

func (c *playClock) position(now time.Time) time.Duration {
	if c.startedAt.IsZero() {
		return 0
	}
	end := now
	if !c.pausedAt.IsZero() {
		end = c.pausedAt
	}
	pos := c.offset + end.Sub(c.startedAt) - c.pausedTotal
	if pos < 0 {
		return 0
	}
	return pos
}

// Snapshot is a read-only copy of a guild queue.
type Snapshot struct {
	GuildID        string
	TextChannelID  string
	VoiceChannelID string
	State          State
	Repeat         RepeatMode
	Volume         int
	Tracks         []Track
	Position       time.Duration
}

func (s Snapshot) NowPlaying() (Track, bool) {
	if s.State == StateConnecting || len(s.Tracks) == 0 {
		return Track{}, false
	}
	return s.Tracks[0], true
}

func (q *GuildQueue) snapshot(now time.Time) Snapshot {
	tracks := make([]Track, len(q.Tracks))
	copy(tracks, q.Tracks)
	return Snapshot{
		GuildID:        q.GuildID,
		TextChannelID:  q.TextChannelID,
		VoiceChannelID: q.VoiceChannelID,
		State:          q.State,
		Repeat:         q.Repeat,
		Volume:         q.Volume,
		Tracks:         tracks,
		Position:       q.clock.position(now),
	}
}

package playback

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueOf(ids ...string) *GuildQueue {
	q := &GuildQueue{}
	for _, id := range ids {
		q.Tracks = append(q.Tracks, Track{ID: id})
	}
	return q
}

func trackIDs(q *GuildQueue) []string {
	ids := make([]string, 0, len(q.Tracks))
	for _, t := range q.Tracks {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name    string
		repeat  RepeatMode
		skipped bool
		want    []string
	}{
		{name: "off drops head", repeat: RepeatOff, want: []string{"b", "c"}},
		{name: "track replays head", repeat: RepeatTrack, want: []string{"a", "b", "c"}},
		{name: "track skip moves on", repeat: RepeatTrack, skipped: true, want: []string{"b", "c"}},
		{name: "queue rotates head", repeat: RepeatQueue, want: []string{"b", "c", "a"}},
		{name: "queue skip rotates head", repeat: RepeatQueue, skipped: true, want: []string{"b", "c", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queueOf("a", "b", "c")
			q.Repeat = tt.repeat
			finished := q.advance(tt.skipped)
			assert.Equal(t, "a", finished.ID)
			assert.Equal(t, tt.want, trackIDs(q))
		})
	}
}

func TestRemoveAt(t *testing.T) {
	q := queueOf("a", "b", "c")

	_, err := q.removeAt(1)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = q.removeAt(4)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	removed, err := q.removeAt(2)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.ID)
	assert.Equal(t, []string{"a", "c"}, trackIDs(q))
}

func TestClearPendingKeepsHead(t *testing.T) {
	q := queueOf("a", "b", "c")
	assert.Equal(t, 2, q.clearPending())
	assert.Equal(t, []string{"a"}, trackIDs(q))
	assert.Equal(t, 0, q.clearPending())
}

func TestPlayClock(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var c playClock
	assert.Equal(t, time.Duration(0), c.position(base))

	c.start(base, 10*time.Second)
	assert.Equal(t, 15*time.Second, c.position(base.Add(5*time.Second)))

	c.pause(base.Add(5 * time.Second))
	c.pause(base.Add(8 * time.Second))
	assert.Equal(t, 15*time.Second, c.position(base.Add(20*time.Second)))

	c.resume(base.Add(20 * time.Second))
	assert.Equal(t, 17*time.Second, c.position(base.Add(22*time.Second)))
}

func TestParseRepeatMode(t *testing.T) {
	for in, want := range map[string]RepeatMode{
		"off": RepeatOff, "None": RepeatOff,
		"track": RepeatTrack, " song ": RepeatTrack,
		"QUEUE": RepeatQueue, "all": RepeatQueue,
	} {
		got, err := ParseRepeatMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseRepeatMode("forever")
	assert.Error(t, err)
}

func TestSnapshotNowPlaying(t *testing.T) {
	snap := Snapshot{State: StateConnecting, Tracks: []Track{{ID: "a"}}}
	_, ok := snap.NowPlaying()
	assert.False(t, ok)

	snap.State = StatePaused
	track, ok := snap.NowPlaying()
	assert.True(t, ok)
	assert.Equal(t, "a", track.ID)
}

package playback

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/foxseedlab/vibebot/internal/media"
	"github.com/foxseedlab/vibebot/internal/syncutil"
	"github.com/foxseedlab/vibebot/internal/voice"
	"github.com/google/uuid"
)

const (
	MinVolume = 0
	MaxVolume = 200
)

// Notifier posts queue status to a text channel. Failures are the implementation's to log.
type Notifier interface {
	NowPlaying(ctx context.Context, textChannelID string, track Track)
	QueueFinished(ctx context.Context, textChannelID string)
	TrackFailed(ctx context.Context, textChannelID string, track Track, err error)
	SessionFailed(ctx context.Context, textChannelID string, err error)
}

type Options struct {
	DefaultVolume  int
	MaxQueueLength int
}

type EnqueueRequest struct {
	GuildID        string
	TextChannelID  string
	RequesterID    string
	VoiceChannelID string
	Query          string
}

type EnqueueResult struct {
	Tracks []Track
	// Position is the 1-based queue position of the first added track.
	Position int
	// NowPlaying is set when the first added track is, or becomes once connected, the playing track.
	NowPlaying bool
}

func (r EnqueueResult) Track() Track {
	if len(r.Tracks) == 0 {
		return Track{}
	}
	return r.Tracks[0]
}

type Manager struct {
	transport voice.Transport
	resolver  media.Resolver
	notifier  Notifier
	opts      Options

	locks  *syncutil.KeyedMutex
	mu     sync.RWMutex
	queues map[string]*GuildQueue

	now     func() time.Time
	newID   func() string
	shuffle func(n int, swap func(i, j int))
}

func NewManager(transport voice.Transport, resolver media.Resolver, notifier Notifier, opts Options) *Manager {
	return &Manager{
		transport: transport,
		resolver:  resolver,
		notifier:  notifier,
		opts:      opts,
		locks:     syncutil.NewKeyedMutex(),
		queues:    make(map[string]*GuildQueue),
		now:       time.Now,
		newID:     uuid.NewString,
		shuffle:   rand.Shuffle,
	}
}

func (m *Manager) get(guildID string) *GuildQueue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queues[guildID]
}

func (m *Manager) put(q *GuildQueue) {
	m.mu.Lock()
	m.queues[q.GuildID] = q
	m.mu.Unlock()
}

func (m *Manager) drop(guildID string) {
	m.mu.Lock()
	delete(m.queues, guildID)
	m.mu.Unlock()
}

func (m *Manager) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	return m.enqueue(ctx, req, func(ctx context.Context) ([]media.Item, error) {
		item, err := m.resolver.Resolve(ctx, req.Query)
		if err != nil {
			return nil, err
		}
		return []media.Item{item}, nil
	})
}

func (m *Manager) EnqueuePlaylist(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	return m.enqueue(ctx, req, func(ctx context.Context) ([]media.Item, error) {
		return m.resolver.ResolvePlaylist(ctx, req.Query)
	})
}

func (m *Manager) enqueue(ctx context.Context, req EnqueueRequest, resolve func(context.Context) ([]media.Item, error)) (EnqueueResult, error) {
	if req.VoiceChannelID == "" {
		return EnqueueResult{}, ErrNotInVoiceChannel
	}

	unlock := m.locks.Lock(req.GuildID)
	defer unlock()

	q := m.get(req.GuildID)
	if q == nil {
		ok, err := m.transport.CanJoin(req.VoiceChannelID)
		if err != nil {
			return EnqueueResult{}, errors.Wrap(err, "failed to check voice permissions")
		}
		if !ok {
			return EnqueueResult{}, ErrMissingVoicePermissions
		}
	}

	items, err := resolve(ctx)
	if err != nil {
		return EnqueueResult{}, errors.Mark(errors.Wrapf(err, "failed to resolve %q", req.Query), ErrResolution)
	}
	if len(items) == 0 {
		return EnqueueResult{}, errors.Mark(errors.Wrapf(media.ErrNoResults, "failed to resolve %q", req.Query), ErrResolution)
	}

	queued := 0
	if q != nil {
		queued = len(q.Tracks)
	}
	if m.opts.MaxQueueLength > 0 && queued+len(items) > m.opts.MaxQueueLength {
		return EnqueueResult{}, ErrQueueFull
	}

	tracks := make([]Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, Track{
			ID:          m.newID(),
			Title:       item.Title,
			SourceURL:   item.SourceURL,
			Duration:    item.Duration,
			RequesterID: req.RequesterID,
		})
	}

	// A queue entry is dropped together with its last track, so an existing
	// queue already has a head and appended tracks only wait behind it.
	if q != nil {
		q.Tracks = append(q.Tracks, tracks...)
		slog.Info("tracks enqueued", "guild_id", q.GuildID, "session_id", q.SessionID, "count", len(tracks), "queue_length", len(q.Tracks))
		return EnqueueResult{Tracks: tracks, Position: queued + 1}, nil
	}

	q = &GuildQueue{
		GuildID:        req.GuildID,
		TextChannelID:  req.TextChannelID,
		VoiceChannelID: req.VoiceChannelID,
		SessionID:      m.newID(),
		Tracks:         tracks,
		Volume:         m.opts.DefaultVolume,
		Repeat:         RepeatOff,
		State:          StateConnecting,
	}
	conn, err := m.transport.Join(ctx, voice.JoinRequest{
		GuildID:   q.GuildID,
		ChannelID: q.VoiceChannelID,
		SessionID: q.SessionID,
	}, m.HandleVoiceEvent)
	if err != nil {
		slog.Error("failed to join voice channel", "error", err, "guild_id", q.GuildID, "channel_id", q.VoiceChannelID)
		return EnqueueResult{}, errors.Mark(errors.Wrap(err, "failed to join voice channel"), ErrConnection)
	}
	q.conn = conn
	q.player = conn.NewPlayer()
	m.put(q)
	slog.Info("guild queue created", "guild_id", q.GuildID, "channel_id", q.VoiceChannelID, "session_id", q.SessionID, "count", len(tracks))

	return EnqueueResult{Tracks: tracks, Position: 1, NowPlaying: true}, nil
}

// HandleVoiceEvent applies a transport event. Events for another session or an older Play call are ignored.
func (m *Manager) HandleVoiceEvent(ev voice.Event) {
	unlock := m.locks.Lock(ev.GuildID)
	defer unlock()

	q := m.get(ev.GuildID)
	if q == nil || (ev.SessionID != "" && ev.SessionID != q.SessionID) {
		slog.Debug("ignoring stale voice event", "guild_id", ev.GuildID, "session_id", ev.SessionID, "kind", ev.Kind.String())
		return
	}
	ctx := context.Background()

	switch ev.Kind {
	case voice.EventReady:
		if q.State != StateConnecting {
			return
		}
		slog.Info("voice connection ready", "guild_id", q.GuildID, "session_id", q.SessionID)
		m.playHead(ctx, q)
	case voice.EventTrackEnded:
		if q.State == StateConnecting || ev.PlayID != q.playID {
			return
		}
		if ev.Err != nil {
			head, _ := q.head()
			slog.Warn("track failed", "error", ev.Err, "guild_id", q.GuildID, "track_id", head.ID)
			m.notifier.TrackFailed(ctx, q.TextChannelID, head, ev.Err)
			q.Tracks = q.Tracks[1:]
			m.playHead(ctx, q)
			return
		}
		q.advance(false)
		m.playHead(ctx, q)
	case voice.EventTransportError:
		slog.Error("voice transport error", "error", ev.Err, "guild_id", q.GuildID, "session_id", q.SessionID, "state", q.State.String())
		m.teardown(q)
		m.notifier.SessionFailed(ctx, q.TextChannelID, errors.Mark(errors.Wrap(ev.Err, "voice transport failed"), ErrConnection))
	case voice.EventDisconnected:
		if q.State == StateConnecting {
			return
		}
		if ev.ChannelID != "" && ev.ChannelID != q.VoiceChannelID {
			return
		}
		slog.Info("voice connection closed externally", "guild_id", q.GuildID, "session_id", q.SessionID)
		m.teardown(q)
		m.notifier.SessionFailed(ctx, q.TextChannelID, errors.Mark(errors.New("disconnected from voice channel"), ErrConnection))
	}
}

// playHead starts the head track, dropping tracks the player refuses. An empty queue tears the session down.
func (m *Manager) playHead(ctx context.Context, q *GuildQueue) {
	for {
		head, ok := q.head()
		if !ok {
			m.teardown(q)
			m.notifier.QueueFinished(ctx, q.TextChannelID)
			return
		}
		q.playID++
		err := q.player.Play(voice.PlayRequest{
			PlayID:    q.playID,
			SourceURL: head.SourceURL,
			Volume:    q.Volume,
		})
		if err != nil {
			slog.Warn("failed to start track", "error", err, "guild_id", q.GuildID, "track_id", head.ID)
			m.notifier.TrackFailed(ctx, q.TextChannelID, head, err)
			q.Tracks = q.Tracks[1:]
			continue
		}
		q.State = StatePlaying
		q.clock.start(m.now(), 0)
		slog.Info("track started", "guild_id", q.GuildID, "session_id", q.SessionID, "track_id", head.ID, "title", head.Title)
		m.notifier.NowPlaying(ctx, q.TextChannelID, head)
		return
	}
}

func (m *Manager) teardown(q *GuildQueue) {
	if q.player != nil {
		q.player.Stop()
	}
	if q.conn != nil {
		q.conn.Destroy()
	}
	q.Tracks = nil
	q.State = StateIdle
	m.drop(q.GuildID)
	slog.Info("guild queue torn down", "guild_id", q.GuildID, "session_id", q.SessionID)
}

// Skip ends the current track. Repeat-track does not replay it; repeat-queue moves it to the tail.
func (m *Manager) Skip(ctx context.Context, guildID string) (Track, error) {
	unlock := m.locks.Lock(guildID)
	defer unlock()

	q := m.get(guildID)
	if q == nil {
		return Track{}, ErrNoActiveQueue
	}
	if q.State == StateConnecting {
		return Track{}, ErrNotPlaying
	}
	q.player.Stop()
	skipped := q.advance(true)
	m.playHead(ctx, q)
	return skipped, nil
}

func (m *Manager) Stop(ctx context.Context, guildID string) error {
	unlock := m.locks.Lock(guildID)
	defer unlock()

	q := m.get(guildID)
	if q == nil {
		return ErrNoActiveQueue
	}
	m.teardown(q)
	return nil
}

func (m *Manager) Pause(ctx context.Context, guildID string) error {
	return m.withPlaying(guildID, func(q *GuildQueue) error {
		if q.State == StatePaused {
			return nil
		}
		q.player.SetPaused(true)
		q.clock.pause(m.now())
		q.State = StatePaused
		return nil
	})
}

func (m *Manager) Resume(ctx context.Context, guildID string) error {
	return m.withPlaying(guildID, func(q *GuildQueue) error {
		if q.State == StatePlaying {
			return nil
		}
		q.player.SetPaused(false)
		q.clock.resume(m.now())
		q.State = StatePlaying
		return nil
	})
}

func (m *Manager) SetVolume(ctx context.Context, guildID string, volume int) error {
	if volume < MinVolume || volume > MaxVolume {
		return errors.Wrapf(ErrInvalidVolume, "volume %d", volume)
	}
	return m.withQueue(guildID, func(q *GuildQueue) error {
		q.Volume = volume
		if q.player != nil {
			q.player.SetVolume(volume)
		}
		return nil
	})
}

// Seek restarts the current track at offset. Seeking a paused track resumes it.
func (m *Manager) Seek(ctx context.Context, guildID string, offset time.Duration) error {
	if offset < 0 {
		return errors.Wrapf(ErrInvalidSeek, "offset %s", offset)
	}
	return m.withPlaying(guildID, func(q *GuildQueue) error {
		head, _ := q.head()
		if head.Duration > 0 && offset >= head.Duration {
			return errors.Wrapf(ErrInvalidSeek, "offset %s beyond duration %s", offset, head.Duration)
		}
		q.playID++
		if err := q.player.Play(voice.PlayRequest{
			PlayID:    q.playID,
			SourceURL: head.SourceURL,
			Offset:    offset,
			Volume:    q.Volume,
		}); err != nil {
			return errors.Wrap(err, "failed to seek")
		}
		q.State = StatePlaying
		q.clock.start(m.now(), offset)
		return nil
	})
}

func (m *Manager) SetRepeatMode(ctx context.Context, guildID string, mode RepeatMode) error {
	return m.withQueue(guildID, func(q *GuildQueue) error {
		q.Repeat = mode
		return nil
	})
}

// Remove drops the track at a 1-based position. The playing head cannot be removed.
func (m *Manager) Remove(ctx context.Context, guildID string, position int) (Track, error) {
	var removed Track
	err := m.withQueue(guildID, func(q *GuildQueue) error {
		t, err := q.removeAt(position)
		if err != nil {
			return errors.Wrapf(err, "position %d of %d", position, len(q.Tracks))
		}
		removed = t
		return nil
	})
	return removed, err
}

// Clear drops every track but the playing head and returns how many were dropped.
func (m *Manager) Clear(ctx context.Context, guildID string) (int, error) {
	var n int
	err := m.withQueue(guildID, func(q *GuildQueue) error {
		n = q.clearPending()
		return nil
	})
	return n, err
}

func (m *Manager) Shuffle(ctx context.Context, guildID string) error {
	return m.withQueue(guildID, func(q *GuildQueue) error {
		q.shufflePending(m.shuffle)
		return nil
	})
}

func (m *Manager) Snapshot(guildID string) (Snapshot, bool) {
	unlock := m.locks.Lock(guildID)
	defer unlock()

	q := m.get(guildID)
	if q == nil {
		return Snapshot{}, false
	}
	return q.snapshot(m.now()), true
}

func (m *Manager) ActiveGuilds() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.queues))
	for id := range m.queues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close tears down every session.
func (m *Manager) Close() {
	for _, guildID := range m.ActiveGuilds() {
		unlock := m.locks.Lock(guildID)
		if q := m.get(guildID); q != nil {
			m.teardown(q)
		}
		unlock()
	}
}

func (m *Manager) withQueue(guildID string, fn func(q *GuildQueue) error) error {
	unlock := m.locks.Lock(guildID)
	defer unlock()

	q := m.get(guildID)
	if q == nil {
		return ErrNoActiveQueue
	}
	return fn(q)
}

func (m *Manager) withPlaying(guildID string, fn func(q *GuildQueue) error) error {
	return m.withQueue(guildID, func(q *GuildQueue) error {
		if q.State == StateConnecting {
			return ErrNotPlaying
		}
		return fn(q)
	})
}

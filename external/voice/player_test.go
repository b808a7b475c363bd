package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/vibebot/internal/audio"
	"github.com/foxseedlab/vibebot/internal/media"
	"github.com/foxseedlab/vibebot/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVoiceConnection struct {
	mu           sync.Mutex
	frames       int
	sendErr      error
	disconnected int
}

func (v *fakeVoiceConnection) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disconnected++
	return nil
}

func (v *fakeVoiceConnection) Speaking(bool) error { return nil }

func (v *fakeVoiceConnection) SendOpus(ctx context.Context, _ []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sendErr != nil {
		return v.sendErr
	}
	v.frames++
	return ctx.Err()
}

func (v *fakeVoiceConnection) sent() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

type fakeEncoder struct {
	mu    sync.Mutex
	first []int16
}

func (e *fakeEncoder) Encode(pcm []int16) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.first == nil {
		e.first = append([]int16(nil), pcm[:4]...)
	}
	return []byte{0xf8, 0xff, 0xfe}, nil
}

type stubResolver struct {
	err error
}

func (r stubResolver) Resolve(context.Context, string) (media.Item, error) { return media.Item{}, nil }
func (r stubResolver) ResolvePlaylist(context.Context, string) ([]media.Item, error) {
	return nil, nil
}
func (r stubResolver) StreamURL(_ context.Context, sourceURL string) (string, error) {
	return sourceURL + "#stream", r.err
}

func pcmFrames(n int, sample int16) []byte {
	buf := make([]byte, n*audio.FrameBytes)
	for i := 0; i < len(buf); i += 2 {
		binary.LittleEndian.PutUint16(buf[i:], uint16(sample))
	}
	return buf
}

type testRig struct {
	conn    *connection
	vc      *fakeVoiceConnection
	encoder *fakeEncoder
	events  chan voice.Event
	opened  chan time.Duration
}

func newTestRig(t *testing.T, resolver media.Resolver, open pcmOpener) *testRig {
	t.Helper()
	rig := &testRig{
		vc:      &fakeVoiceConnection{},
		encoder: &fakeEncoder{},
		events:  make(chan voice.Event, 8),
		opened:  make(chan time.Duration, 8),
	}
	transport := &DiscordTransport{
		resolver:   resolver,
		newEncoder: func() (audio.Encoder, error) { return rig.encoder, nil },
		openPCM: func(ctx context.Context, streamURL string, offset time.Duration) (io.ReadCloser, func() error, error) {
			rig.opened <- offset
			return open(ctx, streamURL, offset)
		},
	}
	rig.conn = &connection{
		transport: transport,
		vc:        rig.vc,
		req:       voice.JoinRequest{GuildID: "guild-1", ChannelID: "vc-1", SessionID: "session-1"},
		sink:      func(ev voice.Event) { rig.events <- ev },
	}
	return rig
}

func (r *testRig) nextEvent(t *testing.T) voice.Event {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for voice event")
		return voice.Event{}
	}
}

func (r *testRig) assertNoEvent(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.events:
		assert.Failf(t, "unexpected voice event", "%+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func staticPCM(data []byte) pcmOpener {
	return func(context.Context, string, time.Duration) (io.ReadCloser, func() error, error) {
		return io.NopCloser(bytes.NewReader(data)), func() error { return nil }, nil
	}
}

func blockingPCM() pcmOpener {
	return func(ctx context.Context, _ string, _ time.Duration) (io.ReadCloser, func() error, error) {
		pr, pw := io.Pipe()
		go func() {
			_, _ = pw.Write(pcmFrames(1, 100))
			<-ctx.Done()
			_ = pw.CloseWithError(ctx.Err())
		}()
		return pr, func() error { return nil }, nil
	}
}

func TestPlayer_EmitsTrackEndedAfterLastFrame(t *testing.T) {
	rig := newTestRig(t, stubResolver{}, staticPCM(pcmFrames(5, 1000)))
	p := rig.conn.NewPlayer()

	require.NoError(t, p.Play(voice.PlayRequest{PlayID: 7, SourceURL: "https://media.example/a", Volume: 50}))

	ev := rig.nextEvent(t)
	assert.Equal(t, voice.EventTrackEnded, ev.Kind)
	assert.Equal(t, uint64(7), ev.PlayID)
	assert.Equal(t, "guild-1", ev.GuildID)
	assert.Equal(t, "session-1", ev.SessionID)
	assert.NoError(t, ev.Err)
	assert.Equal(t, 5, rig.vc.sent())
	assert.Equal(t, []int16{500, 500, 500, 500}, rig.encoder.first)
}

func TestPlayer_StopSuppressesTrackEnded(t *testing.T) {
	rig := newTestRig(t, stubResolver{}, blockingPCM())
	p := rig.conn.NewPlayer()

	require.NoError(t, p.Play(voice.PlayRequest{PlayID: 1, SourceURL: "https://media.example/a", Volume: 100}))
	<-rig.opened
	p.Stop()

	rig.assertNoEvent(t)
}

func TestPlayer_ReplacingStreamOnlyReportsNewOne(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	open := func(ctx context.Context, url string, offset time.Duration) (io.ReadCloser, func() error, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return blockingPCM()(ctx, url, offset)
		}
		return staticPCM(pcmFrames(2, 10))(ctx, url, offset)
	}
	rig := newTestRig(t, stubResolver{}, open)
	p := rig.conn.NewPlayer()

	require.NoError(t, p.Play(voice.PlayRequest{PlayID: 1, SourceURL: "https://media.example/a", Volume: 100}))
	<-rig.opened
	require.NoError(t, p.Play(voice.PlayRequest{PlayID: 2, SourceURL: "https://media.example/a", Offset: time.Minute, Volume: 100}))
	assert.Equal(t, time.Minute, <-rig.opened)

	ev := rig.nextEvent(t)
	assert.Equal(t, uint64(2), ev.PlayID)
	rig.assertNoEvent(t)
}

func TestPlayer_SendFailureIsTransportError(t *testing.T) {
	rig := newTestRig(t, stubResolver{}, staticPCM(pcmFrames(3, 1)))
	rig.vc.sendErr = errors.New("udp connection closed")
	p := rig.conn.NewPlayer()

	require.NoError(t, p.Play(voice.PlayRequest{PlayID: 1, SourceURL: "https://media.example/a", Volume: 100}))

	ev := rig.nextEvent(t)
	assert.Equal(t, voice.EventTransportError, ev.Kind)
	assert.EqualError(t, ev.Err, "udp connection closed")
}

func TestPlayer_StreamResolutionFailureEndsTrackWithError(t *testing.T) {
	rig := newTestRig(t, stubResolver{err: errors.New("video unavailable")}, staticPCM(nil))
	p := rig.conn.NewPlayer()

	require.NoError(t, p.Play(voice.PlayRequest{PlayID: 3, SourceURL: "https://media.example/a", Volume: 100}))

	ev := rig.nextEvent(t)
	assert.Equal(t, voice.EventTrackEnded, ev.Kind)
	assert.Equal(t, uint64(3), ev.PlayID)
	assert.Error(t, ev.Err)
}

func TestPlayer_PauseHoldsFrames(t *testing.T) {
	pr, pw := io.Pipe()
	open := func(context.Context, string, time.Duration) (io.ReadCloser, func() error, error) {
		return pr, func() error { return nil }, nil
	}
	rig := newTestRig(t, stubResolver{}, open)
	p := rig.conn.NewPlayer()
	require.NoError(t, p.Play(voice.PlayRequest{PlayID: 1, SourceURL: "https://media.example/a", Volume: 100}))

	_, err := pw.Write(pcmFrames(1, 1))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rig.vc.sent() == 1 }, time.Second, 5*time.Millisecond)

	p.SetPaused(true)
	go func() {
		_, _ = pw.Write(pcmFrames(3, 1))
	}()
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, rig.vc.sent(), 2, "at most the frame already being read is sent while paused")

	p.SetPaused(false)
	require.Eventually(t, func() bool { return rig.vc.sent() == 4 }, time.Second, 5*time.Millisecond)
	_ = pw.Close()

	ev := rig.nextEvent(t)
	assert.Equal(t, voice.EventTrackEnded, ev.Kind)
}

func TestConnectionDestroy_StopsPlayersAndDisconnectsOnce(t *testing.T) {
	rig := newTestRig(t, stubResolver{}, blockingPCM())
	p := rig.conn.NewPlayer()
	require.NoError(t, p.Play(voice.PlayRequest{PlayID: 1, SourceURL: "https://media.example/a", Volume: 100}))
	<-rig.opened

	rig.conn.Destroy()
	rig.conn.Destroy()

	rig.assertNoEvent(t)
	assert.Equal(t, 1, rig.vc.disconnected)
}

func TestApplyGain(t *testing.T) {
	samples := []int16{1000, -1000, 30000, -30000}
	applyGain(samples, 200)
	assert.Equal(t, []int16{2000, -2000, 32767, -32768}, samples)

	samples = []int16{1000, -1000}
	applyGain(samples, 0)
	assert.Equal(t, []int16{0, 0}, samples)
}

func TestFFmpegArgs_SeeksToOffset(t *testing.T) {
	args := ffmpegArgs("https://cdn.example/a", 90*time.Second)
	require.GreaterOrEqual(t, len(args), 2)
	assert.Equal(t, []string{"-ss", "90.000"}, args[:2])
	assert.Contains(t, args, "https://cdn.example/a")
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/foxseedlab/vibebot/internal/audio"
	"github.com/foxseedlab/vibebot/internal/voice"
)

// player streams one track at a time into the connection.
type player struct {
	conn   *connection
	volume atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	// resume is non-nil while paused and closed on resume.
	resume chan struct{}
}

func newPlayer(c *connection) *player {
	p := &player{conn: c}
	p.volume.Store(100)
	return p
}

func (p *player) Play(req voice.PlayRequest) error {
	if req.SourceURL == "" {
		return errors.New("empty source url")
	}
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.unpauseLocked()
	p.mu.Unlock()

	p.volume.Store(int32(req.Volume))
	go p.stream(ctx, req)
	return nil
}

func (p *player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.unpauseLocked()
}

func (p *player) SetPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if paused {
		if p.resume == nil {
			p.resume = make(chan struct{})
		}
		return
	}
	p.unpauseLocked()
}

func (p *player) SetVolume(volume int) {
	p.volume.Store(int32(volume))
}

func (p *player) unpauseLocked() {
	if p.resume != nil {
		close(p.resume)
		p.resume = nil
	}
}

func (p *player) pauseGate() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resume
}

func (p *player) stream(ctx context.Context, req voice.PlayRequest) {
	c := p.conn
	logAttrs := []any{"guild_id", c.req.GuildID, "session_id", c.req.SessionID, "play_id", req.PlayID}

	err := p.run(ctx, req)
	if ctx.Err() != nil {
		return
	}
	var transportErr *transportError
	if errors.As(err, &transportErr) {
		slog.Error("voice send failed", append(logAttrs, "error", err)...)
		c.emit(voice.Event{Kind: voice.EventTransportError, Err: transportErr.err})
		return
	}
	if err != nil {
		slog.Warn("track stream failed", append(logAttrs, "error", err)...)
	} else {
		slog.Debug("track stream finished", logAttrs...)
	}
	c.emit(voice.Event{Kind: voice.EventTrackEnded, PlayID: req.PlayID, Err: err})
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "voice transport: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func (p *player) run(ctx context.Context, req voice.PlayRequest) error {
	c := p.conn
	streamURL, err := c.transport.resolver.StreamURL(ctx, req.SourceURL)
	if err != nil {
		return fmt.Errorf("failed to resolve stream url: %w", err)
	}
	enc, err := c.transport.newEncoder()
	if err != nil {
		return err
	}
	pcm, wait, err := c.transport.openPCM(ctx, streamURL, req.Offset)
	if err != nil {
		return err
	}
	waited := false
	defer func() {
		_ = pcm.Close()
		if !waited {
			_ = wait()
		}
	}()

	if err := c.vc.Speaking(true); err != nil {
		return &transportError{err: err}
	}
	defer func() {
		_ = c.vc.Speaking(false)
	}()

	frames := 0
	buf := make([]byte, audio.FrameBytes)
	samples := make([]int16, audio.SamplesPerFrame*audio.Channels)
	for {
		if gate := p.pauseGate(); gate != nil {
			_ = c.vc.Speaking(false)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-gate:
			}
			_ = c.vc.Speaking(true)
		}

		if _, err := io.ReadFull(pcm, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("read error: %w", err)
		}
		decodePCM(buf, samples)
		applyGain(samples, int(p.volume.Load()))
		frame, err := enc.Encode(samples)
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}
		if err := c.vc.SendOpus(ctx, frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &transportError{err: err}
		}
		frames++
	}

	waited = true
	if err := wait(); err != nil && frames == 0 {
		return fmt.Errorf("decoder exited without audio: %w", err)
	}
	return nil
}

func decodePCM(buf []byte, samples []int16) {
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
}

// applyGain scales samples by volume percent, clipping at the int16 range.
func applyGain(samples []int16, volume int) {
	if volume == 100 {
		return
	}
	for i, s := range samples {
		v := int32(s) * int32(volume) / 100
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		samples[i] = int16(v)
	}
}

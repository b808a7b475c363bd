//go:build opus

package audio

import (
	"fmt"

	"github.com/foxseedlab/vibebot/internal/audio"
	"github.com/hraban/opus"
)

const maxOpusFrameBytes = 4000

type OpusEncoder struct {
	enc *opus.Encoder
	buf []byte
}

func NewOpusEncoder() (audio.Encoder, error) {
	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	return &OpusEncoder{enc: enc, buf: make([]byte, maxOpusFrameBytes)}, nil
}

func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	n, err := e.enc.Encode(pcm, e.buf)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, n)
	copy(frame, e.buf[:n])
	return frame, nil
}

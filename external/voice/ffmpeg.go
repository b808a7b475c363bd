package voice

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"

	"github.com/foxseedlab/vibebot/internal/audio"
)

// pcmOpener starts decoding streamURL from offset into s16le stereo 48kHz PCM.
// wait reports how the decoder exited and must be called after reading stops.
type pcmOpener func(ctx context.Context, streamURL string, offset time.Duration) (pcm io.ReadCloser, wait func() error, err error)

func ffmpegOpener(ffmpegPath string) pcmOpener {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return func(ctx context.Context, streamURL string, offset time.Duration) (io.ReadCloser, func() error, error) {
		cmd := exec.CommandContext(ctx, ffmpegPath, ffmpegArgs(streamURL, offset)...)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, nil, fmt.Errorf("stdout pipe error: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, nil, fmt.Errorf("ffmpeg start error: %w", err)
		}
		return stdout, cmd.Wait, nil
	}
}

func ffmpegArgs(streamURL string, offset time.Duration) []string {
	return []string{
		"-ss", fmt.Sprintf("%.3f", offset.Seconds()),
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", streamURL,
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-loglevel", "warning",
		"pipe:1",
	}
}

//go:build !opus

package audio

import (
	"errors"

	"github.com/foxseedlab/vibebot/internal/audio"
)

func NewOpusEncoder() (audio.Encoder, error) {
	return nil, errors.New("opus support is not compiled in; build with -tags opus")
}

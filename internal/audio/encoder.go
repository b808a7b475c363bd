package audio

const (
	SampleRate      = 48000
	Channels        = 2
	FrameSizeMs     = 20
	SamplesPerFrame = SampleRate * FrameSizeMs / 1000
	// FrameBytes is one 20ms frame of interleaved s16le stereo PCM.
	FrameBytes = SamplesPerFrame * Channels * 2
)

type Encoder interface {
	Encode(pcm []int16) ([]byte, error)
}

type EncoderFactory func() (Encoder, error)

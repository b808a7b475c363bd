package playback

import "github.com/cockroachdb/errors"

var (
	ErrPrecondition  = errors.New("precondition failed")
	ErrResolution    = errors.New("media resolution failed")
	ErrConnection    = errors.New("voice connection failed")
	ErrNoActiveQueue = errors.New("no active queue")

	ErrNotInVoiceChannel       = errors.Mark(errors.New("requester is not in a voice channel"), ErrPrecondition)
	ErrMissingVoicePermissions = errors.Mark(errors.New("missing connect or speak permission"), ErrPrecondition)

	ErrIndexOutOfRange = errors.New("queue index out of range")
	ErrInvalidVolume   = errors.New("volume out of range")
	ErrInvalidSeek     = errors.New("seek offset out of range")
	ErrQueueFull       = errors.New("queue is full")
	ErrNotPlaying      = errors.New("nothing is playing yet")
)

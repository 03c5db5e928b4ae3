package player

import (
	"github.com/cockroachdb/errors"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindUserInput
	KindPrecondition
	KindResource
	KindTransientStream
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindUserInput:
		return "user_input"
	case KindPrecondition:
		return "precondition"
	case KindResource:
		return "resource"
	case KindTransientStream:
		return "transient_stream"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidArgs       = errors.New("invalid arguments")
	ErrOutOfBounds       = errors.New("index out of bounds")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrUnknownSourceUser = errors.New("unknown source user")

	ErrNotPlaying      = errors.New("nothing is playing")
	ErrQueueEmpty      = errors.New("queue is empty")
	ErrGuessModeActive = errors.New("guess mode is active")
	ErrNotAQuizTrack   = errors.New("not a quiz track")
	ErrNotGuessable    = errors.New("track is not guessable")
	ErrNoSourceUsers   = errors.New("no source users configured")

	ErrVoiceChannelRequired = errors.New("voice channel required")
	ErrPermissionsDenied    = errors.New("missing voice permissions")
	ErrNoResults            = errors.New("no results")
	ErrQuizGenerationFailed = errors.New("quiz generation failed")
	ErrNoRelatedVideos      = errors.New("no related videos")

	ErrSessionClosed = errors.New("session closed")
)

var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidArgs, KindUserInput},
	{ErrOutOfBounds, KindUserInput},
	{ErrInvalidQuery, KindUserInput},
	{ErrUnknownSourceUser, KindUserInput},
	{ErrNotPlaying, KindPrecondition},
	{ErrQueueEmpty, KindPrecondition},
	{ErrGuessModeActive, KindPrecondition},
	{ErrNotAQuizTrack, KindPrecondition},
	{ErrNotGuessable, KindPrecondition},
	{ErrNoSourceUsers, KindPrecondition},
	{ErrVoiceChannelRequired, KindResource},
	{ErrPermissionsDenied, KindResource},
	{ErrNoResults, KindResource},
	{ErrQuizGenerationFailed, KindResource},
	{ErrNoRelatedVideos, KindResource},
	{ErrSessionClosed, KindFatal},
}

// kindError tags a cause with a Kind and optionally a sentinel it should
// match. Both the cause and the sentinel stay visible to errors.Is.
type kindError struct {
	kind     Kind
	sentinel error
	cause    error
}

func (e *kindError) Error() string { return e.cause.Error() }

func (e *kindError) Unwrap() error { return e.cause }

func (e *kindError) Is(target error) bool {
	return e.sentinel != nil && target == e.sentinel
}

// StreamError marks err as a transient playback failure.
func StreamError(err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: KindTransientStream, cause: err}
}

// markAs makes err match sentinel under errors.Is and classify as the
// sentinel's kind, keeping err's own chain.
func markAs(err, sentinel error) error {
	return &kindError{kind: KindOf(sentinel), sentinel: sentinel, cause: err}
}

func fatalf(format string, args ...any) error {
	return &kindError{kind: KindFatal, cause: errors.Newf(format, args...)}
}

// KindOf classifies err, looking through any wrapping. The outermost tag
// wins.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	for _, sk := range sentinelKinds {
		if errors.Is(err, sk.err) {
			return sk.kind
		}
	}
	return KindUnknown
}

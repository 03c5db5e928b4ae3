package player

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Resolver turns user queries into tracks and tracks into playable streams.
type Resolver interface {
	// Resolve fails with ErrNoResults when nothing matches.
	Resolve(ctx context.Context, query, requestor string) ([]Track, error)
	Stream(ctx context.Context, t Track) (StreamInfo, error)
	Related(ctx context.Context, t Track) ([]Track, error)
}

// Voice joins a guild voice channel on behalf of a user.
// Join fails with ErrVoiceChannelRequired or ErrPermissionsDenied.
type Voice interface {
	Join(ctx context.Context, guildID, userID string) (Conn, error)
}

type Conn interface {
	ChannelID() string
	// Play starts streaming in the background. ctx bounds the stream lifetime.
	Play(ctx context.Context, req StreamRequest, h StreamHandlers) (Playback, error)
	Disconnect() error
}

type StreamRequest struct {
	Track  Track
	URL    string
	Seek   time.Duration
	Volume float64
}

// StreamHandlers are invoked from transport goroutines.
type StreamHandlers struct {
	OnStart  func()
	OnFinish func()
	OnError  func(error)
}

type Playback interface {
	Pause()
	Resume()
	SetVolume(v float64)
	// Position is the absolute media position, seek offset included.
	Position() time.Duration
	Stop()
}

// QuizGenerator builds quiz tracks. An empty username picks a random anime.
type QuizGenerator interface {
	Generate(ctx context.Context, username string, guessMode bool) (Track, error)
	ValidateUser(ctx context.Context, username string) error
}

type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

func SystemClock() Clock { return systemClock{} }

type Deps struct {
	Resolver Resolver
	Voice    Voice
	Quiz     QuizGenerator
	Clock    Clock
	// Rand returns a fresh source per session; sessions never share one.
	Rand   func() *rand.Rand
	Logger *slog.Logger
}

type Options struct {
	DefaultVolume    float64
	DefaultGuessTime int
	EventBuffer      int
	OpTimeout        time.Duration
}

func (o Options) withDefaults() Options {
	if o.DefaultVolume <= 0 || o.DefaultVolume > 2 {
		o.DefaultVolume = 1
	}
	if o.DefaultGuessTime == 0 {
		o.DefaultGuessTime = 20
	}
	o.DefaultGuessTime = clampInt(o.DefaultGuessTime, minGuessTime, maxGuessTime)
	if o.EventBuffer <= 0 {
		o.EventBuffer = 64
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = 45 * time.Second
	}
	return o
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = SystemClock()
	}
	if d.Rand == nil {
		d.Rand = func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

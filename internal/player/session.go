package player

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	minGuessTime = 5
	maxGuessTime = 60
	maxVolume    = 2.0

	// guessGrace is playable time kept after the guess window on a random start.
	guessGrace = 5 * time.Second
	// advanceDelay separates the end of a guess window from the next quiz track.
	advanceDelay = 10 * time.Second

	maxStreamFailures = 5
)

// Session is one guild's playback context. Every mutation runs on the
// session goroutine; exported methods enqueue an operation and wait for it.
type Session struct {
	guildID string
	deps    Deps
	opts    Options
	log     *slog.Logger
	rng     *rand.Rand

	ctx     context.Context
	cancel  context.CancelFunc
	ops     chan func()
	events  chan Event
	stopped chan struct{}
	once    sync.Once

	// owned by the session goroutine
	queue    []Track
	current  int // may equal len(queue) after the queue is exhausted
	conn     Conn
	playback Playback
	playing  bool
	paused   bool
	volume   float64
	loop     LoopMode
	quiz     QuizConfig
	autoplay autoplayState

	trackToken   uint64 // bumped whenever a track is (re)started or left
	streamToken  uint64 // bumped whenever a stream is started or torn down
	guessTimer   Timer
	advanceTimer Timer
	failures     int // consecutive tracks that failed to stream
}

type autoplayState struct {
	enabled bool
	unique  bool
	window  int
	played  map[string]struct{}
}

func NewSession(guildID string, deps Deps, opts Options) *Session {
	deps = deps.withDefaults()
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		guildID: guildID,
		deps:    deps,
		opts:    opts,
		log:     deps.Logger.With("guildID", guildID),
		rng:     deps.Rand(),
		ctx:     ctx,
		cancel:  cancel,
		ops:     make(chan func(), 64),
		events:  make(chan Event, opts.EventBuffer),
		stopped: make(chan struct{}),
	}
	s.resetState()
	go s.run()
	return s
}

func (s *Session) resetState() {
	s.queue = nil
	s.current = -1
	s.volume = s.opts.DefaultVolume
	s.loop = LoopOff
	s.quiz = QuizConfig{
		GuessTime:    s.opts.DefaultGuessTime,
		SourceChance: 1,
	}
	s.autoplay = autoplayState{unique: true, played: make(map[string]struct{})}
}

func (s *Session) GuildID() string { return s.guildID }

// Events delivers domain events. The channel is closed when the session closes.
func (s *Session) Events() <-chan Event { return s.events }

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case fn := <-s.ops:
			fn()
		case <-s.ctx.Done():
			s.shutdown()
			return
		}
	}
}

func (s *Session) shutdown() {
	s.cancelTimers()
	s.stopPlayback()
	if s.conn != nil {
		if err := s.conn.Disconnect(); err != nil {
			s.log.Debug("disconnect on shutdown", "err", err)
		}
		s.conn = nil
	}
	s.playing = false
	close(s.events)
}

// Close stops the session goroutine and releases the voice connection.
func (s *Session) Close() {
	s.once.Do(s.cancel)
	<-s.stopped
}

// do runs fn on the session goroutine and waits for its result.
func (s *Session) do(ctx context.Context, fn func(ctx context.Context) error) error {
	errCh := make(chan error, 1)
	op := func() {
		// the caller may have given up while the op was queued
		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}
		errCh <- s.guard(ctx, fn)
	}
	select {
	case s.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrSessionClosed
	}
}

// post schedules fn without waiting. Used by timers and stream callbacks;
// failures are reported as ErrorEvent.
func (s *Session) post(fn func(ctx context.Context) error) {
	op := func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.opts.OpTimeout)
		defer cancel()
		if err := s.guard(ctx, fn); err != nil {
			s.report(err)
		}
	}
	select {
	case s.ops <- op:
		return
	case <-s.ctx.Done():
		return
	default:
	}
	go func() {
		select {
		case s.ops <- op:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Session) guard(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("session operation panicked", "panic", r, "stack", string(debug.Stack()))
			err = fatalf("session operation panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn("event dropped, consumer too slow", "event", ev.Type().String())
	}
}

func (s *Session) meta(c Caller) Meta { return Meta{GuildID: s.guildID, Caller: c} }

func (s *Session) report(err error) {
	if KindOf(err) == KindFatal {
		s.log.Error("spontaneous transition failed", "err", err)
	} else {
		s.log.Warn("spontaneous transition failed", "err", err)
	}
	s.emit(ErrorEvent{Meta: s.meta(Caller{}), Err: err})
}

func (s *Session) hasCurrent() bool {
	return s.current >= 0 && s.current < len(s.queue)
}

func (s *Session) currentTrack() *Track {
	if !s.hasCurrent() {
		return nil
	}
	return &s.queue[s.current]
}

func (s *Session) position() time.Duration {
	if s.playback == nil {
		return 0
	}
	return s.playback.Position()
}

func (s *Session) snapshot() Snapshot {
	q := make([]Track, len(s.queue))
	for i, t := range s.queue {
		q[i] = t.Clone()
	}
	cur := s.current
	if !s.hasCurrent() {
		cur = -1
	}
	snap := Snapshot{
		GuildID:      s.guildID,
		Queue:        q,
		CurrentIndex: cur,
		Connected:    s.conn != nil,
		Playing:      s.playing,
		Paused:       s.paused,
		Volume:       s.volume,
		Loop:         s.loop,
		Quiz:         s.quizConfig(),
		Autoplay:     s.autoplayConfig(),
		Position:     s.position(),
	}
	if s.conn != nil {
		snap.ChannelID = s.conn.ChannelID()
	}
	return snap
}

func (s *Session) quizConfig() QuizConfig {
	q := s.quiz
	q.SourceUsers = append([]string(nil), s.quiz.SourceUsers...)
	return q
}

func (s *Session) autoplayConfig() AutoplayConfig {
	return AutoplayConfig{
		Enabled: s.autoplay.enabled,
		Unique:  s.autoplay.unique,
		Window:  s.autoplay.window,
		Played:  len(s.autoplay.played),
	}
}

func (s *Session) State(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func(context.Context) error {
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// Disconnected injects a voice disconnect observed by the transport.
func (s *Session) Disconnected() {
	s.post(func(context.Context) error {
		if s.conn == nil {
			return nil
		}
		s.log.Info("voice connection lost")
		s.teardown(Caller{}, false)
		return nil
	})
}

// Reset disconnects and restores the session to its initial state.
func (s *Session) Reset(ctx context.Context) error {
	return s.do(ctx, func(context.Context) error {
		if s.conn != nil {
			s.teardown(Caller{}, true)
		}
		s.cancelTimers()
		s.resetState()
		s.emit(Cleared{Meta: s.meta(Caller{})})
		return nil
	})
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampFloat(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

func wrapIndex(err error, i int) error {
	return errors.Wrapf(err, "position %d", i+1)
}

func (s *Session) String() string {
	return fmt.Sprintf("session(%s)", s.guildID)
}

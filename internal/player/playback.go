package player

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ParseIndex parses a 1-based queue position typed by a user into a
// 0-based index. Bounds are not checked.
func ParseIndex(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidArgs, "%q is not a number", arg)
	}
	return n - 1, nil
}

func (s *Session) Jump(ctx context.Context, c Caller, index int) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.jump(ctx, c, index)
	})
}

// JumpArg jumps to a 1-based position given as text.
func (s *Session) JumpArg(ctx context.Context, c Caller, arg string) error {
	idx, err := ParseIndex(arg)
	if err != nil {
		return err
	}
	return s.Jump(ctx, c, idx)
}

// Skip reports whether a new track was started.
func (s *Session) Skip(ctx context.Context, c Caller) (bool, error) {
	var started bool
	err := s.do(ctx, func(ctx context.Context) error {
		if len(s.queue) == 0 && !s.quiz.Enabled {
			return ErrQueueEmpty
		}
		var err error
		started, err = s.skip(ctx, c)
		return err
	})
	return started, err
}

func (s *Session) Prev(ctx context.Context, c Caller) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.prev(ctx, c)
	})
}

func (s *Session) Stop(ctx context.Context, c Caller) error {
	return s.do(ctx, func(context.Context) error {
		if s.conn == nil {
			return ErrNotPlaying
		}
		s.teardown(c, true)
		return nil
	})
}

func (s *Session) Pause(ctx context.Context, c Caller) error {
	return s.do(ctx, func(context.Context) error {
		if err := s.requireSeekable(); err != nil {
			return err
		}
		if !s.paused {
			s.playback.Pause()
			s.paused = true
			s.emit(Paused{Meta: s.meta(c)})
		}
		return nil
	})
}

func (s *Session) Resume(ctx context.Context, c Caller) error {
	return s.do(ctx, func(context.Context) error {
		if err := s.requireSeekable(); err != nil {
			return err
		}
		if s.paused {
			s.playback.Resume()
			s.paused = false
			s.emit(Resumed{Meta: s.meta(c)})
		}
		return nil
	})
}

// SeekTo moves to an absolute position in milliseconds.
func (s *Session) SeekTo(ctx context.Context, c Caller, ms int64) error {
	return s.do(ctx, func(ctx context.Context) error {
		if err := s.requireSeekable(); err != nil {
			return err
		}
		return s.seekTo(ctx, c, time.Duration(ms)*time.Millisecond)
	})
}

// Seek moves relative to the current position.
func (s *Session) Seek(ctx context.Context, c Caller, deltaMs int64) error {
	return s.do(ctx, func(ctx context.Context) error {
		if err := s.requireSeekable(); err != nil {
			return err
		}
		return s.seekTo(ctx, c, s.position()+time.Duration(deltaMs)*time.Millisecond)
	})
}

func (s *Session) SetVolume(ctx context.Context, c Caller, v float64) (float64, error) {
	var out float64
	err := s.do(ctx, func(context.Context) error {
		s.volume = clampFloat(v, 0, maxVolume)
		if s.playback != nil {
			s.playback.SetVolume(s.volume)
		}
		out = s.volume
		s.emit(VolumeChanged{Meta: s.meta(c), Volume: s.volume})
		return nil
	})
	return out, err
}

func (s *Session) SetLoop(ctx context.Context, c Caller, mode LoopMode) error {
	return s.do(ctx, func(context.Context) error {
		if mode < LoopOff || mode > LoopQueue {
			return ErrInvalidArgs
		}
		s.loop = mode
		s.emit(LoopChanged{Meta: s.meta(c), Mode: mode})
		return nil
	})
}

func (s *Session) Position(ctx context.Context) (time.Duration, error) {
	var pos time.Duration
	err := s.do(ctx, func(context.Context) error {
		pos = s.position()
		return nil
	})
	return pos, err
}

// guessLocked reports whether the current track is an unrevealed guess track.
func (s *Session) guessLocked() bool {
	cur := s.currentTrack()
	return cur != nil && cur.Quiz != nil && cur.Quiz.Guessable && !cur.Quiz.Revealed
}

func (s *Session) requireSeekable() error {
	if !s.playing || s.playback == nil {
		return ErrNotPlaying
	}
	if s.guessLocked() {
		return ErrGuessModeActive
	}
	return nil
}

func (s *Session) jump(ctx context.Context, c Caller, index int) error {
	if index < 0 || index >= len(s.queue) {
		return wrapIndex(ErrOutOfBounds, index)
	}
	if err := s.ensureConn(ctx, c); err != nil {
		return err
	}
	s.leaveTrack(c)
	s.current = index
	return s.startTrack(ctx, c)
}

func (s *Session) ensureConn(ctx context.Context, c Caller) error {
	if s.conn != nil {
		return nil
	}
	if c.ID == "" {
		return ErrVoiceChannelRequired
	}
	conn, err := s.deps.Voice.Join(ctx, s.guildID, c.ID)
	if err != nil {
		return err
	}
	s.conn = conn
	s.log.Info("joined voice channel", "channelID", conn.ChannelID())
	return nil
}

// leaveTrack cancels the current track's timers. An unrevealed guess track
// that already started is revealed and GuessModeExpired is emitted.
func (s *Session) leaveTrack(c Caller) {
	s.cancelTimers()
	s.trackToken++
	cur := s.currentTrack()
	if cur == nil || cur.Quiz == nil {
		return
	}
	if cur.Quiz.Guessable && cur.Quiz.GuessStarted && !cur.Quiz.Revealed {
		s.queue[s.current] = RevealTrack(*cur)
		s.emit(GuessModeExpired{Meta: s.meta(c), Track: s.queue[s.current].Clone()})
	}
}

// startTrack plays queue[current] from the start, or from a random offset for
// guess tracks so the recognisable part is not always heard first.
func (s *Session) startTrack(ctx context.Context, c Caller) error {
	s.stopPlayback()
	s.cancelTimers()
	s.trackToken++
	t := s.currentTrack()

	var seek time.Duration
	if t.Quiz != nil && t.Quiz.Guessable && !t.Unknown() {
		window := t.Duration - (s.effectiveGuessTime(*t) + guessGrace)
		if window > 0 {
			seek = time.Duration(s.rng.Float64()*window.Seconds()) * time.Second
		}
	}

	if err := s.startStream(ctx, seek); err != nil {
		s.log.Warn("stream failed to start", "title", t.Title, "err", err)
		s.playing = false
		token := s.trackToken
		s.post(func(ctx context.Context) error {
			if token != s.trackToken {
				return nil
			}
			return s.skipAfterFailure(ctx)
		})
		return nil
	}

	if t.Source == SourceYouTube && t.VideoID != "" {
		s.autoplay.played[t.VideoID] = struct{}{}
	}
	s.log.Info("track start", "title", t.Title, "index", s.current, "seek", seek)
	s.emit(TrackStart{Meta: s.meta(c), Track: t.Clone(), Index: s.current})
	return nil
}

func (s *Session) streamInfo(ctx context.Context, t *Track) (StreamInfo, error) {
	if t.Stream != nil && t.Stream.URL != "" {
		return *t.Stream, nil
	}
	info, err := s.deps.Resolver.Stream(ctx, *t)
	if err != nil {
		return StreamInfo{}, StreamError(err)
	}
	t.Stream = &info
	if info.BackupURL != "" {
		t.BackupURL = info.BackupURL
	}
	return info, nil
}

// startStream (re)starts the transport for the current track at seek.
func (s *Session) startStream(ctx context.Context, seek time.Duration) error {
	t := s.currentTrack()
	info, err := s.streamInfo(ctx, t)
	if err != nil {
		return err
	}
	if seek == 0 {
		seek = info.Start
	}
	s.stopPlayback()
	s.streamToken++
	stream, token := s.streamToken, s.trackToken

	pb, err := s.conn.Play(s.ctx, StreamRequest{
		Track:  t.Clone(),
		URL:    info.URL,
		Seek:   seek,
		Volume: s.volume,
	}, StreamHandlers{
		OnStart: func() {
			s.post(func(context.Context) error {
				s.onStreamStart(stream, token)
				return nil
			})
		},
		OnFinish: func() {
			s.post(func(ctx context.Context) error {
				return s.onStreamFinish(ctx, stream)
			})
		},
		OnError: func(err error) {
			s.post(func(ctx context.Context) error {
				return s.onStreamError(ctx, stream, err)
			})
		},
	})
	if err != nil {
		return StreamError(err)
	}
	s.playback = pb
	s.playing = true
	s.paused = false
	return nil
}

func (s *Session) stopPlayback() {
	if s.playback != nil {
		s.playback.Stop()
		s.playback = nil
	}
	s.streamToken++
	s.paused = false
}

func (s *Session) seekTo(ctx context.Context, c Caller, pos time.Duration) error {
	t := s.currentTrack()
	hi := pos
	if !t.Unknown() {
		hi = t.Duration
	}
	pos = max(0, min(pos, hi))
	if err := s.startStream(ctx, pos); err != nil {
		return err
	}
	s.emit(Seeked{Meta: s.meta(c), Position: pos})
	return nil
}

func (s *Session) onStreamStart(stream, token uint64) {
	if stream != s.streamToken || token != s.trackToken || !s.hasCurrent() {
		return
	}
	s.failures = 0
	t := s.currentTrack()
	if t.Quiz == nil || !t.Quiz.Guessable || t.Quiz.GuessStarted {
		return
	}
	t.Quiz.GuessStarted = true
	s.armGuessTimer(token, s.effectiveGuessTime(*t))
}

func (s *Session) onStreamFinish(ctx context.Context, stream uint64) error {
	if stream != s.streamToken {
		return nil
	}
	s.playback = nil
	switch {
	case s.loop == LoopTrack && s.hasCurrent():
		return s.jump(ctx, Caller{}, s.current)
	case s.loop == LoopQueue && s.current == len(s.queue)-1 && len(s.queue) > 0:
		return s.jump(ctx, Caller{}, 0)
	}
	_, err := s.skip(ctx, Caller{})
	return err
}

func (s *Session) onStreamError(ctx context.Context, stream uint64, err error) error {
	if stream != s.streamToken {
		return nil
	}
	s.log.Warn("stream error, skipping", "err", err)
	s.playback = nil
	return s.skipAfterFailure(ctx)
}

// skipAfterFailure moves past a track whose stream failed. A run of failures
// ends playback instead of walking an endless quiz or autoplay chain.
func (s *Session) skipAfterFailure(ctx context.Context) error {
	s.failures++
	if s.failures >= maxStreamFailures {
		s.failures = 0
		s.exhaust(Caller{})
		return StreamError(errors.Newf("%d consecutive tracks failed to play", maxStreamFailures))
	}
	_, err := s.skip(ctx, Caller{})
	return err
}

func (s *Session) skip(ctx context.Context, c Caller) (bool, error) {
	if s.current+1 < len(s.queue) {
		return true, s.jump(ctx, c, s.current+1)
	}
	if s.quiz.Enabled {
		if _, err := s.addQuizTrack(ctx, c, ""); err != nil {
			s.exhaust(c)
			return false, err
		}
		if err := s.jump(ctx, c, len(s.queue)-1); err != nil {
			return false, err
		}
		return true, nil
	}
	if cur := s.currentTrack(); s.autoplay.enabled && cur != nil && cur.Source == SourceYouTube {
		next, err := s.pickRelated(ctx, c)
		if err != nil {
			s.exhaust(c)
			return false, err
		}
		s.appendTracks(c, []Track{next})
		if err := s.jump(ctx, c, len(s.queue)-1); err != nil {
			return false, err
		}
		return true, nil
	}
	s.exhaust(c)
	return false, nil
}

// exhaust parks current past the end and leaves the voice channel.
func (s *Session) exhaust(c Caller) {
	s.leaveTrack(c)
	s.current = len(s.queue)
	if s.conn != nil {
		s.teardown(c, true)
	}
}

func (s *Session) prev(ctx context.Context, c Caller) error {
	if i := s.current - 1; i >= 0 && i < len(s.queue) {
		return s.jump(ctx, c, i)
	}
	s.leaveTrack(c)
	s.current = -1
	if s.conn != nil {
		s.teardown(c, true)
	}
	return nil
}

// teardown drops the voice connection. Queue and index are kept; an open
// guess is revealed first.
func (s *Session) teardown(c Caller, initiated bool) {
	s.leaveTrack(c)
	s.stopPlayback()
	conn := s.conn
	s.conn = nil
	s.playing = false
	if initiated && conn != nil {
		if err := conn.Disconnect(); err != nil {
			s.log.Warn("voice disconnect failed", "err", err)
		}
	}
	s.log.Info("disconnected")
	s.emit(Disconnected{Meta: s.meta(c)})
}

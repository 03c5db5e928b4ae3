package player

import (
	"context"
	"time"
)

// Guess and advance timers are scoped to a track instance: each callback
// captures trackToken and does nothing once the session moved on.

func (s *Session) cancelTimers() {
	if s.guessTimer != nil {
		s.guessTimer.Stop()
		s.guessTimer = nil
	}
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
}

// effectiveGuessTime is min(duration-5s, configured guess time).
func (s *Session) effectiveGuessTime(t Track) time.Duration {
	gt := time.Duration(s.quiz.GuessTime) * time.Second
	if t.Unknown() {
		return gt
	}
	return max(time.Second, min(t.Duration-guessGrace, gt))
}

func (s *Session) armGuessTimer(token uint64, d time.Duration) {
	if s.guessTimer != nil {
		s.guessTimer.Stop()
	}
	s.guessTimer = s.deps.Clock.AfterFunc(d, func() {
		s.post(func(ctx context.Context) error {
			return s.onGuessTimer(ctx, token)
		})
	})
}

func (s *Session) armAdvanceTimer(token uint64) {
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
	}
	s.advanceTimer = s.deps.Clock.AfterFunc(advanceDelay, func() {
		s.post(func(ctx context.Context) error {
			return s.onAdvanceTimer(ctx, token)
		})
	})
}

func (s *Session) timerValid(token uint64) bool {
	return token == s.trackToken && s.playing && s.hasCurrent()
}

func (s *Session) onGuessTimer(_ context.Context, token uint64) error {
	if !s.timerValid(token) {
		return nil
	}
	s.guessTimer = nil
	cur := s.currentTrack()
	if cur.Quiz == nil || cur.Quiz.Revealed {
		return nil
	}
	s.queue[s.current] = RevealTrack(*cur)
	revealed := s.queue[s.current]
	s.log.Info("guess window closed", "title", revealed.Title, "guesses", len(revealed.Quiz.Guesses))
	s.emit(GuessEnded{
		Meta:    s.meta(Caller{}),
		Track:   revealed.Clone(),
		Guesses: append([]Guess(nil), revealed.Quiz.Guesses...),
	})
	s.armAdvanceTimer(token)
	return nil
}

func (s *Session) onAdvanceTimer(ctx context.Context, token uint64) error {
	if !s.timerValid(token) {
		return nil
	}
	s.advanceTimer = nil
	if !s.quiz.Enabled || !s.quiz.GuessMode || s.current < len(s.queue)-1 {
		return nil
	}
	if _, err := s.addQuizTrack(ctx, Caller{}, ""); err != nil {
		return err
	}
	return s.jump(ctx, Caller{}, len(s.queue)-1)
}

package player

import (
	"context"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/sonroyaalmerol/kumaquiz/internal/similarity"
)

// MatchThreshold is the minimum similarity for a guess to count.
const MatchThreshold = 0.4

// RandomRequestor is the requestor shown on quiz tracks without a source user.
const RandomRequestor = "RANDOM"

func (s *Session) ToggleQuiz(ctx context.Context, c Caller) (bool, error) {
	var on bool
	err := s.do(ctx, func(context.Context) error {
		s.quiz.Enabled = !s.quiz.Enabled
		on = s.quiz.Enabled
		s.emit(QuizToggled{Meta: s.meta(c), Enabled: on})
		return nil
	})
	return on, err
}

func (s *Session) ToggleGuessMode(ctx context.Context, c Caller) (bool, error) {
	var on bool
	err := s.do(ctx, func(context.Context) error {
		s.quiz.GuessMode = !s.quiz.GuessMode
		on = s.quiz.GuessMode
		s.emit(GuessModeToggled{Meta: s.meta(c), Enabled: on})
		return nil
	})
	return on, err
}

// SetGuessTime clamps seconds to [5,60] and returns the stored value.
func (s *Session) SetGuessTime(ctx context.Context, c Caller, seconds int) (int, error) {
	var out int
	err := s.do(ctx, func(context.Context) error {
		s.quiz.GuessTime = clampInt(seconds, minGuessTime, maxGuessTime)
		out = s.quiz.GuessTime
		s.emit(GuessTimeChanged{Meta: s.meta(c), Seconds: out})
		return nil
	})
	return out, err
}

// SetSourceChance takes a percentage and stores it as a probability.
func (s *Session) SetSourceChance(ctx context.Context, c Caller, percent float64) (float64, error) {
	var out float64
	err := s.do(ctx, func(context.Context) error {
		s.quiz.SourceChance = clampFloat(percent/100, 0, 1)
		out = s.quiz.SourceChance
		s.emit(SourceChanceChanged{Meta: s.meta(c), Chance: out})
		return nil
	})
	return out, err
}

// AddSourceUser validates username with the quiz generator before adding it.
func (s *Session) AddSourceUser(ctx context.Context, c Caller, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrInvalidArgs
	}
	return s.do(ctx, func(ctx context.Context) error {
		if slices.Contains(s.quiz.SourceUsers, username) {
			return nil
		}
		if err := s.deps.Quiz.ValidateUser(ctx, username); err != nil {
			return markAs(err, ErrUnknownSourceUser)
		}
		s.quiz.SourceUsers = append(s.quiz.SourceUsers, username)
		s.emit(SourceUsersChanged{Meta: s.meta(c), Users: slices.Clone(s.quiz.SourceUsers)})
		return nil
	})
}

func (s *Session) RemoveSourceUser(ctx context.Context, c Caller, username string) error {
	return s.do(ctx, func(context.Context) error {
		i := slices.Index(s.quiz.SourceUsers, strings.TrimSpace(username))
		if i < 0 {
			return errors.Wrapf(ErrUnknownSourceUser, "%q", username)
		}
		s.quiz.SourceUsers = slices.Delete(s.quiz.SourceUsers, i, i+1)
		s.emit(SourceUsersChanged{Meta: s.meta(c), Users: slices.Clone(s.quiz.SourceUsers)})
		return nil
	})
}

func (s *Session) ClearSourceUsers(ctx context.Context, c Caller) error {
	return s.do(ctx, func(context.Context) error {
		if len(s.quiz.SourceUsers) == 0 {
			return ErrNoSourceUsers
		}
		s.quiz.SourceUsers = nil
		s.emit(SourceUsersChanged{Meta: s.meta(c)})
		return nil
	})
}

// AddQuizTrack generates a quiz track and appends it. An empty username lets
// the session pick one of its source users.
func (s *Session) AddQuizTrack(ctx context.Context, c Caller, username string) (Track, error) {
	var out Track
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.addQuizTrack(ctx, c, strings.TrimSpace(username))
		return err
	})
	return out, err
}

func (s *Session) addQuizTrack(ctx context.Context, c Caller, username string) (Track, error) {
	switch {
	case username == "":
		if len(s.quiz.SourceUsers) > 0 && s.rng.Float64() < s.quiz.SourceChance {
			username = s.quiz.SourceUsers[s.rng.IntN(len(s.quiz.SourceUsers))]
		}
	case !slices.Contains(s.quiz.SourceUsers, username):
		return Track{}, errors.Wrapf(ErrUnknownSourceUser, "%q", username)
	}

	s.emit(QuizGenerating{Meta: s.meta(c), Username: username})
	t, err := s.deps.Quiz.Generate(ctx, username, s.quiz.GuessMode)
	if err != nil && username != "" {
		s.log.Warn("quiz generation failed, retrying with a random pick", "username", username, "err", err)
		t, err = s.deps.Quiz.Generate(ctx, "", s.quiz.GuessMode)
	}
	if err != nil {
		return Track{}, markAs(err, ErrQuizGenerationFailed)
	}
	if t.Quiz == nil {
		return Track{}, errors.Wrap(ErrQuizGenerationFailed, "generator returned a plain track")
	}
	if t.Requestor == "" {
		t.Requestor = RandomRequestor
	}
	idx := s.appendTracks(c, []Track{t})
	return s.queue[idx].Clone(), nil
}

// Guess scores text against the current track's titles. It returns nil
// without error when nothing matched.
func (s *Session) Guess(ctx context.Context, c Caller, text string) (*Guess, error) {
	var out *Guess
	err := s.do(ctx, func(context.Context) error {
		var err error
		out, err = s.guess(c, text)
		return err
	})
	return out, err
}

func (s *Session) guess(c Caller, text string) (*Guess, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrInvalidArgs
	}
	if !s.playing {
		return nil, ErrNotPlaying
	}
	cur := s.currentTrack()
	if cur == nil {
		return nil, ErrNotPlaying
	}
	if cur.Quiz == nil {
		return nil, ErrNotAQuizTrack
	}
	if !cur.Quiz.Guessable || cur.Quiz.Revealed {
		return nil, ErrNotGuessable
	}
	for _, title := range cur.Quiz.GuessTitles {
		score := similarity.Score(text, title)
		if score < MatchThreshold {
			continue
		}
		g := Guess{Username: c.Name, Accuracy: score}
		cur.Quiz.Guesses = append(cur.Quiz.Guesses, g)
		s.log.Debug("guess recorded", "username", c.Name, "accuracy", score)
		s.emit(GuessRecorded{Meta: s.meta(c), Guess: g})
		return &g, nil
	}
	return nil, nil
}

// Reveal exposes a queued quiz track. The current track cannot be revealed
// while its guess window is open.
func (s *Session) Reveal(ctx context.Context, c Caller, index int) (Track, error) {
	var out Track
	err := s.do(ctx, func(context.Context) error {
		if index < 0 || index >= len(s.queue) {
			return wrapIndex(ErrOutOfBounds, index)
		}
		t := s.queue[index]
		if t.Quiz == nil {
			return ErrNotAQuizTrack
		}
		if index == s.current && s.playing && s.guessLocked() {
			return ErrGuessModeActive
		}
		if !t.Quiz.Revealed {
			s.queue[index] = RevealTrack(t)
			s.emit(Revealed{Meta: s.meta(c), Track: s.queue[index].Clone(), Index: index})
		}
		out = s.queue[index].Clone()
		return nil
	})
	return out, err
}

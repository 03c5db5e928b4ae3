package player

import (
	"context"

	"github.com/cockroachdb/errors"
)

// AutoplayRequestor is the requestor shown on tracks picked by autoplay.
const AutoplayRequestor = "Autoplay"

func (s *Session) ToggleAutoplay(ctx context.Context, c Caller) (AutoplayConfig, error) {
	return s.updateAutoplay(ctx, c, func(a *autoplayState) { a.enabled = !a.enabled })
}

func (s *Session) ToggleAutoplayUnique(ctx context.Context, c Caller) (AutoplayConfig, error) {
	return s.updateAutoplay(ctx, c, func(a *autoplayState) { a.unique = !a.unique })
}

// SetAutoplayWindow sets how many of the top related tracks are candidates.
func (s *Session) SetAutoplayWindow(ctx context.Context, c Caller, n int) (AutoplayConfig, error) {
	return s.updateAutoplay(ctx, c, func(a *autoplayState) { a.window = max(0, n) })
}

func (s *Session) updateAutoplay(ctx context.Context, c Caller, fn func(*autoplayState)) (AutoplayConfig, error) {
	var out AutoplayConfig
	err := s.do(ctx, func(context.Context) error {
		fn(&s.autoplay)
		out = s.autoplayConfig()
		s.emit(AutoplayChanged{Meta: s.meta(c), Config: out})
		return nil
	})
	return out, err
}

// pickRelated chooses uniformly among the first window related tracks of the
// current track. A window of 0 behaves as 1.
func (s *Session) pickRelated(ctx context.Context, c Caller) (Track, error) {
	cur := s.currentTrack()
	s.emit(AutoplaySearching{Meta: s.meta(c), Track: cur.Clone()})

	if cur.Related == nil {
		related, err := s.deps.Resolver.Related(ctx, *cur)
		if err != nil {
			return Track{}, markAs(err, ErrNoRelatedVideos)
		}
		cur.Related = related
		if cur.Related == nil {
			cur.Related = []Track{}
		}
	}

	candidates := make([]Track, 0, len(cur.Related))
	for _, t := range cur.Related {
		if s.autoplay.unique && t.VideoID != "" {
			if _, seen := s.autoplay.played[t.VideoID]; seen {
				continue
			}
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return Track{}, errors.Wrapf(ErrNoRelatedVideos, "for %q", cur.Title)
	}

	window := min(len(candidates), max(1, s.autoplay.window))
	next := candidates[s.rng.IntN(window)].Clone()
	next.ID = ""
	next.Related = nil
	next.Requestor = AutoplayRequestor
	return next, nil
}

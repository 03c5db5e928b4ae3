package player

import (
	"context"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Enqueue resolves query and appends the results without touching playback.
func (s *Session) Enqueue(ctx context.Context, c Caller, query string) ([]Track, error) {
	var added []Track
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		added, _, err = s.enqueue(ctx, c, query)
		return err
	})
	return added, err
}

// Play enqueues query and, when nothing is playing, starts the first added
// track. Callers never need to know whether the session was idle.
func (s *Session) Play(ctx context.Context, c Caller, query string) ([]Track, error) {
	var added []Track
	err := s.do(ctx, func(ctx context.Context) error {
		joined := false
		if !s.playing {
			joined = s.conn == nil
			if err := s.ensureConn(ctx, c); err != nil {
				return err
			}
		}
		var (
			first int
			err   error
		)
		added, first, err = s.enqueue(ctx, c, query)
		if err != nil {
			if joined {
				s.teardown(c, true)
			}
			return err
		}
		if !s.playing {
			return s.jump(ctx, c, first)
		}
		return nil
	})
	return added, err
}

func (s *Session) enqueue(ctx context.Context, c Caller, query string) ([]Track, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, ErrInvalidQuery
	}
	tracks, err := s.deps.Resolver.Resolve(ctx, query, c.Name)
	if err != nil {
		if KindOf(err) == KindUnknown {
			err = markAs(err, ErrNoResults)
		}
		return nil, 0, err
	}
	if len(tracks) == 0 {
		return nil, 0, errors.Wrapf(ErrNoResults, "%q", query)
	}
	first := s.appendTracks(c, tracks)
	out := make([]Track, len(tracks))
	for i := range tracks {
		out[i] = s.queue[first+i].Clone()
	}
	return out, first, nil
}

// appendTracks adds tracks to the queue, assigning instance ids, and returns
// the index of the first one.
func (s *Session) appendTracks(c Caller, tracks []Track) int {
	first := len(s.queue)
	// an exhausted cursor stays past the end
	parked := s.current == len(s.queue) && len(s.queue) > 0
	for _, t := range tracks {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Requestor == "" {
			t.Requestor = c.Name
		}
		s.queue = append(s.queue, t)
	}
	if parked {
		s.current = len(s.queue)
	}
	added := make([]Track, len(tracks))
	for i := range tracks {
		added[i] = s.queue[first+i].Clone()
	}
	s.emit(TrackAdded{Meta: s.meta(c), Tracks: added, Index: first})
	return first
}

// Remove deletes the inclusive range between from and to (0-based, any order).
func (s *Session) Remove(ctx context.Context, c Caller, from, to int) ([]Track, error) {
	var removed []Track
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.remove(ctx, c, from, to)
		return err
	})
	return removed, err
}

func (s *Session) remove(ctx context.Context, c Caller, from, to int) ([]Track, error) {
	if len(s.queue) == 0 {
		return nil, ErrQueueEmpty
	}
	for _, i := range []int{from, to} {
		if i < 0 || i >= len(s.queue) {
			return nil, wrapIndex(ErrOutOfBounds, i)
		}
	}
	lo, hi := min(from, to), max(from, to)
	hitCurrent := s.current >= lo && s.current <= hi

	if hitCurrent {
		s.leaveTrack(c)
		s.stopPlayback()
	}

	removed := make([]Track, 0, hi-lo+1)
	for _, t := range s.queue[lo : hi+1] {
		removed = append(removed, t.Clone())
	}
	s.queue = slices.Delete(s.queue, lo, hi+1)

	switch {
	case s.current > hi:
		s.current -= hi - lo + 1
	case hitCurrent:
		s.current = lo
	}
	s.emit(Removed{Meta: s.meta(c), Tracks: removed, From: lo, To: hi})

	if !hitCurrent {
		return removed, nil
	}
	switch {
	case !s.playing:
		s.current = min(lo, len(s.queue)-1)
	case lo < len(s.queue):
		return removed, s.jump(ctx, c, lo)
	case len(s.queue) > 0:
		return removed, s.jump(ctx, c, len(s.queue)-1)
	default:
		s.current = -1
		s.teardown(c, true)
	}
	return removed, nil
}

func (s *Session) Move(ctx context.Context, c Caller, from, to int) error {
	return s.do(ctx, func(context.Context) error {
		return s.move(c, from, to)
	})
}

func (s *Session) move(c Caller, from, to int) error {
	for _, i := range []int{from, to} {
		if i < 0 || i >= len(s.queue) {
			return wrapIndex(ErrOutOfBounds, i)
		}
	}
	t := s.queue[from]
	s.queue = slices.Delete(s.queue, from, from+1)
	s.queue = slices.Insert(s.queue, to, t)

	switch {
	case s.current == from:
		s.current = to
	case from > s.current && to <= s.current:
		s.current++
	case from < s.current && to >= s.current:
		s.current--
	}
	s.emit(Moved{Meta: s.meta(c), Track: t.Clone(), From: from, To: to})
	return nil
}

func (s *Session) Clear(ctx context.Context, c Caller) error {
	return s.do(ctx, func(context.Context) error {
		if len(s.queue) == 0 {
			return ErrQueueEmpty
		}
		s.leaveTrack(c)
		s.queue = nil
		s.current = -1
		s.emit(Cleared{Meta: s.meta(c)})
		if s.playing {
			s.teardown(c, true)
		}
		return nil
	})
}

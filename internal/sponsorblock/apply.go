package sponsorblock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sonroyaalmerol/kumaquiz/internal/cache"
)

const (
	category   = "music_offtopic"
	segmentTTL = time.Hour
	// an intro segment must begin this close to the start of the video
	introSlack = 2 * time.Second
)

// Skipper finds the off-topic lead-in of music videos.
type Skipper struct {
	client     *Client
	cache      cache.Store
	log        *slog.Logger
	disableFor time.Duration
	now        func() time.Time

	mu            sync.Mutex
	disabledUntil time.Time
}

func NewSkipper(client *Client, store cache.Store, disableFor time.Duration, log *slog.Logger) *Skipper {
	if client == nil {
		client = NewClient("", nil)
	}
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Skipper{client: client, cache: store, log: log, disableFor: disableFor, now: time.Now}
}

func (s *Skipper) disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Before(s.disabledUntil)
}

// LeadIn returns how far into videoID playback should start. Lookup
// failures never block playback and yield zero.
func (s *Skipper) LeadIn(ctx context.Context, videoID string, length time.Duration) time.Duration {
	if videoID == "" || length <= 0 || s.disabled() {
		return 0
	}
	segs, err := cache.Remember(ctx, s.cache, "sponsorblock:"+videoID, segmentTTL, func(ctx context.Context) ([]Segment, error) {
		return s.client.Segments(ctx, videoID, []string{category})
	})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			s.mu.Lock()
			s.disabledUntil = s.now().Add(s.disableFor)
			s.mu.Unlock()
			s.log.Warn("sponsorblock unavailable, pausing lookups", "for", s.disableFor)
		} else {
			s.log.Debug("sponsorblock lookup failed", "video", videoID, "err", err)
		}
		return 0
	}
	return leadIn(Merge(segs), length)
}

func leadIn(segs []Segment, length time.Duration) time.Duration {
	if len(segs) == 0 {
		return 0
	}
	first := segs[0]
	if first.Start() > introSlack || first.End() <= 0 || first.End() >= length {
		return 0
	}
	return first.End()
}

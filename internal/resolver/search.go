package resolver

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

var errNoMatch = errors.New("no match")

type searchBackend interface {
	// Search returns YouTube videos for a free-text query, best first.
	Search(ctx context.Context, query string) ([]mediaInfo, error)
}

type musicBackend interface {
	// Song returns the YouTube video id of the best YouTube Music match.
	Song(ctx context.Context, query string) (string, error)
}

type ytsearchBackend struct {
	client *ytsearch.Client
}

func newYTSearch() *ytsearchBackend {
	return &ytsearchBackend{client: ytsearch.NewClient(nil)}
}

func (y *ytsearchBackend) Search(ctx context.Context, query string) ([]mediaInfo, error) {
	res, err := y.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]mediaInfo, 0, len(res.Results))
	for _, r := range res.Results {
		if r.VideoID == "" {
			continue
		}
		out = append(out, mediaInfo{
			ID:         r.VideoID,
			Title:      r.Title,
			Uploader:   r.Channel,
			Duration:   parseClock(r.Duration),
			WebpageURL: watchURL(r.VideoID),
			Thumbnail:  thumbnailFor(r.VideoID),
		})
	}
	return out, nil
}

type ytmusicBackend struct{}

func (ytmusicBackend) Song(ctx context.Context, query string) (string, error) {
	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		r, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			done <- result{err: err}
			return
		}
		for _, t := range r.Tracks {
			if t.VideoID != "" {
				done <- result{id: t.VideoID}
				return
			}
		}
		done <- result{err: errNoMatch}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.id, r.err
	}
}

// parseClock parses "3:20" or "1:05:20".
func parseClock(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	var total int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}

func thumbnailFor(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}

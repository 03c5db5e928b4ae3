// Package resolver turns user queries into queueable tracks and tracks into
// playable stream locations.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sonroyaalmerol/kumaquiz/internal/cache"
	"github.com/sonroyaalmerol/kumaquiz/internal/player"
)

const (
	defaultPlaylistLimit = 200
	relatedLimit         = 25
	relatedTTL           = 6 * time.Hour
)

var ErrSpotifyDisabled = errors.New("spotify is not enabled")

type Options struct {
	SpotifyClientID     string
	SpotifyClientSecret string
	CookiesPath         string
	PlaylistLimit       int
	Cache               cache.Store
	Skipper             Skipper // optional
	Logger              *slog.Logger
}

// Skipper reports how much of a video's start is not music.
type Skipper interface {
	LeadIn(ctx context.Context, videoID string, length time.Duration) time.Duration
}

type Resolver struct {
	media   mediaBackend
	search  searchBackend
	music   musicBackend
	spotify spotifyBackend // nil when no credentials are configured
	cache   cache.Store
	skipper Skipper
	log     *slog.Logger
	limit   int
}

func New(ctx context.Context, opts Options) *Resolver {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	store := opts.Cache
	if store == nil {
		store = cache.NewMemoryStore()
	}
	limit := opts.PlaylistLimit
	if limit <= 0 {
		limit = defaultPlaylistLimit
	}
	r := &Resolver{
		media:   &ytdlpBackend{cookies: opts.CookiesPath, log: log},
		search:  newYTSearch(),
		music:   ytmusicBackend{},
		cache:   store,
		skipper: opts.Skipper,
		log:     log,
		limit:   limit,
	}
	if opts.SpotifyClientID != "" && opts.SpotifyClientSecret != "" {
		r.spotify = newSpotifyClient(ctx, opts.SpotifyClientID, opts.SpotifyClientSecret)
	}
	return r
}

// Suggestion is an autocomplete choice; Value is a query Resolve accepts.
type Suggestion struct {
	Name  string
	Value string
}

// SpotifySuggestions searches Spotify for albums and tracks. It returns
// nothing when Spotify is not configured.
func (r *Resolver) SpotifySuggestions(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	if r.spotify == nil || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	return r.spotify.Search(ctx, query, limit)
}

func noResults(query string) error {
	return fmt.Errorf("%w: %q", player.ErrNoResults, query)
}

// Resolve returns the tracks a query names, in order.
func (r *Resolver) Resolve(ctx context.Context, query, requestor string) ([]player.Track, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, player.ErrInvalidQuery
	}
	kind := Classify(q)
	r.log.Debug("resolving query", "query", q, "type", kind)

	var (
		tracks []player.Track
		err    error
	)
	switch kind {
	case QuerySpotifySong, QuerySpotifyAlbum, QuerySpotifyPlaylist:
		tracks, err = r.resolveSpotify(ctx, kind, q)
	case QueryYouTubePlaylist:
		tracks, err = r.resolvePlaylist(ctx, q, player.SourceYouTube)
	case QuerySoundCloudPlaylist:
		tracks, err = r.resolvePlaylist(ctx, q, player.SourceSoundCloud)
	case QueryYouTubeVideo:
		tracks, err = r.resolveSingle(ctx, q, player.SourceYouTube)
	case QuerySoundCloudTrack:
		tracks, err = r.resolveSingle(ctx, q, player.SourceSoundCloud)
	case QueryMediaLink:
		tracks = []player.Track{r.resolveLink(ctx, q)}
	default:
		tracks, err = r.resolveSearch(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, noResults(q)
	}
	for i := range tracks {
		tracks[i].Requestor = requestor
	}
	return tracks, nil
}

func mediaTrack(mi mediaInfo, src player.Source) player.Track {
	t := player.Track{
		Title:     mi.Title,
		URL:       mi.WebpageURL,
		Duration:  mi.Duration,
		Live:      mi.Live,
		Thumbnail: mi.Thumbnail,
		Source:    src,
	}
	if src == player.SourceYouTube && mi.ID != "" {
		t.VideoID = mi.ID
		t.URL = watchURL(mi.ID)
		if t.Thumbnail == "" {
			t.Thumbnail = thumbnailFor(mi.ID)
		}
	}
	if t.Title == "" {
		t.Title = "Unknown Title"
	}
	return t
}

func (r *Resolver) resolveSingle(ctx context.Context, q string, src player.Source) ([]player.Track, error) {
	mi, err := r.media.Info(ctx, q)
	if err != nil {
		r.log.Warn("media lookup failed", "query", q, "err", err)
		return nil, noResults(q)
	}
	return []player.Track{mediaTrack(mi, src)}, nil
}

func (r *Resolver) resolvePlaylist(ctx context.Context, q string, src player.Source) ([]player.Track, error) {
	entries, err := r.media.Flat(ctx, q, r.limit)
	if err != nil {
		r.log.Warn("playlist lookup failed", "query", q, "err", err)
		return nil, noResults(q)
	}
	out := make([]player.Track, 0, len(entries))
	for _, e := range entries {
		out = append(out, mediaTrack(e, src))
	}
	return out, nil
}

// resolveLink queues any other http(s) link as-is, using extractor metadata
// when the link is understood.
func (r *Resolver) resolveLink(ctx context.Context, q string) player.Track {
	t := player.Track{Title: q, URL: q, Source: player.SourceArbitrary}
	mi, err := r.media.Info(ctx, q)
	if err != nil {
		r.log.Debug("no metadata for link", "url", q, "err", err)
		return t
	}
	if mi.Title != "" {
		t.Title = mi.Title
	}
	t.Duration = mi.Duration
	t.Live = mi.Live
	t.Thumbnail = mi.Thumbnail
	return t
}

// resolveSearch takes the first YouTube result, falling back to yt-dlp's own
// search when the scraper finds nothing.
func (r *Resolver) resolveSearch(ctx context.Context, q string) ([]player.Track, error) {
	mi, err := r.searchYouTube(ctx, q)
	if err != nil {
		return nil, err
	}
	return []player.Track{mediaTrack(mi, player.SourceYouTube)}, nil
}

func (r *Resolver) searchYouTube(ctx context.Context, q string) (mediaInfo, error) {
	results, err := r.search.Search(ctx, q)
	if err != nil {
		r.log.Debug("youtube search failed, trying yt-dlp", "query", q, "err", err)
	}
	if len(results) == 0 {
		results, err = r.media.Flat(ctx, "ytsearch1:"+q, 1)
		if err != nil {
			r.log.Warn("yt-dlp search failed", "query", q, "err", err)
		}
	}
	if len(results) == 0 {
		return mediaInfo{}, noResults(q)
	}
	return results[0], nil
}

func (r *Resolver) resolveSpotify(ctx context.Context, kind QueryType, q string) ([]player.Track, error) {
	if r.spotify == nil {
		return nil, fmt.Errorf("%w: %w", player.ErrInvalidQuery, ErrSpotifyDisabled)
	}
	id := spotifyID(q)
	var (
		items []spotifyTrack
		err   error
	)
	switch kind {
	case QuerySpotifySong:
		var t spotifyTrack
		t, err = r.spotify.Track(ctx, id)
		items = []spotifyTrack{t}
	case QuerySpotifyAlbum:
		items, err = r.spotify.Album(ctx, id, r.limit)
	default:
		items, err = r.spotify.Playlist(ctx, id, r.limit)
	}
	if err != nil {
		r.log.Warn("spotify lookup failed", "query", q, "err", err)
		return nil, noResults(q)
	}
	out := make([]player.Track, 0, len(items))
	for _, it := range items {
		out = append(out, player.Track{
			Title:     it.Name + " - " + it.Artist,
			URL:       it.URL,
			Duration:  it.Duration,
			Thumbnail: it.Thumbnail,
			Source:    player.SourceSpotify,
		})
	}
	return out, nil
}

// Stream finds a direct media URL for t. Spotify tracks are matched to a
// YouTube video first, which is reported as the backup URL.
func (r *Resolver) Stream(ctx context.Context, t player.Track) (player.StreamInfo, error) {
	switch t.Source {
	case player.SourceArbitrary:
		return player.StreamInfo{URL: t.URL}, nil
	case player.SourceSpotify:
		backup := t.BackupURL
		if backup == "" {
			var err error
			if backup, err = r.spotifyBackup(ctx, t); err != nil {
				return player.StreamInfo{}, err
			}
		}
		mi, err := r.media.Info(ctx, backup)
		if err != nil {
			return player.StreamInfo{}, err
		}
		if mi.StreamURL == "" {
			return player.StreamInfo{}, fmt.Errorf("no playable format for %s", backup)
		}
		return player.StreamInfo{URL: mi.StreamURL, BackupURL: backup, Start: r.leadIn(ctx, mi)}, nil
	}

	mi, err := r.media.Info(ctx, t.URL)
	if err != nil {
		return player.StreamInfo{}, err
	}
	if mi.StreamURL == "" {
		return player.StreamInfo{}, fmt.Errorf("no playable format for %s", t.URL)
	}
	info := player.StreamInfo{URL: mi.StreamURL}
	if t.Source == player.SourceYouTube {
		info.Start = r.leadIn(ctx, mi)
	}
	return info, nil
}

func (r *Resolver) leadIn(ctx context.Context, mi mediaInfo) time.Duration {
	if r.skipper == nil || mi.Live {
		return 0
	}
	return r.skipper.LeadIn(ctx, mi.ID, mi.Duration)
}

func (r *Resolver) spotifyBackup(ctx context.Context, t player.Track) (string, error) {
	id, err := r.music.Song(ctx, t.Title)
	if err == nil && id != "" {
		return watchURL(id), nil
	}
	r.log.Debug("youtube music match failed", "title", t.Title, "err", err)
	mi, err := r.searchYouTube(ctx, t.Title)
	if err != nil {
		return "", err
	}
	return watchURL(mi.ID), nil
}

// Related lists the videos of t's YouTube mix, without t itself.
func (r *Resolver) Related(ctx context.Context, t player.Track) ([]player.Track, error) {
	if t.Source != player.SourceYouTube || t.VideoID == "" {
		return nil, player.ErrNoRelatedVideos
	}
	key := "related:" + t.VideoID
	entries, err := cache.Remember(ctx, r.cache, key, relatedTTL, func(ctx context.Context) ([]mediaInfo, error) {
		mix := fmt.Sprintf("%s&list=RD%s", watchURL(t.VideoID), t.VideoID)
		return r.media.Flat(ctx, mix, relatedLimit+1)
	})
	if err != nil {
		return nil, err
	}
	out := make([]player.Track, 0, len(entries))
	for _, e := range entries {
		if e.ID == t.VideoID || e.ID == "" {
			continue
		}
		out = append(out, mediaTrack(e, player.SourceYouTube))
	}
	return out, nil
}

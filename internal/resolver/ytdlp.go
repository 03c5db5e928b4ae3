package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	ytdlp "github.com/lrstanley/go-ytdlp"
)

// mediaInfo is the subset of extractor output the resolver keeps.
type mediaInfo struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Uploader   string        `json:"uploader"`
	Duration   time.Duration `json:"duration"`
	Live       bool          `json:"live"`
	WebpageURL string        `json:"webpageUrl"`
	StreamURL  string        `json:"streamUrl"`
	Thumbnail  string        `json:"thumbnail"`
}

type mediaBackend interface {
	// Info extracts a single item with its best audio URL.
	Info(ctx context.Context, url string) (mediaInfo, error)
	// Flat lists playlist entries without resolving their streams.
	Flat(ctx context.Context, url string, limit int) ([]mediaInfo, error)
}

var installOnce sync.Once

type ytdlpBackend struct {
	cookies string
	log     *slog.Logger
}

func (y *ytdlpBackend) install(ctx context.Context) {
	installOnce.Do(func() {
		// a missing binary surfaces again on Run
		if _, err := ytdlp.Install(ctx, nil); err != nil {
			y.log.Warn("yt-dlp install failed", "err", err)
		}
	})
}

func (y *ytdlpBackend) command() *ytdlp.Command {
	cmd := ytdlp.New().
		NoCheckCertificates().
		NoWarnings()
	if y.cookies != "" {
		cmd = cmd.Cookies(y.cookies)
	}
	return cmd
}

func (y *ytdlpBackend) Info(ctx context.Context, url string) (mediaInfo, error) {
	y.install(ctx)
	res, err := y.command().
		Format("ba[acodec^=opus]/ba[ext=m4a]/bestaudio/best").
		NoPlaylist().
		DumpJSON().
		Run(ctx, url)
	if err != nil {
		return mediaInfo{}, fmt.Errorf("yt-dlp run: %w", err)
	}
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return mediaInfo{}, fmt.Errorf("parse yt-dlp json: %w", err)
	}
	for _, ext := range infos {
		if ext == nil {
			continue
		}
		// searches come back as a container
		for _, e := range ext.Entries {
			if e != nil {
				return toMediaInfo(e), nil
			}
		}
		return toMediaInfo(ext), nil
	}
	return mediaInfo{}, fmt.Errorf("parse yt-dlp json: no info returned for %s", url)
}

func (y *ytdlpBackend) Flat(ctx context.Context, url string, limit int) ([]mediaInfo, error) {
	y.install(ctx)
	cmd := y.command().
		FlatPlaylist().
		DumpSingleJSON()
	if limit > 0 {
		cmd = cmd.PlaylistItems(fmt.Sprintf("1-%d", limit))
	}
	y.log.Debug("yt-dlp flat fetch", "url", url, "limit", limit)
	res, err := cmd.Run(ctx, url)
	if err != nil {
		if strings.Contains(err.Error(), "Sign in to confirm") {
			return nil, fmt.Errorf("yt-dlp playlist fetch failed (cookies may be required): %w", err)
		}
		return nil, fmt.Errorf("yt-dlp playlist fetch failed for %s: %w", url, err)
	}
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp playlist json for %s: %w", url, err)
	}

	var out []mediaInfo
	for _, pl := range infos {
		if pl == nil {
			continue
		}
		if len(pl.Entries) == 0 {
			out = append(out, toMediaInfo(pl))
			continue
		}
		for _, e := range pl.Entries {
			if e == nil || e.ID == "" {
				continue
			}
			mi := toMediaInfo(e)
			// flat entries carry the page link in url
			if mi.WebpageURL == "" {
				mi.WebpageURL = mi.StreamURL
			}
			mi.StreamURL = ""
			out = append(out, mi)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func str(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func seconds(ptr *float64) time.Duration {
	if ptr == nil {
		return 0
	}
	return time.Duration(*ptr * float64(time.Second))
}

func boolean(ptr *bool) bool {
	return ptr != nil && *ptr
}

func toMediaInfo(e *ytdlp.ExtractedInfo) mediaInfo {
	mi := mediaInfo{
		ID:         e.ID,
		Title:      str(e.Title),
		Uploader:   str(e.Uploader),
		Duration:   seconds(e.Duration),
		Live:       boolean(e.IsLive),
		WebpageURL: str(e.WebpageURL),
	}
	for i := len(e.Thumbnails) - 1; i >= 0; i-- {
		if t := e.Thumbnails[i]; t != nil && t.URL != "" {
			mi.Thumbnail = t.URL
			break
		}
	}
	mi.StreamURL = audioURL(e)
	return mi
}

// audioURL prefers requested formats, then the top-level url, then any format.
func audioURL(e *ytdlp.ExtractedInfo) string {
	for _, rf := range e.RequestedFormats {
		if rf != nil && strings.HasPrefix(rf.URL, "http") {
			return rf.URL
		}
	}
	if u := str(e.URL); strings.HasPrefix(u, "http") {
		return u
	}
	for i := len(e.Formats) - 1; i >= 0; i-- {
		if f := e.Formats[i]; f != nil && strings.HasPrefix(f.URL, "http") {
			return f.URL
		}
	}
	return ""
}

package resolver

import (
	"net/url"
	"regexp"
	"strings"
)

type QueryType int

const (
	QuerySearch QueryType = iota
	QueryYouTubeVideo
	QueryYouTubePlaylist
	QuerySpotifySong
	QuerySpotifyAlbum
	QuerySpotifyPlaylist
	QuerySoundCloudTrack
	QuerySoundCloudPlaylist
	QueryMediaLink
)

func (q QueryType) String() string {
	switch q {
	case QueryYouTubeVideo:
		return "youtube_video"
	case QueryYouTubePlaylist:
		return "youtube_playlist"
	case QuerySpotifySong:
		return "spotify_song"
	case QuerySpotifyAlbum:
		return "spotify_album"
	case QuerySpotifyPlaylist:
		return "spotify_playlist"
	case QuerySoundCloudTrack:
		return "soundcloud_track"
	case QuerySoundCloudPlaylist:
		return "soundcloud_playlist"
	case QueryMediaLink:
		return "media_link"
	default:
		return "youtube_search"
	}
}

var (
	spotifySongRe     = spotifyRe("track")
	spotifyAlbumRe    = spotifyRe("album")
	spotifyPlaylistRe = spotifyRe("playlist")
	spotifyURIRe      = regexp.MustCompile(`^spotify:(track|album|playlist):([\w-]{22})$`)

	youtubeIDRe = regexp.MustCompile(`^[\w-]{11}$`)
)

func spotifyRe(kind string) *regexp.Regexp {
	return regexp.MustCompile(`^https?://(?:embed\.|open\.)spotify\.com/(?:intl-[\w-]+/)?(?:` + kind + `/|\?uri=spotify:` + kind + `:)([\w-]{22})`)
}

// Classify decides how a query is resolved.
func Classify(query string) QueryType {
	q := strings.TrimSpace(query)
	if m := spotifyURIRe.FindStringSubmatch(q); m != nil {
		switch m[1] {
		case "track":
			return QuerySpotifySong
		case "album":
			return QuerySpotifyAlbum
		default:
			return QuerySpotifyPlaylist
		}
	}
	switch {
	case spotifySongRe.MatchString(q):
		return QuerySpotifySong
	case spotifyAlbumRe.MatchString(q):
		return QuerySpotifyAlbum
	case spotifyPlaylistRe.MatchString(q):
		return QuerySpotifyPlaylist
	}

	u, err := url.Parse(q)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return QuerySearch
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "soundcloud.com", "m.soundcloud.com":
		if strings.Contains(u.Path, "/sets/") {
			return QuerySoundCloudPlaylist
		}
		if len(pathParts(u.Path)) >= 2 {
			return QuerySoundCloudTrack
		}
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		list := u.Query().Get("list")
		// RD lists are endless mixes seeded by the video itself
		if list != "" && (youtubeVideoID(u) == "" || !strings.HasPrefix(list, "RD")) {
			return QueryYouTubePlaylist
		}
		if youtubeVideoID(u) != "" {
			return QueryYouTubeVideo
		}
	}
	return QueryMediaLink
}

// spotifyID returns the 22 character id of a Spotify link or URI.
func spotifyID(query string) string {
	q := strings.TrimSpace(query)
	for _, re := range []*regexp.Regexp{spotifySongRe, spotifyAlbumRe, spotifyPlaylistRe} {
		if m := re.FindStringSubmatch(q); m != nil {
			return m[1]
		}
	}
	if m := spotifyURIRe.FindStringSubmatch(q); m != nil {
		return m[2]
	}
	return ""
}

func pathParts(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func youtubeVideoID(u *url.URL) string {
	var id string
	parts := pathParts(u.Path)
	switch {
	case strings.EqualFold(u.Hostname(), "youtu.be") && len(parts) > 0:
		id = parts[0]
	case len(parts) >= 2 && (parts[0] == "shorts" || parts[0] == "live" || parts[0] == "embed"):
		id = parts[1]
	default:
		id = u.Query().Get("v")
	}
	if !youtubeIDRe.MatchString(id) {
		return ""
	}
	return id
}

// VideoID extracts the YouTube video id of raw, or "" when raw is not a
// YouTube video link.
func VideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return youtubeVideoID(u)
	}
	return ""
}

func watchURL(id string) string { return "https://www.youtube.com/watch?v=" + id }

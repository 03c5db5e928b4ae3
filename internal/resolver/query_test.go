package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  QueryType
	}{
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", QuerySpotifySong},
		{"https://open.spotify.com/intl-de/track/4uLU6hMCjMI75M1A2tKUQC?si=abc", QuerySpotifySong},
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", QuerySpotifySong},
		{"https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3", QuerySpotifyAlbum},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", QuerySpotifyPlaylist},
		{"spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", QuerySpotifyPlaylist},
		{"https://www.youtube.com/playlist?list=PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", QueryYouTubePlaylist},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", QueryYouTubePlaylist},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=RDdQw4w9WgXcQ", QueryYouTubeVideo},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", QueryYouTubeVideo},
		{"https://youtu.be/dQw4w9WgXcQ", QueryYouTubeVideo},
		{"https://music.youtube.com/watch?v=dQw4w9WgXcQ", QueryYouTubeVideo},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", QueryYouTubeVideo},
		{"https://soundcloud.com/artist/some-track", QuerySoundCloudTrack},
		{"https://soundcloud.com/artist/sets/some-set", QuerySoundCloudPlaylist},
		{"https://soundcloud.com/artist", QueryMediaLink},
		{"https://files.example/guren.mp3", QueryMediaLink},
		{"https://www.youtube.com/channel/UC123", QueryMediaLink},
		{"guren no yumiya", QuerySearch},
		{"  linked horizon  ", QuerySearch},
		{"ftp://files.example/a.mp3", QuerySearch},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query), "got %s", Classify(tt.query))
		})
	}
}

func TestSpotifyID(t *testing.T) {
	assert.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", spotifyID("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=x"))
	assert.Equal(t, "37i9dQZF1DXcBWIGoYBM5M", spotifyID("spotify:playlist:37i9dQZF1DXcBWIGoYBM5M"))
	assert.Empty(t, spotifyID("https://example.com"))
}

func TestVideoID(t *testing.T) {
	assert.Equal(t, "dQw4w9WgXcQ", VideoID("https://youtu.be/dQw4w9WgXcQ?t=3"))
	assert.Equal(t, "dQw4w9WgXcQ", VideoID("https://m.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.Empty(t, VideoID("https://www.youtube.com/watch?v=short"))
	assert.Empty(t, VideoID("https://vimeo.com/123"))
}

func TestParseClock(t *testing.T) {
	assert.Equal(t, "3m20s", parseClock("3:20").String())
	assert.Equal(t, "1h5m20s", parseClock("1:05:20").String())
	assert.Zero(t, parseClock("LIVE"))
	assert.Zero(t, parseClock("20"))
}

package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/kumaquiz/internal/player"
)

func newCatalogServer(t *testing.T, empty bool) *httptest.Server {
	t.Helper()
	song := map[string]any{
		"id":          "abc",
		"malId":       16498,
		"animeTitle":  "Shingeki no Kyojin",
		"songName":    "Guren no Yumiya",
		"songType":    "OP 1",
		"songUrl":     "https://files.example/guren.mp3",
		"releaseDate": "Spring 2013",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /roulette", func(w http.ResponseWriter, r *http.Request) {
		if empty {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(song)
	})
	mux.HandleFunc("GET /animelist", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]int{16498, 1})
	})
	mux.HandleFunc("GET /database/{malId}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("malId") != "16498" {
			_ = json.NewEncoder(w).Encode([]any{})
			return
		}
		_ = json.NewEncoder(w).Encode([]any{song})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCatalogSource(t *testing.T) {
	srv := newCatalogServer(t, false)
	c := NewCatalogSource(srv.URL+"/", nil)
	ctx := context.Background()

	song, err := c.RandomSong(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/guren.mp3", song.URL)
	assert.Equal(t, "OP 1", song.Theme.Type)
	assert.Equal(t, "Guren no Yumiya", song.Theme.SongName())

	ids, err := c.AnimeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{16498, 1}, ids)

	_, err = c.SongFor(ctx, 1)
	require.ErrorIs(t, err, ErrNoThemes)
}

func TestMultiSourcePrefersCatalog(t *testing.T) {
	api := newAPIServer(t)
	catalog := NewCatalogSource(newCatalogServer(t, false).URL, nil)
	m := NewMultiSource(catalog, api.jikan(), nil)
	m.intn = func(int) int { return 0 }

	song, err := m.UserSong(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/guren.mp3", song.URL)
	assert.Equal(t, "Attack on Titan", song.Anime.TitleEnglish, "catalog songs get alternate titles")

	song, err = m.RandomSong(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, song.URL)
}

func TestMultiSourceFallsBack(t *testing.T) {
	api := newAPIServer(t)
	catalog := NewCatalogSource(newCatalogServer(t, true).URL, nil)
	m := NewMultiSource(catalog, api.jikan(), nil)

	song, err := m.RandomSong(context.Background())
	require.NoError(t, err)
	assert.Empty(t, song.URL)
	assert.Equal(t, 16498, song.Anime.MalID)

	noCatalog := NewMultiSource(nil, api.jikan(), nil)
	song, err = noCatalog.UserSong(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, song.URL)
	require.ErrorIs(t, noCatalog.ValidateUser(context.Background(), "ghost"), ErrUserNotFound)
}

type fakeSource struct {
	song Song
	err  error
	user string
}

func (f *fakeSource) RandomSong(context.Context) (Song, error) { return f.song, f.err }

func (f *fakeSource) UserSong(_ context.Context, username string) (Song, error) {
	f.user = username
	return f.song, f.err
}

func (f *fakeSource) ValidateUser(context.Context, string) error { return f.err }

type fakeTracks struct {
	query     string
	requestor string
	none      bool
}

func (f *fakeTracks) Resolve(_ context.Context, query, requestor string) ([]player.Track, error) {
	f.query, f.requestor = query, requestor
	if f.none {
		return nil, nil
	}
	return []player.Track{{
		Title:     "Attack on Titan OP 1 full",
		URL:       "https://www.youtube.com/watch?v=8OkpRK2_gVs",
		VideoID:   "8OkpRK2_gVs",
		Thumbnail: "https://i.ytimg.com/vi/8OkpRK2_gVs/hqdefault.jpg",
		Source:    player.SourceYouTube,
		Related:   []player.Track{{Title: "other"}},
	}}, nil
}

func TestGenerateGuessTrack(t *testing.T) {
	a := snk()
	src := &fakeSource{song: Song{Anime: a, Theme: a.Themes()[0]}}
	tracks := &fakeTracks{}
	g := NewGenerator(src, tracks, nil)

	tr, err := g.Generate(context.Background(), "", true)
	require.NoError(t, err)

	assert.Equal(t, "Guren no Yumiya - Shingeki no Kyojin OP 1", tracks.query)
	assert.Equal(t, player.RandomRequestor, tracks.requestor)
	assert.Equal(t, "[AMQ Guess] OP 1", tr.Title)
	assert.Equal(t, player.RandomRequestor, tr.Requestor)
	assert.Empty(t, tr.Thumbnail)
	assert.Nil(t, tr.Related)

	require.NotNil(t, tr.Quiz)
	assert.True(t, tr.Quiz.Guessable)
	assert.Equal(t, "Linked Horizon", tr.Quiz.Artist)
	assert.Equal(t, 16498, tr.Quiz.MalID)
	assert.Contains(t, tr.Quiz.GuessTitles, "attack on titan")

	revealed := player.RevealTrack(tr)
	assert.Equal(t, "Guren no Yumiya - Shingeki no Kyojin OP 1", revealed.Title)
}

func TestGenerateNormalTrackForUser(t *testing.T) {
	src := &fakeSource{song: Song{
		Anime: Anime{MalID: 1, Title: "Cowboy Bebop"},
		Theme: Theme{Type: "OP #1", Text: "Tank!"},
		URL:   "https://files.example/tank.mp3",
	}}
	tracks := &fakeTracks{}
	g := NewGenerator(src, tracks, nil)

	tr, err := g.Generate(context.Background(), "bob", false)
	require.NoError(t, err)

	assert.Equal(t, "bob", src.user)
	assert.Equal(t, "https://files.example/tank.mp3", tracks.query, "direct links are played as is")
	assert.Equal(t, "[AMQ Normal] OP #1", tr.Title)
	assert.Equal(t, "bob", tr.Requestor)
	assert.Equal(t, "bob", tr.Quiz.SourceUser)
	assert.False(t, tr.Quiz.Guessable)
	assert.Empty(t, tr.Quiz.GuessTitles)
	assert.NotEmpty(t, tr.Thumbnail)
}

func TestGenerateErrors(t *testing.T) {
	boom := errors.New("api down")
	_, err := NewGenerator(&fakeSource{err: boom}, &fakeTracks{}, nil).Generate(context.Background(), "", true)
	require.ErrorIs(t, err, boom)

	a := snk()
	src := &fakeSource{song: Song{Anime: a, Theme: a.Themes()[0]}}
	_, err = NewGenerator(src, &fakeTracks{none: true}, nil).Generate(context.Background(), "", true)
	require.Error(t, err)
}

package quiz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiServer struct {
	*httptest.Server
	animeHits    atomic.Int32
	rouletteDown bool
	noThemes     bool
	listStatus   []int
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	s := &apiServer{listStatus: []int{2, 4}}
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /themes/roulette", func(w http.ResponseWriter, r *http.Request) {
		if s.rouletteDown {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"malID": 16498, "name": "Shingeki no Kyojin"})
	})
	mux.HandleFunc("GET /jikan/random/anime", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]any{"mal_id": 16498}})
	})
	mux.HandleFunc("GET /jikan/anime/{id}/full", func(w http.ResponseWriter, r *http.Request) {
		s.animeHits.Add(1)
		if r.PathValue("id") != "16498" {
			http.NotFound(w, r)
			return
		}
		theme := map[string]any{
			"openings": []string{`1: "Guren no Yumiya" by Linked Horizon (eps 1-13)`},
			"endings":  []string{},
		}
		if s.noThemes {
			theme = map[string]any{}
		}
		writeJSON(w, map[string]any{"data": map[string]any{
			"mal_id":         16498,
			"title":          "Shingeki no Kyojin",
			"title_english":  "Attack on Titan",
			"title_japanese": "進撃の巨人",
			"title_synonyms": []string{"AoT"},
			"season":         "spring",
			"year":           2013,
			"aired":          map[string]any{"string": "Apr 7, 2013 to Sep 29, 2013"},
			"theme":          theme,
		}})
	})
	mux.HandleFunc("GET /jikan/users/{name}/animelist", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "bob" {
			http.NotFound(w, r)
			return
		}
		var data []map[string]any
		for i, st := range s.listStatus {
			data = append(data, map[string]any{
				"anime":           map[string]any{"mal_id": 16498 + i},
				"watching_status": st,
			})
		}
		writeJSON(w, map[string]any{"data": data})
	})
	mux.HandleFunc("GET /jikan/users/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "bob" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"data": map[string]any{"username": "bob"}})
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) jikan() *JikanSource {
	j := NewJikanSource(JikanOptions{
		JikanURL:  s.URL + "/jikan/",
		ThemesURL: s.URL + "/themes",
		RPS:       1000,
	})
	j.intn = func(int) int { return 0 }
	return j
}

func TestJikanRandomSong(t *testing.T) {
	srv := newAPIServer(t)
	song, err := srv.jikan().RandomSong(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 16498, song.Anime.MalID)
	assert.Equal(t, "Shingeki no Kyojin", song.Anime.Title)
	assert.Equal(t, "Spring 2013", song.Anime.Premiered)
	assert.Equal(t, "OP #1", song.Theme.Type)
	assert.Equal(t, "Guren no Yumiya", song.Theme.SongName())
	assert.Empty(t, song.URL)
}

func TestJikanRandomFallback(t *testing.T) {
	srv := newAPIServer(t)
	srv.rouletteDown = true

	song, err := srv.jikan().RandomSong(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16498, song.Anime.MalID)
}

func TestJikanNoThemes(t *testing.T) {
	srv := newAPIServer(t)
	srv.noThemes = true

	_, err := srv.jikan().RandomSong(context.Background())
	require.ErrorIs(t, err, ErrNoThemes)
}

func TestJikanAnimeCached(t *testing.T) {
	srv := newAPIServer(t)
	j := srv.jikan()
	ctx := context.Background()

	for range 3 {
		a, err := j.Anime(ctx, 16498)
		require.NoError(t, err)
		assert.Equal(t, "Attack on Titan", a.TitleEnglish)
	}
	assert.Equal(t, int32(1), srv.animeHits.Load())
}

func TestJikanUserList(t *testing.T) {
	srv := newAPIServer(t)
	j := srv.jikan()
	ctx := context.Background()

	ids, err := j.UserAnimeIDs(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []int{16498}, ids, "only watching and completed entries count")

	song, err := j.UserSong(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "Shingeki no Kyojin", song.Anime.Title)

	_, err = j.UserAnimeIDs(ctx, "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestJikanEmptyList(t *testing.T) {
	srv := newAPIServer(t)
	srv.listStatus = []int{4, 6}

	_, err := srv.jikan().UserSong(context.Background(), "bob")
	require.ErrorIs(t, err, ErrEmptyList)
}

func TestJikanValidateUser(t *testing.T) {
	srv := newAPIServer(t)
	j := srv.jikan()

	require.NoError(t, j.ValidateUser(context.Background(), "bob"))
	require.ErrorIs(t, j.ValidateUser(context.Background(), "ghost"), ErrUserNotFound)
}

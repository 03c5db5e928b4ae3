package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/kumaquiz/internal/quiz"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	r, _ := newTestRepo(t)
	srv := httptest.NewServer(NewServer(r, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/database", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func del(t *testing.T, srv *httptest.Server, id string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/database/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Server is up.", string(body))
}

func TestSongLifecycle(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/roulette", nil))

	resp := post(t, srv, guren())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created Song
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, HashSong(guren()), created.ID)

	assert.Equal(t, http.StatusConflict, post(t, srv, guren()).StatusCode)

	var all []Song
	assert.Equal(t, http.StatusOK, get(t, srv, "/database", &all))
	assert.Len(t, all, 1)

	var byAnime []Song
	assert.Equal(t, http.StatusOK, get(t, srv, "/database/16498", &byAnime))
	assert.Len(t, byAnime, 1)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/database/abc", nil))

	var ids []int
	assert.Equal(t, http.StatusOK, get(t, srv, "/animelist", &ids))
	assert.Equal(t, []int{16498}, ids)

	var random Song
	assert.Equal(t, http.StatusOK, get(t, srv, "/roulette", &random))
	assert.Equal(t, created.ID, random.ID)

	assert.Equal(t, http.StatusNoContent, del(t, srv, created.ID))
	assert.Equal(t, http.StatusNotFound, del(t, srv, created.ID))
}

func TestAddRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, post(t, srv, map[string]any{"malId": 1}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, srv, map[string]any{"bogus": true}).StatusCode)

	resp, err := http.Post(srv.URL+"/database", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuizClientAgainstServer(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, post(t, srv, guren()).StatusCode)

	c := quiz.NewCatalogSource(srv.URL, nil)
	ctx := context.Background()

	song, err := c.RandomSong(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/guren.mp3", song.URL)
	assert.Equal(t, "Shingeki no Kyojin", song.Anime.Title)

	ids, err := c.AnimeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{16498}, ids)

	song, err = c.SongFor(ctx, 16498)
	require.NoError(t, err)
	assert.Equal(t, "OP 1", song.Theme.Type)
}

package autocomplete

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/kumaquiz/internal/resolver"
)

type fakeSpotify struct{ n int }

func (f fakeSpotify) SpotifySuggestions(_ context.Context, q string, _ int) ([]resolver.Suggestion, error) {
	var out []resolver.Suggestion
	for range f.n {
		out = append(out, resolver.Suggestion{Name: "Spotify: 🎵 " + q, Value: "spotify:track:4uLU6hMCjMI75M1A2tKUQC"})
	}
	return out, nil
}

func suggestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "yt", r.URL.Query().Get("ds"))
		q := r.URL.Query().Get("q")
		_, _ = io.WriteString(w, `["`+q+`",["`+q+` op","`+q+` ed","`+q+` full"],[],{}]`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestYouTubeSuggestionsAreCached(t *testing.T) {
	var hits atomic.Int32
	srv := suggestServer(t, &hits)
	s := NewSuggester(srv.URL, nil, nil, quiet())

	got, err := s.YouTube(context.Background(), "naruto")
	require.NoError(t, err)
	assert.Equal(t, []string{"naruto op", "naruto ed", "naruto full"}, got)

	_, err = s.YouTube(context.Background(), "Naruto")
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestChoices(t *testing.T) {
	var hits atomic.Int32
	srv := suggestServer(t, &hits)
	s := NewSuggester(srv.URL, fakeSpotify{n: 5}, nil, quiet())

	got := s.Choices(context.Background(), "naruto", 4)
	require.Len(t, got, 4)
	assert.Equal(t, "YouTube: naruto op", got[0].Name)
	assert.Equal(t, "naruto op", got[0].Value)
	assert.Equal(t, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", got[3].Value)

	assert.Empty(t, s.Choices(context.Background(), "  ", 4))
}

func TestChoicesSurviveSuggestFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	s := NewSuggester(srv.URL, fakeSpotify{n: 1}, nil, quiet())

	got := s.Choices(context.Background(), "naruto", 10)
	require.Len(t, got, 1)
	assert.Equal(t, "Spotify: 🎵 naruto", got[0].Name)
}

func TestFilter(t *testing.T) {
	users := []string{"Alice", "bob", "alicia"}
	got := Filter(users, "ali", 10)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Value)
	assert.Equal(t, "alicia", got[1].Value)

	assert.Len(t, Filter(users, "", 2), 2)
}

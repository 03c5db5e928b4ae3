// Package autocomplete builds slash command choices for the play query.
package autocomplete

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaquiz/internal/cache"
	"github.com/sonroyaalmerol/kumaquiz/internal/resolver"
	"github.com/sonroyaalmerol/kumaquiz/internal/utils"
)

const (
	DefaultSuggestURL = "https://suggestqueries.google.com/complete/search"

	suggestTTL = 30 * time.Minute
	// Discord rejects choice names and values over 100 characters.
	maxChoiceLen = 100
)

// SpotifySearcher is satisfied by *resolver.Resolver.
type SpotifySearcher interface {
	SpotifySuggestions(ctx context.Context, query string, limit int) ([]resolver.Suggestion, error)
}

type Suggester struct {
	http    *http.Client
	baseURL string
	spotify SpotifySearcher // optional
	cache   cache.Store
	log     *slog.Logger
}

func NewSuggester(baseURL string, sp SpotifySearcher, store cache.Store, log *slog.Logger) *Suggester {
	if baseURL == "" {
		baseURL = DefaultSuggestURL
	}
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Suggester{
		http:    &http.Client{Timeout: 2 * time.Second},
		baseURL: baseURL,
		spotify: sp,
		cache:   store,
		log:     log,
	}
}

// YouTube returns Google's YouTube search completions for query.
func (s *Suggester) YouTube(ctx context.Context, query string) ([]string, error) {
	key := "suggest:" + strings.ToLower(query)
	return cache.Remember(ctx, s.cache, key, suggestTTL, func(ctx context.Context) ([]string, error) {
		return s.fetch(ctx, query)
	})
}

func (s *Suggester) fetch(ctx context.Context, query string) ([]string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("client", "firefox")
	q.Set("ds", "yt")
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggest: status %d", resp.StatusCode)
	}
	// ["query", ["suggestion", ...], ...]
	var parsed []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("suggest: decode: %w", err)
	}
	if len(parsed) < 2 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(parsed[1], &out); err != nil {
		return nil, fmt.Errorf("suggest: decode list: %w", err)
	}
	return out, nil
}

func choice(name, value string) *discordgo.ApplicationCommandOptionChoice {
	return &discordgo.ApplicationCommandOptionChoice{
		Name:  utils.Truncate(name, maxChoiceLen),
		Value: value,
	}
}

// Choices mixes YouTube completions with Spotify albums and tracks, giving
// Spotify at most half of limit.
func (s *Suggester) Choices(ctx context.Context, query string, limit int) []*discordgo.ApplicationCommandOptionChoice {
	if limit <= 0 {
		limit = 10
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []*discordgo.ApplicationCommandOptionChoice{}
	}

	yt, err := s.YouTube(ctx, query)
	if err != nil {
		s.log.Debug("youtube suggestions failed", "query", query, "err", err)
	}
	var sp []resolver.Suggestion
	if s.spotify != nil {
		sp, err = s.spotify.SpotifySuggestions(ctx, query, max(1, limit/4))
		if err != nil {
			s.log.Debug("spotify suggestions failed", "query", query, "err", err)
		}
		sp = sp[:min(len(sp), limit/2)]
	}

	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, limit)
	for _, v := range yt[:min(len(yt), limit-len(sp))] {
		if len(v) > maxChoiceLen {
			continue
		}
		out = append(out, choice("YouTube: "+v, v))
	}
	for _, v := range sp {
		out = append(out, choice(v.Name, v.Value))
	}
	return out
}

// Filter returns the values containing prefix, case-insensitively, as choices.
func Filter(values []string, prefix string, limit int) []*discordgo.ApplicationCommandOptionChoice {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	out := []*discordgo.ApplicationCommandOptionChoice{}
	for _, v := range values {
		if len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(v), prefix) {
			out = append(out, choice(v, v))
		}
	}
	return out
}

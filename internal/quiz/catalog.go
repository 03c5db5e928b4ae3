package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

type catalogSong struct {
	ID          string `json:"id"`
	MalID       int    `json:"malId"`
	AnimeTitle  string `json:"animeTitle"`
	SongName    string `json:"songName"`
	SongType    string `json:"songType"`
	SongURL     string `json:"songUrl"`
	ReleaseDate string `json:"releaseDate"`
}

func (s catalogSong) toSong() Song {
	return Song{
		Anime: Anime{
			MalID:     s.MalID,
			Title:     s.AnimeTitle,
			Premiered: s.ReleaseDate,
		},
		Theme: Theme{Type: s.SongType, Text: s.SongName},
		URL:   s.SongURL,
	}
}

// CatalogSource is a client for the self-hosted song catalog service.
type CatalogSource struct {
	base string
	http *http.Client
	intn func(int) int
}

func NewCatalogSource(baseURL string, client *http.Client) *CatalogSource {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	return &CatalogSource{base: strings.TrimRight(baseURL, "/"), http: client, intn: rand.IntN}
}

func (c *CatalogSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog %s: http %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *CatalogSource) RandomSong(ctx context.Context) (Song, error) {
	var s catalogSong
	if err := c.get(ctx, "/roulette", &s); err != nil {
		return Song{}, fmt.Errorf("catalog roulette: %w", err)
	}
	return s.toSong(), nil
}

// AnimeIDs lists the MyAnimeList ids that have at least one song.
func (c *CatalogSource) AnimeIDs(ctx context.Context) ([]int, error) {
	var ids []int
	if err := c.get(ctx, "/animelist", &ids); err != nil {
		return nil, fmt.Errorf("catalog anime list: %w", err)
	}
	return ids, nil
}

// SongFor picks one of the catalog songs of an anime.
func (c *CatalogSource) SongFor(ctx context.Context, malID int) (Song, error) {
	var songs []catalogSong
	if err := c.get(ctx, fmt.Sprintf("/database/%d", malID), &songs); err != nil {
		return Song{}, fmt.Errorf("catalog songs of %d: %w", malID, err)
	}
	if len(songs) == 0 {
		return Song{}, fmt.Errorf("%w: mal id %d", ErrNoThemes, malID)
	}
	return songs[c.intn(len(songs))].toSong(), nil
}

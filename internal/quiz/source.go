package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

var (
	ErrUserNotFound = errors.New("anime list user not found")
	ErrEmptyList    = errors.New("no watching or completed anime")
	ErrNoThemes     = errors.New("anime has no themes")
)

// Song is a concrete theme picked for a quiz round.
type Song struct {
	Anime Anime
	Theme Theme
	// URL is a direct media link when the source knows one; otherwise the
	// theme is searched for.
	URL string
}

// Source picks songs for quiz rounds.
type Source interface {
	RandomSong(ctx context.Context) (Song, error)
	UserSong(ctx context.Context, username string) (Song, error)
	ValidateUser(ctx context.Context, username string) error
}

// pickTheme chooses one theme of a uniformly.
func pickTheme(a Anime, intn func(int) int) (Theme, error) {
	themes := a.Themes()
	if len(themes) == 0 {
		return Theme{}, fmt.Errorf("%w: mal id %d", ErrNoThemes, a.MalID)
	}
	return themes[intn(len(themes))], nil
}

// MultiSource prefers the self-hosted catalog, which carries direct song
// links, and falls back to the public APIs.
type MultiSource struct {
	Catalog *CatalogSource // optional
	Jikan   *JikanSource
	Log     *slog.Logger

	intn func(int) int
}

func NewMultiSource(catalog *CatalogSource, jikan *JikanSource, log *slog.Logger) *MultiSource {
	if log == nil {
		log = slog.Default()
	}
	return &MultiSource{Catalog: catalog, Jikan: jikan, Log: log, intn: rand.IntN}
}

func (m *MultiSource) RandomSong(ctx context.Context) (Song, error) {
	if m.Catalog != nil {
		song, err := m.Catalog.RandomSong(ctx)
		if err == nil {
			return m.enrich(ctx, song), nil
		}
		m.Log.Warn("catalog roulette failed, using public api", "err", err)
	}
	return m.Jikan.RandomSong(ctx)
}

// UserSong picks from the user's list. Anime the catalog knows are played
// from the catalog so the exact song file is used.
func (m *MultiSource) UserSong(ctx context.Context, username string) (Song, error) {
	if m.Catalog == nil {
		return m.Jikan.UserSong(ctx, username)
	}
	ids, err := m.Jikan.UserAnimeIDs(ctx, username)
	if err != nil {
		return Song{}, err
	}
	known, err := m.Catalog.AnimeIDs(ctx)
	if err != nil {
		m.Log.Warn("catalog anime list failed", "err", err)
		known = nil
	}
	inCatalog := make(map[int]bool, len(known))
	for _, id := range known {
		inCatalog[id] = true
	}
	var both []int
	for _, id := range ids {
		if inCatalog[id] {
			both = append(both, id)
		}
	}
	if len(both) > 0 {
		id := both[m.intn(len(both))]
		song, err := m.Catalog.SongFor(ctx, id)
		if err == nil {
			return m.enrich(ctx, song), nil
		}
		m.Log.Warn("catalog song lookup failed", "malID", id, "err", err)
	}
	return m.Jikan.songFromIDs(ctx, ids)
}

// enrich fills the alternate titles of a catalog song from MyAnimeList so
// guesses in English or Japanese count too.
func (m *MultiSource) enrich(ctx context.Context, song Song) Song {
	if song.Anime.MalID <= 0 {
		return song
	}
	a, err := m.Jikan.Anime(ctx, song.Anime.MalID)
	if err != nil {
		m.Log.Debug("anime details unavailable", "malID", song.Anime.MalID, "err", err)
		return song
	}
	song.Anime.TitleEnglish = a.TitleEnglish
	song.Anime.TitleJapanese = a.TitleJapanese
	song.Anime.Synonyms = a.Synonyms
	if song.Anime.Title == "" {
		song.Anime.Title = a.Title
	}
	return song
}

func (m *MultiSource) ValidateUser(ctx context.Context, username string) error {
	return m.Jikan.ValidateUser(ctx, username)
}

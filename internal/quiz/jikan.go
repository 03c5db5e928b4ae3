package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/sonroyaalmerol/kumaquiz/internal/cache"
)

const (
	animeTTL = 24 * time.Hour
	listTTL  = time.Hour
	userTTL  = 6 * time.Hour

	// a few picks have no themes listed yet
	maxPickAttempts = 3
)

var errNotFound = errors.New("not found")

type JikanOptions struct {
	JikanURL   string
	ThemesURL  string
	RPS        float64
	Cache      cache.Store
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// JikanSource reads MyAnimeList data through the Jikan API and uses the
// themes.moe roulette for random picks.
type JikanSource struct {
	http      *http.Client
	jikanURL  string
	themesURL string
	limiter   *rate.Limiter
	cache     cache.Store
	log       *slog.Logger
	intn      func(int) int
}

func NewJikanSource(opts JikanOptions) *JikanSource {
	if opts.RPS <= 0 {
		opts.RPS = 1
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &JikanSource{
		http:      opts.HTTPClient,
		jikanURL:  strings.TrimRight(opts.JikanURL, "/"),
		themesURL: strings.TrimRight(opts.ThemesURL, "/"),
		limiter:   rate.NewLimiter(rate.Limit(opts.RPS), 1),
		cache:     opts.Cache,
		log:       opts.Logger,
		intn:      rand.IntN,
	}
}

func (j *JikanSource) getJSON(ctx context.Context, u string, limited bool, out any) error {
	if limited {
		if err := j.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := j.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("GET %s: http %d", u, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type jikanAnime struct {
	MalID         int      `json:"mal_id"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english"`
	TitleJapanese string   `json:"title_japanese"`
	TitleSynonyms []string `json:"title_synonyms"`
	Season        string   `json:"season"`
	Year          int      `json:"year"`
	Aired         struct {
		String string `json:"string"`
	} `json:"aired"`
	Theme struct {
		Openings []string `json:"openings"`
		Endings  []string `json:"endings"`
	} `json:"theme"`
}

func (a jikanAnime) toAnime() Anime {
	out := Anime{
		MalID:         a.MalID,
		Title:         a.Title,
		TitleEnglish:  a.TitleEnglish,
		TitleJapanese: a.TitleJapanese,
		Synonyms:      a.TitleSynonyms,
		Aired:         a.Aired.String,
		Openings:      a.Theme.Openings,
		Endings:       a.Theme.Endings,
	}
	if a.Season != "" && a.Year > 0 {
		out.Premiered = cases.Title(language.English).String(a.Season) + " " + strconv.Itoa(a.Year)
	}
	return out
}

// Anime returns the full entry for a MyAnimeList id.
func (j *JikanSource) Anime(ctx context.Context, malID int) (Anime, error) {
	key := "jikan:anime:" + strconv.Itoa(malID)
	return cache.Remember(ctx, j.cache, key, animeTTL, func(ctx context.Context) (Anime, error) {
		var body struct {
			Data jikanAnime `json:"data"`
		}
		if err := j.getJSON(ctx, fmt.Sprintf("%s/anime/%d/full", j.jikanURL, malID), true, &body); err != nil {
			return Anime{}, fmt.Errorf("anime %d: %w", malID, err)
		}
		return body.Data.toAnime(), nil
	})
}

// randomID asks the themes.moe roulette, falling back to Jikan's random anime.
func (j *JikanSource) randomID(ctx context.Context) (int, error) {
	var roulette struct {
		MalID int `json:"malID"`
	}
	err := j.getJSON(ctx, j.themesURL+"/roulette", false, &roulette)
	if err == nil && roulette.MalID > 0 {
		return roulette.MalID, nil
	}
	j.log.Debug("themes roulette unavailable", "err", err)

	var body struct {
		Data struct {
			MalID int `json:"mal_id"`
		} `json:"data"`
	}
	if err := j.getJSON(ctx, j.jikanURL+"/random/anime", true, &body); err != nil {
		return 0, fmt.Errorf("random anime: %w", err)
	}
	return body.Data.MalID, nil
}

func (j *JikanSource) RandomSong(ctx context.Context) (Song, error) {
	var lastErr error
	for range maxPickAttempts {
		id, err := j.randomID(ctx)
		if err != nil {
			return Song{}, err
		}
		song, err := j.songFor(ctx, id)
		if err == nil {
			return song, nil
		}
		lastErr = err
	}
	return Song{}, lastErr
}

func (j *JikanSource) songFor(ctx context.Context, malID int) (Song, error) {
	a, err := j.Anime(ctx, malID)
	if err != nil {
		return Song{}, err
	}
	theme, err := pickTheme(a, j.intn)
	if err != nil {
		return Song{}, err
	}
	return Song{Anime: a, Theme: theme}, nil
}

type listEntry struct {
	Anime struct {
		MalID int `json:"mal_id"`
	} `json:"anime"`
	WatchingStatus int `json:"watching_status"`
}

// UserAnimeIDs lists the anime a user is watching (1) or has completed (2).
func (j *JikanSource) UserAnimeIDs(ctx context.Context, username string) ([]int, error) {
	key := "jikan:list:" + strings.ToLower(username)
	ids, err := cache.Remember(ctx, j.cache, key, listTTL, func(ctx context.Context) ([]int, error) {
		var body struct {
			Data []listEntry `json:"data"`
		}
		u := fmt.Sprintf("%s/users/%s/animelist", j.jikanURL, url.PathEscape(username))
		if err := j.getJSON(ctx, u, true, &body); err != nil {
			if errors.Is(err, errNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
			}
			return nil, err
		}
		var out []int
		for _, e := range body.Data {
			if e.WatchingStatus == 1 || e.WatchingStatus == 2 {
				out = append(out, e.Anime.MalID)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyList, username)
	}
	return ids, nil
}

func (j *JikanSource) UserSong(ctx context.Context, username string) (Song, error) {
	ids, err := j.UserAnimeIDs(ctx, username)
	if err != nil {
		return Song{}, err
	}
	return j.songFromIDs(ctx, ids)
}

func (j *JikanSource) songFromIDs(ctx context.Context, ids []int) (Song, error) {
	if len(ids) == 0 {
		return Song{}, ErrEmptyList
	}
	var lastErr error
	for range maxPickAttempts {
		song, err := j.songFor(ctx, ids[j.intn(len(ids))])
		if err == nil {
			return song, nil
		}
		lastErr = err
	}
	return Song{}, lastErr
}

// ValidateUser checks that the MyAnimeList profile exists.
func (j *JikanSource) ValidateUser(ctx context.Context, username string) error {
	key := "jikan:user:" + strings.ToLower(username)
	_, err := cache.Remember(ctx, j.cache, key, userTTL, func(ctx context.Context) (bool, error) {
		var body json.RawMessage
		err := j.getJSON(ctx, fmt.Sprintf("%s/users/%s", j.jikanURL, url.PathEscape(username)), true, &body)
		if errors.Is(err, errNotFound) {
			return false, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return err == nil, err
	})
	return err
}

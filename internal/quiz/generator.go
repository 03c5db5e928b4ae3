package quiz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sonroyaalmerol/kumaquiz/internal/player"
)

// TrackResolver turns a search query or link into playable tracks.
type TrackResolver interface {
	Resolve(ctx context.Context, query, requestor string) ([]player.Track, error)
}

// Generator builds quiz tracks: it picks a song from a Source and resolves
// it to something playable.
type Generator struct {
	source Source
	tracks TrackResolver
	log    *slog.Logger
}

func NewGenerator(source Source, tracks TrackResolver, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{source: source, tracks: tracks, log: log}
}

// Generate picks from username's list, or at random when username is empty.
func (g *Generator) Generate(ctx context.Context, username string, guessMode bool) (player.Track, error) {
	var (
		song Song
		err  error
	)
	if username == "" {
		song, err = g.source.RandomSong(ctx)
	} else {
		song, err = g.source.UserSong(ctx, username)
	}
	if err != nil {
		return player.Track{}, err
	}

	query := song.URL
	if query == "" {
		query = SearchQuery(song.Anime.Title, song.Theme)
	}
	g.log.Debug("quiz song picked", "anime", song.Anime.Title, "theme", song.Theme.Type, "query", query)

	requestor := username
	if requestor == "" {
		requestor = player.RandomRequestor
	}
	tracks, err := g.tracks.Resolve(ctx, query, requestor)
	if err != nil {
		return player.Track{}, fmt.Errorf("resolve %q: %w", query, err)
	}
	if len(tracks) == 0 {
		return player.Track{}, fmt.Errorf("no track found for %q", query)
	}
	return Build(tracks[0], song, username, guessMode), nil
}

func (g *Generator) ValidateUser(ctx context.Context, username string) error {
	return g.source.ValidateUser(ctx, username)
}

// Build decorates a resolved track with the quiz metadata of song.
func Build(t player.Track, song Song, username string, guessMode bool) player.Track {
	kind := "Normal"
	if guessMode {
		kind = "Guess"
	}
	t.Title = fmt.Sprintf("[AMQ %s] %s", kind, song.Theme.Type)
	t.Requestor = username
	if t.Requestor == "" {
		t.Requestor = player.RandomRequestor
	}
	t.Related = nil
	if guessMode {
		// the video thumbnail usually gives the answer away
		t.Thumbnail = ""
	}

	q := &player.QuizMeta{
		SongType:    song.Theme.Type,
		SongName:    song.Theme.SongName(),
		Artist:      song.Theme.Artist(),
		AnimeTitle:  song.Anime.Title,
		ReleaseDate: song.Anime.ReleaseDate(),
		MalID:       song.Anime.MalID,
		SourceUser:  username,
		Guessable:   guessMode,
	}
	if guessMode {
		q.GuessTitles = GuessTitles(song.Anime)
	}
	t.Quiz = q
	return t
}

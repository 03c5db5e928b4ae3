package catalog

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

// HashSong derives the song id from the fields that identify it.
func HashSong(s Song) string {
	sum := md5.Sum(fmt.Appendf(nil, "%d|%s|%s|%s", s.MalID, s.AnimeTitle, s.SongURL, s.SongType))
	return hex.EncodeToString(sum[:])
}

func (s *Song) normalize() error {
	s.AnimeTitle = strings.TrimSpace(s.AnimeTitle)
	s.SongName = strings.TrimSpace(s.SongName)
	s.SongType = strings.TrimSpace(s.SongType)
	s.SongURL = strings.TrimSpace(s.SongURL)
	s.ReleaseDate = strings.TrimSpace(s.ReleaseDate)
	switch {
	case s.MalID <= 0:
		return fmt.Errorf("%w: malId must be positive", ErrInvalid)
	case s.AnimeTitle == "":
		return fmt.Errorf("%w: animeTitle is required", ErrInvalid)
	case s.SongType == "":
		return fmt.Errorf("%w: songType is required", ErrInvalid)
	case !strings.HasPrefix(s.SongURL, "http://") && !strings.HasPrefix(s.SongURL, "https://"):
		return fmt.Errorf("%w: songUrl must be an http(s) link", ErrInvalid)
	}
	return nil
}

func (r *Repo) AddSong(ctx context.Context, s Song) (Song, error) {
	if err := s.normalize(); err != nil {
		return Song{}, err
	}
	s.ID = HashSong(s)
	s.CreatedAt = r.now().UTC().Truncate(time.Second)

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO anime_songs(id, mal_id, anime_title, song_name, song_type, song_url, release_date, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, s.MalID, s.AnimeTitle, s.SongName, s.SongType, s.SongURL, s.ReleaseDate, s.CreatedAt.Unix(),
	)
	if err != nil {
		return Song{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Song{}, err
	}
	if n == 0 {
		return Song{}, fmt.Errorf("%w: %s", ErrDuplicate, s.ID)
	}
	return s, nil
}

const songColumns = `id, mal_id, anime_title, song_name, song_type, song_url, release_date, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSong(row scanner) (Song, error) {
	var (
		s       Song
		created int64
	)
	if err := row.Scan(&s.ID, &s.MalID, &s.AnimeTitle, &s.SongName, &s.SongType, &s.SongURL, &s.ReleaseDate, &created); err != nil {
		return Song{}, err
	}
	s.CreatedAt = time.Unix(created, 0).UTC()
	return s, nil
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]Song, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) Songs(ctx context.Context) ([]Song, error) {
	return r.query(ctx, `SELECT `+songColumns+` FROM anime_songs ORDER BY anime_title ASC, song_type ASC`)
}

func (r *Repo) SongsByMalID(ctx context.Context, malID int) ([]Song, error) {
	return r.query(ctx, `SELECT `+songColumns+` FROM anime_songs WHERE mal_id=? ORDER BY song_type ASC`, malID)
}

func (r *Repo) Song(ctx context.Context, id string) (Song, error) {
	s, err := scanSong(r.db.QueryRowContext(ctx, `SELECT `+songColumns+` FROM anime_songs WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Song{}, ErrNotFound
	}
	return s, err
}

func (r *Repo) RandomSong(ctx context.Context) (Song, error) {
	s, err := scanSong(r.db.QueryRowContext(ctx, `SELECT `+songColumns+` FROM anime_songs ORDER BY RANDOM() LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return Song{}, ErrNotFound
	}
	return s, err
}

// AnimeIDs lists every MyAnimeList id with at least one song.
func (r *Repo) AnimeIDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT mal_id FROM anime_songs ORDER BY mal_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteSong(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM anime_songs WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

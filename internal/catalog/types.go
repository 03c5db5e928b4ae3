package catalog

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("song not found")
	ErrDuplicate = errors.New("song already in catalog")
	ErrInvalid   = errors.New("invalid song")
)

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// Song is one anime theme with a direct media link.
type Song struct {
	ID          string    `json:"id"`
	MalID       int       `json:"malId"`
	AnimeTitle  string    `json:"animeTitle"`
	SongName    string    `json:"songName"`
	SongType    string    `json:"songType"` // "OP 1", "ED #1"
	SongURL     string    `json:"songUrl"`
	ReleaseDate string    `json:"releaseDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

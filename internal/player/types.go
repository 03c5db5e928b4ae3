package player

import (
	"slices"
	"strings"
	"time"
)

type Source int

const (
	SourceYouTube Source = iota
	SourceSoundCloud
	SourceSpotify
	SourceArbitrary
	SourceOther
)

func (s Source) String() string {
	switch s {
	case SourceYouTube:
		return "youtube"
	case SourceSoundCloud:
		return "soundcloud"
	case SourceSpotify:
		return "spotify"
	case SourceArbitrary:
		return "arbitrary"
	default:
		return "other"
	}
}

type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopTrack
	LoopQueue
)

func (m LoopMode) String() string {
	switch m {
	case LoopTrack:
		return "track"
	case LoopQueue:
		return "queue"
	default:
		return "off"
	}
}

func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "":
		return LoopOff, nil
	case "track", "song":
		return LoopTrack, nil
	case "queue", "all":
		return LoopQueue, nil
	}
	return LoopOff, ErrInvalidArgs
}

// Caller identifies the user behind an operation. The zero value marks a
// spontaneous transition (stream callback, timer, disconnect).
type Caller struct {
	ID   string
	Name string
}

// StreamInfo is the lazily resolved playable location of a track.
type StreamInfo struct {
	URL       string
	BackupURL string
	Headers   map[string]string
	Start     time.Duration // non-music lead-in skipped on a fresh start
}

type Track struct {
	ID        string // unique per queued instance
	Title     string
	URL       string
	VideoID   string // platform id, used for autoplay bookkeeping
	Duration  time.Duration
	Live      bool
	Thumbnail string
	Source    Source
	Requestor string
	BackupURL string

	Stream  *StreamInfo
	Related []Track
	Quiz    *QuizMeta
}

// Unknown reports whether the track has no usable finite duration.
func (t Track) Unknown() bool { return t.Live || t.Duration <= 0 }

// Clone returns a deep copy safe to hand outside the session.
func (t Track) Clone() Track {
	out := t
	if t.Stream != nil {
		s := *t.Stream
		out.Stream = &s
	}
	if t.Related != nil {
		out.Related = make([]Track, len(t.Related))
		for i, r := range t.Related {
			out.Related[i] = r.Clone()
		}
	}
	if t.Quiz != nil {
		q := t.Quiz.clone()
		out.Quiz = &q
	}
	return out
}

type Guess struct {
	Username string
	Accuracy float64
}

type QuizMeta struct {
	SongType    string // "OP 1", "ED #1"
	SongName    string
	Artist      string
	AnimeTitle  string
	ReleaseDate string
	MalID       int
	SourceUser  string

	GuessTitles  []string // lower-cased candidate answers
	Guessable    bool
	GuessStarted bool
	Guesses      []Guess
	Revealed     bool
}

func (q QuizMeta) clone() QuizMeta {
	q.GuessTitles = slices.Clone(q.GuessTitles)
	q.Guesses = slices.Clone(q.Guesses)
	return q
}

// RevealTitle is the title shown once a quiz track is revealed.
func (q QuizMeta) RevealTitle() string {
	return strings.TrimSpace(q.SongName + " - " + q.AnimeTitle + " " + q.SongType)
}

// RevealTrack exposes a quiz track's identity. The input is not modified.
func RevealTrack(t Track) Track {
	out := t.Clone()
	if out.Quiz == nil || out.Quiz.Revealed {
		return out
	}
	out.Quiz.Revealed = true
	out.Quiz.Guessable = false
	out.Title = out.Quiz.RevealTitle()
	return out
}

type QuizConfig struct {
	Enabled      bool
	GuessMode    bool
	GuessTime    int     // seconds, [5,60]
	SourceChance float64 // [0,1]
	SourceUsers  []string
}

type AutoplayConfig struct {
	Enabled bool
	Unique  bool
	Window  int
	Played  int // number of recorded video ids
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	GuildID      string
	ChannelID    string
	Queue        []Track
	CurrentIndex int // -1 when nothing is selected
	Connected    bool
	Playing      bool
	Paused       bool
	Volume       float64
	Loop         LoopMode
	Quiz         QuizConfig
	Autoplay     AutoplayConfig
	Position     time.Duration
}

func (s Snapshot) Current() (Track, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return Track{}, false
	}
	return s.Queue[s.CurrentIndex], true
}

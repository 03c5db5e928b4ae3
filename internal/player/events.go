package player

import "time"

type EventType int

const (
	EventTrackStart EventType = iota
	EventTrackAdded
	EventDisconnected
	EventCleared
	EventRemoved
	EventMoved
	EventVolumeChanged
	EventLoopChanged
	EventPaused
	EventResumed
	EventSeeked
	EventQuizToggled
	EventGuessModeToggled
	EventGuessTimeChanged
	EventSourceUsersChanged
	EventSourceChanceChanged
	EventQuizGenerating
	EventGuessRecorded
	EventGuessEnded
	EventGuessModeExpired
	EventRevealed
	EventAutoplayChanged
	EventAutoplaySearching
	EventError
)

var eventNames = [...]string{
	EventTrackStart:          "track_start",
	EventTrackAdded:          "track_added",
	EventDisconnected:        "disconnected",
	EventCleared:             "cleared",
	EventRemoved:             "removed",
	EventMoved:               "moved",
	EventVolumeChanged:       "volume_changed",
	EventLoopChanged:         "loop_changed",
	EventPaused:              "paused",
	EventResumed:             "resumed",
	EventSeeked:              "seeked",
	EventQuizToggled:         "quiz_toggled",
	EventGuessModeToggled:    "guess_mode_toggled",
	EventGuessTimeChanged:    "guess_time_changed",
	EventSourceUsersChanged:  "source_users_changed",
	EventSourceChanceChanged: "source_chance_changed",
	EventQuizGenerating:      "quiz_generating",
	EventGuessRecorded:       "guess_recorded",
	EventGuessEnded:          "guess_ended",
	EventGuessModeExpired:    "guess_mode_expired",
	EventRevealed:            "revealed",
	EventAutoplayChanged:     "autoplay_changed",
	EventAutoplaySearching:   "autoplay_searching",
	EventError:               "error",
}

func (t EventType) String() string {
	if int(t) < 0 || int(t) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[t]
}

// Event is implemented only by the types in this file; consumers switch on
// the concrete type.
type Event interface {
	Type() EventType
	Guild() string
	// Origin is the user whose command caused the event.
	Origin() Caller
	isEvent()
}

// Meta is embedded in every event. Caller is zero for spontaneous transitions.
type Meta struct {
	GuildID string
	Caller  Caller
}

func (m Meta) Guild() string  { return m.GuildID }
func (m Meta) Origin() Caller { return m.Caller }
func (Meta) isEvent()         {}

type TrackStart struct {
	Meta
	Track Track
	Index int
}

type TrackAdded struct {
	Meta
	Tracks []Track
	Index  int // queue position of the first added track
}

type Disconnected struct{ Meta }

type Cleared struct{ Meta }

type Removed struct {
	Meta
	Tracks   []Track
	From, To int
}

type Moved struct {
	Meta
	Track    Track
	From, To int
}

type VolumeChanged struct {
	Meta
	Volume float64
}

type LoopChanged struct {
	Meta
	Mode LoopMode
}

type Paused struct{ Meta }

type Resumed struct{ Meta }

type Seeked struct {
	Meta
	Position time.Duration
}

type QuizToggled struct {
	Meta
	Enabled bool
}

type GuessModeToggled struct {
	Meta
	Enabled bool
}

type GuessTimeChanged struct {
	Meta
	Seconds int
}

type SourceUsersChanged struct {
	Meta
	Users []string
}

type SourceChanceChanged struct {
	Meta
	Chance float64
}

type QuizGenerating struct {
	Meta
	Username string // empty for a random pick
}

type GuessRecorded struct {
	Meta
	Guess Guess
}

type GuessEnded struct {
	Meta
	Track   Track
	Guesses []Guess
}

// GuessModeExpired is emitted when a track is left before its guess window closed.
type GuessModeExpired struct {
	Meta
	Track Track
}

type Revealed struct {
	Meta
	Track Track
	Index int
}

type AutoplayChanged struct {
	Meta
	Config AutoplayConfig
}

type AutoplaySearching struct {
	Meta
	Track Track
}

type ErrorEvent struct {
	Meta
	Err error
}

func (TrackStart) Type() EventType          { return EventTrackStart }
func (TrackAdded) Type() EventType          { return EventTrackAdded }
func (Disconnected) Type() EventType        { return EventDisconnected }
func (Cleared) Type() EventType             { return EventCleared }
func (Removed) Type() EventType             { return EventRemoved }
func (Moved) Type() EventType               { return EventMoved }
func (VolumeChanged) Type() EventType       { return EventVolumeChanged }
func (LoopChanged) Type() EventType         { return EventLoopChanged }
func (Paused) Type() EventType              { return EventPaused }
func (Resumed) Type() EventType             { return EventResumed }
func (Seeked) Type() EventType              { return EventSeeked }
func (QuizToggled) Type() EventType         { return EventQuizToggled }
func (GuessModeToggled) Type() EventType    { return EventGuessModeToggled }
func (GuessTimeChanged) Type() EventType    { return EventGuessTimeChanged }
func (SourceUsersChanged) Type() EventType  { return EventSourceUsersChanged }
func (SourceChanceChanged) Type() EventType { return EventSourceChanceChanged }
func (QuizGenerating) Type() EventType      { return EventQuizGenerating }
func (GuessRecorded) Type() EventType       { return EventGuessRecorded }
func (GuessEnded) Type() EventType          { return EventGuessEnded }
func (GuessModeExpired) Type() EventType    { return EventGuessModeExpired }
func (Revealed) Type() EventType            { return EventRevealed }
func (AutoplayChanged) Type() EventType     { return EventAutoplayChanged }
func (AutoplaySearching) Type() EventType   { return EventAutoplaySearching }
func (ErrorEvent) Type() EventType          { return EventError }

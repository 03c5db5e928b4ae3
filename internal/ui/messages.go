package ui

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"

	"github.com/sonroyaalmerol/kumaquiz/internal/player"
	"github.com/sonroyaalmerol/kumaquiz/internal/utils"
)

// Message is what a session event turns into in the text channel.
type Message struct {
	Content string
	Embed   *discordgo.MessageEmbed
}

var errorText = []struct {
	err  error
	text string
}{
	{player.ErrInvalidArgs, "that doesn't look right, check the arguments"},
	{player.ErrOutOfBounds, "that position isn't in the queue"},
	{player.ErrInvalidQuery, "can't play that query"},
	{player.ErrNotPlaying, "nothing is playing"},
	{player.ErrQueueEmpty, "the queue is empty"},
	{player.ErrGuessModeActive, "not while guessing is open"},
	{player.ErrNotAQuizTrack, "that isn't an AMQ track"},
	{player.ErrNotGuessable, "this track can't be guessed right now"},
	{player.ErrNoSourceUsers, "no source users are configured"},
	{player.ErrUnknownSourceUser, "that MyAnimeList user isn't usable"},
	{player.ErrVoiceChannelRequired, "gotta be in a voice channel"},
	{player.ErrPermissionsDenied, "I can't connect and speak in your voice channel"},
	{player.ErrNoResults, "no songs found"},
	{player.ErrQuizGenerationFailed, "couldn't find an anime song, try again"},
	{player.ErrNoRelatedVideos, "no related videos to autoplay"},
	{player.ErrSessionClosed, "the player is shutting down"},
}

// ErrorMessage is the user-facing text for err.
func ErrorMessage(err error) string {
	for _, e := range errorText {
		if errors.Is(err, e.err) {
			return e.text
		}
	}
	if player.KindOf(err) == player.KindTransientStream {
		return "playback failed, skipping"
	}
	return "internal error"
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func percent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}

// Added confirms tracks a user queued.
func Added(tracks []player.Track) string {
	if len(tracks) == 1 {
		return fmt.Sprintf("**%s** added to the queue", trackLink(tracks[0]))
	}
	return fmt.Sprintf("%s added to the queue", plural(len(tracks), "track"))
}

func trackStartEmbed(ev player.TrackStart) *discordgo.MessageEmbed {
	t := ev.Track
	desc := fmt.Sprintf("**%s** `[ %s ]`%s", trackLink(t), trackLength(t), requestedBy(t))
	color := colorPlaying
	if t.Quiz != nil {
		color = colorQuiz
		if t.Quiz.Guessable {
			desc += "\n\nGuess the anime with `/guess`!"
		}
	}
	return withThumbnail(&discordgo.MessageEmbed{
		Title:       "Now Playing",
		Description: desc,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Track %d • %s", ev.Index+1, t.Source)},
	}, t)
}

func revealEmbed(title string, t player.Track, guesses []player.Guess) *discordgo.MessageEmbed {
	e := withThumbnail(&discordgo.MessageEmbed{
		Title:       title,
		Description: "**" + trackLink(t) + "**",
		Color:       colorQuiz,
	}, t)
	if q := t.Quiz; q != nil {
		if q.Artist != "" {
			e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Artist", Value: utils.EscapeMd(q.Artist), Inline: true})
		}
		if q.ReleaseDate != "" {
			e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Aired", Value: q.ReleaseDate, Inline: true})
		}
		if q.MalID > 0 {
			e.URL = fmt.Sprintf("https://myanimelist.net/anime/%d", q.MalID)
		}
		if q.SourceUser != "" {
			e.Footer = &discordgo.MessageEmbedFooter{Text: "From " + q.SourceUser + "'s list"}
		}
	}
	if guesses != nil {
		val := "nobody got it"
		if len(guesses) > 0 {
			lines := make([]string, len(guesses))
			for i, g := range guesses {
				lines[i] = fmt.Sprintf("✅ %s `%s`", utils.EscapeMd(g.Username), percent(g.Accuracy))
			}
			val = strings.Join(lines, "\n")
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Correct guesses", Value: val})
	}
	return e
}

// Render turns a session event into a channel message. ok is false for
// events that are not announced.
func Render(ev player.Event) (msg Message, ok bool) {
	switch e := ev.(type) {
	case player.TrackStart:
		return Message{Embed: trackStartEmbed(e)}, true
	case player.TrackAdded:
		if len(e.Tracks) == 1 {
			return Message{Content: fmt.Sprintf("**%s** added to the queue at position %d", trackLink(e.Tracks[0]), e.Index+1)}, true
		}
		return Message{Content: fmt.Sprintf("%s added to the queue", plural(len(e.Tracks), "track"))}, true
	case player.Disconnected:
		return Message{Content: "👋 disconnected"}, true
	case player.Cleared:
		return Message{Content: "clearer than a field after a fresh harvest"}, true
	case player.Removed:
		if len(e.Tracks) == 1 {
			return Message{Content: fmt.Sprintf("removed **%s**", trackLink(e.Tracks[0]))}, true
		}
		return Message{Content: fmt.Sprintf("removed %s", plural(len(e.Tracks), "track"))}, true
	case player.Moved:
		return Message{Content: fmt.Sprintf("moved **%s** to position %d", trackLink(e.Track), e.To+1)}, true
	case player.VolumeChanged:
		return Message{Content: "🔊 volume set to " + percent(e.Volume)}, true
	case player.LoopChanged:
		return Message{Content: strings.TrimSpace("loop: " + e.Mode.String() + " " + loopIcon(e.Mode))}, true
	case player.Paused:
		return Message{Content: "⏸️ paused"}, true
	case player.Resumed:
		return Message{Content: "▶️ resumed"}, true
	case player.Seeked:
		return Message{Content: "👍 seeked to " + utils.PrettyDuration(e.Position)}, true
	case player.QuizToggled:
		return Message{Content: "AMQ mode " + onOff(e.Enabled)}, true
	case player.GuessModeToggled:
		return Message{Content: "guess mode " + onOff(e.Enabled)}, true
	case player.GuessTimeChanged:
		return Message{Content: fmt.Sprintf("guess time set to %ds", e.Seconds)}, true
	case player.SourceUsersChanged:
		users := "none"
		if len(e.Users) > 0 {
			users = utils.EscapeMd(strings.Join(e.Users, ", "))
		}
		return Message{Content: "source users: " + users}, true
	case player.SourceChanceChanged:
		return Message{Content: "source chance set to " + percent(e.Chance)}, true
	case player.QuizGenerating:
		if e.Username == "" {
			return Message{Content: "🎲 picking a random anime song…"}, true
		}
		return Message{Content: fmt.Sprintf("🎲 picking a song from %s's list…", utils.EscapeMd(e.Username))}, true
	case player.GuessRecorded:
		return Message{Content: fmt.Sprintf("📝 %s got it!", utils.EscapeMd(e.Guess.Username))}, true
	case player.GuessEnded:
		guesses := e.Guesses
		if guesses == nil {
			guesses = []player.Guess{}
		}
		return Message{Embed: revealEmbed("Time's up!", e.Track, guesses)}, true
	case player.GuessModeExpired:
		return Message{Content: "guessing closed early for the previous track"}, true
	case player.Revealed:
		return Message{Embed: revealEmbed(fmt.Sprintf("Track %d revealed", e.Index+1), e.Track, nil)}, true
	case player.AutoplayChanged:
		c := e.Config
		return Message{Content: fmt.Sprintf("autoplay %s (unique %s, window %d)", onOff(c.Enabled), onOff(c.Unique), c.Window)}, true
	case player.AutoplaySearching:
		return Message{Content: fmt.Sprintf("🔎 finding something like **%s**", trackLink(e.Track))}, true
	case player.ErrorEvent:
		return Message{Content: "⚠️ " + ErrorMessage(e.Err)}, true
	}
	return Message{}, false
}

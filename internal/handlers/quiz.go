package handlers

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaquiz/internal/player"
	"github.com/sonroyaalmerol/kumaquiz/internal/ui"
)

func usernameOpt(required, complete bool) *discordgo.ApplicationCommandOption {
	o := strOpt("username", "MyAnimeList username", required)
	o.Autocomplete = complete
	return o
}

func quizCommand() *discordgo.ApplicationCommand {
	minTime, maxTime := 5.0, 60.0
	minPct := 0.0
	return &discordgo.ApplicationCommand{
		Name:        "quiz",
		Description: "Anime Music Quiz",
		Options: []*discordgo.ApplicationCommandOption{
			subCmd("toggle", "turn AMQ mode on or off"),
			subCmd("guess-mode", "turn timed guessing on or off"),
			subCmd("guess-time", "seconds to guess each song", &discordgo.ApplicationCommandOption{
				Name: "seconds", Description: "5-60", Type: discordgo.ApplicationCommandOptionInteger, Required: true, MinValue: &minTime, MaxValue: maxTime,
			}),
			subCmd("chance", "chance of picking from a source user's list", &discordgo.ApplicationCommandOption{
				Name: "percent", Description: "0-100", Type: discordgo.ApplicationCommandOptionInteger, Required: true, MinValue: &minPct, MaxValue: 100,
			}),
			subCmd("add-user", "add a MyAnimeList user as a song source", usernameOpt(true, false)),
			subCmd("remove-user", "remove a song source user", usernameOpt(true, true)),
			subCmd("clear-users", "remove every song source user"),
			subCmd("add", "queue an AMQ song", usernameOpt(false, true)),
		},
	}
}

func autoplayCommand() *discordgo.ApplicationCommand {
	minWindow := 0.0
	return &discordgo.ApplicationCommand{
		Name:        "autoplay",
		Description: "Keep playing related songs when the queue ends",
		Options: []*discordgo.ApplicationCommandOption{
			subCmd("toggle", "turn autoplay on or off"),
			subCmd("unique", "never autoplay the same song twice"),
			subCmd("window", "how many of the top related songs to pick from", &discordgo.ApplicationCommandOption{
				Name: "size", Description: "number of songs", Type: discordgo.ApplicationCommandOptionInteger, Required: true, MinValue: &minWindow,
			}),
		},
	}
}

func cmdQuiz(ctx context.Context, c *call) (response, error) {
	var ev player.Event
	switch c.sub {
	case "toggle":
		on, err := c.sess.ToggleQuiz(ctx, c.caller)
		if err != nil {
			return response{}, err
		}
		ev = player.QuizToggled{Enabled: on}
	case "guess-mode":
		on, err := c.sess.ToggleGuessMode(ctx, c.caller)
		if err != nil {
			return response{}, err
		}
		ev = player.GuessModeToggled{Enabled: on}
	case "guess-time":
		sec, err := c.sess.SetGuessTime(ctx, c.caller, c.opts.integer("seconds", 0))
		if err != nil {
			return response{}, err
		}
		ev = player.GuessTimeChanged{Seconds: sec}
	case "chance":
		chance, err := c.sess.SetSourceChance(ctx, c.caller, float64(c.opts.integer("percent", 0)))
		if err != nil {
			return response{}, err
		}
		ev = player.SourceChanceChanged{Chance: chance}
	case "add-user":
		name := c.opts.str("username")
		if err := c.sess.AddSourceUser(ctx, c.caller, name); err != nil {
			return response{}, err
		}
		return response{content: fmt.Sprintf("added %s as a song source", name)}, nil
	case "remove-user":
		name := c.opts.str("username")
		if err := c.sess.RemoveSourceUser(ctx, c.caller, name); err != nil {
			return response{}, err
		}
		return response{content: fmt.Sprintf("removed %s from the song sources", name)}, nil
	case "clear-users":
		if err := c.sess.ClearSourceUsers(ctx, c.caller); err != nil {
			return response{}, err
		}
		ev = player.SourceUsersChanged{}
	case "add":
		return quizAdd(ctx, c)
	default:
		return response{}, player.ErrInvalidArgs
	}
	msg, _ := ui.Render(ev)
	return response{content: msg.Content}, nil
}

// quizAdd queues an AMQ song and starts it when nothing is playing.
func quizAdd(ctx context.Context, c *call) (response, error) {
	t, err := c.sess.AddQuizTrack(ctx, c.caller, c.opts.str("username"))
	if err != nil {
		return response{}, err
	}
	snap, err := c.sess.State(ctx)
	if err != nil {
		return response{}, err
	}
	if !snap.Playing {
		for i, q := range snap.Queue {
			if q.ID == t.ID {
				if err := c.sess.Jump(ctx, c.caller, i); err != nil {
					return response{}, err
				}
				break
			}
		}
	}
	return response{content: ui.Added([]player.Track{t})}, nil
}

func cmdGuess(ctx context.Context, c *call) (response, error) {
	g, err := c.sess.Guess(ctx, c.caller, c.opts.str("anime"))
	if err != nil {
		return response{}, err
	}
	if g == nil {
		return response{content: "❌ not quite", ephemeral: true}, nil
	}
	return response{content: fmt.Sprintf("✅ correct! accuracy %.0f%%", g.Accuracy*100), ephemeral: true}, nil
}

func cmdReveal(ctx context.Context, c *call) (response, error) {
	var idx int
	if c.opts.has("position") {
		idx = position(c, "position", 0)
	} else {
		snap, err := c.sess.State(ctx)
		if err != nil {
			return response{}, err
		}
		if snap.CurrentIndex < 0 {
			return response{}, player.ErrNotPlaying
		}
		idx = snap.CurrentIndex
	}
	t, err := c.sess.Reveal(ctx, c.caller, idx)
	if err != nil {
		return response{}, err
	}
	msg, _ := ui.Render(player.Revealed{Track: t, Index: idx})
	return response{embed: msg.Embed}, nil
}

func cmdAutoplay(ctx context.Context, c *call) (response, error) {
	var (
		cfg player.AutoplayConfig
		err error
	)
	switch c.sub {
	case "toggle":
		cfg, err = c.sess.ToggleAutoplay(ctx, c.caller)
	case "unique":
		cfg, err = c.sess.ToggleAutoplayUnique(ctx, c.caller)
	case "window":
		cfg, err = c.sess.SetAutoplayWindow(ctx, c.caller, c.opts.integer("size", 0))
	default:
		err = player.ErrInvalidArgs
	}
	if err != nil {
		return response{}, err
	}
	msg, _ := ui.Render(player.AutoplayChanged{Config: cfg})
	return response{content: msg.Content}, nil
}

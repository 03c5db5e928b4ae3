package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaquiz/internal/player"
	"github.com/sonroyaalmerol/kumaquiz/internal/ui"
	"github.com/sonroyaalmerol/kumaquiz/internal/utils"
)

func intOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Name: name, Description: desc, Type: discordgo.ApplicationCommandOptionInteger, Required: required}
}

func strOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Name: name, Description: desc, Type: discordgo.ApplicationCommandOptionString, Required: required}
}

func subCmd(name, desc string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Name: name, Description: desc, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

func queryOpt() *discordgo.ApplicationCommandOption {
	o := strOpt("query", "YouTube, SoundCloud or Spotify link, media URL, or search", true)
	o.Autocomplete = true
	return o
}

func (h *CommandHandler) commandList() []command {
	minVol, minPos := 0.0, 1.0
	return []command{
		{def: &discordgo.ApplicationCommand{Name: "play", Description: "Play a song, starting playback when idle", Options: []*discordgo.ApplicationCommandOption{queryOpt()}}, slow: true, run: cmdPlay},
		{def: &discordgo.ApplicationCommand{Name: "enqueue", Description: "Add songs to the queue without starting playback", Options: []*discordgo.ApplicationCommandOption{queryOpt()}}, slow: true, run: cmdEnqueue},
		{def: &discordgo.ApplicationCommand{Name: "jump", Description: "Play the song at a queue position", Options: []*discordgo.ApplicationCommandOption{
			{Name: "position", Description: "queue position", Type: discordgo.ApplicationCommandOptionInteger, Required: true, MinValue: &minPos},
		}}, slow: true, run: cmdJump},
		{def: &discordgo.ApplicationCommand{Name: "skip", Description: "Skip to the next song"}, slow: true, run: cmdSkip},
		{def: &discordgo.ApplicationCommand{Name: "prev", Description: "Go back in the queue by one song"}, slow: true, run: cmdPrev},
		{def: &discordgo.ApplicationCommand{Name: "stop", Description: "Stop playback and disconnect"}, run: cmdStop},
		{def: &discordgo.ApplicationCommand{Name: "pause", Description: "Pause the current song"}, run: cmdPause},
		{def: &discordgo.ApplicationCommand{Name: "resume", Description: "Resume playback"}, run: cmdResume},
		{def: &discordgo.ApplicationCommand{Name: "seek", Description: "Seek in the current song", Options: []*discordgo.ApplicationCommandOption{
			strOpt("time", "position like 1:30 or 90, or relative like +10s / -15", true),
		}}, slow: true, run: cmdSeek},
		{def: &discordgo.ApplicationCommand{Name: "volume", Description: "Set the playback volume", Options: []*discordgo.ApplicationCommandOption{
			{Name: "level", Description: "0-200 percent", Type: discordgo.ApplicationCommandOptionInteger, Required: true, MinValue: &minVol, MaxValue: 200},
		}}, run: cmdVolume},
		{def: &discordgo.ApplicationCommand{Name: "remove", Description: "Remove songs from the queue", Options: []*discordgo.ApplicationCommandOption{
			intOpt("from", "position of the first song to remove", true),
			intOpt("to", "position of the last song to remove [default: from]", false),
		}}, slow: true, run: cmdRemove},
		{def: &discordgo.ApplicationCommand{Name: "move", Description: "Move a song within the queue", Options: []*discordgo.ApplicationCommandOption{
			intOpt("from", "position of the song to move", true),
			intOpt("to", "position to move the song to", true),
		}}, run: cmdMove},
		{def: &discordgo.ApplicationCommand{Name: "clear", Description: "Clear the queue and stop"}, run: cmdClear},
		{def: &discordgo.ApplicationCommand{Name: "loop", Description: "Set the loop mode", Options: []*discordgo.ApplicationCommandOption{
			{Name: "mode", Description: "what to loop", Type: discordgo.ApplicationCommandOptionString, Required: true, Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "off", Value: "off"}, {Name: "track", Value: "track"}, {Name: "queue", Value: "queue"},
			}},
		}}, run: cmdLoop},
		{def: &discordgo.ApplicationCommand{Name: "queue", Description: "Show the current queue", Options: []*discordgo.ApplicationCommandOption{
			intOpt("page", "page of queue to show [default: current]", false),
			intOpt("page-size", fmt.Sprintf("how many items per page [default: %d, max: %d]", ui.DefaultPageSize, ui.MaxPageSize), false),
		}}, run: cmdQueue},
		{def: &discordgo.ApplicationCommand{Name: "now-playing", Description: "Show the current song"}, run: cmdNowPlaying},
		{def: &discordgo.ApplicationCommand{Name: "settings", Description: "Show quiz and autoplay settings"}, run: cmdSettings},
		{def: &discordgo.ApplicationCommand{Name: "reset", Description: "Disconnect and reset the session"}, run: cmdReset},
		{def: quizCommand(), slow: true, run: cmdQuiz},
		{def: &discordgo.ApplicationCommand{Name: "guess", Description: "Guess the anime of the current AMQ song", Options: []*discordgo.ApplicationCommandOption{
			strOpt("anime", "anime title", true),
		}}, run: cmdGuess},
		{def: &discordgo.ApplicationCommand{Name: "reveal", Description: "Reveal an AMQ song in the queue", Options: []*discordgo.ApplicationCommandOption{
			intOpt("position", "queue position [default: current]", false),
		}}, run: cmdReveal},
		{def: autoplayCommand(), run: cmdAutoplay},
	}
}

// position reads a 1-based queue position option as a 0-based index.
func position(c *call, name string, def int) int {
	return c.opts.integer(name, def+1) - 1
}

func cmdPlay(ctx context.Context, c *call) (response, error) {
	tracks, err := c.sess.Play(ctx, c.caller, c.opts.str("query"))
	if err != nil {
		return response{}, err
	}
	return response{content: ui.Added(tracks)}, nil
}

func cmdEnqueue(ctx context.Context, c *call) (response, error) {
	tracks, err := c.sess.Enqueue(ctx, c.caller, c.opts.str("query"))
	if err != nil {
		return response{}, err
	}
	return response{content: ui.Added(tracks)}, nil
}

func cmdJump(ctx context.Context, c *call) (response, error) {
	pos := position(c, "position", 0)
	if err := c.sess.Jump(ctx, c.caller, pos); err != nil {
		return response{}, err
	}
	return response{content: fmt.Sprintf("⏭️ jumped to track %d", pos+1)}, nil
}

func cmdSkip(ctx context.Context, c *call) (response, error) {
	started, err := c.sess.Skip(ctx, c.caller)
	if err != nil {
		return response{}, err
	}
	if !started {
		return response{content: "⏭️ skipped, that was the last song"}, nil
	}
	return response{content: "⏭️ skipped"}, nil
}

func cmdPrev(ctx context.Context, c *call) (response, error) {
	if err := c.sess.Prev(ctx, c.caller); err != nil {
		return response{}, err
	}
	return response{content: "⏮️ back 'er up"}, nil
}

func cmdStop(ctx context.Context, c *call) (response, error) {
	if err := c.sess.Stop(ctx, c.caller); err != nil {
		return response{}, err
	}
	return response{content: "u betcha, stopped"}, nil
}

func cmdPause(ctx context.Context, c *call) (response, error) {
	if err := c.sess.Pause(ctx, c.caller); err != nil {
		return response{}, err
	}
	return response{content: "⏸️ paused"}, nil
}

func cmdResume(ctx context.Context, c *call) (response, error) {
	if err := c.sess.Resume(ctx, c.caller); err != nil {
		return response{}, err
	}
	return response{content: "▶️ resumed"}, nil
}

func cmdSeek(ctx context.Context, c *call) (response, error) {
	raw := strings.TrimSpace(c.opts.str("time"))
	d, err := utils.ParseDurationString(raw)
	if err != nil {
		return response{}, fmt.Errorf("%w: %v", player.ErrInvalidArgs, err)
	}
	if strings.HasPrefix(raw, "+") || strings.HasPrefix(raw, "-") {
		err = c.sess.Seek(ctx, c.caller, d.Milliseconds())
	} else {
		err = c.sess.SeekTo(ctx, c.caller, d.Milliseconds())
	}
	if err != nil {
		return response{}, err
	}
	pos, err := c.sess.Position(ctx)
	if err != nil {
		return response{}, err
	}
	return response{content: "👍 seeked to " + utils.PrettyDuration(pos)}, nil
}

func cmdVolume(ctx context.Context, c *call) (response, error) {
	v, err := c.sess.SetVolume(ctx, c.caller, float64(c.opts.integer("level", 100))/100)
	if err != nil {
		return response{}, err
	}
	return response{content: fmt.Sprintf("🔊 volume set to %.0f%%", v*100)}, nil
}

func cmdRemove(ctx context.Context, c *call) (response, error) {
	from := position(c, "from", 0)
	to := position(c, "to", from)
	removed, err := c.sess.Remove(ctx, c.caller, from, to)
	if err != nil {
		return response{}, err
	}
	msg, _ := ui.Render(player.Removed{Tracks: removed, From: from, To: to})
	return response{content: msg.Content}, nil
}

func cmdMove(ctx context.Context, c *call) (response, error) {
	from, to := position(c, "from", 0), position(c, "to", 0)
	if err := c.sess.Move(ctx, c.caller, from, to); err != nil {
		return response{}, err
	}
	return response{content: fmt.Sprintf("moved track %d to position %d", from+1, to+1)}, nil
}

func cmdClear(ctx context.Context, c *call) (response, error) {
	if err := c.sess.Clear(ctx, c.caller); err != nil {
		return response{}, err
	}
	return response{content: "clearer than a field after a fresh harvest"}, nil
}

func cmdLoop(ctx context.Context, c *call) (response, error) {
	mode, err := player.ParseLoopMode(c.opts.str("mode"))
	if err != nil {
		return response{}, err
	}
	if err := c.sess.SetLoop(ctx, c.caller, mode); err != nil {
		return response{}, err
	}
	msg, _ := ui.Render(player.LoopChanged{Mode: mode})
	return response{content: msg.Content}, nil
}

func cmdQueue(ctx context.Context, c *call) (response, error) {
	snap, err := c.sess.State(ctx)
	if err != nil {
		return response{}, err
	}
	embed, err := ui.BuildQueueEmbed(snap, c.opts.integer("page", 0), c.opts.integer("page-size", ui.DefaultPageSize))
	if err != nil {
		return response{}, err
	}
	return response{embed: embed}, nil
}

func cmdNowPlaying(ctx context.Context, c *call) (response, error) {
	snap, err := c.sess.State(ctx)
	if err != nil {
		return response{}, err
	}
	if _, ok := snap.Current(); !ok || !snap.Playing {
		return response{}, player.ErrNotPlaying
	}
	return response{embed: ui.BuildPlayingEmbed(snap)}, nil
}

func cmdSettings(ctx context.Context, c *call) (response, error) {
	snap, err := c.sess.State(ctx)
	if err != nil {
		return response{}, err
	}
	return response{embed: ui.BuildSettingsEmbed(snap), ephemeral: true}, nil
}

func cmdReset(ctx context.Context, c *call) (response, error) {
	if err := c.sess.Reset(ctx); err != nil {
		return response{}, err
	}
	return response{content: "session reset"}, nil
}

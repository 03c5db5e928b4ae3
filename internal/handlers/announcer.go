package handlers

import (
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaquiz/internal/player"
	"github.com/sonroyaalmerol/kumaquiz/internal/ui"
)

type sendFunc func(channelID string, msg *discordgo.MessageSend) error

// announcer posts session events to the text channel a guild last used a
// command in.
type announcer struct {
	send sendFunc
	log  *slog.Logger

	mu       sync.Mutex
	channels map[string]string // guild -> text channel
}

func newAnnouncer(send sendFunc, log *slog.Logger) *announcer {
	return &announcer{send: send, log: log, channels: make(map[string]string)}
}

func (a *announcer) remember(guildID, channelID string) {
	if channelID == "" {
		return
	}
	a.mu.Lock()
	a.channels[guildID] = channelID
	a.mu.Unlock()
}

func (a *announcer) channel(guildID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channels[guildID]
}

// announced reports whether ev is posted to the channel. Events caused by a
// command are covered by its reply, except the ones everybody should see.
func announced(ev player.Event) bool {
	switch e := ev.(type) {
	case player.TrackStart, player.GuessRecorded, player.GuessEnded:
		return true
	case player.ErrorEvent:
		return e.Err != nil
	}
	return ev.Origin() == player.Caller{}
}

// watch consumes sess's events until the session closes.
func (a *announcer) watch(sess *player.Session) {
	go func() {
		for ev := range sess.Events() {
			a.post(ev)
		}
		a.log.Debug("event stream closed", "guildID", sess.GuildID())
	}()
}

func (a *announcer) post(ev player.Event) {
	if !announced(ev) {
		return
	}
	msg, ok := ui.Render(ev)
	if !ok {
		return
	}
	ch := a.channel(ev.Guild())
	if ch == "" {
		a.log.Debug("no channel for event", "guildID", ev.Guild(), "event", ev.Type())
		return
	}
	send := &discordgo.MessageSend{Content: msg.Content}
	if msg.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{msg.Embed}
	}
	if err := a.send(ch, send); err != nil {
		a.log.Warn("announce failed", "guildID", ev.Guild(), "channelID", ch, "event", ev.Type(), "err", err)
	}
}

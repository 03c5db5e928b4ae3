package handlers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaquiz/internal/audio"
	"github.com/sonroyaalmerol/kumaquiz/internal/autocomplete"
	"github.com/sonroyaalmerol/kumaquiz/internal/config"
	"github.com/sonroyaalmerol/kumaquiz/internal/player"
)

// aloneGrace is how long the bot stays in a channel nobody listens in.
const aloneGrace = 2 * time.Second

type Bot struct {
	cfg   *config.Config
	dg    *discordgo.Session
	pm    *player.SessionManager
	voice *audio.Voice
	cmd   *CommandHandler
	log   *slog.Logger

	mu    sync.Mutex
	alone map[string]*time.Timer // guild -> pending leave
}

func NewBot(cfg *config.Config, dg *discordgo.Session, pm *player.SessionManager, voice *audio.Voice, suggest *autocomplete.Suggester, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	ann := newAnnouncer(func(channelID string, msg *discordgo.MessageSend) error {
		_, err := dg.ChannelMessageSendComplex(channelID, msg)
		return err
	}, log)
	pm.OnCreate(ann.watch)
	return &Bot{
		cfg:   cfg,
		dg:    dg,
		pm:    pm,
		voice: voice,
		cmd:   newCommandHandler(pm, suggest, ann, log),
		log:   log,
		alone: make(map[string]*time.Timer),
	}
}

func (b *Bot) Run(ctx context.Context) error {
	dg := b.dg
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	b.cmd.base = ctx

	// On ready: register commands depending on configuration
	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("connected", "user", s.State.User.Username)
		b.updatePresence(s)
		appID := s.State.User.ID

		if b.cfg.RegisterCommandsOnBot {
			if err := b.cmd.RegisterCommands(s, appID, ""); err != nil {
				b.log.Error("register global commands", "err", err)
			} else {
				b.log.Info("registered global application commands")
			}
			return
		}

		var wg sync.WaitGroup
		for _, g := range r.Guilds {
			wg.Add(1)
			go func(guildID string) {
				defer wg.Done()
				if err := b.cmd.RegisterCommands(s, appID, guildID); err != nil {
					b.log.Error("register guild commands", "guild", guildID, "err", err)
				}
			}(g.ID)
		}
		wg.Wait()

		if _, err := s.ApplicationCommandBulkOverwrite(appID, "", []*discordgo.ApplicationCommand{}); err != nil {
			b.log.Error("clear global commands", "err", err)
		} else {
			b.log.Info("cleared global application commands")
		}
		b.log.Info("registered commands on all guilds")
	})

	// If registering per-guild, register on new guilds too
	dg.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		if b.cfg.RegisterCommandsOnBot || s.State.User == nil {
			return
		}
		if err := b.cmd.RegisterCommands(s, s.State.User.ID, g.ID); err != nil {
			b.log.Error("register guild commands on join", "guild", g.ID, "err", err)
		} else {
			b.log.Info("registered commands on new guild", "guild", g.ID)
		}
	})

	dg.AddHandler(b.cmd.HandleInteraction)
	dg.AddHandler(b.onVoiceStateUpdate)

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()

	<-ctx.Done()
	b.log.Info("shutting down")
	b.mu.Lock()
	for _, t := range b.alone {
		t.Stop()
	}
	b.mu.Unlock()
	b.pm.Close()
	return nil
}

func (b *Bot) updatePresence(s *discordgo.Session) {
	data := discordgo.UpdateStatusData{Status: b.cfg.BotStatus}
	if b.cfg.BotActivity != "" {
		data.Activities = []*discordgo.Activity{{Name: b.cfg.BotActivity, Type: discordgo.ActivityTypeListening}}
	}
	if err := s.UpdateStatusComplex(data); err != nil {
		b.log.Warn("update presence failed", "err", err)
	}
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, vsu *discordgo.VoiceStateUpdate) {
	if b.voice.Dropped(vsu) {
		if sess := b.pm.Peek(vsu.GuildID); sess != nil {
			sess.Disconnected()
		}
		return
	}
	b.checkAlone(s, vsu.GuildID)
}

// checkAlone stops the guild's session once its voice channel has had no
// listeners for aloneGrace.
func (b *Bot) checkAlone(s *discordgo.Session, guildID string) {
	channelID, ok := b.voice.ChannelOf(guildID)
	if !ok || listenersIn(s, guildID, channelID) > 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, pending := b.alone[guildID]; pending {
		return
	}
	b.alone[guildID] = time.AfterFunc(aloneGrace, func() {
		b.mu.Lock()
		delete(b.alone, guildID)
		b.mu.Unlock()

		still, ok := b.voice.ChannelOf(guildID)
		if !ok || still != channelID || listenersIn(s, guildID, channelID) > 0 {
			return
		}
		sess := b.pm.Peek(guildID)
		if sess == nil {
			return
		}
		b.log.Info("leaving empty voice channel", "guildID", guildID, "channelID", channelID)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sess.Stop(ctx, player.Caller{}); err != nil && player.KindOf(err) != player.KindPrecondition {
			b.log.Warn("leave empty channel failed", "guildID", guildID, "err", err)
		}
	})
}

func listenersIn(s *discordgo.Session, guildID, channelID string) int {
	g, err := s.State.Guild(guildID)
	if err != nil || g == nil {
		return 0
	}
	s.State.RLock()
	defer s.State.RUnlock()
	self := ""
	if s.State.User != nil {
		self = s.State.User.ID
	}
	return countListeners(g.VoiceStates, channelID, self, func(vs *discordgo.VoiceState) bool {
		if vs.Member != nil && vs.Member.User != nil {
			return vs.Member.User.Bot
		}
		for _, m := range g.Members {
			if m.User != nil && m.User.ID == vs.UserID {
				return m.User.Bot
			}
		}
		return false
	})
}

// countListeners counts the non-bot users in channelID other than self.
func countListeners(states []*discordgo.VoiceState, channelID, self string, isBot func(*discordgo.VoiceState) bool) int {
	n := 0
	for _, vs := range states {
		if vs == nil || vs.ChannelID != channelID || vs.UserID == self || isBot(vs) {
			continue
		}
		n++
	}
	return n
}

package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaquiz/internal/autocomplete"
	"github.com/sonroyaalmerol/kumaquiz/internal/player"
	"github.com/sonroyaalmerol/kumaquiz/internal/ui"
)

const (
	commandTimeout = time.Minute
	choiceLimit    = 10
)

type response struct {
	content   string
	embed     *discordgo.MessageEmbed
	ephemeral bool
}

// call is one slash command invocation.
type call struct {
	s      *discordgo.Session
	i      *discordgo.InteractionCreate
	sess   *player.Session
	caller player.Caller
	opts   options
	sub    string
}

type command struct {
	def *discordgo.ApplicationCommand
	// slow commands defer the reply while they resolve or join voice.
	slow bool
	run  func(ctx context.Context, c *call) (response, error)
}

type CommandHandler struct {
	pm       *player.SessionManager
	suggest  *autocomplete.Suggester
	announce *announcer
	log      *slog.Logger
	base     context.Context

	commands map[string]command
	order    []string
}

func newCommandHandler(pm *player.SessionManager, suggest *autocomplete.Suggester, announce *announcer, log *slog.Logger) *CommandHandler {
	if log == nil {
		log = slog.Default()
	}
	h := &CommandHandler{
		pm:       pm,
		suggest:  suggest,
		announce: announce,
		log:      log,
		base:     context.Background(),
		commands: make(map[string]command),
	}
	for _, c := range h.commandList() {
		h.commands[c.def.Name] = c
		h.order = append(h.order, c.def.Name)
	}
	return h
}

func (h *CommandHandler) definitions() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.commands[name].def)
	}
	return out
}

func (h *CommandHandler) RegisterCommands(s *discordgo.Session, appID string, guildID string) error {
	start := time.Now()
	h.log.Info("registering application commands", "appID", appID, "guildID", guildID)

	cmds := h.definitions()
	for _, c := range cmds {
		if _, err := s.ApplicationCommandCreate(appID, guildID, c); err != nil {
			h.log.Error("failed to create application command", "guildID", guildID, "command", c.Name, "err", err)
			return err
		}
		h.log.Debug("registered command", "guildID", guildID, "command", c.Name)
	}

	h.log.Info("finished registering commands", "guildID", guildID, "count", len(cmds), "took", time.Since(start))
	return nil
}

func (h *CommandHandler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.log.Debug("interaction: application command", "guildID", i.GuildID, "userID", userIDOf(i), "command", i.ApplicationCommandData().Name)
		h.handleChatCommand(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		h.log.Debug("interaction: autocomplete", "guildID", i.GuildID, "userID", userIDOf(i))
		h.handleAutocomplete(s, i)
	default:
		h.log.Debug("interaction: ignored type", "type", i.Type, "guildID", i.GuildID)
	}
}

func (h *CommandHandler) handleChatCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	cmd, ok := h.commands[data.Name]
	if !ok {
		h.log.Debug("unknown command", "name", data.Name, "guildID", i.GuildID, "userID", userIDOf(i))
		return
	}
	if i.GuildID == "" {
		h.reply(s, i, response{content: "this only works in a server", ephemeral: true})
		return
	}
	h.announce.remember(i.GuildID, i.ChannelID)

	c := &call{
		s:      s,
		i:      i,
		sess:   h.pm.Get(i.GuildID),
		caller: callerOf(i),
	}
	c.sub, c.opts = parseOptions(data.Options)

	ctx, cancel := context.WithTimeout(h.base, commandTimeout)
	defer cancel()

	if cmd.slow {
		h.deferReply(s, i)
	}
	resp, err := cmd.run(ctx, c)
	if err != nil {
		h.fail(s, i, data.Name, err, cmd.slow)
		return
	}
	h.log.Info("cmd "+data.Name, "guildID", i.GuildID, "userID", c.caller.ID, "sub", c.sub)
	if cmd.slow {
		h.editReply(s, i, resp)
		return
	}
	h.reply(s, i, resp)
}

// fail reports err to the invoking user only.
func (h *CommandHandler) fail(s *discordgo.Session, i *discordgo.InteractionCreate, name string, err error, deferred bool) {
	kind := player.KindOf(err)
	if kind == player.KindFatal || kind == player.KindUnknown {
		h.log.Error("command failed", "command", name, "guildID", i.GuildID, "kind", kind, "err", err)
	} else {
		h.log.Debug("command rejected", "command", name, "guildID", i.GuildID, "kind", kind, "err", err)
	}
	msg := "⚠️ " + ui.ErrorMessage(err)
	if !deferred {
		h.reply(s, i, response{content: msg, ephemeral: true})
		return
	}
	if err := s.InteractionResponseDelete(i.Interaction); err != nil {
		h.log.Warn("delete deferred reply failed", "guildID", i.GuildID, "err", err)
	}
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: msg,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		h.log.Warn("followup failed", "guildID", i.GuildID, "err", err)
	}
}

func (h *CommandHandler) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	sub, opts := parseOptions(data.Options)
	focused := opts.focused()
	if focused == nil {
		return
	}
	ctx, cancel := context.WithTimeout(h.base, 2500*time.Millisecond)
	defer cancel()

	choices := []*discordgo.ApplicationCommandOptionChoice{}
	switch {
	case focused.Name == "query":
		h.log.Debug("autocomplete: fetching suggestions", "guildID", i.GuildID, "userID", userIDOf(i), "query", focused.StringValue())
		choices = h.suggest.Choices(ctx, focused.StringValue(), choiceLimit)
	case data.Name == "quiz" && focused.Name == "username" && sub != "add-user":
		if sess := h.pm.Peek(i.GuildID); sess != nil {
			if snap, err := sess.State(ctx); err == nil {
				choices = autocomplete.Filter(snap.Quiz.SourceUsers, focused.StringValue(), choiceLimit)
			}
		}
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	}); err != nil {
		h.log.Warn("autocomplete respond failed", "guildID", i.GuildID, "err", err)
	}
}

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func embeds(e *discordgo.MessageEmbed) []*discordgo.MessageEmbed {
	if e == nil {
		return nil
	}
	return []*discordgo.MessageEmbed{e}
}

func (h *CommandHandler) reply(s *discordgo.Session, i *discordgo.InteractionCreate, r response) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: r.content,
			Embeds:  embeds(r.embed),
			Flags:   flags(r.ephemeral),
		},
	}); err != nil {
		h.log.Warn("reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		h.log.Warn("defer reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func (h *CommandHandler) editReply(s *discordgo.Session, i *discordgo.InteractionCreate, r response) {
	edit := &discordgo.WebhookEdit{Content: &r.content}
	if r.embed != nil {
		e := embeds(r.embed)
		edit.Embeds = &e
	}
	if _, err := s.InteractionResponseEdit(i.Interaction, edit); err != nil {
		h.log.Warn("edit reply failed", "guildID", i.GuildID, "userID", userIDOf(i), "err", err)
	}
}

func userOf(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func userIDOf(i *discordgo.InteractionCreate) string {
	if u := userOf(i); u != nil {
		return u.ID
	}
	return ""
}

func callerOf(i *discordgo.InteractionCreate) player.Caller {
	u := userOf(i)
	if u == nil {
		return player.Caller{}
	}
	name := u.GlobalName
	if name == "" {
		name = u.Username
	}
	return player.Caller{ID: u.ID, Name: name}
}

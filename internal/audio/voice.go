// Package audio carries session audio to Discord voice channels.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaquiz/internal/player"
)

// leaves reported within this window after a join belong to the previous
// connection of the guild.
const joinGrace = 3 * time.Second

const voicePerms = discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak

// Voice joins voice channels through a discordgo session.
type Voice struct {
	s   *discordgo.Session
	log *slog.Logger

	mu    sync.Mutex
	conns map[string]*Conn // by guild
}

func NewVoice(s *discordgo.Session, log *slog.Logger) *Voice {
	if log == nil {
		log = slog.Default()
	}
	return &Voice{s: s, log: log, conns: make(map[string]*Conn)}
}

func canSpeak(perms int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&voicePerms == voicePerms
}

// Join connects to the voice channel userID is in.
func (v *Voice) Join(ctx context.Context, guildID, userID string) (player.Conn, error) {
	vs, err := v.s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return nil, player.ErrVoiceChannelRequired
	}
	perms, err := v.s.State.UserChannelPermissions(v.s.State.User.ID, vs.ChannelID)
	if err != nil || !canSpeak(perms) {
		return nil, player.ErrPermissionsDenied
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := v.s.ChannelVoiceJoin(guildID, vs.ChannelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("join voice channel %s: %w", vs.ChannelID, err)
	}
	// Kill closes these; a nil channel there panics
	if vc.OpusSend == nil {
		vc.OpusSend = make(chan []byte, 2)
	}
	if vc.OpusRecv == nil {
		vc.OpusRecv = make(chan *discordgo.Packet, 2)
	}

	c := &Conn{
		v:         v,
		vc:        vc,
		guildID:   guildID,
		channelID: vs.ChannelID,
		joinedAt:  time.Now(),
		log:       v.log.With("guild", guildID, "channel", vs.ChannelID),
	}
	v.mu.Lock()
	v.conns[guildID] = c
	v.mu.Unlock()
	c.log.Info("joined voice channel")
	return c, nil
}

// Dropped reports whether a voice state update means Discord removed the bot
// from guildID's channel without the session asking for it.
func (v *Voice) Dropped(vsu *discordgo.VoiceStateUpdate) bool {
	if vsu == nil || vsu.VoiceState == nil || v.s.State.User == nil || vsu.UserID != v.s.State.User.ID || vsu.ChannelID != "" {
		return false
	}
	v.mu.Lock()
	c, ok := v.conns[vsu.GuildID]
	if ok && time.Since(c.joinedAt) > joinGrace {
		delete(v.conns, vsu.GuildID)
	} else {
		ok = false
	}
	v.mu.Unlock()
	if ok {
		c.stopPlayback()
	}
	return ok
}

// ChannelOf returns the voice channel held in guildID.
func (v *Voice) ChannelOf(guildID string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.conns[guildID]
	if !ok {
		return "", false
	}
	return c.channelID, true
}

func (v *Voice) forget(c *Conn) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conns[c.guildID] == c {
		delete(v.conns, c.guildID)
	}
}

// Conn is one guild's voice connection.
type Conn struct {
	v         *Voice
	vc        *discordgo.VoiceConnection
	guildID   string
	channelID string
	joinedAt  time.Time
	log       *slog.Logger

	mu      sync.Mutex
	current *playback
}

func (c *Conn) ChannelID() string { return c.channelID }

func (c *Conn) Play(ctx context.Context, req player.StreamRequest, h player.StreamHandlers) (player.Playback, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no stream url for %q", req.Track.Title)
	}
	c.stopPlayback()

	src := func(ctx context.Context, gain func() float64, emit func([]byte) error) error {
		return transcode(ctx, req.URL, req.Seek, gain, emit)
	}
	pb := startPlayback(ctx, req, src, c.vc.OpusSend, c.vc, h)

	c.mu.Lock()
	c.current = pb
	c.mu.Unlock()
	c.log.Debug("stream started", "title", req.Track.Title, "seek", req.Seek)
	return pb, nil
}

func (c *Conn) stopPlayback() {
	c.mu.Lock()
	pb := c.current
	c.current = nil
	c.mu.Unlock()
	if pb != nil {
		pb.Stop()
	}
}

func (c *Conn) Disconnect() (err error) {
	c.v.forget(c)
	c.stopPlayback()

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("voice disconnect panic recovered", "panic", r)
			err = fmt.Errorf("voice disconnect panicked: %v", r)
		}
	}()
	_ = c.vc.Speaking(false)
	if err := c.vc.Disconnect(); err != nil {
		return fmt.Errorf("voice disconnect: %w", err)
	}
	c.log.Info("left voice channel")
	return nil
}

// Package ui renders session state and events as Discord messages.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaquiz/internal/player"
	"github.com/sonroyaalmerol/kumaquiz/internal/utils"
)

const (
	colorPlaying = 0x006400
	colorPaused  = 0x8B0000
	colorIdle    = 0x992222
	colorQuiz    = 0x5865F2

	DefaultPageSize = 10
	MaxPageSize     = 30
)

// hidden reports whether a track's identity must not be shown yet.
func hidden(t player.Track) bool {
	return t.Quiz != nil && !t.Quiz.Revealed
}

func trackLink(t player.Track) string {
	title := utils.EscapeMd(utils.Truncate(t.Title, 200))
	if hidden(t) || t.URL == "" {
		return title
	}
	return fmt.Sprintf("[%s](%s)", title, t.URL)
}

func trackLength(t player.Track) string {
	if t.Live {
		return "live"
	}
	if t.Duration <= 0 {
		return "?"
	}
	return utils.PrettyDuration(t.Duration)
}

func requestedBy(t player.Track) string {
	if t.Requestor == "" {
		return ""
	}
	return "\nRequested by: " + utils.EscapeMd(t.Requestor)
}

func loopIcon(m player.LoopMode) string {
	switch m {
	case player.LoopTrack:
		return "🔂"
	case player.LoopQueue:
		return "🔁"
	}
	return ""
}

func progressLine(t player.Track, pos time.Duration, paused bool) string {
	button := "▶️"
	if paused {
		button = "⏸️"
	}
	if t.Unknown() {
		return fmt.Sprintf("%s %s `[ %s ]`", button, ProgressBar(10, 0), trackLength(t))
	}
	progress := float64(pos) / float64(t.Duration)
	return fmt.Sprintf("%s %s `[ %s/%s ]`", button, ProgressBar(10, progress), utils.PrettyDuration(pos), trackLength(t))
}

func withThumbnail(e *discordgo.MessageEmbed, t player.Track) *discordgo.MessageEmbed {
	if t.Thumbnail != "" && !hidden(t) {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.Thumbnail}
	}
	return e
}

func BuildPlayingEmbed(snap player.Snapshot) *discordgo.MessageEmbed {
	cur, ok := snap.Current()
	if !ok || !snap.Playing {
		return &discordgo.MessageEmbed{
			Title:       "Nothing Playing",
			Description: "No playing song found",
			Color:       colorIdle,
		}
	}
	desc := fmt.Sprintf("**%s**%s\n\n%s %s",
		trackLink(cur),
		requestedBy(cur),
		progressLine(cur, snap.Position, snap.Paused),
		loopIcon(snap.Loop),
	)
	title, color := "Now Playing", colorPlaying
	if snap.Paused {
		title, color = "Paused", colorPaused
	}
	return withThumbnail(&discordgo.MessageEmbed{
		Title:       title,
		Description: strings.TrimSpace(desc),
		Color:       color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Source: %s • Track %d of %d", cur.Source, snap.CurrentIndex+1, len(snap.Queue)),
		},
	}, cur)
}

// BuildQueueEmbed lists one page of the whole queue, marking the current
// track. Pages are 1-based.
func BuildQueueEmbed(snap player.Snapshot, page, pageSize int) (*discordgo.MessageEmbed, error) {
	if len(snap.Queue) == 0 {
		return nil, player.ErrQueueEmpty
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, MaxPageSize)
	maxPage := (len(snap.Queue) + pageSize - 1) / pageSize
	if page <= 0 {
		page = 1
		if snap.CurrentIndex >= 0 {
			page = snap.CurrentIndex/pageSize + 1
		}
	}
	if page > maxPage {
		return nil, fmt.Errorf("%w: the queue isn't that big", player.ErrOutOfBounds)
	}

	begin := (page - 1) * pageSize
	end := min(begin+pageSize, len(snap.Queue))
	var b strings.Builder
	for i := begin; i < end; i++ {
		t := snap.Queue[i]
		marker := "`%d.`"
		if i == snap.CurrentIndex {
			marker = "**`%d.`** ▶"
		}
		fmt.Fprintf(&b, marker+" %s `[ %s ]`\n", i+1, trackLink(t), trackLength(t))
	}

	var total time.Duration
	for _, t := range snap.Queue {
		if !t.Unknown() {
			total += t.Duration
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       strings.TrimSpace("Queue " + loopIcon(snap.Loop)),
		Description: b.String(),
		Color:       colorPlaying,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "In queue", Value: queueInfo(len(snap.Queue)), Inline: true},
			{Name: "Total length", Value: totalLenStr(total), Inline: true},
			{Name: "Page", Value: fmt.Sprintf("%d out of %d", page, maxPage), Inline: true},
		},
	}
	if cur, ok := snap.Current(); ok && snap.Playing {
		embed.Description = fmt.Sprintf("**Now playing:** %s\n%s\n\n%s",
			trackLink(cur), progressLine(cur, snap.Position, snap.Paused), embed.Description)
		withThumbnail(embed, cur)
	}
	return embed, nil
}

func queueInfo(n int) string {
	switch n {
	case 0:
		return "-"
	case 1:
		return "1 song"
	}
	return fmt.Sprintf("%d songs", n)
}

func totalLenStr(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return utils.PrettyDuration(d)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// BuildSettingsEmbed summarises the quiz and autoplay configuration.
func BuildSettingsEmbed(snap player.Snapshot) *discordgo.MessageEmbed {
	users := "-"
	if len(snap.Quiz.SourceUsers) > 0 {
		users = utils.EscapeMd(strings.Join(snap.Quiz.SourceUsers, ", "))
	}
	return &discordgo.MessageEmbed{
		Title: "Session settings",
		Color: colorQuiz,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "AMQ", Value: onOff(snap.Quiz.Enabled), Inline: true},
			{Name: "Guess mode", Value: onOff(snap.Quiz.GuessMode), Inline: true},
			{Name: "Guess time", Value: fmt.Sprintf("%ds", snap.Quiz.GuessTime), Inline: true},
			{Name: "Source chance", Value: fmt.Sprintf("%.0f%%", snap.Quiz.SourceChance*100), Inline: true},
			{Name: "Source users", Value: users, Inline: true},
			{Name: "Autoplay", Value: fmt.Sprintf("%s (unique %s, window %d)", onOff(snap.Autoplay.Enabled), onOff(snap.Autoplay.Unique), snap.Autoplay.Window), Inline: false},
			{Name: "Volume", Value: fmt.Sprintf("%.0f%%", snap.Volume*100), Inline: true},
			{Name: "Loop", Value: snap.Loop.String(), Inline: true},
		},
	}
}

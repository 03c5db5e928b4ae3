package handlers

import (
	"github.com/bwmarrin/discordgo"
)

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

// parseOptions flattens a command's options, descending into a subcommand
// when one was used.
func parseOptions(in []*discordgo.ApplicationCommandInteractionDataOption) (sub string, out options) {
	if len(in) == 1 && in[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		sub = in[0].Name
		in = in[0].Options
	}
	out = make(options, len(in))
	for _, o := range in {
		out[o.Name] = o
	}
	return sub, out
}

func (o options) focused() *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range o {
		if opt.Focused {
			return opt
		}
	}
	return nil
}

func (o options) str(name string) string {
	if v, ok := o[name]; ok {
		if s, ok := v.Value.(string); ok {
			return s
		}
	}
	return ""
}

func (o options) integer(name string, def int) int {
	v, ok := o[name]
	if !ok {
		return def
	}
	// integers arrive as float64 from the gateway JSON
	switch n := v.Value.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return def
}

func (o options) has(name string) bool {
	_, ok := o[name]
	return ok
}

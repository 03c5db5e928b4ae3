package quiz

import (
	"regexp"
	"strconv"
	"strings"
)

// Anime is the subset of a MyAnimeList entry used to build quiz tracks.
type Anime struct {
	MalID         int      `json:"malId"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"titleEnglish,omitempty"`
	TitleJapanese string   `json:"titleJapanese,omitempty"`
	Synonyms      []string `json:"synonyms,omitempty"`
	Premiered     string   `json:"premiered,omitempty"`
	Aired         string   `json:"aired,omitempty"`
	Openings      []string `json:"openings,omitempty"`
	Endings       []string `json:"endings,omitempty"`
}

// ReleaseDate prefers the season label over the aired range.
func (a Anime) ReleaseDate() string {
	if a.Premiered != "" {
		return a.Premiered
	}
	return a.Aired
}

// Theme is one opening or ending as listed on MyAnimeList.
type Theme struct {
	Type string // "OP 1", "ED #1"
	Text string // `"Guren no Yumiya" by Linked Horizon (eps 1-13)`
}

// Themes flattens openings then endings. With a single entry of a kind the
// label is "#1"; otherwise the number before the colon is used.
func (a Anime) Themes() []Theme {
	out := make([]Theme, 0, len(a.Openings)+len(a.Endings))
	out = append(out, labelThemes("OP", a.Openings)...)
	out = append(out, labelThemes("ED", a.Endings)...)
	return out
}

func labelThemes(kind string, raw []string) []Theme {
	out := make([]Theme, 0, len(raw))
	for i, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len(raw) == 1 {
			out = append(out, Theme{Type: kind + " #1", Text: stripNumber(s)})
			continue
		}
		num, text := strconv.Itoa(i+1), s
		if idx := strings.Index(s, ":"); idx > 0 && isNumber(s[:idx]) {
			num, text = s[:idx], strings.TrimSpace(s[idx+1:])
		}
		out = append(out, Theme{Type: kind + " " + num, Text: text})
	}
	return out
}

func stripNumber(s string) string {
	if idx := strings.Index(s, ":"); idx > 0 && isNumber(s[:idx]) {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}

var (
	quotedTitle = regexp.MustCompile(`^"(.+?)"(.+)$`)
	artistRe    = regexp.MustCompile(`\bby\s+(.+?)\s*(\(eps?\b.*\))?$`)
)

// SongName returns the quoted song title, or the whole text without quotes.
func (t Theme) SongName() string {
	if m := quotedTitle.FindStringSubmatch(t.Text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(strings.ReplaceAll(t.Text, `"`, ""))
}

func (t Theme) Artist() string {
	m := quotedTitle.FindStringSubmatch(t.Text)
	if m == nil {
		return ""
	}
	if a := artistRe.FindStringSubmatch(strings.TrimSpace(m[2])); a != nil {
		return strings.TrimSpace(a[1])
	}
	return ""
}

// SearchQuery is what gets searched on YouTube for the theme.
func SearchQuery(animeTitle string, t Theme) string {
	if m := quotedTitle.FindStringSubmatch(t.Text); m != nil {
		return strings.ReplaceAll(m[1]+" - "+animeTitle+" "+t.Type, `"`, "")
	}
	return strings.ReplaceAll(t.Text, `"`, "")
}

// GuessTitles lists the lower-cased names accepted as answers, without
// duplicates, main title first.
func GuessTitles(a Anime) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	add(a.Title)
	add(a.TitleEnglish)
	add(a.TitleJapanese)
	for _, s := range a.Synonyms {
		add(s)
	}
	return out
}

package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snk() Anime {
	return Anime{
		MalID:         16498,
		Title:         "Shingeki no Kyojin",
		TitleEnglish:  "Attack on Titan",
		TitleJapanese: "進撃の巨人",
		Synonyms:      []string{"AoT", "attack on titan"},
		Premiered:     "Spring 2013",
		Openings: []string{
			`1: "Guren no Yumiya" by Linked Horizon (eps 1-13)`,
			`2: "Jiyuu no Tsubasa" by Linked Horizon (eps 14-25)`,
		},
		Endings: []string{
			`1: "Utsukushiki Zankoku na Sekai" by Yoko Hikasa (eps 1-13)`,
		},
	}
}

func TestThemes(t *testing.T) {
	themes := snk().Themes()
	require.Len(t, themes, 3)

	assert.Equal(t, Theme{Type: "OP 1", Text: `"Guren no Yumiya" by Linked Horizon (eps 1-13)`}, themes[0])
	assert.Equal(t, "OP 2", themes[1].Type)
	assert.Equal(t, Theme{Type: "ED #1", Text: `"Utsukushiki Zankoku na Sekai" by Yoko Hikasa (eps 1-13)`}, themes[2])
}

func TestThemesLabels(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{"single", []string{`"Again" by YUI`}, []string{"OP #1"}},
		{"numbered", []string{`1: "A" by X`, `3: "B" by Y`}, []string{"OP 1", "OP 3"}},
		{"unnumbered", []string{`"A" by X`, `"B" by Y`}, []string{"OP 1", "OP 2"}},
		{"blank skipped", []string{"", `"A" by X`}, []string{"OP 2"}},
		{"none", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, th := range (Anime{Openings: tt.raw}).Themes() {
				got = append(got, th.Type)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestThemeParts(t *testing.T) {
	tests := []struct {
		text       string
		songName   string
		artist     string
		wantSearch string
	}{
		{
			text:       `"Guren no Yumiya" by Linked Horizon (eps 1-13)`,
			songName:   "Guren no Yumiya",
			artist:     "Linked Horizon",
			wantSearch: "Guren no Yumiya - Shingeki no Kyojin OP 1",
		},
		{
			text:       `"Again" by YUI`,
			songName:   "Again",
			artist:     "YUI",
			wantSearch: "Again - Shingeki no Kyojin OP 1",
		},
		{
			text:       `Unknown theme by "someone"`,
			songName:   "Unknown theme by someone",
			artist:     "",
			wantSearch: "Unknown theme by someone",
		},
	}
	for _, tt := range tests {
		th := Theme{Type: "OP 1", Text: tt.text}
		assert.Equal(t, tt.songName, th.SongName(), tt.text)
		assert.Equal(t, tt.artist, th.Artist(), tt.text)
		assert.Equal(t, tt.wantSearch, SearchQuery("Shingeki no Kyojin", th), tt.text)
	}
}

func TestGuessTitles(t *testing.T) {
	assert.Equal(t,
		[]string{"shingeki no kyojin", "attack on titan", "進撃の巨人", "aot"},
		GuessTitles(snk()))
	assert.Empty(t, GuessTitles(Anime{}))
}

func TestReleaseDate(t *testing.T) {
	assert.Equal(t, "Spring 2013", snk().ReleaseDate())
	assert.Equal(t, "Apr 2013", Anime{Aired: "Apr 2013"}.ReleaseDate())
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, 20, cfg.DefaultGuessTime)
	assert.Equal(t, 1.0, cfg.DefaultVolume)
	assert.Equal(t, "https://api.jikan.moe/v4", cfg.JikanURL)
	assert.Equal(t, "", cfg.CatalogURL)
	assert.False(t, cfg.EnableSponsorBlock)
	assert.Equal(t, 5, cfg.SponsorBlockTimeoutMin)
}

func TestLoadConfigTrimsURLs(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("CATALOG_URL", "http://catalog.local:8080/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://catalog.local:8080", cfg.CatalogURL)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{DiscordToken: "x", DefaultGuessTime: 20, DefaultVolume: 1, JikanRPS: 1}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"missing token", func(c *Config) { c.DiscordToken = "" }, true},
		{"half spotify", func(c *Config) { c.SpotifyClientID = "id" }, true},
		{"guess time low", func(c *Config) { c.DefaultGuessTime = 4 }, true},
		{"guess time high", func(c *Config) { c.DefaultGuessTime = 61 }, true},
		{"volume", func(c *Config) { c.DefaultVolume = 2.5 }, true},
		{"rps", func(c *Config) { c.JikanRPS = 0 }, true},
		{"sponsorblock timeout", func(c *Config) { c.SponsorBlockTimeoutMin = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				var cerr ErrConfig
				assert.ErrorAs(t, err, &cerr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

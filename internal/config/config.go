package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func getint(key string, def int) int {
	v, err := strconv.Atoi(getenv(key, ""))
	if err != nil {
		return def
	}
	return v
}

func getfloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(getenv(key, ""), 64)
	if err != nil {
		return def
	}
	return v
}

func getbool(key string, def bool) bool {
	v, err := strconv.ParseBool(getenv(key, ""))
	if err != nil {
		return def
	}
	return v
}

// loadDotenv reads .env when present; a missing file is not an error.
func loadDotenv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func LoadConfig() (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}
	cfg := &Config{
		DiscordToken:          os.Getenv("DISCORD_TOKEN"),
		SpotifyClientID:       os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret:   os.Getenv("SPOTIFY_CLIENT_SECRET"),
		DataDir:               getenv("DATA_DIR", "./data"),
		BotStatus:             getenv("BOT_STATUS", "online"),
		BotActivity:           getenv("BOT_ACTIVITY", "anime songs"),
		RegisterCommandsOnBot: getbool("REGISTER_COMMANDS_ON_BOT", false),
		YouTubeCookiesPath:    os.Getenv("YOUTUBE_COOKIES_PATH"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getint("REDIS_DB", 0),
		CatalogURL:            strings.TrimRight(os.Getenv("CATALOG_URL"), "/"),
		JikanURL:              strings.TrimRight(getenv("JIKAN_URL", "https://api.jikan.moe/v4"), "/"),
		ThemesURL:             strings.TrimRight(getenv("THEMES_URL", "https://themes.moe/api"), "/"),
		JikanRPS:              getfloat("JIKAN_RPS", 1),
		DefaultGuessTime:      getint("DEFAULT_GUESS_TIME", 20),
		DefaultVolume:         getfloat("DEFAULT_VOLUME", 1),
		LogLevel:              getenv("LOG_LEVEL", "info"),
		LogColor:              getbool("LOG_COLOR", true),
	}
	cfg.EnableSponsorBlock = getbool("ENABLE_SPONSORBLOCK", false)
	cfg.SponsorBlockTimeoutMin = getint("SPONSORBLOCK_TIMEOUT", 5)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	_ = os.MkdirAll(cfg.DataDir, 0o755)
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return ErrConfig("DISCORD_TOKEN required")
	}
	if (c.SpotifyClientID == "") != (c.SpotifyClientSecret == "") {
		return ErrConfig("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set together")
	}
	if c.DefaultGuessTime < 5 || c.DefaultGuessTime > 60 {
		return ErrConfig("DEFAULT_GUESS_TIME must be between 5 and 60")
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 2 {
		return ErrConfig("DEFAULT_VOLUME must be between 0 and 2")
	}
	if c.SponsorBlockTimeoutMin < 0 {
		return ErrConfig("SPONSORBLOCK_TIMEOUT must not be negative")
	}
	if c.JikanRPS <= 0 {
		return ErrConfig("JIKAN_RPS must be positive")
	}
	return nil
}

func LoadCatalogConfig() (*CatalogConfig, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}
	cfg := &CatalogConfig{
		DataDir:  getenv("DATA_DIR", "./data"),
		Addr:     getenv("CATALOG_ADDR", ":8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		LogColor: getbool("LOG_COLOR", true),
	}
	if cfg.Addr == "" {
		return nil, ErrConfig("CATALOG_ADDR required")
	}
	_ = os.MkdirAll(cfg.DataDir, 0o755)
	return cfg, nil
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

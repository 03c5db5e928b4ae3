package config

type Config struct {
	DiscordToken          string
	SpotifyClientID       string
	SpotifyClientSecret   string
	DataDir               string
	BotStatus             string // online/dnd/idle
	BotActivity           string
	RegisterCommandsOnBot bool
	YouTubeCookiesPath    string

	EnableSponsorBlock     bool
	SponsorBlockTimeoutMin int // pause lookups this long after an outage

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CatalogURL string // self-hosted song catalog, optional
	JikanURL   string
	ThemesURL  string
	JikanRPS   float64

	DefaultGuessTime int     // seconds
	DefaultVolume    float64 // 0..2

	LogLevel string
	LogColor bool
}

// CatalogConfig configures the standalone song catalog service.
type CatalogConfig struct {
	DataDir  string
	Addr     string
	LogLevel string
	LogColor bool
}

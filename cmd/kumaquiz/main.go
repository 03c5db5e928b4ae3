package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sonroyaalmerol/kumaquiz/internal/audio"
	"github.com/sonroyaalmerol/kumaquiz/internal/autocomplete"
	"github.com/sonroyaalmerol/kumaquiz/internal/cache"
	"github.com/sonroyaalmerol/kumaquiz/internal/config"
	"github.com/sonroyaalmerol/kumaquiz/internal/handlers"
	"github.com/sonroyaalmerol/kumaquiz/internal/logging"
	"github.com/sonroyaalmerol/kumaquiz/internal/player"
	"github.com/sonroyaalmerol/kumaquiz/internal/quiz"
	"github.com/sonroyaalmerol/kumaquiz/internal/resolver"
	"github.com/sonroyaalmerol/kumaquiz/internal/sponsorblock"
)

func openCache(ctx context.Context, cfg *config.Config, log *slog.Logger) cache.Store {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryStore()
	}
	store, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Warn("redis unavailable, using in-memory cache", "addr", cfg.RedisAddr, "err", err)
		return cache.NewMemoryStore()
	}
	log.Info("using redis cache", "addr", cfg.RedisAddr)
	return store
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogColor)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := openCache(ctx, cfg, logger)
	defer store.Close()

	opts := resolver.Options{
		SpotifyClientID:     cfg.SpotifyClientID,
		SpotifyClientSecret: cfg.SpotifyClientSecret,
		CookiesPath:         cfg.YouTubeCookiesPath,
		Cache:               store,
		Logger:              logger.With("component", "resolver"),
	}
	if cfg.EnableSponsorBlock {
		opts.Skipper = sponsorblock.NewSkipper(nil, store,
			time.Duration(cfg.SponsorBlockTimeoutMin)*time.Minute,
			logger.With("component", "sponsorblock"))
	}
	res := resolver.New(ctx, opts)

	jikan := quiz.NewJikanSource(quiz.JikanOptions{
		JikanURL:  cfg.JikanURL,
		ThemesURL: cfg.ThemesURL,
		RPS:       cfg.JikanRPS,
		Cache:     store,
		Logger:    logger.With("component", "jikan"),
	})
	var catalog *quiz.CatalogSource
	if cfg.CatalogURL != "" {
		catalog = quiz.NewCatalogSource(cfg.CatalogURL, nil)
	}
	source := quiz.NewMultiSource(catalog, jikan, logger.With("component", "quiz"))
	generator := quiz.NewGenerator(source, res, logger.With("component", "quiz"))

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatal(err)
	}
	voice := audio.NewVoice(dg, logger.With("component", "voice"))

	pm := player.NewSessionManager(player.Deps{
		Resolver: res,
		Voice:    voice,
		Quiz:     generator,
		Logger:   logger,
	}, player.Options{
		DefaultVolume:    cfg.DefaultVolume,
		DefaultGuessTime: cfg.DefaultGuessTime,
	})

	suggest := autocomplete.NewSuggester("", res, store, logger.With("component", "autocomplete"))
	bot := handlers.NewBot(cfg, dg, pm, voice, suggest, logger)

	if err := bot.Run(ctx); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sonroyaalmerol/kumaquiz/internal/catalog"
	"github.com/sonroyaalmerol/kumaquiz/internal/config"
	"github.com/sonroyaalmerol/kumaquiz/internal/logging"
)

func main() {
	cfg, err := config.LoadCatalogConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogColor)

	db, err := catalog.OpenDB(cfg.DataDir)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           catalog.NewServer(catalog.NewRepo(db), logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("catalog shutdown", "err", err)
		}
	}()

	logger.Info("catalog listening", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	urfave "github.com/urfave/cli/v2"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/artifact"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080
)

var (
	portFlag = &urfave.IntFlag{
		Name:     "port",
		Usage:    "Port on which the server will listen",
		Value:    serverPortDefault,
		Required: false,
	}

	warmFlag = &urfave.BoolFlag{
		Name:  "warm",
		Usage: "Load the artifact bundle at startup instead of on first request",
	}

	serverCmd = &urfave.Command{
		Name:    "server",
		Aliases: []string{"serve", "s"},
		Usage:   "Start the scoring HTTP server",
		Action:  cmdStartServer,
		Flags: []urfave.Flag{
			portFlag,
			warmFlag,
			debugFlag,
		},
	}
)

func cmdStartServer(c *urfave.Context) error {
	cfg := getConfig(c)
	port := c.Int(portFlag.Name)
	address := fmt.Sprintf("127.0.0.1:%d", port)

	cache := artifact.NewCache(cfg.Conf.ModelPath, cfg.Conf.HistoryPath, cfg.Conf.GeoPath)
	if c.Bool(warmFlag.Name) {
		if _, err := cache.Get(); err != nil {
			return fmt.Errorf("warming artifact cache: %w", err)
		}
		slog.Info("artifact cache warmed")
	}

	mux := makeRouter(cache)
	s := &http.Server{
		Addr:           address,
		Handler:        mux,
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("error starting server", "error", err)
		}
	}()

	slog.Info("server started", "address", fmt.Sprintf("http://%s", address))

	<-done

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(cache *artifact.Cache) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("POST /predict", predictAPIHandler(cache))

	return mux
}

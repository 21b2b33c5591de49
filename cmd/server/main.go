package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "chess-relay/internal/api/http"
	"chess-relay/internal/api/ws"
	"chess-relay/internal/config"
	"chess-relay/internal/game"
	"chess-relay/internal/logging"
	"chess-relay/internal/metrics"
	"chess-relay/internal/room"
	"chess-relay/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

// @title Chess Relay API
// @version 1.0
// @description Two-player chess sessions relayed over websockets
// @BasePath /
func main() {
	app := &cli.App{
		Name:    "chess-relay",
		Usage:   "relay two-player chess games over websockets",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "load environment variables from `FILE`",
				EnvVars: []string{"ENV_FILE"},
			},
			&cli.StringFlag{
				Name:  "port",
				Usage: "override the PORT setting",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logging.Logger.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if port := c.String("port"); port != "" {
		_ = os.Setenv("PORT", port)
	}
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return err
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ln, err := net.Listen("tcp", cfg.HTTPAddr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newServer(cfg).serve(ctx, ln)
}

// server is the wired relay: session registry, websocket hub and HTTP routes.
type server struct {
	cfg      *config.Config
	hub      *ws.Hub
	sessions *room.Registry
	http     *http.Server
}

func newServer(cfg *config.Config) *server {
	reg := metrics.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(reg)
	clock := clockwork.NewRealClock()

	hub := ws.NewHub(relayMetrics)
	sessions := room.NewRegistry(store.NewMemoryStore(), game.NewChessEngine(), hub, clock, relayMetrics)
	wsHandler := ws.NewHandler(hub, sessions, clock, ws.Options{
		KeepAlive:          cfg.KeepAlive,
		MaxKeepAliveMisses: cfg.MaxKeepAliveMisses,
		SendBuffer:         cfg.SendBuffer,
		EventRate:          cfg.EventRate,
		EventBurst:         cfg.EventBurst,
		AllowedOrigins:     cfg.Origins(),
	}, relayMetrics)

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Sessions:    sessions,
		Connections: hub,
		WebSocket:   wsHandler.HandleWS,
		Metrics:     metrics.Handler(reg),
	})

	return &server{
		cfg:      cfg,
		hub:      hub,
		sessions: sessions,
		http: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// serve runs until ctx is cancelled, then closes every websocket and drains HTTP within
// the shutdown timeout.
func (s *server) serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Logger.Info("Listening", "addr", ln.Addr().String(), "env", s.cfg.AppEnv, "version", version)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logging.Logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		// hijacked websocket connections are not closed by Shutdown
		s.hub.Close()
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

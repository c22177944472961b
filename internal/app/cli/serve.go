package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/megamake/roleplay/internal/app/wiring"
	simapi "github.com/megamake/roleplay/internal/domains/sim/api"
	simapp "github.com/megamake/roleplay/internal/domains/sim/app"
	simhttp "github.com/megamake/roleplay/internal/domains/sim/transport/httpserver"
	"github.com/megamake/roleplay/internal/platform/config"
	"github.com/megamake/roleplay/internal/platform/logging"
)

const reapInterval = time.Minute

func newServeCmd(opts *globalOptions) *cobra.Command {
	var listen string
	var secureCookie bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulator UI and API over HTTP",
		Long: `Serve the browser UI (/ui), the session API (/api/sim/...), health (/health)
and Prometheus metrics (/metrics). Idle sessions are reaped in the background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd, func(c *config.Config) {
				if listen != "" {
					c.Server.Listen = listen
				}
			})
			if err != nil {
				return err
			}
			log := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level)

			ctr, err := wiring.New(cfg, log)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), ctr, secureCookie)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address host:port (default from config: 127.0.0.1:8085)")
	cmd.Flags().BoolVar(&secureCookie, "secure-cookie", false, "mark the session cookie Secure (when served behind TLS)")
	return cmd
}

func serve(parent context.Context, ctr wiring.Container, secureCookie bool) error {
	cfg := ctr.Config
	log := ctr.Log

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := simhttp.Server{
		Sim:            ctr.Sim,
		Tokens:         ctr.Tokens,
		Clock:          ctr.Clock,
		Log:            log,
		Metrics:        ctr.Metrics,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		QueueBlocks:    cfg.Audio.QueueBlocks,
		SecureCookie:   secureCookie,
		SampleRate:     cfg.Audio.SampleRate,
		Window:         cfg.Audio.Window(),
		NetEnabled:     ctr.Policy.NetEnabled,
		AllowDomains:   ctr.Policy.AllowDomains,
	}.Handler()

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		// Streams and hosted calls end with the process.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go reapIdle(ctx, ctr.Sim, log, reapInterval)

	log.WithFields(logrus.Fields{
		"provider":    cfg.OpenAI.Provider,
		"chat_model":  cfg.OpenAI.ChatModel,
		"net_enabled": ctr.Policy.NetEnabled,
		"window_s":    cfg.Audio.WindowSeconds,
	}).Info("starting")
	log.Info("ui: http://" + cfg.Server.Listen + "/ui")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		log.Warn("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func reapIdle(ctx context.Context, sim simapi.API, log *logrus.Logger, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := sim.ReapIdle(simapp.ReapIdleRequest{}); err != nil {
				log.WithError(err).Warn("session reaper failed")
			}
		}
	}
}

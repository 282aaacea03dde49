package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/checkin-kiosk/internal/mailer"
	"github.com/diagnosis/checkin-kiosk/internal/notify"
	"github.com/diagnosis/checkin-kiosk/pkg/config"
	"github.com/diagnosis/checkin-kiosk/pkg/events"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
	mw "github.com/diagnosis/checkin-kiosk/pkg/middleware"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.Load()); err != nil {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.NATS.URL == "" {
		return errors.New("NATS_URL is required")
	}
	if cfg.Email.FrontDeskEmail == "" {
		logger.Warn("FRONT_DESK_EMAIL not set, arrival notices will be skipped")
	}

	bus, err := events.NewNATSEventBus(cfg.NATS.URL, "kiosk-notify")
	if err != nil {
		return err
	}

	n := notify.NewNotifier(mailer.New(cfg.Email), cfg.Email.FrontDeskEmail)
	if err := bus.QueueSubscribe(events.GuestCheckedIn, cfg.NATS.Queue, n.Handle); err != nil {
		_ = bus.Close()
		return err
	}
	logger.Info("Subscribed to check-in events", "subject", events.GuestCheckedIn, "queue", cfg.NATS.Queue)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Recoverer)
	r.Use(mw.Health)
	r.Use(mw.Metrics)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting notify service", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down notify service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := bus.Drain(); err != nil {
			logger.Error("NATS drain error", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/checkin-kiosk/internal/http/handlers"
	"github.com/diagnosis/checkin-kiosk/internal/http/middleware"
	"github.com/diagnosis/checkin-kiosk/internal/repository"
	"github.com/diagnosis/checkin-kiosk/internal/scanner"
	"github.com/diagnosis/checkin-kiosk/internal/service"
	"github.com/diagnosis/checkin-kiosk/internal/upstream"
	"github.com/diagnosis/checkin-kiosk/pkg/cache"
	"github.com/diagnosis/checkin-kiosk/pkg/config"
	"github.com/diagnosis/checkin-kiosk/pkg/database"
	"github.com/diagnosis/checkin-kiosk/pkg/events"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
	mw "github.com/diagnosis/checkin-kiosk/pkg/middleware"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-pin" {
		if err := hashPIN(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.Load()); err != nil {
		logger.Error("Kiosk service error", "error", err)
		os.Exit(1)
	}
}

// hashPIN prints the argon2id hash to put in KIOSK_PIN_HASH.
func hashPIN(args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: kiosk hash-pin <pin>")
	}
	hash, err := service.HashPIN(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Key-value backing: Redis when configured, process memory otherwise.
	var (
		store     repository.KeyValueStore
		rateLimit repository.RateLimitRepository
		memStore  *repository.MemoryStore
	)
	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		store = repository.NewRedisStore(client, "kiosk:")
		rateLimit = repository.NewRedisRateLimitRepository(client)
		logger.Info("Using Redis session store")
	} else {
		memStore = repository.NewMemoryStore()
		store = memStore
		rateLimit = repository.NewMemoryRateLimitRepository()
		logger.Warn("REDIS_URL not set, using in-memory session store")
	}

	var checkIns repository.CheckInRepository = repository.NoopCheckInRepository{}
	if cfg.Database.URL != "" {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		checkIns = repository.NewCheckInRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, check-in audit disabled")
	}

	var eventBus events.Publisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL, "kiosk-"+cfg.Kiosk.ID)
		if err != nil {
			return err
		}
		defer bus.Close()
		eventBus = bus
	}

	embedder, err := upstream.NewGradioClient(upstream.GradioConfig{
		SpaceURL: cfg.Embedding.SpaceURL,
		APIName:  cfg.Embedding.APIName,
		Token:    cfg.Embedding.Token,
		Timeout:  cfg.Embedding.Timeout,
	})
	if err != nil {
		return err
	}
	bookingAPI := upstream.NewBookingClient(cfg.Upstream.BookingURL, cfg.Upstream.Timeout)
	personAPI := upstream.NewPersonClient(cfg.Upstream.PersonURL, cfg.Upstream.Timeout)

	sessions := repository.NewScanSessionRepository(store, cfg.Kiosk.SessionTTL)
	views := repository.NewBookingViewRepository(store, cfg.Kiosk.ViewTTL)

	h := handlers.New(
		service.NewScanService(scanner.NewMachine(scanner.NewDecoder(), cfg.Kiosk.RedirectDelay), sessions, eventBus, cfg.Kiosk.ID),
		service.NewFaceService(embedder, bookingAPI, eventBus, cfg.Kiosk.ID),
		service.NewBookingService(bookingAPI, views, checkIns, eventBus, cfg.Kiosk.ID),
		service.NewPersonService(personAPI, cfg.Kiosk.BadgeSize),
		service.NewKioskAuthService(cfg.Auth.StaffPINHash, cfg.Auth.JWTSecret, cfg.Kiosk.ID, cfg.Auth.StaffTokenTTL),
		service.NewAuditService(checkIns),
		cfg,
	)

	unlockLimiter := middleware.NewRateLimiter(rateLimit, middleware.RateLimitConfig{
		Requests: cfg.Kiosk.UnlockRateLimit,
		Window:   cfg.Kiosk.UnlockRateWindow,
	})
	idempotency := mw.IdempotencyMiddleware(repository.NewIdempotencyRepository(store), cfg.Kiosk.IdempotencyTTL)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("kiosk"))
	r.Use(mw.KioskID(cfg.Kiosk.ID))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)
	r.Use(mw.Metrics)
	h.Routes(r, unlockLimiter, idempotency)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting kiosk service", "port", cfg.Server.Port, "kiosk_id", cfg.Kiosk.ID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down kiosk service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if memStore != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if n := memStore.Sweep(); n > 0 {
						logger.Debug("Swept expired sessions", "count", n)
					}
				}
			}
		})
	}

	return g.Wait()
}

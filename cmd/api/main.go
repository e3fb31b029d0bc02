package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/unionhall/pit-reservations/internal/http/handlers"
	authmw "github.com/unionhall/pit-reservations/internal/http/middleware"
	"github.com/unionhall/pit-reservations/internal/platform/idempotency"
	"github.com/unionhall/pit-reservations/internal/platform/mailer"
	"github.com/unionhall/pit-reservations/internal/repository"
	"github.com/unionhall/pit-reservations/internal/repository/memory"
	"github.com/unionhall/pit-reservations/internal/repository/postgres"
	"github.com/unionhall/pit-reservations/internal/service"
	"github.com/unionhall/pit-reservations/pkg/config"
	"github.com/unionhall/pit-reservations/pkg/database"
	"github.com/unionhall/pit-reservations/pkg/events"
	"github.com/unionhall/pit-reservations/pkg/logger"
	mw "github.com/unionhall/pit-reservations/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()

	var (
		reservationRepo repository.ReservationRepo
		feeRepo         repository.FeeRepo
		memberRepo      repository.MemberRepo
	)
	if cfg.Database.URL != "" {
		pool, err := database.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		reservationRepo = postgres.NewReservationRepo(pool)
		feeRepo = postgres.NewFeeRepo(pool)
		memberRepo = postgres.NewMemberRepo(pool)
		logger.Info("using postgres storage")
	} else {
		store := memory.NewStore()
		reservationRepo = store.Reservations()
		feeRepo = store.Fees()
		memberRepo = store.Members()
		logger.Info("DATABASE_URL not set, using in-memory storage")
	}

	var eventBus events.EventBus
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		eventBus = bus
	} else {
		eventBus = events.NoopEventBus{}
		logger.Info("NATS_URL not set, events disabled")
	}

	var idemStore idempotency.Store
	if cfg.Redis.URL != "" {
		store, err := idempotency.NewRedisStore(cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		idemStore = store
	} else {
		idemStore = idempotency.NewMemoryStore()
		logger.Info("REDIS_URL not set, using in-memory idempotency store")
	}

	var mail mailer.Service
	switch {
	case cfg.Email.DevMode:
		mail = mailer.NewDev()
	case cfg.Email.MailerSendKey != "":
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.SMTPFrom, "Union Hall")
	default:
		mail = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom,
			cfg.Email.SMTPUser, cfg.Email.SMTPPass, false)
	}

	memberService := service.NewMemberService(memberRepo)
	feeLedger := service.NewFeeLedger(feeRepo, eventBus, cfg.Fee.OrgTag)
	availability := service.NewAvailability(reservationRepo)
	scheduler, err := service.NewScheduler(reservationRepo, memberService, feeLedger, availability, eventBus, mail, cfg)
	if err != nil {
		logger.Error("invalid booking configuration", "error", err)
		os.Exit(1)
	}

	reservationHandler := handlers.NewReservationHandler(scheduler, idemStore)
	feeHandler := handlers.NewFeeHandler(feeLedger)
	memberHandler := handlers.NewMemberHandler(memberService)

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("pit-reservations"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Mount("/reservations", reservationHandler.Routes())
		r.Get("/availability", reservationHandler.Availability)
		r.Get("/stats", reservationHandler.Stats)
		r.Mount("/fees", feeHandler.Routes())

		r.Route("/admin", func(r chi.Router) {
			r.Use(authmw.RequireAdmin(cfg.Auth.JWTSecret))
			r.Mount("/fees", feeHandler.AdminRoutes())
			r.Mount("/members", memberHandler.AdminRoutes())
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("starting pit reservations API", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

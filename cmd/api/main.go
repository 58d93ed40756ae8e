package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"appointly/internal/config"
	"appointly/internal/database"
	"appointly/internal/events"
	"appointly/internal/fanout"
	"appointly/internal/modules/appointment"
	"appointly/internal/modules/availability"
	"appointly/internal/modules/booking"
	"appointly/internal/modules/reminder"
	"appointly/internal/payment"
	"appointly/internal/pkg/jwt"
	"appointly/internal/pkg/logger"
	"appointly/internal/push"
	"appointly/internal/realtime"
	"appointly/internal/repository"
	"appointly/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "appointly-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logg := logger.New(serviceName, cfg.LogLevel)
	slog.SetDefault(logg)
	cfg.LogSummary(logg)

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := telemetry.Setup(ctx, cfg.OTEL, serviceName)
	if err != nil {
		logg.Error("otel setup failed", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}
	store := repository.NewStore(db)

	hub := realtime.NewHub()
	defer hub.Close()

	opts := []fanout.Option{
		fanout.WithPushSender(newPushSender(cfg)),
	}

	if cfg.Realtime.RedisURL != "" {
		rdb, err := realtime.NewRedisClient(cfg.Realtime.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		defer rdb.Close()
		opts = append(opts, fanout.WithBroadcaster(realtime.NewRedisBroadcaster(rdb)))
		go func() {
			if err := realtime.Relay(ctx, rdb, hub, config.RealtimeChannelPrefix, logg); err != nil {
				logg.Error("realtime relay stopped", "error", err)
			}
		}()
	} else {
		opts = append(opts, fanout.WithBroadcaster(hub))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		opts = append(opts, fanout.WithEventPublisher(publisher))
	}

	if cfg.Payment.Enabled() {
		creator := payment.NewStripeCreator(cfg.Payment.StripeSecretKey, cfg.Payment.Currency, nil)
		opts = append(opts, fanout.WithPayments(creator, store.PaymentIntents))
	}

	dispatcher := fanout.NewDispatcher(logg, opts...)

	bookingSvc := booking.NewService(store, availability.NewResolver(), dispatcher, booking.Options{
		PaymentsEnabled: cfg.Payment.Enabled(),
	}, logg)
	appointmentSvc := appointment.NewService(store, dispatcher, appointment.Options{
		CancellationLimit: cfg.Booking.CancellationLimit,
	}, logg)
	reminderSvc := reminder.NewService(store, dispatcher, reminder.Options{
		Grace:        cfg.Reminder.Grace,
		DefaultLimit: cfg.Reminder.DefaultLimit,
		MaxLimit:     cfg.Reminder.MaxLimit,
	}, logg)

	router := newRouter(routerDeps{
		cfg:          cfg,
		log:          logg,
		db:           db,
		tokens:       jwt.New(cfg.Realtime.JWTSecret, cfg.Realtime.TokenTTL),
		booking:      booking.NewHandler(bookingSvc, logg),
		appointments: appointment.NewHandler(appointmentSvc, logg),
		reminders:    reminder.NewHandler(reminderSvc, logg),
		realtime:     realtime.NewHandler(hub, config.RealtimeChannelPrefix, logg),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logg.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("http server shutdown error", "error", err)
	}
	logg.Info("http server stopped")
}

func newPushSender(cfg *config.Config) push.Sender {
	if !cfg.Push.Enabled() {
		return push.NewNoopSender()
	}
	return push.NewFCMSender(cfg.Push.Endpoint, cfg.Push.ServerKey, &http.Client{Timeout: 5 * time.Second})
}

package main

import (
	"context"
	"flag"
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
	"appointly/internal/modules/reminder"
	"appointly/internal/pkg/logger"
	"appointly/internal/push"
	"appointly/internal/realtime"
	"appointly/internal/repository"
	"appointly/internal/telemetry"

	"github.com/robfig/cron/v3"
)

const serviceName = "appointly-reminders"

func main() {
	once := flag.Bool("once", false, "run a single scan and exit")
	limit := flag.Int("limit", 0, "batch size (defaults to REMINDER_DEFAULT_LIMIT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logg := logger.New(serviceName, cfg.LogLevel)
	slog.SetDefault(logg)
	cfg.LogSummary(logg)

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

	var sender push.Sender = push.NewNoopSender()
	if cfg.Push.Enabled() {
		sender = push.NewFCMSender(cfg.Push.Endpoint, cfg.Push.ServerKey, &http.Client{Timeout: 5 * time.Second})
	}
	opts := []fanout.Option{fanout.WithPushSender(sender)}

	// Subscribers live in the API process, so broadcasts need Redis to reach them.
	if cfg.Realtime.RedisURL != "" {
		rdb, err := realtime.NewRedisClient(cfg.Realtime.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		defer rdb.Close()
		opts = append(opts, fanout.WithBroadcaster(realtime.NewRedisBroadcaster(rdb)))
	} else {
		logg.Warn("REDIS_URL is not set, rating reminders will not be broadcast")
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		opts = append(opts, fanout.WithEventPublisher(publisher))
	}

	svc := reminder.NewService(repository.NewStore(db), fanout.NewDispatcher(logg, opts...), reminder.Options{
		Grace:        cfg.Reminder.Grace,
		DefaultLimit: cfg.Reminder.DefaultLimit,
		MaxLimit:     cfg.Reminder.MaxLimit,
	}, logg)

	scan := func() {
		n, err := svc.Scan(ctx, *limit)
		if err != nil {
			logg.Error("reminder scan failed", "error", err)
			return
		}
		logg.Info("reminder scan finished", "processed", n, "reminder_hours", svc.GraceHours())
	}

	if *once {
		scan()
		return
	}

	c := cron.New(cron.WithLogger(cron.PrintfLogger(slog.NewLogLogger(logg.Handler(), slog.LevelInfo))))
	if _, err := c.AddFunc(cfg.Reminder.Cron, scan); err != nil {
		log.Fatalf("invalid REMINDER_CRON %q: %v", cfg.Reminder.Cron, err)
	}
	c.Start()
	logg.Info("reminder scheduler started", "schedule", cfg.Reminder.Cron)

	<-ctx.Done()
	<-c.Stop().Done()
	logg.Info("reminder scheduler stopped")
}

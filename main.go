package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/example/lingoprogress/internal/bot"
	"github.com/example/lingoprogress/internal/config"
	"github.com/example/lingoprogress/internal/database"
	"github.com/example/lingoprogress/internal/logger"
	"github.com/example/lingoprogress/internal/metrics"
	"github.com/example/lingoprogress/internal/notify"
	"github.com/example/lingoprogress/internal/progress"
	"github.com/example/lingoprogress/internal/scheduler"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(cfg.App.Mode, cfg.App.LogFile)
	defer logg.Sync()

	// Создаем контекст, отменяемый по сигналу
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		logg.Fatal("failed to register metrics", zap.Error(err))
	}
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg, logg); err != nil {
				logg.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	// Подключаемся к хранилищу
	persist, history, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		logg.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closeStorage()

	notifiers := notify.Multi{notify.NewLogNotifier(logg)}
	if history != nil {
		notifiers = append(notifiers, notify.NewHistoryNotifier(history, time.Now))
	}

	var api *tgbotapi.BotAPI
	if cfg.Telegram.Token != "" {
		api, err = tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logg.Fatal("failed to create bot", zap.Error(err))
		}
		logg.Info("authorized on telegram", zap.String("account", api.Self.UserName))
		if cfg.Telegram.ChatID != 0 {
			notifiers = append(notifiers, notify.NewTelegramNotifier(api, cfg.Telegram.ChatID))
		}
	}

	store := progress.NewStore(persist, progress.Options{
		Notifier:      notifiers,
		Sounds:        notify.NewLogSoundPlayer(logg),
		Logger:        logg,
		Metrics:       m,
		Location:      cfg.Location(),
		Key:           cfg.Storage.Key,
		EffectTimeout: cfg.Effects.Timeout,
	})
	store.Load(ctx)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(store, notifiers, scheduler.Config{
			CheckpointInterval: cfg.Scheduler.CheckpointInterval,
			ReminderTime:       cfg.Scheduler.ReminderTime,
			Location:           cfg.Location(),
		}, logg)
		if err := sched.Start(); err != nil {
			logg.Fatal("failed to start scheduler", zap.Error(err))
		}
	}

	var b *bot.Bot
	if api != nil {
		var h bot.History
		if history != nil {
			h = history
		}
		b = bot.New(api, store, h, cfg.Telegram.ChatID, logg)
		go func() {
			if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error("bot error", zap.Error(err))
			}
		}()
	}

	logg.Info("progress service started, press Ctrl+C to stop", zap.String("driver", cfg.Storage.Driver))
	<-ctx.Done()
	logg.Info("shutting down")

	if b != nil {
		b.Stop()
	}
	if sched != nil {
		sched.Stop()
	}
	store.Wait()

	// Даем время на финальное сохранение
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Persist(shutdownCtx); err != nil {
		logg.Error("final save failed", zap.Error(err))
	}
	logg.Info("stopped")
}

// openStorage picks the persistence backend. history is nil for redis.
func openStorage(ctx context.Context, cfg *config.Config) (progress.Persistence, *database.NotificationRepository, func(), error) {
	if cfg.Storage.Driver == config.DriverRedis {
		rs, client, err := database.NewRedisStore(ctx, database.RedisOptions{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return rs, nil, func() { client.Close() }, nil
	}

	var (
		db  *sqlx.DB
		err error
	)
	if cfg.Storage.Driver == config.DriverPostgres {
		db, err = database.Open(database.DriverPostgres, cfg.Storage.PostgresDSN)
	} else {
		db, err = database.Open(database.DriverSQLite, cfg.Storage.SQLitePath)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return database.NewKVRepository(db), database.NewNotificationRepository(db), func() { db.Close() }, nil
}

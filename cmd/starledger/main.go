package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"starledger/internal/bot"
	"starledger/internal/config"
	"starledger/internal/database"
	"starledger/internal/handler"
	"starledger/internal/mw"
	"starledger/internal/notify"
	"starledger/internal/service"
	"starledger/internal/worker"
	"starledger/pkg/logging"
)

func main() {
	cfg, err := config.New(os.Args[1:])
	if err != nil {
		logging.Setup()
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	if err := run(cfg); err != nil {
		slog.Error("starledger failed", "error", err)
		os.Exit(1)
	}
	slog.Info("starledger stopped")
}

func run(cfg *config.Config) error {
	db, err := database.NewDB(cfg.Driver, cfg.DatabaseURI)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	if err := database.InitSchema(db); err != nil {
		return err
	}
	store := database.NewStore(db)

	var (
		api    *tgbotapi.BotAPI
		sender notify.Sender = notify.LogSender{}
	)
	if !cfg.NoBot {
		api, err = tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return err
		}
		slog.Info("authorized on telegram", "bot", api.Self.UserName)
		sender = bot.NewSender(api, cfg.AdminID)
	}
	dispatcher := notify.NewDispatcher(sender, notify.DefaultQueueSize)

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	// Services
	userSvc := service.NewUserService(store)
	orderSvc := service.NewOrderService(store, service.OrderOptions{
		UnitPrice:   cfg.Price(),
		MinQuantity: cfg.MinQuantity,
		MaxQuantity: cfg.MaxQuantity,
		Limiter:     mw.NewRateLimiter(cfg.OrderRatePerMinute, cfg.OrderRatePerMinute),
	})
	coord := service.NewCoordinator(store, orderSvc, policy, dispatcher, cfg.AdminID)
	authSvc := service.NewAuthService(cfg.AdminAPIKeyHash, cfg.JWTSecret, cfg.AdminID)
	if !authSvc.Enabled() {
		slog.Info("admin API disabled, ADMIN_API_KEY_HASH is not set")
	}

	// Worker
	reminderWorker := worker.NewReminderWorker(store, dispatcher, cfg.ReminderInterval, cfg.RemindAfter)

	srv := &http.Server{
		Addr: cfg.RunAddress,
		Handler: handler.NewRouter(handler.Deps{
			Store:        store,
			Auth:         authSvc,
			Users:        userSvc,
			Orders:       orderSvc,
			Coordinator:  coord,
			JWTSecret:    cfg.JWTSecret,
			LoginLimiter: mw.NewRateLimiter(10, 5),
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return dispatcher.Run(ctx) })
	g.Go(func() error { return reminderWorker.Start(ctx) })

	g.Go(func() error {
		slog.Info("starting server", "addr", cfg.RunAddress, "policy", policy.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down...")
		ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShut()
		return srv.Shutdown(ctxShut)
	})

	if api != nil {
		b := bot.New(api, userSvc, orderSvc, coord, dispatcher, bot.Options{
			AdminID:     cfg.AdminID,
			Wallet:      cfg.Wallet,
			BotName:     api.Self.UserName,
			MinQuantity: cfg.MinQuantity,
			MaxQuantity: cfg.MaxQuantity,
		})
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := api.GetUpdatesChan(u)

		g.Go(func() error {
			<-ctx.Done()
			api.StopReceivingUpdates()
			return nil
		})
		g.Go(func() error { return b.Run(ctx, updates) })
	}

	return g.Wait()
}

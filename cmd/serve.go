package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"food-console/httpapi"
	"food-console/notify"
	"food-console/realtime"
	"food-console/scope"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the console HTTP API with live notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.initScope(ctx); err != nil {
		return err
	}
	a.scope.Subscribe(func(s scope.State) {
		log.Info("branch selection changed", zap.String("selected", s.Selected), zap.String("label", a.scope.Label(s.Selected)))
	})

	if cfg.Telegram.Token != "" {
		bot, err := notify.NewTelegramBot(cfg.Telegram.Token)
		if err != nil {
			return err
		}
		relay := notify.NewTelegramRelay(bot, cfg.Telegram.AdminChatID, log.Named("telegram"))
		a.feed.Subscribe(relay.Handle)
		log.Info("telegram relay enabled", zap.Int64("chat_id", cfg.Telegram.AdminChatID))
	}

	if _, err := a.feed.Refresh(ctx); err != nil {
		log.Warn("initial notification fetch", zap.Error(err))
	}

	live, err := notify.Watch(ctx, a.sub, notify.Handlers{
		OnOrders: func(ev realtime.Event) {
			log.Debug("order changed", zap.String("type", ev.Type), zap.Any("id", ev.Record["id"]))
		},
		OnMessages: func(ev realtime.Event) {
			log.Debug("chat message", zap.Any("chat_id", ev.Record["chat_id"]))
		},
		OnNotifications: a.feed.OnPushInsert,
	})
	if err != nil {
		return err
	}
	defer live.Close()

	srv := httpapi.New(httpapi.Config{Console: a.console, Scope: a.scope, Feed: a.feed, Logger: log.Named("http")})
	return srv.ListenAndServe(ctx, cfg.HTTP.Addr, cfg.HTTP.ShutdownTimeout)
}

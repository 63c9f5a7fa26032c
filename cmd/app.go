package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"food-console/config"
	"food-console/console"
	"food-console/db"
	"food-console/kv"
	"food-console/notify"
	"food-console/realtime"
	"food-console/remote"
	"food-console/scope"
)

// memoryTables are provisioned when running against the in-process backend.
var memoryTables = []string{
	"branches", "profiles", "staff_allowlist", "addresses", "categories", "menu_items", "item_addons",
	"orders", "order_items", "order_status_events", "deliveries", "chats", "chat_messages",
	"staff_notifications", "promos", "reviews", "audit_logs", "delivery_settings", "restaurant_settings",
}

// app is the wired object graph shared by the subcommands.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	pool    *pgxpool.Pool
	backend remote.Service
	sub     realtime.Subscriber
	store   kv.Store
	scope   *scope.Manager
	console *console.Client
	feed    *notify.Feed

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	switch cfg.Backend.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.closers = append(a.closers, pool.Close)
		log.Info("connected to postgres", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.Database))
		if cfg.App.AutoMigrate {
			if err := db.Migrate(ctx, pool, log); err != nil {
				a.Close()
				return nil, err
			}
		}
		a.backend = remote.NewPostgres(pool)
	case "memory":
		mem := remote.NewMemory()
		for _, t := range memoryTables {
			mem.Define(t)
		}
		a.backend = mem
	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}

	switch cfg.Realtime.Driver {
	case "postgres":
		a.sub = realtime.NewPGListener(a.pool, cfg.Realtime.Channel, log)
	case "kafka":
		a.sub = realtime.NewKafkaSource(realtime.KafkaConfig{
			Brokers:     cfg.Realtime.Kafka.Brokers,
			Topic:       cfg.Realtime.Kafka.Topic,
			GroupPrefix: cfg.Realtime.Kafka.GroupPrefix,
		}, log)
	case "memory":
		hub := realtime.NewHub()
		if mem, ok := a.backend.(*remote.Memory); ok {
			mem.SetPublisher(hub)
		}
		a.sub = hub
	}

	store, err := kv.FromDSN(cfg.Scope.StoreDSN)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("scope store: %w", err)
	}
	a.store = store
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, func() { _ = c.Close() })
	}

	// The client reads the selection through the manager, which in turn
	// lists branches through the client.
	a.console = console.New(a.backend, scopeRef{a}, console.Options{
		Logger:         log.Named("console"),
		StrictDelivery: cfg.Delivery.StrictTransitions,
	})
	a.scope = scope.NewManager(ctx, a.console, store, log.Named("scope"))
	a.feed = notify.NewFeed(a.console, notify.Options{
		Limit:    cfg.Notifications.Limit,
		Debounce: cfg.Notifications.Debounce,
		Logger:   log.Named("notify"),
	})
	a.closers = append(a.closers, a.feed.Close)
	return a, nil
}

type scopeRef struct{ a *app }

func (r scopeRef) Current() string { return r.a.scope.Current() }

// initScope resolves the session's branch selection.
func (a *app) initScope(ctx context.Context) error {
	branches, err := a.scope.Initialize(ctx, a.cfg.Session.Role, a.cfg.Session.BranchID)
	if err != nil {
		return err
	}
	a.log.Info("branch scope ready",
		zap.String("role", a.cfg.Session.Role),
		zap.Int("branches", len(branches)),
		zap.String("selected", a.scope.Current()))
	return nil
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

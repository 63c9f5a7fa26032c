package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DefaultPGChannel is the NOTIFY channel used by the notify_change trigger.
const DefaultPGChannel = "console_changes"

// PGListener subscribes through PostgreSQL LISTEN/NOTIFY. Each subscription
// holds one pooled connection for its lifetime.
type PGListener struct {
	pool      *pgxpool.Pool
	pgChannel string
	log       *zap.Logger
}

func NewPGListener(pool *pgxpool.Pool, pgChannel string, log *zap.Logger) *PGListener {
	if pgChannel == "" {
		pgChannel = DefaultPGChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PGListener{pool: pool, pgChannel: pgChannel, log: log}
}

func (l *PGListener) Subscribe(ctx context.Context, channel string, filter Filter, h Handler) (Subscription, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.pgChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", l.pgChannel, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	log := l.log.With(zap.String("channel", channel), zap.String("pg_channel", l.pgChannel))

	go func() {
		defer close(done)
		defer func() {
			_, _ = conn.Exec(context.Background(), "UNLISTEN *")
			conn.Release()
		}()
		log.Info("listening for changes")
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error("wait for notification", zap.Error(err))
				if conn.Conn().IsClosed() {
					return
				}
				time.Sleep(time.Second)
				continue
			}
			ev, err := DecodeEvent([]byte(n.Payload))
			if err != nil {
				log.Warn("skip notification", zap.Error(err))
				continue
			}
			if filter.Matches(ev) {
				h(ev)
			}
		}
	}()

	return &cancelSub{cancel: func() {
		cancel()
		<-done
	}}, nil
}

package realtime

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig points KafkaSource at a change feed topic whose messages carry
// the same JSON shape as DecodeEvent expects.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	GroupPrefix string
}

// KafkaSource subscribes by consuming a change feed topic. Every
// subscription gets its own consumer group, unique per process, so each
// one sees every message. New groups start at the latest offset.
type KafkaSource struct {
	cfg      KafkaConfig
	log      *zap.Logger
	instance string
	seq      atomic.Int64
}

func NewKafkaSource(cfg KafkaConfig, log *zap.Logger) *KafkaSource {
	if cfg.GroupPrefix == "" {
		cfg.GroupPrefix = "food-console"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaSource{cfg: cfg, log: log, instance: uuid.NewString()}
}

func (k *KafkaSource) groupID(channel string) string {
	return fmt.Sprintf("%s-%s-%s-%d", k.cfg.GroupPrefix, channel, k.instance, k.seq.Add(1))
}

func (k *KafkaSource) Subscribe(ctx context.Context, channel string, filter Filter, h Handler) (Subscription, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.cfg.Brokers,
		Topic:       k.cfg.Topic,
		GroupID:     k.groupID(channel),
		StartOffset: kafka.LastOffset,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	log := k.log.With(zap.String("channel", channel), zap.String("topic", k.cfg.Topic))

	go func() {
		defer close(done)
		log.Info("starting change feed consumer", zap.Strings("brokers", k.cfg.Brokers))
		for {
			select {
			case <-ctx.Done():
				log.Info("stopping change feed consumer")
				return
			default:
				msg, err := reader.ReadMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Error("read kafka message", zap.Error(err))
					time.Sleep(time.Second)
					continue
				}
				ev, err := DecodeEvent(msg.Value)
				if err != nil {
					log.Warn("skip kafka message", zap.Error(err), zap.Int64("offset", msg.Offset))
					continue
				}
				if filter.Matches(ev) {
					h(ev)
				}
			}
		}
	}()

	return &cancelSub{cancel: func() {
		cancel()
		<-done
		if err := reader.Close(); err != nil {
			log.Warn("close kafka reader", zap.Error(err))
		}
	}}, nil
}

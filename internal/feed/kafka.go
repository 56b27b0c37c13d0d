// Package feed publishes executed trades to Kafka for downstream
// consumers. The feed is optional: with no brokers configured the core
// runs without it.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"exchange_go/internal/event"
	"exchange_go/internal/infra"
)

const publishAttempts = 3

// Publisher forwards TRADE_EXECUTED events from the core event stream to a
// Kafka topic, keyed by trade id so partitioning stays stable per trade.
// A circuit breaker shields the event loop when the broker is down.
type Publisher struct {
	writer  *kafka.Writer
	breaker *infra.CircuitBreaker
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		breaker: infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("trade-feed")),
	}
}

// Run consumes the event stream until ctx is cancelled. Publish failures
// are logged and skipped; the trade is already durable in SQLite.
func (p *Publisher) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			te, isTrade := ev.(event.TradeEvent)
			if !isTrade {
				continue
			}
			if !p.breaker.Allow() {
				slog.Warn("trade feed circuit open, dropping trade", "trade_id", te.Trade.ID)
				continue
			}
			if err := p.publish(ctx, te); err != nil {
				p.breaker.RecordFailure()
				slog.Warn("failed to publish trade", "trade_id", te.Trade.ID, "err", err)
				continue
			}
			p.breaker.RecordSuccess()
		}
	}
}

func (p *Publisher) publish(ctx context.Context, te event.TradeEvent) error {
	value, err := json.Marshal(te)
	if err != nil {
		return fmt.Errorf("marshal trade event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(te.Trade.ID, 10)),
		Value: value,
	}

	var lastErr error
	for attempt := 0; attempt < publishAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(infra.CalculateBackoff(attempt - 1)):
			}
		}
		if lastErr = p.writer.WriteMessages(ctx, msg); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

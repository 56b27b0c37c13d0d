// Package app wires configuration, storage, and the matching core into a
// runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"exchange_go/internal/engine"
	"exchange_go/internal/event"
	"exchange_go/internal/infra"
	"exchange_go/internal/storage"
	"exchange_go/pkg/quant"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config *infra.Config
	Store  *storage.Store
	Events *event.Log
	Book   *engine.OrderBook
}

func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration, opens storage, and builds the order book
// with any still-open orders recovered from the database. Pass an empty
// configPath to run on defaults.
func (b *Bootstrap) Initialize(configPath string) error {
	var err error
	if configPath != "" {
		b.Config, err = infra.LoadConfig(configPath)
		if err != nil {
			return err
		}
	} else {
		b.Config = infra.DefaultConfig()
	}

	slog.SetDefault(infra.NewLogger(b.Config.Logging.Level))
	slog.Info("bootstrapping exchange",
		"name", b.Config.App.Name, "version", b.Config.App.Version)

	b.Store, err = storage.Open(b.Config.Database.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	slog.Info("storage ready", "path", b.Config.Database.Path)

	b.Events = event.NewLog(b.Config.Events.Buffer)

	traders := engine.NewTraderRegistry(
		b.Config.Trading.SeedLotQty,
		quant.PriceMicros(b.Config.Trading.SeedLotPriceMicros),
	)
	market := engine.NewMarketService(
		quant.PriceMicros(b.Config.Market.InitialPriceMicros),
		b.Config.Market.HistorySize,
		traders,
	)
	risk := engine.NewRiskService(b.Config.Risk, traders, market, b.Events)

	b.Book, err = engine.NewOrderBook(
		b.Store.Orders(), b.Store.Trades(), b.Events, traders, market, risk)
	if err != nil {
		b.Store.Close()
		return fmt.Errorf("build order book: %w", err)
	}
	slog.Info("order book ready")
	return nil
}

// RunEventArchiver persists every core event to the events table until ctx
// is cancelled. Runs as its own consumer so archival cannot stall matching.
func (b *Bootstrap) RunEventArchiver(ctx context.Context) {
	events := b.Events.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := b.Store.AppendEvent(ev); err != nil {
				slog.Warn("failed to archive event", "type", ev.EventType(), "err", err)
			}
		}
	}
}

// Close releases held resources.
func (b *Bootstrap) Close() error {
	if b.Store != nil {
		return b.Store.Close()
	}
	return nil
}

// Command simulate drives a scripted order flow through an in-process book
// and prints the resulting market state. Useful for eyeballing matching
// behavior without standing up the HTTP server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"exchange_go/internal/domain"
	"exchange_go/internal/engine"
	"exchange_go/internal/event"
	"exchange_go/internal/sim"
	"exchange_go/internal/storage"
	"exchange_go/pkg/quant"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	store, err := storage.Open(":memory:")
	if err != nil {
		slog.Error("open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	events := event.NewLog(256)
	traders := engine.NewTraderRegistry(1_000, px(100))
	market := engine.NewMarketService(quant.NoPrice, 50, traders)
	risk := engine.NewRiskService(domain.UnlimitedRiskLimits(), traders, market, events)

	book, err := engine.NewOrderBook(store.Orders(), store.Trades(), events, traders, market, risk)
	if err != nil {
		slog.Error("build order book", slog.Any("error", err))
		os.Exit(1)
	}

	// Build a small two-sided book.
	submit(book, domain.NewLimitOrder(domain.SideAsk, 10, "alice", px(101)))
	submit(book, domain.NewLimitOrder(domain.SideAsk, 15, "bob", px(102)))
	submit(book, domain.NewLimitOrder(domain.SideBid, 10, "carol", px(99)))
	submit(book, domain.NewIcebergOrder(domain.SideAsk, 30, "alice", px(103), 10, 20))

	// Cross the spread and chew through the iceberg.
	submit(book, domain.NewMarketOrder(domain.SideBid, 20, "dave"))
	submit(book, domain.NewIOCOrder(domain.SideBid, 40, "erin", px(103)))

	// Park a stop and trip it.
	submit(book, domain.NewStopOrder(domain.SideAsk, 5, "bob", px(100)))
	book.UpdateMarketPrice(px(99))

	data := book.GetMarketData()
	fmt.Println()
	fmt.Printf("market price: %s  volatility: %s\n",
		quant.FormatPrice(data.MarketPrice), quant.FormatPrice(data.Volatility))
	fmt.Printf("bids: best=%s count=%d volume=%d\n",
		quant.FormatPrice(data.Bids.Best), data.Bids.Count, data.Bids.Volume)
	fmt.Printf("asks: best=%s count=%d volume=%d\n",
		quant.FormatPrice(data.Asks.Best), data.Asks.Count, data.Asks.Volume)
	fmt.Printf("trades: count=%d volume=%d avg=%s\n",
		data.Trades.Count, data.Trades.Volume, quant.FormatPrice(data.Trades.AvgPrice))

	fmt.Println()
	for _, id := range []string{"alice", "bob", "carol", "dave", "erin"} {
		stats := book.GetTraderStats(id)
		fmt.Printf("%-6s inventory=%-5d realized=%-12s drawdown=%s\n",
			id, stats.Inventory,
			quant.FormatPrice(quant.PriceMicros(stats.RealizedPnL)),
			stats.MaxDrawdown)
	}

	// Let a momentum bot trade the tail of the session: it watches the
	// trade prices and crosses the spread whenever the averages cross.
	fmt.Println()
	bot := sim.NewMomentumTrader(3, 8)
	walk := []int64{100, 100, 101, 101, 102, 103, 105, 107, 108, 106, 103, 101, 99, 98}
	for _, units := range walk {
		submit(book, domain.NewLimitOrder(domain.SideAsk, 5, "alice", px(units)))
		submit(book, domain.NewLimitOrder(domain.SideBid, 5, "frank", px(units)))

		switch bot.Observe(book.MarketPrice()) {
		case sim.SignalBuy:
			fmt.Printf("bot buys at %s\n", quant.FormatPrice(book.MarketPrice()))
			submit(book, domain.NewMarketOrder(domain.SideBid, 5, "bot"))
		case sim.SignalSell:
			fmt.Printf("bot sells at %s\n", quant.FormatPrice(book.MarketPrice()))
			submit(book, domain.NewMarketOrder(domain.SideAsk, 5, "bot"))
		}
	}
	botStats := book.GetTraderStats("bot")
	fmt.Printf("bot: inventory=%d realized=%s\n",
		botStats.Inventory, quant.FormatPrice(quant.PriceMicros(botStats.RealizedPnL)))

	fmt.Println()
	fmt.Printf("events: %d\n", len(events.History()))
}

func submit(book *engine.OrderBook, o *domain.Order) {
	if err := book.AddOrder(o); err != nil {
		slog.Warn("order rejected", "trader", o.TraderID, "err", err)
		return
	}
	slog.Info("order admitted",
		"id", o.ID, "type", string(o.Type), "side", string(o.Side),
		"status", string(o.Status), "remaining", o.RemainingQty)
}

func px(units int64) quant.PriceMicros {
	return quant.PriceMicros(units * quant.PriceScale)
}

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"exchange_go/internal/domain"
	"exchange_go/internal/engine"
	"exchange_go/internal/infra"
	"exchange_go/pkg/quant"
)

// Server exposes the order book over HTTP. The book serializes all
// mutations internally, so handlers call it directly.
type Server struct {
	book    *engine.OrderBook
	hub     *Hub
	limiter *infra.RateLimiter
}

// NewServer wraps the book. hub and limiter are optional; nil disables
// the event stream endpoint and request throttling respectively.
func NewServer(book *engine.OrderBook, hub *Hub, limiter *infra.RateLimiter) *Server {
	return &Server{book: book, hub: hub, limiter: limiter}
}

// Router builds the route table.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/orders", s.throttled, s.placeOrder)
	r.GET("/orders", s.listOrders)
	r.GET("/orders/:id", s.getOrder)
	r.PUT("/orders/:id", s.throttled, s.modifyOrder)
	r.DELETE("/orders/:id", s.throttled, s.cancelOrder)

	r.GET("/trades", s.listTrades)
	r.GET("/market", s.marketData)
	r.GET("/traders/:id", s.traderStats)

	r.GET("/risk", s.getRisk)
	r.PUT("/risk", s.putRisk)

	if s.hub != nil {
		r.GET("/events", s.hub.Handle)
	}
	return r
}

// throttled guards mutating routes with the shared token bucket.
func (s *Server) throttled(c *gin.Context) {
	if s.limiter != nil && !s.limiter.TryAcquire() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}

func (s *Server) placeOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order payload"})
		return
	}
	o, err := buildOrder(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.book.AddOrder(o); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(*o))
}

func (s *Server) listOrders(c *gin.Context) {
	store := c.DefaultQuery("store", "active")
	side := c.DefaultQuery("side", string(domain.SideBid))
	start := intQuery(c, "start", 0)
	limit := intQuery(c, "limit", -1)

	var orders []domain.Order
	switch {
	case store == "active" && side == string(domain.SideBid):
		orders = s.book.ActiveBids(start, limit)
	case store == "active" && side == string(domain.SideAsk):
		orders = s.book.ActiveAsks(start, limit)
	case store == "conditional" && side == string(domain.SideBid):
		orders = s.book.ConditionalBids(start, limit)
	case store == "conditional" && side == string(domain.SideAsk):
		orders = s.book.ConditionalAsks(start, limit)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store or side"})
		return
	}

	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := s.book.GetOrder(id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (s *Server) modifyOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req ModifyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid modify payload"})
		return
	}
	price, err := requirePrice(req.Price, "price")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}
	o, err := s.book.ModifyOrder(id, req.Quantity, price)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (s *Server) cancelOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := s.book.CancelOrder(id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (s *Server) listTrades(c *gin.Context) {
	start := intQuery(c, "start", 0)
	limit := intQuery(c, "limit", -1)

	trades := s.book.Trades(start, limit)
	out := make([]TradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{"trades": out})
}

func (s *Server) marketData(c *gin.Context) {
	data := s.book.GetMarketData()
	c.JSON(http.StatusOK, gin.H{
		"market_price": priceOrEmpty(data.MarketPrice),
		"volatility":   quant.FormatPrice(data.Volatility),
		"bids": gin.H{
			"best":   priceOrEmpty(data.Bids.Best),
			"count":  data.Bids.Count,
			"volume": data.Bids.Volume,
		},
		"asks": gin.H{
			"best":   priceOrEmpty(data.Asks.Best),
			"count":  data.Asks.Count,
			"volume": data.Asks.Volume,
		},
		"trades": gin.H{
			"count":     data.Trades.Count,
			"volume":    data.Trades.Volume,
			"avg_price": priceOrEmpty(data.Trades.AvgPrice),
		},
	})
}

func (s *Server) traderStats(c *gin.Context) {
	id := c.Param("id")
	stats := s.book.GetTraderStats(id)
	counts := s.book.CountOrdersForTrader(id)
	c.JSON(http.StatusOK, gin.H{
		"trader_id":       stats.TraderID,
		"inventory":       stats.Inventory,
		"reserved":        stats.Reserved,
		"avg_entry_price": priceOrEmpty(stats.AvgEntryPrice),
		"realized_pnl":    quant.FormatPrice(quant.PriceMicros(stats.RealizedPnL)),
		"unrealized_pnl":  quant.FormatPrice(quant.PriceMicros(stats.UnrealizedPnL)),
		"wins":            stats.Wins,
		"closed_trades":   stats.ClosedTrades,
		"avg_exit_price":  priceOrEmpty(stats.AvgExitPrice),
		"open_lots":       stats.OpenLots,
		"max_drawdown":    stats.MaxDrawdown.String(),
		"open_orders":     counts,
	})
}

func (s *Server) getRisk(c *gin.Context) {
	if traderID := c.Query("trader_id"); traderID != "" {
		c.JSON(http.StatusOK, gin.H{
			"scope":     "TRADER",
			"trader_id": traderID,
			"limits":    s.book.EffectiveRiskLimits(traderID),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scope":  "GLOBAL",
		"limits": s.book.GlobalRiskLimits(),
	})
}

func (s *Server) putRisk(c *gin.Context) {
	var req UpdateRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid risk payload"})
		return
	}
	switch req.Scope {
	case "GLOBAL":
		s.book.SetGlobalRiskLimits(req.Limits, req.Override)
	case "TRADER":
		if req.TraderID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "trader_id is required for trader scope"})
			return
		}
		s.book.SetTraderRiskLimits(req.TraderID, req.Limits)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be GLOBAL or TRADER"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func priceOrEmpty(p quant.PriceMicros) string {
	if !p.IsValid() {
		return ""
	}
	return quant.FormatPrice(p)
}

// statusFor maps core errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrOrderNotOpen):
		return http.StatusConflict
	case errors.Is(err, engine.ErrRiskRejected),
		errors.Is(err, domain.ErrInsufficientInventory):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Package server exposes the routing engine over HTTP: order fan-out,
// modify reconciliation, cancels, position actions and the book/report
// endpoints.
package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/copytrade/brokerhub/internal/broker"
	"github.com/copytrade/brokerhub/internal/dispatch"
	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/internal/expand"
	"github.com/copytrade/brokerhub/internal/ports"
	"github.com/copytrade/brokerhub/internal/reconcile"
)

type Config struct {
	Registry   *broker.Registry
	Accounts   ports.CredentialResolver
	Groups     ports.GroupStore
	Symbols    ports.SymbolResolver
	Engine     *dispatch.Engine
	Reconciler *reconcile.Reconciler
}

type Server struct {
	cfg      Config
	expander *expand.Expander

	// summary cache is request-scoped state only in the sense that holdings
	// refreshes it; /get_summary serves the last refresh.
	summaryMu    sync.Mutex
	summaryCache []domain.AccountSummary
}

func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil || cfg.Accounts == nil || cfg.Engine == nil {
		return nil, errors.New("registry, accounts and engine are required")
	}
	if cfg.Reconciler == nil {
		cfg.Reconciler = reconcile.New(cfg.Registry, cfg.Accounts)
	}
	return &Server{
		cfg:      cfg,
		expander: expand.New(cfg.Accounts, cfg.Groups, cfg.Symbols),
	}, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleIndex)
	r.GET("/health", s.handleHealth)

	r.POST("/place_orders", s.handlePlaceOrders)
	r.POST("/place_order", s.handlePlaceOrders) // legacy singular alias
	r.POST("/modify_orders", s.handleModifyOrders)
	r.POST("/cancel_order", s.handleCancelOrder)
	r.POST("/close_positions", s.handleClosePositions)
	r.POST("/convert_position", s.handleConvertPosition)

	r.GET("/get_orders", s.handleGetOrders)
	r.GET("/get_positions", s.handleGetPositions)
	r.GET("/get_holdings", s.handleGetHoldings)
	r.GET("/get_summary", s.handleGetSummary)
	r.GET("/groups", s.handleGroups)

	return r
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "brokerhub", "brokers": s.cfg.Registry.Names()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleGroups(c *gin.Context) {
	if s.cfg.Groups == nil {
		c.JSON(http.StatusOK, gin.H{"groups": []any{}})
		return
	}
	list, err := s.cfg.Groups.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": list})
}

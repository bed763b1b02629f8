package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/copytrade/brokerhub/internal/broker"
	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/pkg/logger"
)

func (s *Server) account(clientID, name string) (*domain.ClientAccount, error) {
	if clientID != "" {
		acct, err := s.cfg.Accounts.Resolve(clientID)
		if err != nil {
			return nil, err
		}
		if acct != nil {
			return acct, nil
		}
	}
	if name != "" {
		acct, err := s.cfg.Accounts.ByName(name)
		if err != nil {
			return nil, err
		}
		if acct != nil {
			return acct, nil
		}
	}
	return nil, broker.ErrClientNotFound
}

// forEachAccount runs fn concurrently for every dispatch-eligible account
// and collects per-account errors as strings.
func (s *Server) forEachAccount(c *gin.Context, fn func(acct *domain.ClientAccount) error) []string {
	accounts, err := s.cfg.Accounts.All()
	if err != nil {
		return []string{err.Error()}
	}
	errs := make([]string, 0)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, acct := range accounts {
		if !acct.HasCredentials() {
			continue
		}
		wg.Add(1)
		go func(acct *domain.ClientAccount) {
			defer wg.Done()
			if err := fn(acct); err != nil {
				logger.Warnf("%s: %v", acct.DisplayName(), err)
				mu.Lock()
				errs = append(errs, fmt.Sprintf("%s: %v", acct.DisplayName(), err))
				mu.Unlock()
			}
		}(acct)
	}
	wg.Wait()
	return errs
}

func (s *Server) handleGetOrders(c *gin.Context) {
	buckets := make(map[string][]domain.OrderRow, 5)
	for _, b := range domain.Buckets() {
		buckets[b] = []domain.OrderRow{}
	}
	var mu sync.Mutex

	errs := s.forEachAccount(c, func(acct *domain.ClientAccount) error {
		adapter, err := s.cfg.Registry.Get(acct.Broker)
		if err != nil {
			return err
		}
		rows, err := adapter.Orders(c.Request.Context(), acct)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		for _, row := range rows {
			bucket := domain.ClassifyStatus(row.Status)
			buckets[bucket] = append(buckets[bucket], row)
		}
		return nil
	})

	c.JSON(http.StatusOK, gin.H{"orders": buckets, "errors": errs})
}

func (s *Server) handleGetPositions(c *gin.Context) {
	open := []domain.Position{}
	closed := []domain.Position{}
	var mu sync.Mutex

	errs := s.forEachAccount(c, func(acct *domain.ClientAccount) error {
		adapter, err := s.cfg.Registry.Get(acct.Broker)
		if err != nil {
			return err
		}
		positions, err := adapter.Positions(c.Request.Context(), acct)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		for _, p := range positions {
			if p.Quantity == 0 {
				closed = append(closed, p)
			} else {
				open = append(open, p)
			}
		}
		return nil
	})

	c.JSON(http.StatusOK, gin.H{"open": open, "closed": closed, "errors": errs})
}

func (s *Server) handleGetHoldings(c *gin.Context) {
	holdings := []domain.Holding{}
	summaries := []domain.AccountSummary{}
	var mu sync.Mutex

	errs := s.forEachAccount(c, func(acct *domain.ClientAccount) error {
		adapter, err := s.cfg.Registry.Get(acct.Broker)
		if err != nil {
			return err
		}
		report, err := adapter.Holdings(c.Request.Context(), acct)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		holdings = append(holdings, report.Holdings...)
		summaries = append(summaries, report.Summary)
		return nil
	})

	s.summaryMu.Lock()
	s.summaryCache = summaries
	s.summaryMu.Unlock()

	c.JSON(http.StatusOK, gin.H{"holdings": holdings, "summary": summaries, "errors": errs})
}

// handleGetSummary serves the rollup captured by the last holdings fetch;
// the frontend polls this far more often than it is worth re-pricing.
func (s *Server) handleGetSummary(c *gin.Context) {
	s.summaryMu.Lock()
	cached := s.summaryCache
	s.summaryMu.Unlock()

	if cached == nil {
		cached = []domain.AccountSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"summary": cached})
}

type closePayload struct {
	Positions []struct {
		ClientID string `json:"client_id"`
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
	} `json:"positions"`
}

func (s *Server) handleClosePositions(c *gin.Context) {
	var payload closePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(payload.Positions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no positions to close"})
		return
	}

	messages := make([]string, len(payload.Positions))
	var wg sync.WaitGroup
	for i, p := range payload.Positions {
		wg.Add(1)
		go func(i int, clientID, name, symbol string) {
			defer wg.Done()
			acct, err := s.account(clientID, name)
			if err != nil {
				messages[i] = fmt.Sprintf("❌ %s (%s): %v", name, symbol, err)
				return
			}
			adapter, err := s.cfg.Registry.Get(acct.Broker)
			if err != nil {
				messages[i] = fmt.Sprintf("❌ %s (%s): %v", acct.DisplayName(), symbol, err)
				return
			}
			resp := adapter.ClosePosition(c.Request.Context(), acct, symbol)
			if resp.Failed() {
				messages[i] = fmt.Sprintf("❌ %s (%s): %s", acct.DisplayName(), symbol, resp.Message)
				return
			}
			messages[i] = fmt.Sprintf("✅ %s (%s): closed", acct.DisplayName(), symbol)
		}(i, p.ClientID, p.Name, p.Symbol)
	}
	wg.Wait()
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type convertPayload struct {
	ClientID    string `json:"client_id"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	SecurityID  string `json:"security_id"`
	Exchange    string `json:"exchange"`
	Action      string `json:"action"`
	FromProduct string `json:"from_product"`
	ToProduct   string `json:"to_product"`
	Quantity    int    `json:"quantity"`
}

func (s *Server) handleConvertPosition(c *gin.Context) {
	var payload convertPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	acct, err := s.account(payload.ClientID, payload.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	adapter, err := s.cfg.Registry.Get(acct.Broker)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := adapter.ConvertPosition(c.Request.Context(), acct, &domain.ConvertRequest{
		ClientID:    acct.ClientID,
		Name:        acct.DisplayName(),
		Symbol:      payload.Symbol,
		SecurityID:  payload.SecurityID,
		Exchange:    payload.Exchange,
		Action:      payload.Action,
		FromProduct: payload.FromProduct,
		ToProduct:   payload.ToProduct,
		Quantity:    payload.Quantity,
	})
	if resp.Failed() {
		c.JSON(http.StatusBadGateway, gin.H{"error": resp.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": resp.Message})
}

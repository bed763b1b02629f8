package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/internal/expand"
	"github.com/copytrade/brokerhub/internal/normalize"
	"github.com/copytrade/brokerhub/pkg/logger"
)

// placeRequest mirrors the field names the trading frontend has always sent.
type placeRequest struct {
	GroupAcc bool     `json:"groupacc"`
	Groups   []string `json:"groups"`
	Clients  []string `json:"clients"`

	Symbol       string  `json:"symbol"`
	SymbolToken  string  `json:"symboltoken"`
	Token        string  `json:"token"`
	Action       string  `json:"action"`
	OrderType    string  `json:"ordertype"`
	ProductType  string  `json:"producttype"`
	Validity     string  `json:"orderduration"`
	Exchange     string  `json:"exchange"`
	Price        float64 `json:"price"`
	TriggerPrice float64 `json:"trigger_price"`
	DisclosedQty int     `json:"disclosed_qty"`
	AMO          string  `json:"amoorder"`

	Quantity      int            `json:"quantityinlot"`
	QtySelection  string         `json:"qtySelection"`
	DiffQty       bool           `json:"diffQty"`
	Multiplier    bool           `json:"multiplier"`
	PerClientQty  map[string]int `json:"perClientQty"`
	PerGroupQty   map[string]int `json:"perGroupQty"`
	Tag           string         `json:"tag"`
	CorrelationID string         `json:"correlationId"`
}

// quantityPolicy folds the frontend's flag combination into one policy.
func (r *placeRequest) quantityPolicy() string {
	switch {
	case r.QtySelection == "auto":
		return domain.PolicyAuto
	case r.DiffQty && len(r.PerClientQty) > 0:
		return domain.PolicyPerClient
	case r.DiffQty && len(r.PerGroupQty) > 0:
		return domain.PolicyPerGroup
	case r.Multiplier:
		return domain.PolicyMultiplier
	default:
		return domain.PolicyManual
	}
}

func (r *placeRequest) expandRequest() *expand.Request {
	token := r.SymbolToken
	if token == "" {
		token = r.Token
	}
	return &expand.Request{
		GroupAcc: r.GroupAcc,
		Groups:   r.Groups,
		Clients:  r.Clients,
		Tag:      r.Tag,
		Token:    token,
		Intent: domain.OrderIntent{
			Action:        r.Action,
			OrderType:     r.OrderType,
			ProductType:   r.ProductType,
			Validity:      r.Validity,
			Exchange:      r.Exchange,
			Symbol:        r.Symbol,
			Price:         r.Price,
			TriggerPrice:  r.TriggerPrice,
			DisclosedQty:  r.DisclosedQty,
			AMO:           strings.EqualFold(r.AMO, "Y"),
			CorrelationID: r.CorrelationID,
			Quantity: domain.QuantitySpec{
				Policy:    r.quantityPolicy(),
				Base:      r.Quantity,
				PerClient: r.PerClientQty,
				PerGroup:  r.PerGroupQty,
			},
		},
	}
}

func (s *Server) handlePlaceOrders(c *gin.Context) {
	var req placeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	xreq := req.expandRequest()
	// Fail the request before fan-out when the shared intent itself is
	// unusable; per-row problems stay per-row.
	if err := normalize.ValidateIntent(&xreq.Intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := s.expander.Expand(xreq)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no target clients"})
		return
	}

	results := s.cfg.Engine.Dispatch(c.Request.Context(), rows)
	logger.Infof("place_orders: %d rows dispatched for %s", len(rows), xreq.Intent.Symbol)
	c.JSON(http.StatusOK, gin.H{"status": "completed", "results": results})
}

type modifyPayload struct {
	Orders []struct {
		ClientID     string  `json:"client_id"`
		Name         string  `json:"name"`
		OrderID      string  `json:"order_id"`
		OrderType    string  `json:"ordertype"`
		Price        float64 `json:"price"`
		TriggerPrice float64 `json:"trigger_price"`
		Quantity     int     `json:"quantity"`
		Validity     string  `json:"orderduration"`
	} `json:"orders"`
}

func (s *Server) handleModifyOrders(c *gin.Context) {
	var payload modifyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(payload.Orders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no orders to modify"})
		return
	}

	reqs := make([]*domain.ModifyRequest, len(payload.Orders))
	for i, o := range payload.Orders {
		reqs[i] = &domain.ModifyRequest{
			ClientID:     o.ClientID,
			Name:         o.Name,
			OrderID:      o.OrderID,
			OrderType:    o.OrderType,
			Price:        o.Price,
			TriggerPrice: o.TriggerPrice,
			Quantity:     o.Quantity,
			Validity:     o.Validity,
		}
	}
	messages := s.cfg.Reconciler.ModifyAll(c.Request.Context(), reqs)
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type cancelPayload struct {
	Orders []struct {
		ClientID string `json:"client_id"`
		Name     string `json:"name"`
		OrderID  string `json:"order_id"`
	} `json:"orders"`
}

func (s *Server) handleCancelOrder(c *gin.Context) {
	var payload cancelPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(payload.Orders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no orders to cancel"})
		return
	}

	messages := make([]string, len(payload.Orders))
	var wg sync.WaitGroup
	for i, o := range payload.Orders {
		wg.Add(1)
		go func(i int, clientID, name, orderID string) {
			defer wg.Done()
			acct, err := s.account(clientID, name)
			if err != nil {
				messages[i] = fmt.Sprintf("❌ %s (%s): %v", name, orderID, err)
				return
			}
			adapter, err := s.cfg.Registry.Get(acct.Broker)
			if err != nil {
				messages[i] = fmt.Sprintf("❌ %s (%s): %v", acct.DisplayName(), orderID, err)
				return
			}
			resp := adapter.CancelOrder(c.Request.Context(), acct, orderID)
			if resp.Failed() {
				messages[i] = fmt.Sprintf("❌ %s (%s): %s", acct.DisplayName(), orderID, resp.Message)
				return
			}
			messages[i] = fmt.Sprintf("✅ %s (%s): %s", acct.DisplayName(), orderID, resp.Message)
		}(i, o.ClientID, o.Name, o.OrderID)
	}
	wg.Wait()
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Package dhan implements the broker adapter for Dhan's v2 REST API.
package dhan

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/copytrade/brokerhub/internal/broker"
	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/internal/normalize"
	"github.com/copytrade/brokerhub/pkg/logger"
	sdkhttp "github.com/copytrade/brokerhub/pkg/sdk/http"
)

const DefaultBaseURL = "https://api.dhan.co"

type Adapter struct {
	http *sdkhttp.Client
}

func New(baseURL string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{http: sdkhttp.NewClient(baseURL, timeout)}
}

func (a *Adapter) Name() string { return domain.BrokerDhan }

func (a *Adapter) headers(acct *domain.ClientAccount) map[string]string {
	return map[string]string{"access-token": acct.Token()}
}

// PlaceOrder submits one row. Price and trigger fields are sent only when
// the canonical order type uses them; dhan rejects spurious values.
func (a *Adapter) PlaceOrder(ctx context.Context, acct *domain.ClientAccount, row *domain.PerClientOrder) domain.BrokerResponse {
	payload := map[string]any{
		"dhanClientId":      acct.ClientID,
		"correlationId":     row.CorrelationID,
		"transactionType":   row.Action,
		"exchangeSegment":   normalize.DhanExchange(row.Exchange),
		"productType":       normalize.DhanProduct(row.ProductType),
		"orderType":         row.OrderType,
		"validity":          strings.ToUpper(row.Validity),
		"securityId":        row.SecurityID,
		"quantity":          row.Qty,
		"disclosedQuantity": row.DisclosedQty,
		"price":             row.Price,
		"triggerPrice":      row.TriggerPrice,
		"afterMarketOrder":  row.AMO,
	}
	if row.AMO {
		payload["amoTime"] = "OPEN"
	}

	logger.WithFields(map[string]any{
		"broker": a.Name(), "client": acct.ClientID, "token": broker.RedactToken(acct.Token()),
	}).Debugf("place %s %s qty=%d", row.Action, row.Symbol, row.Qty)

	resp, err := a.http.DoRequest(ctx, "POST", "/v2/orders",
		&sdkhttp.RequestOptions{Headers: a.headers(acct), Data: payload}, nil)
	if err != nil {
		return domain.Errf("%v: %v", broker.ErrBrokerCallFailed, err)
	}
	body := sdkhttp.ParseBody(resp)
	if !resp.IsSuccess() || broker.Str(body, "errorType") != "" {
		out := domain.Errf("order rejected: %s", errorMessage(body, resp.Status()))
		out.Raw = body
		return out
	}
	orderID := broker.Str(body, "orderId")
	if orderID == "" {
		out := domain.Errf("order accepted without an order id")
		out.Raw = body
		return out
	}
	out := domain.OK(orderID, broker.Str(body, "orderStatus"))
	out.Raw = body
	return out
}

// ModifyOrder rewrites the working order. The snapshot supplies everything
// the caller left unset; the reconciler has already merged them into mod.
func (a *Adapter) ModifyOrder(ctx context.Context, acct *domain.ClientAccount, mod *domain.ModifyRequest, snap *domain.OrderSnapshot) domain.BrokerResponse {
	payload := map[string]any{
		"dhanClientId":      acct.ClientID,
		"orderId":           mod.OrderID,
		"orderType":         mod.OrderType,
		"quantity":          mod.Quantity,
		"disclosedQuantity": 0,
		"validity":          mod.Validity,
	}
	if normalize.NeedsPrice(mod.OrderType) {
		payload["price"] = mod.Price
	}
	if normalize.NeedsTrigger(mod.OrderType) {
		payload["triggerPrice"] = mod.TriggerPrice
	}

	resp, err := a.http.DoRequest(ctx, "PUT", "/v2/orders/"+mod.OrderID,
		&sdkhttp.RequestOptions{Headers: a.headers(acct), Data: payload}, nil)
	if err != nil {
		return domain.Errf("%v: %v", broker.ErrBrokerCallFailed, err)
	}
	body := sdkhttp.ParseBody(resp)
	if !resp.IsSuccess() || broker.Str(body, "errorType") != "" {
		out := domain.Errf("modify rejected: %s", errorMessage(body, resp.Status()))
		out.Raw = body
		return out
	}
	out := domain.OK(mod.OrderID, broker.Str(body, "orderStatus"))
	out.Raw = body
	return out
}

// CancelOrder treats any 2xx without an errorType as success; dhan reports
// an already-cancelled order as a terminal orderStatus, not an error.
func (a *Adapter) CancelOrder(ctx context.Context, acct *domain.ClientAccount, orderID string) domain.BrokerResponse {
	resp, err := a.http.DoRequest(ctx, "DELETE", "/v2/orders/"+orderID,
		&sdkhttp.RequestOptions{Headers: a.headers(acct)}, nil)
	if err != nil {
		return domain.Errf("%v: %v", broker.ErrBrokerCallFailed, err)
	}
	body := sdkhttp.ParseBody(resp)
	status := strings.ToUpper(broker.Str(body, "orderStatus"))
	switch {
	case resp.IsSuccess() && broker.Str(body, "errorType") == "":
		return domain.OK(orderID, "cancel requested")
	case strings.Contains(status, "CANCEL"):
		return domain.OK(orderID, "already cancelled")
	default:
		out := domain.Errf("cancel failed: %s", errorMessage(body, resp.Status()))
		out.Raw = body
		return out
	}
}

// ClosePosition squares off the live net position for the symbol with an
// opposite market order, reusing the position's own product type.
func (a *Adapter) ClosePosition(ctx context.Context, acct *domain.ClientAccount, symbol string) domain.BrokerResponse {
	raw, err := a.rawPositions(ctx, acct)
	if err != nil {
		return domain.Errf("%v: %v", broker.ErrBrokerCallFailed, err)
	}
	for _, p := range raw {
		if !strings.EqualFold(broker.Str(p, "tradingSymbol"), symbol) {
			continue
		}
		netQty := broker.Int(p, "netQty")
		if netQty == 0 {
			return domain.Errf("no open position in %s", symbol)
		}
		action := domain.ActionSell
		qty := netQty
		if netQty < 0 {
			action = domain.ActionBuy
			qty = -netQty
		}
		row := &domain.PerClientOrder{
			OrderIntent: domain.OrderIntent{
				Action:      action,
				OrderType:   domain.OrderTypeMarket,
				ProductType: broker.Str(p, "productType"),
				Validity:    "DAY",
				Exchange:    broker.Str(p, "exchangeSegment"),
				Symbol:      symbol,
			},
			Qty:        qty,
			SecurityID: broker.Str(p, "securityId"),
		}
		normalize.Canonicalize(row)
		return a.PlaceOrder(ctx, acct, row)
	}
	return domain.Errf("no position found for %s", symbol)
}

// ConvertPosition moves an open position between product types.
func (a *Adapter) ConvertPosition(ctx context.Context, acct *domain.ClientAccount, req *domain.ConvertRequest) domain.BrokerResponse {
	payload := map[string]any{
		"dhanClientId":    acct.ClientID,
		"exchangeSegment": normalize.DhanExchange(req.Exchange),
		"positionType":    "DAY",
		"securityId":      req.SecurityID,
		"convertQty":      req.Quantity,
		"fromProductType": normalize.DhanProduct(req.FromProduct),
		"toProductType":   normalize.DhanProduct(req.ToProduct),
	}
	resp, err := a.http.DoRequest(ctx, "POST", "/v2/positions/convert",
		&sdkhttp.RequestOptions{Headers: a.headers(acct), Data: payload}, nil)
	if err != nil {
		return domain.Errf("%v: %v", broker.ErrBrokerCallFailed, err)
	}
	body := sdkhttp.ParseBody(resp)
	if !resp.IsSuccess() || broker.Str(body, "errorType") != "" {
		out := domain.Errf("convert failed: %s", errorMessage(body, resp.Status()))
		out.Raw = body
		return out
	}
	return domain.OK("", "position converted")
}

func errorMessage(body map[string]any, httpStatus string) string {
	if msg := broker.Str(body, "errorMessage", "message", "error"); msg != "" {
		return msg
	}
	if body != nil {
		if b, err := json.Marshal(body); err == nil && len(b) > 2 {
			return string(b)
		}
	}
	return httpStatus
}

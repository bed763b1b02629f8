// Package motilal implements the broker adapter for Motilal Oswal's REST
// API. The API is POST-heavy, speaks lowercase field names, trades
// derivatives in lots and reports prices in paise.
package motilal

import (
	"context"
	"strings"
	"time"

	"github.com/copytrade/brokerhub/internal/broker"
	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/internal/normalize"
	"github.com/copytrade/brokerhub/internal/ports"
	"github.com/copytrade/brokerhub/pkg/logger"
	sdkhttp "github.com/copytrade/brokerhub/pkg/sdk/http"
)

const DefaultBaseURL = "https://openapi.motilaloswal.com"

// lastModifiedLayout is the IST timestamp format the modify endpoint echoes.
const lastModifiedLayout = "02-Jan-2006 15:04:05"

var ist = time.FixedZone("IST", 5*3600+1800)

type Adapter struct {
	http    *sdkhttp.Client
	symbols ports.SymbolResolver
}

func New(baseURL string, timeout time.Duration, symbols ports.SymbolResolver) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{http: sdkhttp.NewClient(baseURL, timeout), symbols: symbols}
}

func (a *Adapter) Name() string { return domain.BrokerMotilal }

func (a *Adapter) headers(acct *domain.ClientAccount) map[string]string {
	return map[string]string{
		"Authorization": acct.Token(),
		"User-Agent":    "MOSL/V.1.1.0",
		"vendorinfo":    acct.ClientID,
	}
}

// post issues one API call and decodes the envelope; motilal wraps every
// response in {status, message, data}.
func (a *Adapter) post(ctx context.Context, acct *domain.ClientAccount, endpoint string, payload map[string]any) (map[string]any, error) {
	resp, err := a.http.DoRequest(ctx, "POST", endpoint,
		&sdkhttp.RequestOptions{Headers: a.headers(acct), Data: payload}, nil)
	if err != nil {
		return nil, err
	}
	body := sdkhttp.ParseBody(resp)
	if err := sdkhttp.CheckResponse(resp, nil); err != nil {
		return body, err
	}
	return body, nil
}

func ok(body map[string]any) bool {
	return strings.EqualFold(broker.Str(body, "status"), "SUCCESS")
}

// minLot resolves the instrument lot size, preferring what expansion already
// attached to the row.
func (a *Adapter) minLot(rowMinLot int, token string) int {
	if rowMinLot > 0 {
		return rowMinLot
	}
	if a.symbols != nil {
		if ml := a.symbols.MinLot(token); ml > 0 {
			return ml
		}
	}
	return 1
}

// PlaceOrder submits one row. The caller-facing share quantity is converted
// to lots exactly once, here.
func (a *Adapter) PlaceOrder(ctx context.Context, acct *domain.ClientAccount, row *domain.PerClientOrder) domain.BrokerResponse {
	amo := "N"
	if row.AMO {
		amo = "Y"
	}
	payload := map[string]any{
		"clientcode":        acct.ClientID,
		"exchange":          strings.ToUpper(row.Exchange),
		"symboltoken":       row.SecurityID,
		"buyorsell":         row.Action,
		"ordertype":         normalize.MotilalOrderType(row.OrderType),
		"producttype":       strings.ToUpper(row.ProductType),
		"orderduration":     strings.ToUpper(row.Validity),
		"price":             row.Price,
		"triggerprice":      row.TriggerPrice,
		"quantityinlot":     normalize.SharesToLots(row.Qty, a.minLot(row.MinLot, row.SecurityID)),
		"disclosedquantity": row.DisclosedQty,
		"amoorder":          amo,
		"algoid":            "",
		"goodtilldate":      "",
		"tag":               row.CorrelationID,
	}

	logger.WithFields(map[string]any{
		"broker": a.Name(), "client": acct.ClientID, "token": broker.RedactToken(acct.Token()),
	}).Debugf("place %s %s qty=%d", row.Action, row.Symbol, row.Qty)

	body, err := a.post(ctx, acct, "/rest/trans/v1/placeorder", payload)
	if err != nil {
		return domain.Errf("%v: %v", broker.ErrBrokerCallFailed, err)
	}
	if !ok(body) {
		out := domain.Errf("order rejected: %s", broker.Str(body, "message"))
		out.Raw = body
		return out
	}
	out := domain.OK(broker.Str(body, "uniqueorderid"), broker.Str(body, "message"))
	out.Raw = body
	return out
}

// ModifyOrder rewrites the working order. The endpoint demands the full
// order state on every call: newordertype is always sent, the snapshot's
// lastmodifiedtime is echoed back as the optimistic-concurrency check, and
// quantity goes out in lots.
func (a *Adapter) ModifyOrder(ctx context.Context, acct *domain.ClientAccount, mod *domain.ModifyRequest, snap *domain.OrderSnapshot) domain.BrokerResponse {
	lastModified := snap.LastModifiedTime
	if lastModified == "" {
		lastModified = time.Now().In(ist).Format(lastModifiedLayout)
	}
	payload := map[string]any{
		"clientcode":           acct.ClientID,
		"uniqueorderid":        mod.OrderID,
		"newordertype":         normalize.MotilalOrderType(mod.OrderType),
		"neworderduration":     strings.ToUpper(mod.Validity),
		"newquantityinlot":     normalize.SharesToLots(mod.Quantity, a.minLot(0, snap.SecurityID)),
		"newdisclosedquantity": 0,
		"newprice":             mod.Price,
		"newtriggerprice":      mod.TriggerPrice,
		"lastmodifiedtime":     lastModified,
	}
	body, err := a.post(ctx, acct, "/rest/trans/v2/modifyorder", payload)
	if err != nil {
		return domain.Errf("%v: %v", broker.ErrBrokerCallFailed, err)
	}
	if !ok(body) {
		out := domain.Errf("modify rejected: %s", broker.Str(body, "message"))
		out.Raw = body
		return out
	}
	out := domain.OK(mod.OrderID, broker.Str(body, "message"))
	out.Raw = body
	return out
}

func (a *Adapter) CancelOrder(ctx context.Context, acct *domain.ClientAccount, orderID string) domain.BrokerResponse {
	body, err := a.post(ctx, acct, "/rest/trans/v1/cancelorder", map[string]any{
		"clientcode":    acct.ClientID,
		"uniqueorderid": orderID,
	})
	if err != nil {
		return domain.Errf("%v: %v", broker.ErrBrokerCallFailed, err)
	}
	msg := broker.Str(body, "message")
	if !ok(body) {
		// Cancelling an already-dead order is reported as an error string.
		if strings.Contains(strings.ToLower(msg), "cancel") {
			return domain.OK(orderID, msg)
		}
		out := domain.Errf("cancel failed: %s", msg)
		out.Raw = body
		return out
	}
	return domain.OK(orderID, msg)
}

// ClosePosition squares off the live net position with an opposite market
// order in the position's own product type.
func (a *Adapter) ClosePosition(ctx context.Context, acct *domain.ClientAccount, symbol string) domain.BrokerResponse {
	raw, err := a.rawPositions(ctx, acct)
	if err != nil {
		return domain.Errf("%v: %v", broker.ErrBrokerCallFailed, err)
	}
	for _, p := range raw {
		if !strings.EqualFold(broker.Str(p, "symbol"), symbol) {
			continue
		}
		netQty := broker.Int(p, "buyquantity") - broker.Int(p, "sellquantity")
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
				ProductType: broker.Str(p, "productname"),
				Validity:    "DAY",
				Exchange:    broker.Str(p, "exchange"),
				Symbol:      symbol,
			},
			Qty:        qty,
			SecurityID: broker.Str(p, "symboltoken"),
		}
		normalize.Canonicalize(row)
		return a.PlaceOrder(ctx, acct, row)
	}
	return domain.Errf("no position found for %s", symbol)
}

// ConvertPosition moves an open position between product types.
func (a *Adapter) ConvertPosition(ctx context.Context, acct *domain.ClientAccount, req *domain.ConvertRequest) domain.BrokerResponse {
	body, err := a.post(ctx, acct, "/rest/trans/v1/modifyproducttype", map[string]any{
		"clientcode":     acct.ClientID,
		"exchange":       strings.ToUpper(req.Exchange),
		"symboltoken":    req.SecurityID,
		"buyorsell":      req.Action,
		"quantityinlot":  normalize.SharesToLots(req.Quantity, a.minLot(0, req.SecurityID)),
		"oldproducttype": strings.ToUpper(req.FromProduct),
		"newproducttype": strings.ToUpper(req.ToProduct),
	})
	if err != nil {
		return domain.Errf("%v: %v", broker.ErrBrokerCallFailed, err)
	}
	if !ok(body) {
		out := domain.Errf("convert failed: %s", broker.Str(body, "message"))
		out.Raw = body
		return out
	}
	return domain.OK("", "position converted")
}

package dhan

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/copytrade/brokerhub/internal/broker"
	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/internal/normalize"
	sdkhttp "github.com/copytrade/brokerhub/pkg/sdk/http"
)

func (a *Adapter) getList(ctx context.Context, acct *domain.ClientAccount, endpoint string) ([]map[string]any, error) {
	resp, err := a.http.DoRequest(ctx, "GET", endpoint,
		&sdkhttp.RequestOptions{Headers: a.headers(acct)}, nil)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("GET %s: http %d", endpoint, resp.StatusCode())
	}
	var body any
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, errors.Wrapf(err, "GET %s: decode", endpoint)
	}
	return broker.List(body, "data"), nil
}

// Orders fetches the full-day order book.
func (a *Adapter) Orders(ctx context.Context, acct *domain.ClientAccount) ([]domain.OrderRow, error) {
	raw, err := a.getList(ctx, acct, "/v2/orders")
	if err != nil {
		return nil, err
	}
	rows := make([]domain.OrderRow, 0, len(raw))
	for _, o := range raw {
		rows = append(rows, domain.OrderRow{
			Name:            acct.DisplayName(),
			ClientID:        acct.ClientID,
			Symbol:          broker.Str(o, "tradingSymbol"),
			TransactionType: broker.Str(o, "transactionType"),
			Quantity:        broker.Int(o, "quantity"),
			Price:           broker.Float(o, "price"),
			Status:          broker.Str(o, "orderStatus"),
			OrderID:         broker.Str(o, "orderId"),
		})
	}
	return rows, nil
}

func (a *Adapter) rawPositions(ctx context.Context, acct *domain.ClientAccount) ([]map[string]any, error) {
	return a.getList(ctx, acct, "/v2/positions")
}

// Positions fetches the day's net positions.
func (a *Adapter) Positions(ctx context.Context, acct *domain.ClientAccount) ([]domain.Position, error) {
	raw, err := a.rawPositions(ctx, acct)
	if err != nil {
		return nil, err
	}
	positions := make([]domain.Position, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, domain.Position{
			Name:      acct.DisplayName(),
			ClientID:  acct.ClientID,
			Symbol:    broker.Str(p, "tradingSymbol"),
			Quantity:  broker.Int(p, "netQty"),
			BuyAvg:    broker.Float(p, "buyAvg"),
			SellAvg:   broker.Float(p, "sellAvg"),
			LTP:       broker.Float(p, "ltp", "lastTradedPrice"),
			NetProfit: broker.Float(p, "realizedProfit") + broker.Float(p, "unrealizedProfit"),
		})
	}
	return positions, nil
}

// Holdings combines the demat holdings with the fund limit so the report
// carries a full per-account summary. Money math stays in decimal until the
// final rounding.
func (a *Adapter) Holdings(ctx context.Context, acct *domain.ClientAccount) (domain.HoldingsReport, error) {
	raw, err := a.getList(ctx, acct, "/v2/holdings")
	if err != nil {
		return domain.HoldingsReport{}, err
	}

	invested := decimal.Zero
	current := decimal.Zero
	holdings := make([]domain.Holding, 0, len(raw))
	for _, h := range raw {
		qty := decimal.NewFromFloat(broker.Float(h, "totalQty", "availableQty"))
		avg := decimal.NewFromFloat(broker.Float(h, "avgCostPrice"))
		ltp := decimal.NewFromFloat(broker.Float(h, "lastTradedPrice", "ltp"))
		if ltp.IsZero() {
			ltp = avg
		}
		cost := qty.Mul(avg)
		value := qty.Mul(ltp)
		invested = invested.Add(cost)
		current = current.Add(value)
		holdings = append(holdings, domain.Holding{
			Name:     acct.DisplayName(),
			Symbol:   broker.Str(h, "tradingSymbol"),
			Quantity: qty.InexactFloat64(),
			BuyAvg:   avg.Round(2).InexactFloat64(),
			LTP:      ltp.Round(2).InexactFloat64(),
			PnL:      value.Sub(cost).Round(2).InexactFloat64(),
		})
	}

	available := decimal.Zero
	if fund, err := a.getObject(ctx, acct, "/v2/fundlimit"); err == nil {
		// dhan spells this field "availabelBalance"; tolerate a fix upstream.
		available = decimal.NewFromFloat(broker.Float(fund, "availabelBalance", "availableBalance"))
	}

	capital := decimal.NewFromFloat(acct.Capital)
	pnl := current.Sub(invested)
	netGain := pnl
	if capital.IsPositive() {
		netGain = current.Add(available).Sub(capital)
	}
	return domain.HoldingsReport{
		Holdings: holdings,
		Summary: domain.AccountSummary{
			Name:            acct.DisplayName(),
			Capital:         capital.Round(2).InexactFloat64(),
			Invested:        invested.Round(2).InexactFloat64(),
			CurrentValue:    current.Round(2).InexactFloat64(),
			PnL:             pnl.Round(2).InexactFloat64(),
			AvailableMargin: available.Round(2).InexactFloat64(),
			NetGain:         netGain.Round(2).InexactFloat64(),
		},
	}, nil
}

func (a *Adapter) getObject(ctx context.Context, acct *domain.ClientAccount, endpoint string) (map[string]any, error) {
	resp, err := a.http.DoRequest(ctx, "GET", endpoint,
		&sdkhttp.RequestOptions{Headers: a.headers(acct)}, nil)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("GET %s: http %d", endpoint, resp.StatusCode())
	}
	return sdkhttp.ParseBody(resp), nil
}

// OrderSnapshot fetches the current broker state of one order. The detail
// endpoint is tried first; some order states only show up in the full book,
// so a scan is the fallback. (nil, nil) means the order does not exist.
func (a *Adapter) OrderSnapshot(ctx context.Context, acct *domain.ClientAccount, orderID string) (*domain.OrderSnapshot, error) {
	if detail, err := a.getList(ctx, acct, "/v2/orders/"+orderID); err == nil {
		for _, o := range detail {
			if broker.Str(o, "orderId") == orderID {
				return snapshotFrom(o), nil
			}
		}
	}
	book, err := a.getList(ctx, acct, "/v2/orders")
	if err != nil {
		return nil, err
	}
	for _, o := range book {
		if broker.Str(o, "orderId") == orderID {
			return snapshotFrom(o), nil
		}
	}
	return nil, nil
}

func snapshotFrom(o map[string]any) *domain.OrderSnapshot {
	return &domain.OrderSnapshot{
		OrderID:          broker.Str(o, "orderId"),
		SecurityID:       broker.Str(o, "securityId"),
		Quantity:         broker.Int(o, "quantity"),
		OrderType:        normalize.CanonicalOrderType(broker.Str(o, "orderType")),
		Price:            broker.Float(o, "price"),
		TriggerPrice:     broker.Float(o, "triggerPrice"),
		Validity:         broker.Str(o, "validity"),
		Status:           broker.Str(o, "orderStatus"),
		LastModifiedTime: broker.Str(o, "updateTime", "exchangeTime"),
	}
}

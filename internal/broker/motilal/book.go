package motilal

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/copytrade/brokerhub/internal/broker"
	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/internal/normalize"
)

// paise converts the fixed-point paise values this API reports into rupees.
var paise = decimal.NewFromInt(100)

func rupees(p float64) float64 {
	return decimal.NewFromFloat(p).Div(paise).Round(2).InexactFloat64()
}

func (a *Adapter) getList(ctx context.Context, acct *domain.ClientAccount, endpoint string, extra map[string]any) ([]map[string]any, error) {
	payload := map[string]any{"clientcode": acct.ClientID}
	for k, v := range extra {
		payload[k] = v
	}
	body, err := a.post(ctx, acct, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if !ok(body) {
		return nil, errors.Errorf("%s: %s", endpoint, broker.Str(body, "message"))
	}
	return broker.List(body["data"], "data"), nil
}

// orderBook fetches the day's order book. The endpoint requires a day-start
// timestamp in IST alongside the client code.
func (a *Adapter) orderBook(ctx context.Context, acct *domain.ClientAccount) ([]map[string]any, error) {
	return a.getList(ctx, acct, "/rest/book/v1/getorderbook", map[string]any{
		"datetimestamp": time.Now().In(ist).Format("02-Jan-2006") + " 09:00:00",
	})
}

// Orders fetches the full-day order book.
func (a *Adapter) Orders(ctx context.Context, acct *domain.ClientAccount) ([]domain.OrderRow, error) {
	raw, err := a.orderBook(ctx, acct)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.OrderRow, 0, len(raw))
	for _, o := range raw {
		rows = append(rows, domain.OrderRow{
			Name:            acct.DisplayName(),
			ClientID:        acct.ClientID,
			Symbol:          broker.Str(o, "symbol"),
			TransactionType: broker.Str(o, "buyorsell"),
			Quantity:        broker.Int(o, "orderqty"),
			Price:           broker.Float(o, "price"),
			Status:          broker.Str(o, "orderstatus"),
			OrderID:         broker.Str(o, "uniqueorderid"),
		})
	}
	return rows, nil
}

func (a *Adapter) rawPositions(ctx context.Context, acct *domain.ClientAccount) ([]map[string]any, error) {
	return a.getList(ctx, acct, "/rest/book/v1/getposition", nil)
}

// Positions derives the net quantity from the buy/sell legs; LTP arrives in
// paise.
func (a *Adapter) Positions(ctx context.Context, acct *domain.ClientAccount) ([]domain.Position, error) {
	raw, err := a.rawPositions(ctx, acct)
	if err != nil {
		return nil, err
	}
	positions := make([]domain.Position, 0, len(raw))
	for _, p := range raw {
		buyQty := broker.Int(p, "buyquantity")
		sellQty := broker.Int(p, "sellquantity")
		buyAmt := decimal.NewFromFloat(broker.Float(p, "buyamount"))
		sellAmt := decimal.NewFromFloat(broker.Float(p, "sellamount"))
		ltp := rupees(broker.Float(p, "LTP", "ltp"))

		buyAvg := decimal.Zero
		if buyQty > 0 {
			buyAvg = buyAmt.Div(decimal.NewFromInt(int64(buyQty)))
		}
		sellAvg := decimal.Zero
		if sellQty > 0 {
			sellAvg = sellAmt.Div(decimal.NewFromInt(int64(sellQty)))
		}
		netQty := buyQty - sellQty
		// Realized plus mark-to-market on the open leg.
		profit := sellAmt.Sub(buyAmt).Add(
			decimal.NewFromFloat(ltp).Mul(decimal.NewFromInt(int64(netQty))))

		positions = append(positions, domain.Position{
			Name:      acct.DisplayName(),
			ClientID:  acct.ClientID,
			Symbol:    broker.Str(p, "symbol"),
			Quantity:  netQty,
			BuyAvg:    buyAvg.Round(2).InexactFloat64(),
			SellAvg:   sellAvg.Round(2).InexactFloat64(),
			LTP:       ltp,
			NetProfit: profit.Round(2).InexactFloat64(),
		})
	}
	return positions, nil
}

// Holdings reads the demat book and prices each line via the LTP endpoint,
// then folds the margin summary into the account rollup.
func (a *Adapter) Holdings(ctx context.Context, acct *domain.ClientAccount) (domain.HoldingsReport, error) {
	raw, err := a.getList(ctx, acct, "/rest/report/v1/getdpholding", nil)
	if err != nil {
		return domain.HoldingsReport{}, err
	}

	invested := decimal.Zero
	current := decimal.Zero
	holdings := make([]domain.Holding, 0, len(raw))
	for _, h := range raw {
		qty := decimal.NewFromFloat(broker.Float(h, "dpquantity") + broker.Float(h, "poaquantity"))
		avg := decimal.NewFromFloat(broker.Float(h, "buyavgprice"))
		ltp := avg
		if v := a.ltp(ctx, acct, broker.Str(h, "nsesymboltoken", "symboltoken")); v > 0 {
			ltp = decimal.NewFromFloat(v)
		}
		cost := qty.Mul(avg)
		value := qty.Mul(ltp)
		invested = invested.Add(cost)
		current = current.Add(value)
		holdings = append(holdings, domain.Holding{
			Name:     acct.DisplayName(),
			Symbol:   broker.Str(h, "scripname", "symbol"),
			Quantity: qty.InexactFloat64(),
			BuyAvg:   avg.Round(2).InexactFloat64(),
			LTP:      ltp.Round(2).InexactFloat64(),
			PnL:      value.Sub(cost).Round(2).InexactFloat64(),
		})
	}

	available := a.availableMargin(ctx, acct)
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

func (a *Adapter) ltp(ctx context.Context, acct *domain.ClientAccount, token string) float64 {
	if token == "" {
		return 0
	}
	body, err := a.post(ctx, acct, "/rest/report/v1/getltp", map[string]any{
		"clientcode":  acct.ClientID,
		"exchange":    "NSE",
		"symboltoken": token,
	})
	if err != nil || !ok(body) {
		return 0
	}
	if data, ok := body["data"].(map[string]any); ok {
		return rupees(broker.Float(data, "ltp"))
	}
	return 0
}

func (a *Adapter) availableMargin(ctx context.Context, acct *domain.ClientAccount) decimal.Decimal {
	rows, err := a.getList(ctx, acct, "/rest/report/v1/getreportmarginsummary", nil)
	if err != nil {
		return decimal.Zero
	}
	for _, r := range rows {
		if strings.Contains(strings.ToLower(broker.Str(r, "particulars")), "available margin") {
			return decimal.NewFromFloat(broker.Float(r, "amount"))
		}
	}
	return decimal.Zero
}

// OrderSnapshot prefers the per-order detail endpoint and falls back to
// scanning the order book. (nil, nil) means the order does not exist.
func (a *Adapter) OrderSnapshot(ctx context.Context, acct *domain.ClientAccount, orderID string) (*domain.OrderSnapshot, error) {
	body, err := a.post(ctx, acct, "/rest/book/v2/getorderdetailbyuniqueorderid", map[string]any{
		"clientcode":    acct.ClientID,
		"uniqueorderid": orderID,
	})
	if err == nil && ok(body) {
		for _, o := range broker.List(body["data"], "data") {
			if broker.Str(o, "uniqueorderid") == orderID {
				return snapshotFrom(o), nil
			}
		}
		if data, isMap := body["data"].(map[string]any); isMap {
			if broker.Str(data, "uniqueorderid") == orderID {
				return snapshotFrom(data), nil
			}
		}
	}
	book, err := a.orderBook(ctx, acct)
	if err != nil {
		return nil, err
	}
	for _, o := range book {
		if broker.Str(o, "uniqueorderid") == orderID {
			return snapshotFrom(o), nil
		}
	}
	return nil, nil
}

func snapshotFrom(o map[string]any) *domain.OrderSnapshot {
	return &domain.OrderSnapshot{
		OrderID:          broker.Str(o, "uniqueorderid"),
		SecurityID:       broker.Str(o, "symboltoken"),
		Quantity:         broker.Int(o, "orderqty"),
		OrderType:        normalize.CanonicalOrderType(broker.Str(o, "ordertype")),
		Price:            broker.Float(o, "price"),
		TriggerPrice:     broker.Float(o, "triggerprice"),
		Validity:         broker.Str(o, "orderduration"),
		Status:           broker.Str(o, "orderstatus"),
		LastModifiedTime: broker.Str(o, "lastmodifiedtime"),
	}
}

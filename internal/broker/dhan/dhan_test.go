package dhan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copytrade/brokerhub/internal/domain"
)

func acct() *domain.ClientAccount {
	return &domain.ClientAccount{
		ClientID: "1100001", Broker: domain.BrokerDhan, Name: "Asha",
		AccessToken: "token-1234567890-abcd",
	}
}

func limitRow() *domain.PerClientOrder {
	return &domain.PerClientOrder{
		OrderIntent: domain.OrderIntent{
			Action: "BUY", OrderType: domain.OrderTypeLimit, ProductType: "MIS",
			Validity: "DAY", Exchange: "NSE", Symbol: "RELIANCE", Price: 2500,
			CorrelationID: "BH-test",
		},
		ClientID: "1100001", Broker: domain.BrokerDhan, Qty: 10, SecurityID: "2885",
	}
}

func newAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second)
}

func TestPlaceOrderSuccess(t *testing.T) {
	var got map[string]any
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/orders", r.URL.Path)
		require.Equal(t, "token-1234567890-abcd", r.Header.Get("access-token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"orderId":"112111182045","orderStatus":"TRANSIT"}`))
	})

	resp := a.PlaceOrder(context.Background(), acct(), limitRow())

	assert.Equal(t, domain.StatusSuccess, resp.Status)
	assert.Equal(t, "112111182045", resp.OrderID)

	assert.Equal(t, "NSE_EQ", got["exchangeSegment"], "exchange runs through the enum table")
	assert.Equal(t, "INTRADAY", got["productType"], "MIS maps to INTRADAY")
	assert.Equal(t, "LIMIT", got["orderType"])
	assert.Equal(t, 2500.0, got["price"])
	assert.Equal(t, 10.0, got["quantity"])
}

func TestPlaceOrderRejected(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorType":"Order_Error","errorMessage":"Insufficient funds"}`))
	})

	resp := a.PlaceOrder(context.Background(), acct(), limitRow())

	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "Insufficient funds")
}

func TestPlaceOrderMissingOrderID(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"orderStatus":"TRANSIT"}`))
	})

	resp := a.PlaceOrder(context.Background(), acct(), limitRow())
	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "order id")
}

func TestCancelOrderHeuristics(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		wantOK bool
	}{
		{"accepted", 200, `{"orderId":"1","orderStatus":"CANCELLED"}`, true},
		{"already cancelled error", 400, `{"errorType":"Order_Error","orderStatus":"CANCELLED"}`, true},
		{"hard failure", 400, `{"errorType":"Order_Error","errorMessage":"Order already traded"}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodDelete, r.Method)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			resp := a.CancelOrder(context.Background(), acct(), "1")
			assert.Equal(t, tc.wantOK, !resp.Failed())
		})
	}
}

func TestOrdersFetch(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/orders", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"orderId":"1","tradingSymbol":"RELIANCE","transactionType":"BUY","quantity":10,"price":2500.5,"orderStatus":"PENDING"},
			{"orderId":"2","tradingSymbol":"TCS","transactionType":"SELL","quantity":5,"price":3900,"orderStatus":"TRADED"}
		]`))
	})

	rows, err := a.Orders(context.Background(), acct())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Asha", rows[0].Name)
	assert.Equal(t, "RELIANCE", rows[0].Symbol)
	assert.Equal(t, 10, rows[0].Quantity)
	assert.Equal(t, "PENDING", rows[0].Status)
}

func TestOrderSnapshotFallsBackToBook(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/orders/42":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errorType":"DH-905"}`))
		case "/v2/orders":
			_, _ = w.Write([]byte(`[{"orderId":"42","securityId":"2885","quantity":10,"orderType":"STOP_LOSS","price":2450,"triggerPrice":2440,"validity":"DAY","orderStatus":"PENDING","updateTime":"2026-08-28 10:15:00"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	snap, err := a.OrderSnapshot(context.Background(), acct(), "42")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, domain.OrderTypeStopLoss, snap.OrderType)
	assert.Equal(t, 10, snap.Quantity)
	assert.Equal(t, "2026-08-28 10:15:00", snap.LastModifiedTime)
}

func TestOrderSnapshotAbsent(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	snap, err := a.OrderSnapshot(context.Background(), acct(), "42")
	require.NoError(t, err)
	assert.Nil(t, snap, "missing order is (nil, nil)")
}

func TestHoldingsReport(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/holdings":
			_, _ = w.Write([]byte(`[{"tradingSymbol":"RELIANCE","totalQty":10,"avgCostPrice":2000,"lastTradedPrice":2500}]`))
		case "/v2/fundlimit":
			_, _ = w.Write([]byte(`{"availabelBalance":15000.50}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	account := acct()
	account.Capital = 30000
	report, err := a.Holdings(context.Background(), account)
	require.NoError(t, err)

	require.Len(t, report.Holdings, 1)
	assert.Equal(t, 5000.0, report.Holdings[0].PnL)
	assert.Equal(t, 20000.0, report.Summary.Invested)
	assert.Equal(t, 25000.0, report.Summary.CurrentValue)
	assert.Equal(t, 15000.5, report.Summary.AvailableMargin)
	assert.Equal(t, 10000.5, report.Summary.NetGain, "current + margin - capital")
}

func TestModifyOrderSendsOnlyRelevantPrices(t *testing.T) {
	var got map[string]any
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/v2/orders/42", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"orderId":"42","orderStatus":"TRANSIT"}`))
	})

	mod := &domain.ModifyRequest{
		OrderID: "42", OrderType: domain.OrderTypeStopLossMarket,
		TriggerPrice: 2440, Quantity: 20, Validity: "DAY",
	}
	resp := a.ModifyOrder(context.Background(), acct(), mod, &domain.OrderSnapshot{})

	assert.False(t, resp.Failed())
	assert.Equal(t, 2440.0, got["triggerPrice"])
	_, hasPrice := got["price"]
	assert.False(t, hasPrice, "SLM modify carries no limit price")
	assert.Equal(t, 20.0, got["quantity"])
}

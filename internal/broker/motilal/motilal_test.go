package motilal

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

type fakeSymbols map[string]int

func (f fakeSymbols) Resolve(string) (*domain.SymbolRef, error) { return nil, nil }
func (f fakeSymbols) MinLot(token string) int                   { return f[token] }

func acct() *domain.ClientAccount {
	return &domain.ClientAccount{
		ClientID: "MO1234", Broker: domain.BrokerMotilal, Name: "Vikram",
		AccessToken: "mo-token-1234567890",
	}
}

func newAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second, fakeSymbols{"58765": 75})
}

func TestPlaceOrderConvertsSharesToLots(t *testing.T) {
	var got map[string]any
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/trans/v1/placeorder", r.URL.Path)
		require.Equal(t, "mo-token-1234567890", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"SUCCESS","message":"Order Placed","uniqueorderid":"MO-555"}`))
	})

	row := &domain.PerClientOrder{
		OrderIntent: domain.OrderIntent{
			Action: "BUY", OrderType: domain.OrderTypeStopLoss, ProductType: "NORMAL",
			Validity: "DAY", Exchange: "NSEFO", Symbol: "NIFTY25SEPFUT",
			Price: 24500, TriggerPrice: 24450, CorrelationID: "BH-test",
		},
		ClientID: "MO1234", Broker: domain.BrokerMotilal,
		Qty: 150, SecurityID: "58765", MinLot: 75,
	}
	resp := a.PlaceOrder(context.Background(), acct(), row)

	assert.Equal(t, domain.StatusSuccess, resp.Status)
	assert.Equal(t, "MO-555", resp.OrderID)

	assert.Equal(t, 2.0, got["quantityinlot"], "150 shares at lot 75 is 2 lots")
	assert.Equal(t, "STOPLOSS", got["ordertype"], "canonical type runs through the enum table")
	assert.Equal(t, "BUY", got["buyorsell"])
	assert.Equal(t, "N", got["amoorder"])
}

func TestPlaceOrderRejected(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ERROR","message":"RMS check failed"}`))
	})

	row := &domain.PerClientOrder{
		OrderIntent: domain.OrderIntent{Action: "BUY", OrderType: domain.OrderTypeMarket, Validity: "DAY", Exchange: "NSE"},
		Qty:         10, SecurityID: "714",
	}
	resp := a.PlaceOrder(context.Background(), acct(), row)

	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "RMS check failed")
}

func TestModifyOrderEchoesLastModifiedTime(t *testing.T) {
	var got map[string]any
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/trans/v2/modifyorder", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"SUCCESS","message":"Order Modified"}`))
	})

	mod := &domain.ModifyRequest{
		OrderID: "MO-555", OrderType: domain.OrderTypeLimit,
		Price: 24600, Quantity: 150, Validity: "DAY",
	}
	snap := &domain.OrderSnapshot{
		OrderID: "MO-555", SecurityID: "58765", Quantity: 150,
		LastModifiedTime: "28-Aug-2026 10:15:00",
	}
	resp := a.ModifyOrder(context.Background(), acct(), mod, snap)

	assert.False(t, resp.Failed())
	assert.Equal(t, "28-Aug-2026 10:15:00", got["lastmodifiedtime"], "snapshot timestamp is echoed")
	assert.Equal(t, "LIMIT", got["newordertype"], "type is always sent")
	assert.Equal(t, 2.0, got["newquantityinlot"], "quantity goes out in lots")
}

func TestModifyOrderFillsMissingLastModifiedTime(t *testing.T) {
	var got map[string]any
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"SUCCESS"}`))
	})

	mod := &domain.ModifyRequest{OrderID: "MO-1", OrderType: domain.OrderTypeMarket, Quantity: 75}
	a.ModifyOrder(context.Background(), acct(), mod, &domain.OrderSnapshot{SecurityID: "58765"})

	ts, _ := got["lastmodifiedtime"].(string)
	require.NotEmpty(t, ts)
	_, err := time.Parse("02-Jan-2006 15:04:05", ts)
	assert.NoError(t, err, "fallback timestamp uses the broker's IST layout")
}

func TestCancelOrder(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/trans/v1/cancelorder", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"SUCCESS","message":"Order Cancelled"}`))
	})
	resp := a.CancelOrder(context.Background(), acct(), "MO-555")
	assert.False(t, resp.Failed())

	a = newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ERROR","message":"Order is already cancelled"}`))
	})
	resp = a.CancelOrder(context.Background(), acct(), "MO-555")
	assert.False(t, resp.Failed(), "already-cancelled reports success")

	a = newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ERROR","message":"Invalid order id"}`))
	})
	resp = a.CancelOrder(context.Background(), acct(), "MO-555")
	assert.True(t, resp.Failed())
}

func TestOrdersFetch(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/book/v1/getorderbook", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "MO1234", body["clientcode"])
		stamp, _ := body["datetimestamp"].(string)
		require.NotEmpty(t, stamp, "order book calls carry the day-start stamp")
		parsed, err := time.ParseInLocation(lastModifiedLayout, stamp, ist)
		require.NoError(t, err)
		assert.Equal(t, 9, parsed.Hour())
		_, _ = w.Write([]byte(`{"status":"SUCCESS","data":[
			{"uniqueorderid":"MO-1","symbol":"RELIANCE","buyorsell":"BUY","orderqty":10,"price":2500,"orderstatus":"Confirm"}
		]}`))
	})

	rows, err := a.Orders(context.Background(), acct())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Confirm", rows[0].Status)
	assert.Equal(t, domain.BucketPending, domain.ClassifyStatus(rows[0].Status))
}

func TestPositionsConvertPaise(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"SUCCESS","data":[
			{"symbol":"RELIANCE","buyquantity":10,"sellquantity":0,"buyamount":25000,"sellamount":0,"LTP":255000}
		]}`))
	})

	positions, err := a.Positions(context.Background(), acct())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 10, positions[0].Quantity)
	assert.Equal(t, 2550.0, positions[0].LTP, "paise divided by 100")
	assert.Equal(t, 2500.0, positions[0].BuyAvg)
	assert.Equal(t, 500.0, positions[0].NetProfit)
}

func TestOrderSnapshotFallsBackToBook(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/book/v2/getorderdetailbyuniqueorderid":
			_, _ = w.Write([]byte(`{"status":"ERROR","message":"not found"}`))
		case "/rest/book/v1/getorderbook":
			_, _ = w.Write([]byte(`{"status":"SUCCESS","data":[
				{"uniqueorderid":"MO-9","symboltoken":"58765","orderqty":150,"ordertype":"SL-M","triggerprice":24400,"orderduration":"DAY","orderstatus":"Confirm","lastmodifiedtime":"28-Aug-2026 11:00:00"}
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	snap, err := a.OrderSnapshot(context.Background(), acct(), "MO-9")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, domain.OrderTypeStopLossMarket, snap.OrderType, "SL-M folds back to canonical")
	assert.Equal(t, 150, snap.Quantity)
	assert.Equal(t, "28-Aug-2026 11:00:00", snap.LastModifiedTime)
}

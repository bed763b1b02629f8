package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copytrade/brokerhub/internal/broker"
	"github.com/copytrade/brokerhub/internal/domain"
)

type fakeAccounts map[string]*domain.ClientAccount

func (f fakeAccounts) Resolve(id string) (*domain.ClientAccount, error) { return f[id], nil }
func (f fakeAccounts) ByName(string) (*domain.ClientAccount, error)    { return nil, nil }
func (f fakeAccounts) All() ([]*domain.ClientAccount, error)           { return nil, nil }

// fakeAdapter fails or hangs for chosen clients and counts every place call.
type fakeAdapter struct {
	name    string
	failFor map[string]bool
	hangFor map[string]bool
	calls   atomic.Int32
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) PlaceOrder(ctx context.Context, acct *domain.ClientAccount, row *domain.PerClientOrder) domain.BrokerResponse {
	f.calls.Add(1)
	if f.hangFor[acct.ClientID] {
		<-ctx.Done()
		return domain.Errf("context: %v", ctx.Err())
	}
	if f.failFor[acct.ClientID] {
		return domain.Errf("order rejected: insufficient funds")
	}
	return domain.OK("OID-"+acct.ClientID, "placed")
}

func (f *fakeAdapter) ModifyOrder(context.Context, *domain.ClientAccount, *domain.ModifyRequest, *domain.OrderSnapshot) domain.BrokerResponse {
	return domain.Errf("not implemented")
}
func (f *fakeAdapter) CancelOrder(context.Context, *domain.ClientAccount, string) domain.BrokerResponse {
	return domain.Errf("not implemented")
}
func (f *fakeAdapter) ClosePosition(context.Context, *domain.ClientAccount, string) domain.BrokerResponse {
	return domain.Errf("not implemented")
}
func (f *fakeAdapter) ConvertPosition(context.Context, *domain.ClientAccount, *domain.ConvertRequest) domain.BrokerResponse {
	return domain.Errf("not implemented")
}
func (f *fakeAdapter) OrderSnapshot(context.Context, *domain.ClientAccount, string) (*domain.OrderSnapshot, error) {
	return nil, nil
}
func (f *fakeAdapter) Orders(context.Context, *domain.ClientAccount) ([]domain.OrderRow, error) {
	return nil, nil
}
func (f *fakeAdapter) Positions(context.Context, *domain.ClientAccount) ([]domain.Position, error) {
	return nil, nil
}
func (f *fakeAdapter) Holdings(context.Context, *domain.ClientAccount) (domain.HoldingsReport, error) {
	return domain.HoldingsReport{}, nil
}

func row(clientID string, qty int) *domain.PerClientOrder {
	return &domain.PerClientOrder{
		OrderIntent: domain.OrderIntent{
			Action: "BUY", OrderType: "MARKET", Validity: "DAY",
		},
		ClientID:   clientID,
		Broker:     domain.BrokerDhan,
		Qty:        qty,
		SecurityID: "2885",
	}
}

func testEngine(adapter *fakeAdapter) *Engine {
	accounts := fakeAccounts{}
	for _, id := range []string{"C1", "C2", "C3", "C4", "C5"} {
		accounts[id] = &domain.ClientAccount{ClientID: id, Broker: domain.BrokerDhan, AccessToken: "tok"}
	}
	accounts["NOTOKEN"] = &domain.ClientAccount{ClientID: "NOTOKEN", Broker: domain.BrokerDhan}
	e := NewEngine(broker.NewRegistry(adapter), accounts)
	e.CallTimeout = 200 * time.Millisecond
	e.JoinTimeout = 500 * time.Millisecond
	return e
}

func TestDispatchIsolatesFailures(t *testing.T) {
	adapter := &fakeAdapter{name: domain.BrokerDhan, failFor: map[string]bool{"C3": true}}
	e := testEngine(adapter)

	rows := []*domain.PerClientOrder{
		row("C1", 10), row("C2", 10), row("C3", 10), row("C4", 10), row("C5", 10),
	}
	res := e.Dispatch(context.Background(), rows)

	require.Len(t, res, 5)
	for _, id := range []string{"C1", "C2", "C4", "C5"} {
		assert.Equal(t, domain.StatusSuccess, res[id].Status, "client %s", id)
		assert.Equal(t, "OID-"+id, res[id].OrderID)
	}
	assert.Equal(t, domain.StatusError, res["C3"].Status)
	assert.Contains(t, res["C3"].Message, "insufficient funds")
}

func TestDispatchSkipRowsNeverReachBroker(t *testing.T) {
	adapter := &fakeAdapter{name: domain.BrokerDhan}
	e := testEngine(adapter)

	rows := []*domain.PerClientOrder{
		row("C1", 10),
		{ClientID: "GHOST", Skip: true, SkipReason: "client_not_found"},
	}
	res := e.Dispatch(context.Background(), rows)

	require.Len(t, res, 2)
	assert.Equal(t, domain.StatusSkipped, res["GHOST"].Status)
	assert.Equal(t, "client_not_found", res["GHOST"].Message)
	assert.Equal(t, int32(1), adapter.calls.Load(), "only the live row hits the adapter")
}

func TestDispatchMissingCredential(t *testing.T) {
	adapter := &fakeAdapter{name: domain.BrokerDhan}
	e := testEngine(adapter)

	res := e.Dispatch(context.Background(), []*domain.PerClientOrder{row("NOTOKEN", 10)})
	assert.Equal(t, domain.StatusError, res["NOTOKEN"].Status)
	assert.Contains(t, res["NOTOKEN"].Message, "missing access token")
	assert.Zero(t, adapter.calls.Load())
}

func TestDispatchUnknownClient(t *testing.T) {
	e := testEngine(&fakeAdapter{name: domain.BrokerDhan})

	res := e.Dispatch(context.Background(), []*domain.PerClientOrder{row("NOBODY", 10)})
	assert.Equal(t, domain.StatusError, res["NOBODY"].Status)
	assert.Contains(t, res["NOBODY"].Message, "client record not found")
}

func TestDispatchValidationFailure(t *testing.T) {
	adapter := &fakeAdapter{name: domain.BrokerDhan}
	e := testEngine(adapter)

	bad := row("C1", 0) // quantity must be positive
	res := e.Dispatch(context.Background(), []*domain.PerClientOrder{bad, row("C2", 5)})

	assert.Equal(t, domain.StatusError, res["C1"].Status)
	assert.Contains(t, res["C1"].Message, "validation failed")
	assert.Equal(t, domain.StatusSuccess, res["C2"].Status)
}

func TestDispatchTagCompositeKeys(t *testing.T) {
	adapter := &fakeAdapter{name: domain.BrokerDhan}
	e := testEngine(adapter)

	r := row("C1", 10)
	r.Tag = "LEG1"
	res := e.Dispatch(context.Background(), []*domain.PerClientOrder{r})

	require.Contains(t, res, "LEG1:C1")
	assert.Equal(t, domain.StatusSuccess, res["LEG1:C1"].Status)
}

func TestDispatchJoinTimeout(t *testing.T) {
	adapter := &fakeAdapter{name: domain.BrokerDhan, hangFor: map[string]bool{"C2": true}}
	e := testEngine(adapter)
	e.CallTimeout = 2 * time.Second // keep the hung call alive past the join bound
	e.JoinTimeout = 100 * time.Millisecond

	start := time.Now()
	res := e.Dispatch(context.Background(), []*domain.PerClientOrder{row("C1", 10), row("C2", 10)})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second, "join bound must cut the wait short")
	assert.Equal(t, domain.StatusSuccess, res["C1"].Status)
	assert.Equal(t, domain.StatusError, res["C2"].Status)
	assert.Contains(t, res["C2"].Message, "timeout")
}

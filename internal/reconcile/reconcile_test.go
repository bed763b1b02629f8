package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copytrade/brokerhub/internal/broker"
	"github.com/copytrade/brokerhub/internal/domain"
)

type fakeAccounts map[string]*domain.ClientAccount

func (f fakeAccounts) Resolve(id string) (*domain.ClientAccount, error) { return f[id], nil }

func (f fakeAccounts) ByName(name string) (*domain.ClientAccount, error) {
	for _, a := range f {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, nil
}

func (f fakeAccounts) All() ([]*domain.ClientAccount, error) { return nil, nil }

// modifyRecorder serves a canned snapshot and records the merged modify it
// receives.
type modifyRecorder struct {
	snap    *domain.OrderSnapshot
	gotMod  *domain.ModifyRequest
	gotSnap *domain.OrderSnapshot
	deny    string
}

func (m *modifyRecorder) Name() string { return domain.BrokerDhan }

func (m *modifyRecorder) OrderSnapshot(context.Context, *domain.ClientAccount, string) (*domain.OrderSnapshot, error) {
	return m.snap, nil
}

func (m *modifyRecorder) ModifyOrder(_ context.Context, _ *domain.ClientAccount, mod *domain.ModifyRequest, snap *domain.OrderSnapshot) domain.BrokerResponse {
	m.gotMod, m.gotSnap = mod, snap
	if m.deny != "" {
		return domain.Errf("%s", m.deny)
	}
	return domain.OK(mod.OrderID, "modified")
}

func (m *modifyRecorder) PlaceOrder(context.Context, *domain.ClientAccount, *domain.PerClientOrder) domain.BrokerResponse {
	return domain.Errf("not implemented")
}
func (m *modifyRecorder) CancelOrder(context.Context, *domain.ClientAccount, string) domain.BrokerResponse {
	return domain.Errf("not implemented")
}
func (m *modifyRecorder) ClosePosition(context.Context, *domain.ClientAccount, string) domain.BrokerResponse {
	return domain.Errf("not implemented")
}
func (m *modifyRecorder) ConvertPosition(context.Context, *domain.ClientAccount, *domain.ConvertRequest) domain.BrokerResponse {
	return domain.Errf("not implemented")
}
func (m *modifyRecorder) Orders(context.Context, *domain.ClientAccount) ([]domain.OrderRow, error) {
	return nil, nil
}
func (m *modifyRecorder) Positions(context.Context, *domain.ClientAccount) ([]domain.Position, error) {
	return nil, nil
}
func (m *modifyRecorder) Holdings(context.Context, *domain.ClientAccount) (domain.HoldingsReport, error) {
	return domain.HoldingsReport{}, nil
}

func testReconciler(adapter broker.Adapter) *Reconciler {
	accounts := fakeAccounts{
		"C1": {ClientID: "C1", Broker: domain.BrokerDhan, Name: "Asha", AccessToken: "tok"},
	}
	return New(broker.NewRegistry(adapter), accounts)
}

func limitSnapshot() *domain.OrderSnapshot {
	return &domain.OrderSnapshot{
		OrderID:          "OID-1",
		SecurityID:       "2885",
		Quantity:         50,
		OrderType:        domain.OrderTypeLimit,
		Price:            2500,
		Validity:         "DAY",
		Status:           "PENDING",
		LastModifiedTime: "28-Aug-2026 10:15:00",
	}
}

func TestModifyInheritsSnapshotFields(t *testing.T) {
	rec := &modifyRecorder{snap: limitSnapshot()}
	r := testReconciler(rec)

	// Only the price changes; type, quantity and validity come from the
	// broker's current state.
	msgs := r.ModifyAll(context.Background(), []*domain.ModifyRequest{
		{ClientID: "C1", OrderID: "OID-1", Price: 2550},
	})

	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "✅")
	require.NotNil(t, rec.gotMod)
	assert.Equal(t, domain.OrderTypeLimit, rec.gotMod.OrderType)
	assert.Equal(t, 2550.0, rec.gotMod.Price)
	assert.Equal(t, 50, rec.gotMod.Quantity)
	assert.Equal(t, "DAY", rec.gotMod.Validity)
	assert.Equal(t, "28-Aug-2026 10:15:00", rec.gotSnap.LastModifiedTime)
}

func TestModifyNoChangeKeepsSnapshotType(t *testing.T) {
	rec := &modifyRecorder{snap: limitSnapshot()}
	r := testReconciler(rec)

	r.ModifyAll(context.Background(), []*domain.ModifyRequest{
		{ClientID: "C1", OrderID: "OID-1", OrderType: "NO_CHANGE", Price: 2400},
	})
	assert.Equal(t, domain.OrderTypeLimit, rec.gotMod.OrderType)
}

func TestModifyInfersTypeFromPrices(t *testing.T) {
	snap := limitSnapshot()
	snap.OrderType = "" // broker row carried no recognizable type
	snap.Price = 0
	rec := &modifyRecorder{snap: snap}
	r := testReconciler(rec)

	r.ModifyAll(context.Background(), []*domain.ModifyRequest{
		{ClientID: "C1", OrderID: "OID-1", TriggerPrice: 2450},
	})
	assert.Equal(t, domain.OrderTypeStopLossMarket, rec.gotMod.OrderType)
	assert.Zero(t, rec.gotMod.Price, "SLM carries no limit price")
}

func TestModifySnapshotUnavailable(t *testing.T) {
	rec := &modifyRecorder{snap: nil}
	r := testReconciler(rec)

	msgs := r.ModifyAll(context.Background(), []*domain.ModifyRequest{
		{ClientID: "C1", OrderID: "GONE"},
	})
	assert.Contains(t, msgs[0], "❌")
	assert.Contains(t, msgs[0], "snapshot unavailable")
	assert.Nil(t, rec.gotMod, "no modify is attempted without a snapshot")
}

func TestModifyValidationFailure(t *testing.T) {
	snap := limitSnapshot()
	snap.Price = 0 // broker reports no price either
	rec := &modifyRecorder{snap: snap}
	r := testReconciler(rec)

	msgs := r.ModifyAll(context.Background(), []*domain.ModifyRequest{
		{ClientID: "C1", OrderID: "OID-1"},
	})
	assert.Contains(t, msgs[0], "validation failed")
	assert.Nil(t, rec.gotMod)
}

func TestModifyUnknownClient(t *testing.T) {
	r := testReconciler(&modifyRecorder{snap: limitSnapshot()})

	msgs := r.ModifyAll(context.Background(), []*domain.ModifyRequest{
		{Name: "Nobody", OrderID: "OID-1"},
	})
	assert.Contains(t, msgs[0], "client record not found")
}

func TestModifyResolvesAccountByName(t *testing.T) {
	rec := &modifyRecorder{snap: limitSnapshot()}
	r := testReconciler(rec)

	msgs := r.ModifyAll(context.Background(), []*domain.ModifyRequest{
		{Name: "Asha", OrderID: "OID-1", Price: 2510},
	})
	assert.Contains(t, msgs[0], "✅")
	assert.Equal(t, 2510.0, rec.gotMod.Price)
}

func TestModifyBrokerRejection(t *testing.T) {
	rec := &modifyRecorder{snap: limitSnapshot(), deny: "order already traded"}
	r := testReconciler(rec)

	msgs := r.ModifyAll(context.Background(), []*domain.ModifyRequest{
		{ClientID: "C1", OrderID: "OID-1", Price: 2510},
	})
	assert.Contains(t, msgs[0], "❌")
	assert.Contains(t, msgs[0], "order already traded")
}

// Package broker defines the adapter contract every broker integration
// implements, plus the registry the engine resolves adapters from.
package broker

import (
	"context"

	"github.com/pkg/errors"

	"github.com/copytrade/brokerhub/internal/domain"
)

// Row-scoped failure classes. Adapters and the engine wrap these so callers
// can branch on errors.Is without parsing messages.
var (
	ErrClientNotFound      = errors.New("client record not found")
	ErrMissingCredential   = errors.New("missing access token")
	ErrGroupNotFound       = errors.New("group not found")
	ErrValidationFailed    = errors.New("validation failed")
	ErrSnapshotUnavailable = errors.New("order snapshot unavailable")
	ErrBrokerCallFailed    = errors.New("broker call failed")
	ErrUnknownBroker       = errors.New("unknown broker")
)

// Adapter is the per-broker integration surface. Mutating calls return a
// normalized BrokerResponse rather than an error so one row's failure stays
// data, not control flow; read calls return errors normally.
//
// OrderSnapshot returns (nil, nil) when the order cannot be found, which the
// reconciler treats as a hard stop for that row.
type Adapter interface {
	Name() string

	PlaceOrder(ctx context.Context, acct *domain.ClientAccount, row *domain.PerClientOrder) domain.BrokerResponse
	ModifyOrder(ctx context.Context, acct *domain.ClientAccount, mod *domain.ModifyRequest, snap *domain.OrderSnapshot) domain.BrokerResponse
	CancelOrder(ctx context.Context, acct *domain.ClientAccount, orderID string) domain.BrokerResponse
	ClosePosition(ctx context.Context, acct *domain.ClientAccount, symbol string) domain.BrokerResponse
	ConvertPosition(ctx context.Context, acct *domain.ClientAccount, req *domain.ConvertRequest) domain.BrokerResponse

	OrderSnapshot(ctx context.Context, acct *domain.ClientAccount, orderID string) (*domain.OrderSnapshot, error)
	Orders(ctx context.Context, acct *domain.ClientAccount) ([]domain.OrderRow, error)
	Positions(ctx context.Context, acct *domain.ClientAccount) ([]domain.Position, error)
	Holdings(ctx context.Context, acct *domain.ClientAccount) (domain.HoldingsReport, error)
}

// Registry holds the configured adapters keyed by broker name. It is built
// once at startup and read-only afterwards, so no locking.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get resolves the adapter for a broker name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownBroker, name)
	}
	return a, nil
}

// Names lists the registered broker names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	return names
}

// RedactToken shortens a secret for debug logging. Anything short enough to
// be ambiguous is masked entirely.
func RedactToken(tok string) string {
	if len(tok) <= 12 {
		return "****"
	}
	return tok[:6] + "..." + tok[len(tok)-4:]
}

package ports

import "github.com/copytrade/brokerhub/internal/domain"

// Small capability interfaces shared across layers (expansion/dispatch/server).
// Defined in a neutral package so stores, brokers and the engine do not import
// each other.

// CredentialResolver looks up client accounts. Lookups return (nil, nil) when
// the record is simply absent; errors are reserved for store failures.
type CredentialResolver interface {
	Resolve(clientID string) (*domain.ClientAccount, error)
	ByName(name string) (*domain.ClientAccount, error)
	All() ([]*domain.ClientAccount, error)
}

// GroupStore resolves group definitions by id or name.
type GroupStore interface {
	Find(key string) (*domain.Group, error)
	List() ([]*domain.Group, error)
}

// SymbolResolver turns a compact instrument reference into per-broker
// identifiers and lot metadata.
type SymbolResolver interface {
	Resolve(ref string) (*domain.SymbolRef, error)
	MinLot(motilalToken string) int
}

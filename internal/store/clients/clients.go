// Package clients persists client account credentials in the secret store
// and implements the credential resolver the engine and server read from.
package clients

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/pkg/secretstore"
)

const keyPrefix = "client/"

type Store struct {
	kv *secretstore.Store
}

func NewStore(kv *secretstore.Store) *Store {
	return &Store{kv: kv}
}

// Resolve returns (nil, nil) when no record exists for the id.
func (s *Store) Resolve(clientID string) (*domain.ClientAccount, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, nil
	}
	var acct domain.ClientAccount
	found, err := s.kv.GetJSON(keyPrefix+clientID, &acct)
	if err != nil {
		return nil, errors.Wrapf(err, "load client %s", clientID)
	}
	if !found {
		return nil, nil
	}
	return &acct, nil
}

// ByName scans for a display-name match, case-insensitively.
func (s *Store) ByName(name string) (*domain.ClientAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var match *domain.ClientAccount
	err := s.kv.ScanPrefix(keyPrefix, func(_ string, val []byte) error {
		if match != nil {
			return nil
		}
		var acct domain.ClientAccount
		if err := json.Unmarshal(val, &acct); err != nil {
			return err
		}
		if strings.EqualFold(acct.DisplayName(), name) {
			match = &acct
		}
		return nil
	})
	return match, err
}

// All lists every account, ordered by client id.
func (s *Store) All() ([]*domain.ClientAccount, error) {
	var out []*domain.ClientAccount
	err := s.kv.ScanPrefix(keyPrefix, func(_ string, val []byte) error {
		var acct domain.ClientAccount
		if err := json.Unmarshal(val, &acct); err != nil {
			return err
		}
		out = append(out, &acct)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out, nil
}

func (s *Store) Put(acct *domain.ClientAccount) error {
	if strings.TrimSpace(acct.ClientID) == "" {
		return errors.New("client id is required")
	}
	return s.kv.SetJSON(keyPrefix+acct.ClientID, acct)
}

func (s *Store) Delete(clientID string) error {
	return s.kv.Delete(keyPrefix + clientID)
}

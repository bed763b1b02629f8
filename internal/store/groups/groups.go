// Package groups persists group definitions alongside the credential
// records and resolves them by id or name.
package groups

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/pkg/secretstore"
)

const keyPrefix = "group/"

type Store struct {
	kv *secretstore.Store
}

func NewStore(kv *secretstore.Store) *Store {
	return &Store{kv: kv}
}

// Find resolves a group by id first, then by case-insensitive name.
// (nil, nil) means no such group.
func (s *Store) Find(key string) (*domain.Group, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var grp domain.Group
	found, err := s.kv.GetJSON(keyPrefix+key, &grp)
	if err != nil {
		return nil, errors.Wrapf(err, "load group %s", key)
	}
	if found {
		return &grp, nil
	}

	var match *domain.Group
	err = s.kv.ScanPrefix(keyPrefix, func(_ string, val []byte) error {
		if match != nil {
			return nil
		}
		var g domain.Group
		if err := json.Unmarshal(val, &g); err != nil {
			return err
		}
		if g.Matches(key) {
			match = &g
		}
		return nil
	})
	return match, err
}

// List returns every group ordered by id.
func (s *Store) List() ([]*domain.Group, error) {
	var out []*domain.Group
	err := s.kv.ScanPrefix(keyPrefix, func(_ string, val []byte) error {
		var g domain.Group
		if err := json.Unmarshal(val, &g); err != nil {
			return err
		}
		out = append(out, &g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Put(grp *domain.Group) error {
	if strings.TrimSpace(grp.ID) == "" {
		return errors.New("group id is required")
	}
	if grp.Multiplier <= 0 {
		return errors.Errorf("group %s: multiplier must be positive, got %v", grp.ID, grp.Multiplier)
	}
	return s.kv.SetJSON(keyPrefix+grp.ID, grp)
}

func (s *Store) Delete(id string) error {
	return s.kv.Delete(keyPrefix + id)
}

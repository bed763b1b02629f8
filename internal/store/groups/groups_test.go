package groups

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copytrade/brokerhub/internal/domain"
	"github.com/copytrade/brokerhub/pkg/secretstore"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	kv, err := secretstore.Open(secretstore.OpenOptions{Path: filepath.Join(t.TempDir(), "kv")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewStore(kv)
}

func family() *domain.Group {
	return &domain.Group{
		ID: "G1", Name: "Family", Multiplier: 2,
		Members: []domain.GroupMember{
			{Broker: domain.BrokerDhan, ClientID: "C1"},
			{Broker: domain.BrokerMotilal, ClientID: "C2"},
		},
	}
}

func TestFindByIDAndName(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Put(family()))

	byID, err := s.Find("G1")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Len(t, byID.Members, 2)

	byName, err := s.Find("family")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, "G1", byName.ID)

	missing, err := s.Find("NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListOrderedByID(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Put(&domain.Group{ID: "G2", Name: "Office", Multiplier: 1}))
	require.NoError(t, s.Put(family()))

	all, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "G1", all[0].ID)
	assert.Equal(t, "G2", all[1].ID)
}

func TestPutRejectsBadGroups(t *testing.T) {
	s := openStore(t)

	assert.Error(t, s.Put(&domain.Group{Name: "NoID", Multiplier: 1}))

	zero := family()
	zero.Multiplier = 0
	assert.Error(t, s.Put(zero))

	negative := family()
	negative.Multiplier = -2
	assert.Error(t, s.Put(negative))
}

package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	ldb, err := NewLevelDB(filepath.Join(dir, "leveldb"))
	require.NoError(t, err)
	bdb, err := NewBoltDB(filepath.Join(dir, "bolt.db"))
	require.NoError(t, err)
	return map[string]Database{
		"memdb":   NewMemDB(),
		"leveldb": ldb,
		"bolt":    bdb,
	}
}

func TestDatabaseRoundtrip(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { require.NoError(t, db.Close()) }()

			key := []byte("streams/record/deadbeef")
			_, err := db.Get(key)
			require.ErrorIs(t, err, ErrNotFound)

			ok, err := db.Has(key)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, db.Put(key, []byte("v1")))
			got, err := db.Get(key)
			require.NoError(t, err)
			require.Equal(t, []byte("v1"), got)

			require.NoError(t, db.Put(key, []byte("v2")))
			got, err = db.Get(key)
			require.NoError(t, err)
			require.Equal(t, []byte("v2"), got)

			ok, err = db.Has(key)
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("mutable")
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 'X'
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("mutable"), got)
}

package storage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tradevault/storage"
)

func TestMemDBRoundTrip(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, storage.ErrKeyNotFound)

	require.NoError(t, db.Put([]byte("key"), []byte("value")))

	got, err := db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)

	ok, err := db.Has([]byte("key"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.Has([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemDBCopiesValues(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	value := []byte("value")
	require.NoError(t, db.Put([]byte("key"), value))
	value[0] = 'X'

	got, err := db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}

func TestLevelDBPersists(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	require.NoError(t, db1.Put([]byte("key"), []byte("value")))
	db1.Close()

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)

	_, err = db2.Get([]byte("missing"))
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
}

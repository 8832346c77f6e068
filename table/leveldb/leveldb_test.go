package leveldb

import (
	"testing"

	"github.com/kezhuw/treestate/table"
	"github.com/kezhuw/treestate/table/tabletest"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	tabletest.Run(t, func(t *testing.T) table.Table {
		db, err := Open(t.TempDir(), nil)
		require.NoError(t, err)
		return db
	})
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, db.Transaction(table.ReadWrite, func(tx table.Tx) error {
		require.NoError(t, tx.SetSequence(3))
		require.NoError(t, tx.Put(&table.Node{ID: 1, Key: "$root", Kind: table.KindObject, Left: 2, Marker: 3}))
		return tx.Put(&table.Node{ID: 2, Key: "a", Parent: 1, Data: "b", Marker: 3})
	}))
	require.NoError(t, db.Close())

	db, err = Open(dir, &Options{ReadOnly: true, ErrorIfMissing: true})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Transaction(table.ReadOnly, func(tx table.Tx) error {
		seq, err := tx.Sequence()
		require.NoError(t, err)
		require.Equal(t, uint64(3), seq)
		n, err := tx.Get(2)
		require.NoError(t, err)
		require.Equal(t, "b", n.Data)
		return nil
	}))
	err = db.Transaction(table.ReadWrite, func(tx table.Tx) error { return nil })
	require.Equal(t, table.ErrReadonly, err)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(t.TempDir()+"/missing", &Options{ErrorIfMissing: true})
	require.Error(t, err)
}

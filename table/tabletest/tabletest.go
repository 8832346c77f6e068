// Package tabletest runs the record table contract against any table.Table.
package tabletest

import (
	"errors"
	"testing"

	"github.com/kezhuw/treestate/table"
	"github.com/stretchr/testify/require"
)

type Opener func(t *testing.T) table.Table

func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		run  func(t *testing.T, tbl table.Table)
	}{
		{"PutGet", testPutGet},
		{"PutExisting", testPutExisting},
		{"UpdateMovesIndex", testUpdateMovesIndex},
		{"Remove", testRemove},
		{"ListOrdered", testListOrdered},
		{"Clear", testClear},
		{"Sequence", testSequence},
		{"Rollback", testRollback},
		{"ReadOnly", testReadOnly},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tbl := open(t)
			defer tbl.Close()
			test.run(t, tbl)
		})
	}
}

func write(t *testing.T, tbl table.Table, body func(tx table.Tx) error) {
	require.NoError(t, tbl.Transaction(table.ReadWrite, body))
}

func read(t *testing.T, tbl table.Table, body func(tx table.Tx) error) {
	require.NoError(t, tbl.Transaction(table.ReadOnly, body))
}

func testPutGet(t *testing.T, tbl table.Table) {
	nodes := []*table.Node{
		{ID: 1, Key: "$root", Kind: table.KindObject, Left: 2, Marker: 4},
		{ID: 2, Key: "a", Parent: 1, Right: 3, Data: "text", Marker: 4},
		{ID: 3, Key: "b", Parent: 1, Data: []interface{}{int64(1), 2.5, true, nil, "x"}, Marker: 4},
	}
	write(t, tbl, func(tx table.Tx) error {
		for _, n := range nodes {
			if err := tx.Put(n); err != nil {
				return err
			}
		}
		return nil
	})
	read(t, tbl, func(tx table.Tx) error {
		for _, n := range nodes {
			got, err := tx.Get(n.ID)
			require.NoError(t, err)
			require.Equal(t, n, got)
		}
		_, err := tx.Get(9)
		require.Equal(t, table.ErrNotFound, err)
		return nil
	})
}

func testPutExisting(t *testing.T, tbl table.Table) {
	write(t, tbl, func(tx table.Tx) error {
		return tx.Put(&table.Node{ID: 1, Key: "$root"})
	})
	err := tbl.Transaction(table.ReadWrite, func(tx table.Tx) error {
		return tx.Put(&table.Node{ID: 1, Key: "other"})
	})
	require.Equal(t, table.ErrExists, err)
	err = tbl.Transaction(table.ReadWrite, func(tx table.Tx) error {
		return tx.Update(&table.Node{ID: 2, Key: "missing"})
	})
	require.Equal(t, table.ErrNotFound, err)
}

func testUpdateMovesIndex(t *testing.T, tbl table.Table) {
	write(t, tbl, func(tx table.Tx) error {
		require.NoError(t, tx.Put(&table.Node{ID: 1, Key: "$root", Kind: table.KindObject}))
		require.NoError(t, tx.Put(&table.Node{ID: 2, Key: "a", Parent: 1, Kind: table.KindObject}))
		return tx.Put(&table.Node{ID: 3, Key: "b", Parent: 2})
	})
	write(t, tbl, func(tx table.Tx) error {
		return tx.Update(&table.Node{ID: 3, Key: "b", Parent: 1})
	})
	read(t, tbl, func(tx table.Tx) error {
		ids, err := tx.Children(1)
		require.NoError(t, err)
		require.Equal(t, []table.ID{2, 3}, ids)
		ids, err = tx.Children(2)
		require.NoError(t, err)
		require.Empty(t, ids)
		ids, err = tx.Children(table.None)
		require.NoError(t, err)
		require.Equal(t, []table.ID{1}, ids)
		return nil
	})
}

func testRemove(t *testing.T, tbl table.Table) {
	write(t, tbl, func(tx table.Tx) error {
		require.NoError(t, tx.Put(&table.Node{ID: 1, Key: "$root", Kind: table.KindObject}))
		return tx.Put(&table.Node{ID: 2, Key: "a", Parent: 1})
	})
	write(t, tbl, func(tx table.Tx) error {
		return tx.Remove(2)
	})
	read(t, tbl, func(tx table.Tx) error {
		_, err := tx.Get(2)
		require.Equal(t, table.ErrNotFound, err)
		ids, err := tx.Children(1)
		require.NoError(t, err)
		require.Empty(t, ids)
		return nil
	})
	err := tbl.Transaction(table.ReadWrite, func(tx table.Tx) error {
		return tx.Remove(2)
	})
	require.Equal(t, table.ErrNotFound, err)
}

func testListOrdered(t *testing.T, tbl table.Table) {
	write(t, tbl, func(tx table.Tx) error {
		for _, id := range []table.ID{17, 3, 256, 1} {
			if err := tx.Put(&table.Node{ID: id, Key: "k"}); err != nil {
				return err
			}
		}
		return nil
	})
	read(t, tbl, func(tx table.Tx) error {
		nodes, err := tx.List()
		require.NoError(t, err)
		var ids []table.ID
		for _, n := range nodes {
			ids = append(ids, n.ID)
		}
		require.Equal(t, []table.ID{1, 3, 17, 256}, ids)
		return nil
	})
}

func testClear(t *testing.T, tbl table.Table) {
	write(t, tbl, func(tx table.Tx) error {
		require.NoError(t, tx.SetSequence(10))
		require.NoError(t, tx.Put(&table.Node{ID: 1, Key: "$root", Kind: table.KindObject}))
		return tx.Put(&table.Node{ID: 2, Key: "a", Parent: 1})
	})
	write(t, tbl, func(tx table.Tx) error {
		return tx.Clear()
	})
	read(t, tbl, func(tx table.Tx) error {
		nodes, err := tx.List()
		require.NoError(t, err)
		require.Empty(t, nodes)
		ids, err := tx.Children(1)
		require.NoError(t, err)
		require.Empty(t, ids)
		seq, err := tx.Sequence()
		require.NoError(t, err)
		require.Equal(t, uint64(10), seq)
		return nil
	})
}

func testSequence(t *testing.T, tbl table.Table) {
	read(t, tbl, func(tx table.Tx) error {
		seq, err := tx.Sequence()
		require.NoError(t, err)
		require.Zero(t, seq)
		return nil
	})
	write(t, tbl, func(tx table.Tx) error {
		return tx.SetSequence(1 << 40)
	})
	read(t, tbl, func(tx table.Tx) error {
		seq, err := tx.Sequence()
		require.NoError(t, err)
		require.Equal(t, uint64(1<<40), seq)
		return nil
	})
}

func testRollback(t *testing.T, tbl table.Table) {
	write(t, tbl, func(tx table.Tx) error {
		require.NoError(t, tx.SetSequence(1))
		return tx.Put(&table.Node{ID: 1, Key: "$root", Kind: table.KindObject})
	})
	failure := errors.New("abort")
	err := tbl.Transaction(table.ReadWrite, func(tx table.Tx) error {
		require.NoError(t, tx.SetSequence(5))
		require.NoError(t, tx.Update(&table.Node{ID: 1, Key: "$root", Kind: table.KindObject, Left: 2}))
		require.NoError(t, tx.Put(&table.Node{ID: 2, Key: "a", Parent: 1}))
		require.NoError(t, tx.Clear())
		return failure
	})
	require.Equal(t, failure, err)
	read(t, tbl, func(tx table.Tx) error {
		root, err := tx.Get(1)
		require.NoError(t, err)
		require.Equal(t, table.None, root.Left)
		_, err = tx.Get(2)
		require.Equal(t, table.ErrNotFound, err)
		ids, err := tx.Children(table.None)
		require.NoError(t, err)
		require.Equal(t, []table.ID{1}, ids)
		seq, err := tx.Sequence()
		require.NoError(t, err)
		require.Equal(t, uint64(1), seq)
		return nil
	})
}

func testReadOnly(t *testing.T, tbl table.Table) {
	err := tbl.Transaction(table.ReadOnly, func(tx table.Tx) error {
		return tx.Put(&table.Node{ID: 1})
	})
	require.Equal(t, table.ErrReadonly, err)
	err = tbl.Transaction(table.ReadOnly, func(tx table.Tx) error {
		return tx.SetSequence(3)
	})
	require.Equal(t, table.ErrReadonly, err)
}

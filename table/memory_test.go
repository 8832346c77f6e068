package table_test

import (
	"testing"

	"github.com/kezhuw/treestate/table"
	"github.com/kezhuw/treestate/table/tabletest"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	tabletest.Run(t, func(t *testing.T) table.Table {
		return table.NewMemory()
	})
}

func TestMemoryClosed(t *testing.T) {
	m := table.NewMemory()
	require.NoError(t, m.Close())
	err := m.Transaction(table.ReadOnly, func(tx table.Tx) error { return nil })
	require.Equal(t, table.ErrClosed, err)
}

func TestMemoryRecordsAreCopied(t *testing.T) {
	m := table.NewMemory()
	n := &table.Node{ID: 1, Key: "$root", Data: []interface{}{"a"}}
	require.NoError(t, m.Transaction(table.ReadWrite, func(tx table.Tx) error {
		return tx.Put(n)
	}))
	n.Key = "mutated"
	n.Data.([]interface{})[0] = "b"
	require.NoError(t, m.Transaction(table.ReadOnly, func(tx table.Tx) error {
		got, err := tx.Get(1)
		require.NoError(t, err)
		require.Equal(t, "$root", got.Key)
		require.Equal(t, []interface{}{"a"}, got.Data)
		return nil
	}))
}

func TestCodec(t *testing.T) {
	n := &table.Node{ID: 7, Key: "k", Parent: 1, Left: 0, Right: 9, Kind: table.KindValue, Data: []interface{}{int64(1), "x"}, Marker: 42}
	b, err := table.Encode(n)
	require.NoError(t, err)
	got, err := table.Decode(7, b)
	require.NoError(t, err)
	require.Equal(t, n, got)

	_, err = table.Decode(7, b[:len(b)-1])
	require.ErrorIs(t, err, table.ErrCorruptedNode)
	_, err = table.Decode(7, append(b, 0))
	require.ErrorIs(t, err, table.ErrCorruptedNode)
}

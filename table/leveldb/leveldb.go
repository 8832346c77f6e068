// Package leveldb implements a durable table.Table on goleveldb.
//
// Layout:
//
//	/node/<id>              encoded node
//	/parent/<parent>/<id>   node key, indexes children of parent
//	$internal.sequence      persisted autoincrement
package leveldb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/kezhuw/treestate/table"
	"github.com/syndtr/goleveldb/leveldb"
	leveliter "github.com/syndtr/goleveldb/leveldb/iterator"
	levelopt "github.com/syndtr/goleveldb/leveldb/opt"
	levelutil "github.com/syndtr/goleveldb/leveldb/util"
	"golang.org/x/xerrors"
)

var (
	nodePrefix   = []byte("/node/")
	parentPrefix = []byte("/parent/")
	sequenceKey  = []byte("$internal.sequence")
)

type Options struct {
	ReadOnly       bool
	ErrorIfMissing bool
}

type DB struct {
	db       *leveldb.DB
	readonly bool
}

func Open(path string, options *Options) (*DB, error) {
	if options == nil {
		options = &Options{}
	}
	db, err := leveldb.OpenFile(path, &levelopt.Options{
		ReadOnly:       options.ReadOnly,
		ErrorIfMissing: options.ErrorIfMissing,
	})
	if err != nil {
		return nil, xerrors.Errorf("treestate/leveldb: open %s: %w", path, err)
	}
	return &DB{db: db, readonly: options.ReadOnly}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) Transaction(mode table.Mode, body func(tx table.Tx) error) error {
	switch {
	case mode != table.ReadWrite:
		return db.view(body)
	case db.readonly:
		return table.ErrReadonly
	}
	tr, err := db.db.OpenTransaction()
	if err != nil {
		return wrapError(err)
	}
	committed := false
	defer func() {
		if !committed {
			tr.Discard()
		}
	}()
	if err := body(&levelTx{r: tr, w: tr}); err != nil {
		return err
	}
	if err := tr.Commit(); err != nil {
		return wrapError(err)
	}
	committed = true
	return nil
}

func (db *DB) view(body func(tx table.Tx) error) error {
	snapshot, err := db.db.GetSnapshot()
	if err != nil {
		return wrapError(err)
	}
	defer snapshot.Release()
	return body(&levelTx{r: snapshot})
}

func wrapError(err error) error {
	if err == leveldb.ErrClosed {
		return table.ErrClosed
	}
	return xerrors.Errorf("treestate/leveldb: %w", err)
}

type reader interface {
	Get(key []byte, ro *levelopt.ReadOptions) ([]byte, error)
	Has(key []byte, ro *levelopt.ReadOptions) (bool, error)
	NewIterator(slice *levelutil.Range, ro *levelopt.ReadOptions) leveliter.Iterator
}

type writer interface {
	Put(key, value []byte, wo *levelopt.WriteOptions) error
	Delete(key []byte, wo *levelopt.WriteOptions) error
}

type levelTx struct {
	r    reader
	w    writer
	kbuf bytes.Buffer
}

func (tx *levelTx) kprintf(format string, args ...interface{}) []byte {
	tx.kbuf.Reset()
	fmt.Fprintf(&tx.kbuf, format, args...)
	return append([]byte(nil), tx.kbuf.Bytes()...)
}

func (tx *levelTx) nodeKey(id table.ID) []byte {
	return tx.kprintf("/node/%016x", uint64(id))
}

func (tx *levelTx) parentKey(parent, id table.ID) []byte {
	return tx.kprintf("/parent/%016x/%016x", uint64(parent), uint64(id))
}

func parseID(b []byte) (table.ID, error) {
	id, err := strconv.ParseUint(string(b), 16, 64)
	if err != nil {
		return table.None, xerrors.Errorf("%w: invalid id %q", table.ErrCorruptedNode, b)
	}
	return table.ID(id), nil
}

func (tx *levelTx) Get(id table.ID) (*table.Node, error) {
	value, err := tx.r.Get(tx.nodeKey(id), nil)
	switch {
	case err == leveldb.ErrNotFound:
		return nil, table.ErrNotFound
	case err != nil:
		return nil, wrapError(err)
	}
	return table.Decode(id, value)
}

func (tx *levelTx) write(n *table.Node) error {
	value, err := table.Encode(n)
	if err != nil {
		return err
	}
	if err := tx.w.Put(tx.nodeKey(n.ID), value, nil); err != nil {
		return wrapError(err)
	}
	if err := tx.w.Put(tx.parentKey(n.Parent, n.ID), []byte(n.Key), nil); err != nil {
		return wrapError(err)
	}
	return nil
}

func (tx *levelTx) Put(n *table.Node) error {
	if tx.w == nil {
		return table.ErrReadonly
	}
	ok, err := tx.r.Has(tx.nodeKey(n.ID), nil)
	switch {
	case err != nil:
		return wrapError(err)
	case ok:
		return table.ErrExists
	}
	return tx.write(n)
}

func (tx *levelTx) Update(n *table.Node) error {
	if tx.w == nil {
		return table.ErrReadonly
	}
	old, err := tx.Get(n.ID)
	if err != nil {
		return err
	}
	if old.Parent != n.Parent || old.Key != n.Key {
		if err := tx.w.Delete(tx.parentKey(old.Parent, old.ID), nil); err != nil {
			return wrapError(err)
		}
	}
	return tx.write(n)
}

func (tx *levelTx) Remove(id table.ID) error {
	if tx.w == nil {
		return table.ErrReadonly
	}
	old, err := tx.Get(id)
	if err != nil {
		return err
	}
	if err := tx.w.Delete(tx.nodeKey(id), nil); err != nil {
		return wrapError(err)
	}
	if err := tx.w.Delete(tx.parentKey(old.Parent, id), nil); err != nil {
		return wrapError(err)
	}
	return nil
}

func (tx *levelTx) List() ([]*table.Node, error) {
	it := tx.r.NewIterator(levelutil.BytesPrefix(nodePrefix), nil)
	defer it.Release()
	var nodes []*table.Node
	for it.Next() {
		id, err := parseID(it.Key()[len(nodePrefix):])
		if err != nil {
			return nil, err
		}
		n, err := table.Decode(id, it.Value())
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := it.Error(); err != nil {
		return nil, wrapError(err)
	}
	return nodes, nil
}

func (tx *levelTx) Children(parent table.ID) ([]table.ID, error) {
	prefix := tx.kprintf("/parent/%016x/", uint64(parent))
	it := tx.r.NewIterator(levelutil.BytesPrefix(prefix), nil)
	defer it.Release()
	var ids []table.ID
	for it.Next() {
		id, err := parseID(it.Key()[len(prefix):])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := it.Error(); err != nil {
		return nil, wrapError(err)
	}
	return ids, nil
}

func (tx *levelTx) collectKeys(prefix []byte) ([][]byte, error) {
	it := tx.r.NewIterator(levelutil.BytesPrefix(prefix), nil)
	defer it.Release()
	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	return keys, it.Error()
}

func (tx *levelTx) Clear() error {
	if tx.w == nil {
		return table.ErrReadonly
	}
	for _, prefix := range [][]byte{nodePrefix, parentPrefix} {
		keys, err := tx.collectKeys(prefix)
		if err != nil {
			return wrapError(err)
		}
		for _, key := range keys {
			if err := tx.w.Delete(key, nil); err != nil {
				return wrapError(err)
			}
		}
	}
	return nil
}

func (tx *levelTx) Sequence() (uint64, error) {
	value, err := tx.r.Get(sequenceKey, nil)
	switch {
	case err == leveldb.ErrNotFound:
		return 0, nil
	case err != nil:
		return 0, wrapError(err)
	}
	seq, n := binary.Uvarint(value)
	if n <= 0 {
		return 0, xerrors.Errorf("%w: sequence 0x%X", table.ErrCorruptedNode, value)
	}
	return seq, nil
}

func (tx *levelTx) SetSequence(seq uint64) error {
	if tx.w == nil {
		return table.ErrReadonly
	}
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], seq)
	if err := tx.w.Put(sequenceKey, buf[:n], nil); err != nil {
		return wrapError(err)
	}
	return nil
}

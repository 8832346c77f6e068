package store

import (
	"errors"
	"fmt"

	"github.com/kezhuw/treestate/table"
)

var (
	ErrClosed        = errors.New("treestate: store closed")
	ErrInvalidValue  = errors.New("treestate: invalid value")
	ErrCorruptedData = errors.New("treestate: corrupted data")
)

type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "treestate: path " + quote(e.Path) + " not found"
}

type NotTreeError struct {
	Path string
}

func (e *NotTreeError) Error() string {
	return "treestate: path " + quote(e.Path) + " is not a tree"
}

type ExistsError struct {
	Path string
}

func (e *ExistsError) Error() string {
	return "treestate: path " + quote(e.Path) + " already exists"
}

type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return "treestate: invalid path: " + quote(e.Path)
}

// NodeNotFoundError reports a dangling id, which means the sibling or
// parent links of the table are broken.
type NodeNotFoundError struct {
	ID table.ID
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("treestate: node %d not found", e.ID)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func quote(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

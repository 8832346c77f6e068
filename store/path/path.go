package path

import "strings"

const (
	Separator = "."
)

// Path is a parsed dotted path. The empty path addresses the root and has no
// segments.
type Path struct {
	Full string
	Segs []string
	Offs []int
}

func (path *Path) String() string {
	return path.Full
}

// Subpath [0, i]
func (path *Path) Sub(i int) string {
	off := path.Offs[i]
	seg := path.Segs[i]
	return path.Full[:off+len(seg)]
}

func (path *Path) IsRoot() bool {
	return len(path.Segs) == 0
}

// Last returns the final segment, or "" for the root.
func (path *Path) Last() string {
	if n := len(path.Segs); n != 0 {
		return path.Segs[n-1]
	}
	return ""
}

func (path *Path) Init(s string) bool {
	if s == "" {
		path.Full = ""
		path.Segs = nil
		path.Offs = nil
		return true
	}
	segs := strings.Split(s, Separator)
	offs := make([]int, len(segs))
	offset := 0
	for i, k := range segs {
		if !check(k) {
			return false
		}
		offs[i] = offset
		offset += len(Separator) + len(k)
	}
	path.Full = s
	path.Segs = segs
	path.Offs = offs
	return true
}

func New(path string) *Path {
	var p Path
	if p.Init(path) {
		return &p
	}
	return nil
}

// Join appends key to base. Keys containing the separator are not
// addressable and yield "".
func Join(base, key string) string {
	switch {
	case !check(key):
		return ""
	case base == "":
		return key
	default:
		return base + Separator + key
	}
}

func check(seg string) bool {
	if seg == "" {
		return false
	}
	for i, n := 0, len(seg); i < n; i++ {
		switch c := seg[i]; {
		case c == Separator[0]:
			return false
		case c < 0x20 || c == 0x7f:
			return false
		}
	}
	return true
}

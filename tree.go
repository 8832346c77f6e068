package treestate

// Tree scopes client operations to the subtree at root.
type Tree struct {
	client *Client
	root   string
}

func (t *Tree) path(path string) string {
	switch {
	case t.root == "":
		return path
	case path == "":
		return t.root
	default:
		return t.root + "." + path
	}
}

func (t *Tree) Root() string {
	return t.root
}

func (t *Tree) Get(path string) (interface{}, error) {
	return t.client.Get(t.path(path))
}

func (t *Tree) Find(path string) (*Node, error) {
	return t.client.Find(t.path(path))
}

func (t *Tree) Children(path string) ([]*Node, error) {
	return t.client.Children(t.path(path))
}

func (t *Tree) Update(path string, value interface{}) error {
	return t.client.Update(t.path(path), value)
}

func (t *Tree) Delete(path string) error {
	return t.client.Delete(t.path(path))
}

func (t *Tree) Tree(path string) *Tree {
	return &Tree{client: t.client, root: t.path(path)}
}

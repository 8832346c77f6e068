package cmds

import (
	"sort"
	"strings"
)

type Kind int

const (
	Client Kind = iota
	Tree
)

type Command struct {
	Name  string
	Kind  Kind
	Info  string
	Usage string
}

var Commands = []Command{
	{"connect", Client, "connect treestated server", "connect ADDRESS(tcp[4|6]://host:port or unix://filepath)"},
	{"get", Tree, "get value stored at path", "get PATH"},
	{"find", Tree, "show node stored at path", "find PATH"},
	{"children", Tree, "list child nodes of path", "children PATH"},
	{"init", Tree, "replace whole tree", "init JSON"},
	{"update", Tree, "replace value stored at path", "update PATH JSON"},
	{"delete", Tree, "delete subtree pointed by path", "delete PATH"},
	{"dispatch", Tree, "dispatch action to server runtime", "dispatch TYPE [JSON]"},
	{"describe", Tree, "describe tree", "describe"},
	{"select", Tree, "evaluate expression on value stored at path", "select PATH EXPR(value is the stored value)"},
}

type byName []Command

func (a byName) Len() int           { return len(a) }
func (a byName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byName) Less(i, j int) bool { return a[i].Name < a[j].Name }

func init() {
	sort.Sort(byName(Commands))
}

func Find(name string) *Command {
	name = strings.ToLower(name)
	for i, cmd := range Commands {
		if cmd.Name == name {
			return &Commands[i]
		}
	}
	return nil
}

func Complete(name string) (suggests []string) {
	name = strings.ToLower(name)
	for _, cmd := range Commands {
		if strings.HasPrefix(cmd.Name, name) {
			suggests = append(suggests, cmd.Name)
		}
	}
	return
}

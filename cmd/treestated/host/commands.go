package host

import "github.com/kezhuw/treestate/dispatch"

type Command interface {
	HostCommand()
}

type GetCommand struct {
	Path string
}

type FindCommand struct {
	Path string
}

type ChildrenCommand struct {
	Path string
}

type InitCommand struct {
	Value interface{}
}

type UpdateCommand struct {
	Path  string
	Value interface{}
}

type DeleteCommand struct {
	Path string
}

type DispatchCommand struct {
	Action dispatch.Action
}

type DescribeCommand struct {
}

func (*GetCommand) HostCommand()      {}
func (*FindCommand) HostCommand()     {}
func (*ChildrenCommand) HostCommand() {}
func (*InitCommand) HostCommand()     {}
func (*UpdateCommand) HostCommand()   {}
func (*DeleteCommand) HostCommand()   {}
func (*DispatchCommand) HostCommand() {}
func (*DescribeCommand) HostCommand() {}

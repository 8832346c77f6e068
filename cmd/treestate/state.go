package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/kezhuw/treestate/cmd/treestate/client"
	"github.com/kezhuw/treestate/cmd/treestate/cmds"
)

var (
	ErrNoClient = errors.New("no server connected")
	errQuit     = errors.New("quit")
)

const (
	leftPadding   = "    "
	notFoundUsage = "command not found.\n using help to get full list of commands.\n"
)

var widthOfCommandName = func() int {
	n := 0
	for _, cmd := range cmds.Commands {
		if len(cmd.Name) > n {
			n = len(cmd.Name)
		}
	}
	return ((n + 7) / 4) * 4
}()

func writeUsage(buf *bytes.Buffer, cmd *cmds.Command) {
	fmt.Fprintf(buf, "%s%-*s%s\n", leftPadding, widthOfCommandName, cmd.Name, cmd.Info)
	fmt.Fprintf(buf, "%s%-*s%s\n", leftPadding, widthOfCommandName, "", cmd.Usage)
}

func commandUsage(cmd *cmds.Command) string {
	var buf bytes.Buffer
	writeUsage(&buf, cmd)
	return buf.String()
}

var fullUsage = func() string {
	var buf bytes.Buffer
	for i := range cmds.Commands {
		writeUsage(&buf, &cmds.Commands[i])
	}
	fmt.Fprintf(&buf, "%s%-*s%s\n", leftPadding, widthOfCommandName, "disconnect", "close current connection")
	fmt.Fprintf(&buf, "%s%-*s%s\n", leftPadding, widthOfCommandName, "quit", "leave shell")
	return buf.String()
}()

// State is the shell session: at most one server connection.
type State struct {
	addr   string
	client *client.State
}

// Prompt shows the connected server address.
func (s *State) Prompt() string {
	if s.addr == "" {
		return "> "
	}
	return s.addr + "> "
}

func (s *State) Close() {
	if s.client != nil {
		s.client.Close()
		s.client, s.addr = nil, ""
	}
}

func splitCommand(line string) (name, args string) {
	line = strings.TrimFunc(line, unicode.IsSpace)
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i == -1 {
		return strings.ToLower(line), ""
	}
	return strings.ToLower(line[:i]), strings.TrimFunc(line[i:], unicode.IsSpace)
}

// Execute runs one shell line, returning its result, usage text to print
// and error.
func (s *State) Execute(line string) (string, string, error) {
	name, args := splitCommand(line)
	switch name {
	case "":
		return "", "", nil
	case "version":
		return "", version, nil
	case "help":
		if args == "" {
			return "", fullUsage, nil
		}
		if cmd := cmds.Find(args); cmd != nil {
			return "", commandUsage(cmd), nil
		}
		return "", notFoundUsage, nil
	case "quit", "exit":
		return "", "", errQuit
	case "disconnect":
		if s.client == nil {
			return "", "", ErrNoClient
		}
		s.Close()
		return "OK", "", nil
	}

	cmd := cmds.Find(name)
	switch {
	case cmd == nil:
		return "", notFoundUsage, nil
	case cmd.Kind == cmds.Client:
		result, err := s.connect(args)
		if err == client.ErrInvalidArguments {
			return "", commandUsage(cmd), err
		}
		return result, "", err
	case s.client == nil:
		return "", "", ErrNoClient
	}
	result, err := s.client.ExecuteCommand(cmd, args)
	if err == client.ErrInvalidArguments {
		return "", commandUsage(cmd), err
	}
	return result, "", err
}

func (s *State) connect(addr string) (string, error) {
	if addr == "" {
		return "", client.ErrInvalidArguments
	}
	c, err := client.Dial(addr)
	if err != nil {
		return "", err
	}
	s.Close()
	s.client, s.addr = c, addr
	return "OK", nil
}

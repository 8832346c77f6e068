package main

import (
	"fmt"

	"github.com/kezhuw/treestate/cmd/treestate/cmds"
	"github.com/peterh/liner"
)

const version = "0.1.0"

func autocomplete(line string) (suggests []string) {
	for _, s := range cmds.Complete(line) {
		suggests = append(suggests, s+" ")
	}
	return suggests
}

func main() {
	cli := liner.NewLiner()
	defer cli.Close()

	cli.SetCompleter(autocomplete)

	fmt.Printf(" Type help for usage.\n")

	var state State
	defer state.Close()
	for {
		line, err := cli.Prompt(state.Prompt())
		if err != nil {
			break
		}
		cli.AppendHistory(line)

		result, usage, err := state.Execute(line)
		switch {
		case err == errQuit:
			return
		case err != nil:
			fmt.Println("error:", err)
		case result != "":
			fmt.Println(result)
		}
		if usage != "" {
			fmt.Println(usage)
		}
	}
	fmt.Printf("\n")
}

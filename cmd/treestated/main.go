package main

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/kezhuw/treestate/cmd/treestated/config"
	"github.com/kezhuw/treestate/cmd/treestated/host"
	"github.com/kezhuw/treestate/cmd/treestated/server"
)

const version = "treestated 0.1.0"

var usage = `Serve a tree store with its dispatch runtime.

Usage:
    treestated [--config=<filename>] [--listen=<address>...] [--data-dir=<directory>]
        [--data-readonly] [--shutdown-timeout=<duration>] [--log-level=<level>]
        [--dispatch-filter=<expression>] [--journal-size=<n>] [--verify] [--pprof=<address>]
    treestated -h | --help
    treestated --version

Options:
    -h --help                        Show this screen.
    --version                        Show version.
    --config=<filename>              File contains configures.
    --listen=<address>               Local address to listen on, e.g. tcp://:7000.
    --data-dir=<directory>           Filesystem directory to store the tree, memory if absent.
    --data-readonly                  Serve data directory readonly.
    --shutdown-timeout=<duration>    Wait duration before closing online client connection forcibly.
    --log-level=<level>              Logging level.
    --dispatch-filter=<expression>   CEL predicate on "action" suppressing matched actions.
    --journal-size=<n>               Number of recent actions to keep in journal.
    --verify                         Verify tree structure before serving.
    --pprof=<address>                Serve runtime profiles on address.
`

func parse(cfg *config.Config, opts docopt.Opts) error {
	if filename, err := opts.String("--config"); err == nil {
		if err := config.Load(cfg, filename); err != nil {
			return err
		}
	}
	if listens, ok := opts["--listen"].([]string); ok && len(listens) != 0 {
		cfg.Listens = listens
	}
	if dir, err := opts.String("--data-dir"); err == nil {
		cfg.DataDir = dir
	}
	if readonly, _ := opts.Bool("--data-readonly"); readonly {
		cfg.DataReadonly = true
	}
	if s, err := opts.String("--shutdown-timeout"); err == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration value for option --shutdown-timeout: %s", s)
		}
		cfg.ShutdownTimeout = config.Duration(d)
	}
	if level, err := opts.String("--log-level"); err == nil {
		cfg.LogLevel = level
	}
	if filter, err := opts.String("--dispatch-filter"); err == nil {
		cfg.DispatchFilter = filter
	}
	if _, ok := opts["--journal-size"].(string); ok {
		n, err := opts.Int("--journal-size")
		if err != nil {
			return fmt.Errorf("invalid value for option --journal-size: %s", err)
		}
		cfg.JournalSize = n
	}
	if verify, _ := opts.Bool("--verify"); verify {
		cfg.Verify = true
	}
	return cfg.Complete()
}

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		printUsage(err)
	}

	var cfg config.Config
	if err := parse(&cfg, opts); err != nil {
		printUsage(err)
	}
	logger := cfg.Logger()

	h, err := host.Open(&host.Options{
		DataDir:      cfg.DataDir,
		Readonly:     cfg.DataReadonly,
		Verify:       cfg.Verify,
		Filter:       cfg.DispatchFilter,
		JournalSize:  cfg.JournalSize,
		SlowDispatch: time.Duration(cfg.SlowDispatch),
		Logger:       logger,
	})
	if err != nil {
		logger.Fatalf("open host: %s", err)
	}

	s, err := server.Listen(&cfg, h, logger)
	if err != nil {
		h.Close()
		logger.Fatalf("listen: %s", err)
	}
	if addr, err := opts.String("--pprof"); err == nil {
		go http.ListenAndServe(addr, nil)
	}
	s.Serve()
}

func printUsage(err error) {
	fmt.Printf("%s\n\n", err)
	fmt.Printf("%s\n", usage)
	os.Exit(1)
}

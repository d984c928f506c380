// Command remindersd is a long-running daemon exposing task-list tools
// over JSON-RPC 2.0 on stdio. Diagnostics go to stderr; stdout carries
// protocol bytes only.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/taskwire/remindersd/pkg/daemon"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println("remindersd 1.0.0")
		os.Exit(0)
	}

	cfg, err := daemon.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindersd: %v\n", err)
		os.Exit(daemon.ExitFatalStartup)
	}

	d := daemon.New(cfg)
	os.Exit(d.Run(context.Background()))
}

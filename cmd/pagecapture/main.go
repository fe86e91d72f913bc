package main

import (
	"fmt"
	"os"

	child_process_manager "github.com/AgustinSRG/go-child-process-manager"
)

var (
	// Version is the application version (set during build).
	Version = "dev"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := child_process_manager.InitializeChildProcessManager(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: unable to initialize the child process manager: %v\n", err)
		return 1
	}
	defer child_process_manager.DisposeChildProcessManager()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command catalogsync runs and inspects catalogue synchronization from a shell.
//
// It shares configuration with the API server (environment variables plus an
// optional YAML provider table) and talks to the same stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(os.Environ)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

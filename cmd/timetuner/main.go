// Package main is the entrypoint for the timetuner service. It simulates
// per-zone time of day, aggregates sleep votes and serves the admin API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aelexs/timetuner/internal/server"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return server.Run(ctx, server.Params{
		Name:  "timetuner",
		Setup: setup,
	}, server.Listeners{})
}

// Command musedemo runs a small blog-post/author fetch plan through muse
// and prints the merged JSON result, demonstrating batching (authors
// shared by several posts fetch once) and concurrency (independent posts
// fetch together) without any manual coordination in the plan itself.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/vk/muse/internal/ctxlog"
	"github.com/vk/muse/internal/demoapp"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*demoapp.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW *os.File, args []string) error {
	cfg, shouldExit, err := demoapp.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := demoapp.NewLogger(cfg, os.Stderr)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	return demoapp.Run(ctx, cfg, outW)
}

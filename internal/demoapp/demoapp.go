// Package demoapp wires the pieces cmd/musedemo needs: flag parsing,
// logger setup, and the plan the demo actually runs.
package demoapp

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/muse"
	"github.com/vk/muse/internal/runconfig"
)

// ExitError carries a process exit code alongside its message.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// Config is the demo's resolved configuration.
type Config struct {
	ManifestPath string
	LogFormat    string
	LogLevel     string
}

// Parse processes command-line arguments into a Config. It returns
// shouldExit=true for -h/--help, with usage already written to output.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	flagSet := flag.NewFlagSet("musedemo", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
musedemo - runs a small blog-post/author fetch plan through muse.

Usage:
  musedemo [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	manifestFlag := flagSet.String("manifest", "", "Path to an HCL run manifest (optional; the demo has built-in defaults).")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	return &Config{
		ManifestPath: *manifestFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	}, false, nil
}

// NewLogger builds a standalone *slog.Logger from cfg.
func NewLogger(cfg *Config, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(outW, opts)
	} else {
		handler = slog.NewTextHandler(outW, opts)
	}
	return slog.New(handler)
}

// post is the demo's plain (unbatched) resource: a blog post keyed by ID.
type post struct {
	ID string
}

var demoPosts = map[string]map[string]any{
	"1": {"title": "Declarative data fetching", "author_id": "alice"},
	"2": {"title": "Level-synchronous evaluation", "author_id": "bob"},
	"3": {"title": "Batching without ceremony", "author_id": "alice"},
}

func (p post) Identity() any { return p.ID }

func (p post) Fetch(_ context.Context, _ muse.Env) (any, error) {
	body, ok := demoPosts[p.ID]
	if !ok {
		return nil, fmt.Errorf("demoapp: no such post %q", p.ID)
	}
	return body, nil
}

var _ muse.DataSource = post{}

// author is the demo's batched resource: looking up several authors in one
// pass costs one round trip instead of one per post, the classic
// data-fetching-combinator payoff this whole library exists to deliver.
type author struct {
	ID string
}

var demoAuthors = map[string]map[string]any{
	"alice": {"name": "Alice Author"},
	"bob":   {"name": "Bob Writer"},
}

func (a author) Identity() any { return a.ID }

func (a author) Fetch(ctx context.Context, env muse.Env) (any, error) {
	resp, err := a.FetchMulti(ctx, nil, env)
	if err != nil {
		return nil, err
	}
	return resp[a.Identity()], nil
}

func (a author) FetchMulti(_ context.Context, others []muse.DataSource, _ muse.Env) (map[any]any, error) {
	ids := []string{a.ID}
	for _, o := range others {
		peer, ok := o.(author)
		if !ok {
			return nil, fmt.Errorf("demoapp: FetchMulti received a non-author peer %T", o)
		}
		ids = append(ids, peer.ID)
	}
	out := make(map[any]any, len(ids))
	for _, id := range ids {
		body, ok := demoAuthors[id]
		if !ok {
			return nil, fmt.Errorf("demoapp: no such author %q", id)
		}
		out[id] = body
	}
	return out, nil
}

var _ muse.BatchedSource = author{}

// BuildPlan describes: fetch every post, then for each post's author_id,
// fetch the author, then merge the two into one object per post. Two
// distinct posts sharing an author_id (posts 1 and 3 both use "alice")
// still cost only one author fetch, thanks to identity-based dedup.
func BuildPlan(postIDs []string) *muse.Plan {
	plans := make([]*muse.Plan, len(postIDs))
	for i, id := range postIDs {
		plans[i] = muse.FlatMap(func(v any) any {
			body := v.(map[string]any)
			authorID := body["author_id"].(string)
			return muse.Map(func(av any) any {
				merged := map[string]any{
					"title":  body["title"],
					"author": av,
				}
				return merged
			}, muse.Source(author{ID: authorID}))
		}, muse.Source(post{ID: id}))
	}
	return muse.Collect(plans)
}

// Run executes the demo plan and writes its JSON result to outW. If
// cfg.ManifestPath is set, its concurrency block (if any) bounds the run's
// max evaluator levels.
func Run(ctx context.Context, cfg *Config, outW io.Writer) error {
	opts := muse.Opts{}
	if cfg.ManifestPath != "" {
		manifest, err := runconfig.Load(cfg.ManifestPath)
		if err != nil {
			return err
		}
		opts.MaxLevels = manifest.ResolveMaxLevels()
	}

	plan := BuildPlan([]string{"1", "2", "3"})
	result, err := muse.Run(ctx, plan, opts)
	if err != nil {
		return fmt.Errorf("demoapp: run failed: %w", err)
	}

	enc := json.NewEncoder(outW)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

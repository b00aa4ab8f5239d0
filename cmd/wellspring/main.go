// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/wellspring"
	"github.com/poiesic/wellspring/bridge"
	"github.com/poiesic/wellspring/config"
	"github.com/poiesic/wellspring/content"
	"github.com/poiesic/wellspring/graph"
	"github.com/poiesic/wellspring/ingestion"
	"github.com/poiesic/wellspring/resonance"
	"github.com/urfave/cli/v2"
)

func main() {
	r := &runner{stdout: os.Stdout, stderr: os.Stderr}
	if err := r.app().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// runner carries the resolved configuration between Before and the actions.
type runner struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *config.AppConfig
	logger *slog.Logger

	// extra is appended to the library options; tests use it to inject a provider.
	extra []wellspring.LibraryOption
}

func ownerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "owner",
		Aliases:  []string{"o"},
		Usage:    "Library owner ID",
		EnvVars:  []string{"WELLSPRING_OWNER"},
		Required: true,
	}
}

func (r *runner) app() *cli.App {
	return &cli.App{
		Name:      "wellspring",
		Usage:     "Ingest contemplative writing and explore resonances across a library",
		Writer:    r.stdout,
		ErrWriter: r.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "wellspring.yaml",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB library directory (overrides config)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "ai-host",
				Usage: "OpenAI-compatible service host URL (overrides config)",
			},
		},
		Before: r.setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest files or inline text into an owner's library",
				ArgsUsage: "[file...]",
				Action:    r.ingestCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.StringFlag{
						Name:  "text",
						Usage: "Ingest this text instead of files",
					},
					&cli.StringFlag{
						Name:  "privacy",
						Usage: "Privacy level (attributed, anonymous, private)",
						Value: "attributed",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Contributor display name",
					},
					&cli.StringFlag{
						Name:  "role",
						Usage: "Contributor role",
					},
					&cli.StringSliceFlag{
						Name:  "gift",
						Usage: "Contributor gift tag (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Document tag (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "consent",
						Usage: "Consent to contributing to the collective graph",
					},
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Resume jobs left in a durable queue before submitting new ones",
					},
				},
			},
			{
				Name:   "balance",
				Usage:  "Show an owner's elemental balance",
				Action: r.balanceCommand,
				Flags:  []cli.Flag{ownerFlag()},
			},
			{
				Name:      "show",
				Usage:     "Show a document with its analysis, resonances and bridges",
				ArgsUsage: "<document-id>",
				Action:    r.showCommand,
				Flags:     []cli.Flag{ownerFlag()},
			},
			{
				Name:      "search",
				Usage:     "Search an owner's library",
				ArgsUsage: "<query...>",
				Action:    r.searchCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results (0 uses config)",
					},
				},
			},
			{
				Name:   "concepts",
				Usage:  "List concept graph nodes, or an owner's documents for one concept",
				Action: r.conceptsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Node kind (concept, practice); empty lists both",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "List the owner's documents linked to this concept",
					},
					&cli.StringFlag{
						Name:    "owner",
						Aliases: []string{"o"},
						Usage:   "Library owner ID (required with --name)",
						EnvVars: []string{"WELLSPRING_OWNER"},
					},
				},
			},
			{
				Name:   "bridges",
				Usage:  "List concept bridges across frameworks",
				Action: r.bridgesCommand,
			},
		},
	}
}

// setup resolves configuration (defaults, file, environment, flags) and
// installs the logger.
func (r *runner) setup(c *cli.Context) error {
	config.LoadEnv(nil)

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(cfg)

	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("ai-host") {
		cfg.AI.Host = c.String("ai-host")
	}
	if c.IsSet("log-level") {
		level := strings.ToLower(c.String("log-level"))
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", level)
		}
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.logger = slog.New(slog.NewTextHandler(r.stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(r.logger)
	r.cfg = cfg
	return nil
}

// openLibrary opens the configured library. The durable queue and the graph
// mirror are only connected for ingestion.
func (r *runner) openLibrary(ingesting bool) (*wellspring.Library, error) {
	cfg := r.cfg
	opts := []wellspring.LibraryOption{
		wellspring.WithAIConfig(cfg.AIConfig()),
		wellspring.WithLibraryLogger(r.logger),
		wellspring.WithLoader(content.NewFileLoader(
			content.WithRoot(cfg.Content.Root),
			content.WithMaxBytes(cfg.Content.MaxBytes),
			content.WithCacheEntries(cfg.Content.CacheEntries),
		)),
	}
	if ingesting {
		opts = append(opts, wellspring.WithNeo4jMirror(cfg.Neo4jConfig()))
		if cfg.Queue.Type == config.QueueRedis {
			opts = append(opts, wellspring.WithRedisQueue(cfg.RedisOptions()))
		}
	}
	opts = append(opts, r.extra...)

	lib, err := wellspring.NewLibrary(cfg.DataDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	return lib, nil
}

func (r *runner) pipelineOptions() ([]ingestion.Option, error) {
	cfg := r.cfg
	policy, ok := graph.PolicyByName(cfg.Ingestion.NodePolicy)
	if !ok {
		return nil, fmt.Errorf("unknown node policy %q", cfg.Ingestion.NodePolicy)
	}
	opts := []ingestion.Option{
		ingestion.WithStepTimeout(cfg.StepTimeout()),
		ingestion.WithStatusRetention(cfg.Ingestion.StatusRetention),
		ingestion.WithNodePolicy(policy),
		ingestion.WithResonanceOptions(
			resonance.WithTopK(cfg.Resonance.TopK),
			resonance.WithMinSimilarity(cfg.Resonance.MinSimilarity),
		),
	}
	if cfg.Ingestion.BridgeTable != "" {
		table, err := loadBridgeTable(cfg.Ingestion.BridgeTable)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ingestion.WithBridgeTable(table))
	}
	return opts, nil
}

// loadBridgeTable extends the built-in table with the rows in path.
func loadBridgeTable(path string) (*bridge.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bridge table: %w", err)
	}
	defer f.Close()

	extra, err := bridge.LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load bridge table %s: %w", path, err)
	}
	table := bridge.DefaultTable()
	if err := table.Extend(extra); err != nil {
		return nil, fmt.Errorf("failed to extend bridge table: %w", err)
	}
	return table, nil
}

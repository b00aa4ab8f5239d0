// Package neo4jgraph mirrors the concept graph into Neo4j for exploration.
//
// Badger stays the source of truth. The mirror only writes: nodes are merged
// by ID and reference edges by edge ID, so replaying a batch is harmless.
package neo4jgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Config holds Neo4j connection settings.
type Config struct {
	URI         string
	User        string
	Password    string
	Database    string
	Timeout     time.Duration
	MaxPoolSize int
}

// Client writes woven graph batches to Neo4j.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	logger   *slog.Logger
}

// ConfigFromEnv reads NEO4J_* variables. An unset NEO4J_URI yields an empty URI.
func ConfigFromEnv() Config {
	cfg := Config{
		URI:         strings.TrimSpace(os.Getenv("NEO4J_URI")),
		User:        strings.TrimSpace(os.Getenv("NEO4J_USER")),
		Password:    strings.TrimSpace(os.Getenv("NEO4J_PASSWORD")),
		Database:    strings.TrimSpace(os.Getenv("NEO4J_DATABASE")),
		Timeout:     10 * time.Second,
		MaxPoolSize: 50,
	}
	if v := strings.TrimSpace(os.Getenv("NEO4J_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.Timeout = time.Duration(parsed) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("NEO4J_MAX_POOL_SIZE")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.MaxPoolSize = parsed
		}
	}
	return cfg
}

// NewFromEnv connects using ConfigFromEnv. Returns nil, nil when NEO4J_URI is unset.
func NewFromEnv(logger *slog.Logger) (*Client, error) {
	cfg := ConfigFromEnv()
	if cfg.URI == "" {
		return nil, nil
	}
	return New(cfg, logger)
}

// New connects to Neo4j and verifies connectivity.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4jgraph: uri required")
	}
	if cfg.User == "" {
		cfg.User = "neo4j"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}

	auth := neo4j.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPoolSize
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jgraph: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jgraph: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: cfg.Database,
		logger:   logger.With("component", "neo4j-mirror"),
	}, nil
}

// Close closes the driver. Safe on a nil client.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}

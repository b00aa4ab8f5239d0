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


// Package config loads the Wellspring application configuration.
//
// Settings come from three layers, later ones winning: built-in defaults, a
// YAML file, then WELLSPRING_* and NEO4J_* environment variables (optionally
// read from a .env file). Secrets are never stored in the file; the file names
// the environment variable that holds them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/wellspring/ai"
	"github.com/poiesic/wellspring/graph"
	"github.com/poiesic/wellspring/ingestion"
	"github.com/poiesic/wellspring/resonance"
	"github.com/poiesic/wellspring/search"
	"github.com/poiesic/wellspring/storage/neo4jgraph"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Queue types.
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// AIConfig configures the OpenAI-compatible embedding and analysis services.
type AIConfig struct {
	Host           string `yaml:"host"`
	EmbeddingHost  string `yaml:"embedding_host,omitempty"`
	AnalyzerHost   string `yaml:"analyzer_host,omitempty"`
	EmbeddingModel string `yaml:"embedding_model"`
	AnalyzerModel  string `yaml:"analyzer_model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	MaxConcepts    int    `yaml:"max_concepts"`
	EmbedAttempts  int    `yaml:"embed_attempts"`
	RetryDelayMS   int    `yaml:"retry_delay_ms"`
}

// IngestionConfig configures the pipeline.
type IngestionConfig struct {
	StepTimeoutSecs int    `yaml:"step_timeout_secs"`
	StatusRetention int    `yaml:"status_retention"`
	NodePolicy      string `yaml:"node_policy"`
	// BridgeTable is an optional YAML file whose rows extend the built-in table.
	BridgeTable string `yaml:"bridge_table,omitempty"`
}

// ResonanceConfig configures resonance detection.
type ResonanceConfig struct {
	TopK          int     `yaml:"top_k"`
	MinSimilarity float32 `yaml:"min_similarity"`
}

// SearchConfig configures library search.
type SearchConfig struct {
	MinSimilarity float32 `yaml:"min_similarity"`
	MaxHits       int     `yaml:"max_hits"`
}

// ContentConfig configures how raw content references are read.
type ContentConfig struct {
	Root         string `yaml:"root,omitempty"`
	MaxBytes     int64  `yaml:"max_bytes"`
	CacheEntries int    `yaml:"cache_entries"`
}

// RedisConfig holds connection details for the Redis job queue.
type RedisConfig struct {
	URL                string `yaml:"url"`
	Key                string `yaml:"key"`
	ConnectTimeoutSecs int    `yaml:"connect_timeout_secs"`
}

// QueueConfig selects the job queue implementation.
type QueueConfig struct {
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

// Neo4jConfig configures the optional graph mirror. An empty URI disables it.
type Neo4jConfig struct {
	URI         string `yaml:"uri,omitempty"`
	User        string `yaml:"user,omitempty"`
	PasswordEnv string `yaml:"password_env"`
	Database    string `yaml:"database,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxPoolSize int    `yaml:"max_pool_size"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
	AI        AIConfig        `yaml:"ai"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Resonance ResonanceConfig `yaml:"resonance"`
	Search    SearchConfig    `yaml:"search"`
	Content   ContentConfig   `yaml:"content"`
	Queue     QueueConfig     `yaml:"queue"`
	Neo4j     Neo4jConfig     `yaml:"neo4j"`
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a config from path. If the file does not exist, returns defaults.
// Unknown keys are rejected so typos surface instead of silently doing nothing.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg AppConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadEnv reads a .env file from the working directory into the process
// environment. A missing file is not an error.
func LoadEnv(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using process environment")
	}
}

// ApplyEnv overrides cfg with WELLSPRING_* and NEO4J_* variables that are set.
// Setting WELLSPRING_REDIS_URL switches the queue to Redis.
func ApplyEnv(cfg *AppConfig) {
	setString(&cfg.DataDir, "WELLSPRING_DATA_DIR")
	setString(&cfg.LogLevel, "WELLSPRING_LOG_LEVEL")
	setString(&cfg.AI.Host, "WELLSPRING_AI_HOST")
	setString(&cfg.AI.EmbeddingModel, "WELLSPRING_EMBEDDING_MODEL")
	setString(&cfg.AI.AnalyzerModel, "WELLSPRING_ANALYZER_MODEL")
	setString(&cfg.Ingestion.NodePolicy, "WELLSPRING_NODE_POLICY")
	setInt(&cfg.Ingestion.StepTimeoutSecs, "WELLSPRING_STEP_TIMEOUT_SECS")
	if setString(&cfg.Queue.Redis.URL, "WELLSPRING_REDIS_URL") {
		cfg.Queue.Type = QueueRedis
	}
	setString(&cfg.Queue.Redis.Key, "WELLSPRING_REDIS_KEY")

	env := neo4jgraph.ConfigFromEnv()
	if env.URI != "" {
		cfg.Neo4j.URI = env.URI
	}
	if env.User != "" {
		cfg.Neo4j.User = env.User
	}
	if env.Database != "" {
		cfg.Neo4j.Database = env.Database
	}
}

func setString(dst *string, key string) bool {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return false
	}
	*dst = v
	return true
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		*dst = n
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	aiDefaults := ai.DefaultConfig()
	if cfg.AI.Host == "" {
		cfg.AI.Host = aiDefaults.EmbeddingHost
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = aiDefaults.EmbeddingModel
	}
	if cfg.AI.AnalyzerModel == "" {
		cfg.AI.AnalyzerModel = aiDefaults.AnalyzerModel
	}
	if cfg.AI.APIKeyEnv == "" {
		cfg.AI.APIKeyEnv = "WELLSPRING_API_TOKEN"
	}
	if cfg.AI.MaxConcepts == 0 {
		cfg.AI.MaxConcepts = aiDefaults.MaxConcepts
	}
	if cfg.AI.EmbedAttempts == 0 {
		cfg.AI.EmbedAttempts = aiDefaults.EmbedAttempts
	}
	if cfg.AI.RetryDelayMS == 0 {
		cfg.AI.RetryDelayMS = int(aiDefaults.RetryDelay / time.Millisecond)
	}

	if cfg.Ingestion.StepTimeoutSecs == 0 {
		cfg.Ingestion.StepTimeoutSecs = int(ingestion.DefaultStepTimeout / time.Second)
	}
	if cfg.Ingestion.StatusRetention == 0 {
		cfg.Ingestion.StatusRetention = ingestion.DefaultStatusRetention
	}
	if cfg.Ingestion.NodePolicy == "" {
		cfg.Ingestion.NodePolicy = graph.LastWriterWins{}.Name()
	}

	if cfg.Resonance.TopK == 0 {
		cfg.Resonance.TopK = resonance.DefaultTopK
	}
	if cfg.Resonance.MinSimilarity == 0 {
		cfg.Resonance.MinSimilarity = resonance.DefaultMinSimilarity
	}
	if cfg.Search.MinSimilarity == 0 {
		cfg.Search.MinSimilarity = search.DefaultMinSimilarity
	}
	if cfg.Search.MaxHits == 0 {
		cfg.Search.MaxHits = 10
	}

	if cfg.Content.MaxBytes == 0 {
		cfg.Content.MaxBytes = 16 << 20
	}
	if cfg.Content.CacheEntries == 0 {
		cfg.Content.CacheEntries = 64
	}

	if cfg.Queue.Type == "" {
		cfg.Queue.Type = QueueMemory
	}
	if cfg.Queue.Redis.Key == "" {
		cfg.Queue.Redis.Key = ingestion.DefaultRedisQueueKey
	}
	if cfg.Queue.Redis.ConnectTimeoutSecs == 0 {
		cfg.Queue.Redis.ConnectTimeoutSecs = 5
	}

	if cfg.Neo4j.PasswordEnv == "" {
		cfg.Neo4j.PasswordEnv = "NEO4J_PASSWORD"
	}
	if cfg.Neo4j.TimeoutSecs == 0 {
		cfg.Neo4j.TimeoutSecs = 10
	}
	if cfg.Neo4j.MaxPoolSize == 0 {
		cfg.Neo4j.MaxPoolSize = 50
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "wellspring-data"
	}
	return filepath.Join(home, ".local", "share", "wellspring")
}

// Validate checks cross-field constraints.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if _, ok := graph.PolicyByName(c.Ingestion.NodePolicy); !ok {
		errs = append(errs, fmt.Errorf("unknown ingestion.node_policy %q", c.Ingestion.NodePolicy))
	}
	if c.Ingestion.StepTimeoutSecs < 1 {
		errs = append(errs, errors.New("ingestion.step_timeout_secs must be positive"))
	}
	if c.Ingestion.StatusRetention < 1 {
		errs = append(errs, errors.New("ingestion.status_retention must be positive"))
	}
	if c.Resonance.TopK < 1 {
		errs = append(errs, errors.New("resonance.top_k must be positive"))
	}
	if c.Resonance.MinSimilarity < 0 || c.Resonance.MinSimilarity > 1 {
		errs = append(errs, errors.New("resonance.min_similarity must be within [0, 1]"))
	}
	if c.Search.MinSimilarity < 0 || c.Search.MinSimilarity > 1 {
		errs = append(errs, errors.New("search.min_similarity must be within [0, 1]"))
	}
	switch c.Queue.Type {
	case QueueMemory:
	case QueueRedis:
		if c.Queue.Redis.URL == "" {
			errs = append(errs, errors.New("queue.redis.url is required for the redis queue"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue.type %q", c.Queue.Type))
	}
	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// AIConfig builds the provider configuration. The API token is read from the
// variable named by APIKeyEnv.
func (c *AppConfig) AIConfig() *ai.Config {
	embeddingHost := c.AI.EmbeddingHost
	if embeddingHost == "" {
		embeddingHost = c.AI.Host
	}
	analyzerHost := c.AI.AnalyzerHost
	if analyzerHost == "" {
		analyzerHost = c.AI.Host
	}
	opts := []ai.ConfigOption{
		ai.WithEmbeddingHost(embeddingHost),
		ai.WithAnalyzerHost(analyzerHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithAnalyzerModel(c.AI.AnalyzerModel),
		ai.WithMaxConcepts(c.AI.MaxConcepts),
		ai.WithEmbedRetry(c.AI.EmbedAttempts, time.Duration(c.AI.RetryDelayMS)*time.Millisecond),
	}
	if token := strings.TrimSpace(os.Getenv(c.AI.APIKeyEnv)); token != "" {
		opts = append(opts, ai.WithAPIToken(token))
	}
	return ai.NewConfig(opts...)
}

// StepTimeout returns the per-step pipeline deadline.
func (c *AppConfig) StepTimeout() time.Duration {
	return time.Duration(c.Ingestion.StepTimeoutSecs) * time.Second
}

// RedisOptions returns the Redis queue connection settings.
func (c *AppConfig) RedisOptions() ingestion.RedisOptions {
	return ingestion.RedisOptions{
		URL:            c.Queue.Redis.URL,
		Key:            c.Queue.Redis.Key,
		ConnectTimeout: time.Duration(c.Queue.Redis.ConnectTimeoutSecs) * time.Second,
	}
}

// Neo4jConfig returns the mirror connection settings with the password read
// from the variable named by PasswordEnv.
func (c *AppConfig) Neo4jConfig() neo4jgraph.Config {
	return neo4jgraph.Config{
		URI:         c.Neo4j.URI,
		User:        c.Neo4j.User,
		Password:    strings.TrimSpace(os.Getenv(c.Neo4j.PasswordEnv)),
		Database:    c.Neo4j.Database,
		Timeout:     time.Duration(c.Neo4j.TimeoutSecs) * time.Second,
		MaxPoolSize: c.Neo4j.MaxPoolSize,
	}
}

// SlogLevel parses LogLevel. Unknown values fall back to info.
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.AnalyzerHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:7b", cfg.AnalyzerModel)
	assert.Equal(t, "none", cfg.APIToken)
	assert.Equal(t, 12, cfg.MaxConcepts)
	assert.Equal(t, 3, cfg.EmbedAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.AnalyzerHost)
		assert.Equal(t, 12, cfg.MaxConcepts)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.AnalyzerHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithAnalyzerHost("http://analyze:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://analyze:9090/v1", cfg.AnalyzerHost)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithHost("http://custom:8080/v1"),
			WithEmbeddingModel("custom-embed"),
			WithAnalyzerModel("custom-analyze"),
			WithAPIToken("secret"),
			WithMaxConcepts(5),
		)

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.AnalyzerHost)
		assert.Equal(t, "custom-embed", cfg.EmbeddingModel)
		assert.Equal(t, "custom-analyze", cfg.AnalyzerModel)
		assert.Equal(t, "secret", cfg.APIToken)
		assert.Equal(t, 5, cfg.MaxConcepts)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name             string
		embeddingHost    string
		analyzerHost     string
		expectedEmbedding string
		expectedAnalyzer string
	}{
		{
			name:              "already has /v1",
			embeddingHost:     "http://localhost:11434/v1",
			analyzerHost:      "http://localhost:11434/v1",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedAnalyzer:  "http://localhost:11434/v1",
		},
		{
			name:              "missing /v1",
			embeddingHost:     "http://localhost:11434",
			analyzerHost:      "http://localhost:11434",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedAnalyzer:  "http://localhost:11434/v1",
		},
		{
			name:              "has trailing slash",
			embeddingHost:     "http://localhost:11434/",
			analyzerHost:      "http://localhost:11434/",
			expectedEmbedding: "http://localhost:11434/v1",
			expectedAnalyzer:  "http://localhost:11434/v1",
		},
		{
			name:              "empty hosts",
			expectedEmbedding: "",
			expectedAnalyzer:  "",
		},
		{
			name:              "different formats",
			embeddingHost:     "http://embed:8080",
			analyzerHost:      "http://analyze:9090/v1",
			expectedEmbedding: "http://embed:8080/v1",
			expectedAnalyzer:  "http://analyze:9090/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				EmbeddingHost: tt.embeddingHost,
				AnalyzerHost:  tt.analyzerHost,
			}

			cfg.Normalize()

			assert.Equal(t, tt.expectedEmbedding, cfg.EmbeddingHost)
			assert.Equal(t, tt.expectedAnalyzer, cfg.AnalyzerHost)
			assert.Equal(t, "none", cfg.APIToken)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			EmbeddingHost:  "http://localhost:11434",
			AnalyzerHost:   "http://localhost:11434",
			EmbeddingModel: "embeddinggemma",
			AnalyzerModel:  "qwen2.5:7b",
			MaxConcepts:    12,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()

		err := cfg.Validate()
		assert.NoError(t, err)

		// Should also normalize
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.AnalyzerHost)
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, "EmbeddingHost"},
		{"missing analyzer host", func(c *Config) { c.AnalyzerHost = "" }, "AnalyzerHost"},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, "EmbeddingModel"},
		{"missing analyzer model", func(c *Config) { c.AnalyzerModel = "" }, "AnalyzerModel"},
		{"max concepts too low", func(c *Config) { c.MaxConcepts = 0 }, "MaxConcepts"},
		{"max concepts too high", func(c *Config) { c.MaxConcepts = 51 }, "MaxConcepts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	t.Run("max concepts at boundaries", func(t *testing.T) {
		cfg := valid()
		cfg.MaxConcepts = 1
		assert.NoError(t, cfg.Validate())

		cfg.MaxConcepts = 50
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfigValidate_Integration(t *testing.T) {
	// Test that NewConfig produces a valid configuration
	cfg := NewConfig()
	err := cfg.Validate()
	require.NoError(t, err)

	// Test that DefaultConfig produces a valid configuration
	cfg = DefaultConfig()
	err = cfg.Validate()
	require.NoError(t, err)
}

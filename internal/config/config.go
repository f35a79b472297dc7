package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all lifecoach configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	DataDir string `yaml:"data_dir"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Embedding engine used by the archiver
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Pipeline limits and deadlines
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Conversation and semantic storage
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "lifecoach",
		Version: "0.3.0",
		DataDir: ".lifecoach",

		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			Timeout:     "60s",
			Temperature: 0.2,
		},

		Embedding: EmbeddingConfig{
			Provider:       "genai",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			TaskType:       "RETRIEVAL_DOCUMENT",
		},

		Pipeline: PipelineConfig{
			MaxCategories:    3,
			HistoryLimit:     20,
			HistoryWindow:    10,
			MaxResponseChars: 4000,
			HandlerTimeout:   "45s",
			RequestTimeout:   "120s",
			ArchiveTimeout:   "30s",
			RecallLimit:      3,
		},

		Store: StoreConfig{
			Backend:             "sqlite",
			DatabasePath:        "lifecoach.db",
			MaxHistory:          50,
			FirestoreCollection: "conversations",
			ArchiveCollection:   "conversation_memories",
		},

		Logging: LoggingConfig{
			Level:      "info",
			DebugMode:  false,
			JSONFormat: true,
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// LLM API key from environment (later entries win)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
		if c.Embedding.GenAIAPIKey == "" {
			c.Embedding.GenAIAPIKey = key
		}
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.Embedding.OllamaEndpoint = host
		if c.LLM.Provider == "ollama" {
			c.LLM.BaseURL = host
		}
	}

	if path := os.Getenv("LIFECOACH_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if backend := os.Getenv("LIFECOACH_STORE"); backend != "" {
		c.Store.Backend = backend
	}
	if project := os.Getenv("LIFECOACH_GCP_PROJECT"); project != "" {
		c.Store.GCPProject = project
	}
}

// DatabasePath resolves the SQLite path against the data directory.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Store.DatabasePath) || c.DataDir == "" {
		return c.Store.DatabasePath
	}
	return filepath.Join(c.DataDir, c.Store.DatabasePath)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 60*time.Second)
}

// GetHandlerTimeout returns the per-handler timeout. Zero disables it.
func (c *Config) GetHandlerTimeout() time.Duration {
	return parseDuration(c.Pipeline.HandlerTimeout, 0)
}

// GetRequestTimeout returns the per-request deadline. Zero disables it.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Pipeline.RequestTimeout, 0)
}

// GetArchiveTimeout returns the deadline for one background archive run.
func (c *Config) GetArchiveTimeout() time.Duration {
	return parseDuration(c.Pipeline.ArchiveTimeout, 30*time.Second)
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"gemini", "openai", "ollama"}

// ValidBackends lists all supported conversation store backends.
var ValidBackends = []string{"sqlite", "firestore", "memory"}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY or OPENAI_API_KEY)")
	}
	if !contains(ValidBackends, c.Store.Backend) {
		return fmt.Errorf("invalid store backend: %s (valid: %v)", c.Store.Backend, ValidBackends)
	}
	if c.Store.Backend == "firestore" && c.Store.GCPProject == "" {
		return fmt.Errorf("firestore backend requires store.gcp_project (or LIFECOACH_GCP_PROJECT)")
	}
	if c.Store.MaxHistory <= 0 {
		return fmt.Errorf("store.max_history must be positive, got %d", c.Store.MaxHistory)
	}
	if c.Pipeline.MaxCategories < 1 || c.Pipeline.MaxCategories > 3 {
		return fmt.Errorf("pipeline.max_categories must be between 1 and 3, got %d", c.Pipeline.MaxCategories)
	}
	if c.Pipeline.MaxResponseChars < 100 {
		return fmt.Errorf("pipeline.max_response_chars too small: %d", c.Pipeline.MaxResponseChars)
	}
	return nil
}

package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"docqa/internal/models"
)

// LLMConfig configures the answer-generation backend.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// EmbeddingConfig configures the embedding backend.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // openai | ollama
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Type  string `yaml:"type"` // chromem | postgres
	Path  string `yaml:"path"` // chromem persistence dir, empty = in-memory
	DSN   string `yaml:"dsn"`  // postgres connection string
	Debug bool   `yaml:"debug"`
}

// RAGConfig holds the retrieval tunables.
type RAGConfig struct {
	ChunkSize     int `yaml:"chunk_size"`
	ChunkOverlap  int `yaml:"chunk_overlap"`
	TopK          int `yaml:"top_k"`
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	RAG       RAGConfig       `yaml:"rag"`
}

// LoadConfig reads a YAML config from path. A missing file yields the
// defaults instead of an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.LLM.Key == "" {
		cfg.LLM.Key = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "mistralai/mistral-7b-instruct"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.BaseURL == "" {
		if cfg.Embedding.Provider == "ollama" {
			cfg.Embedding.BaseURL = "http://localhost:11434"
		} else {
			cfg.Embedding.BaseURL = cfg.LLM.BaseURL
		}
	}
	if cfg.Embedding.Key == "" {
		cfg.Embedding.Key = cfg.LLM.Key
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = "chromem"
	}

	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = models.DefaultChunkSize
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = models.DefaultChunkOverlap
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = models.DefaultTopK
	}
	if cfg.RAG.MaxFileSizeMB == 0 {
		cfg.RAG.MaxFileSizeMB = models.DefaultMaxFileMB
	}
}

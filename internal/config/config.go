package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pdf-rag/internal/models"
)

// LLMConfig configures the model provider used for embeddings, image
// descriptions and answer completion.
type LLMConfig struct {
	Provider       string `yaml:"provider"` // openai, azure, ollama
	BaseURL        string `yaml:"base_url"`
	Key            string `yaml:"api_key"`
	APIVersion     string `yaml:"api_version"`
	ChatModel      string `yaml:"chat_model"`
	VisionModel    string `yaml:"vision_model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// VectorStoreConfig selects the vector store backend.
type VectorStoreConfig struct {
	Backend  string `yaml:"backend"` // chromem, postgres
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
	Compress bool   `yaml:"compress"`
	// 32 bytes; encrypts the in-memory snapshot file
	EncryptionKey string `yaml:"encryption_key"`
	Collection    string `yaml:"collection"`
	DSN           string `yaml:"dsn"`
	Driver        string `yaml:"driver"` // pgdriver, pq
	Debug         bool   `yaml:"debug"`
}

type RAGConfig struct {
	ChunkSize       int     `yaml:"chunk_size"`
	ChunkOverlap    int     `yaml:"chunk_overlap"`
	MinChunkSize    int     `yaml:"min_chunk_size"`
	TopK            int     `yaml:"top_k"`
	EmbeddingDim    int     `yaml:"embedding_dim"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
	VisionMaxTokens int     `yaml:"vision_max_tokens"`
	Reingest        string  `yaml:"reingest"` // append, replace
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	RAG         RAGConfig         `yaml:"rag"`
	Server      ServerConfig      `yaml:"server"`
	LogLevel    string            `yaml:"log_level"`
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultMinChunkSize = 50
	defaultTopK         = 5
	// text-embedding-3-large
	defaultEmbeddingDim = 3072

	ReingestAppend  = "append"
	ReingestReplace = "replace"
)

// Environment variables that override credentials from the YAML file.
const (
	EnvLLMKey      = "PDFRAG_LLM_API_KEY"
	EnvLLMBaseURL  = "PDFRAG_LLM_BASE_URL"
	EnvDatabaseDSN = "PDFRAG_DATABASE_DSN"
	EnvServerPort  = "PDFRAG_SERVER_PORT"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "openai",
			BaseURL:        "https://api.openai.com/v1",
			ChatModel:      "gpt-4o",
			VisionModel:    "gpt-4o",
			EmbeddingModel: "text-embedding-3-large",
		},
		VectorStore: VectorStoreConfig{
			Backend:    "chromem",
			Path:       "./chromemdb",
			Collection: models.CollectionName,
			Driver:     "pgdriver",
		},
		RAG: RAGConfig{
			ChunkSize:       defaultChunkSize,
			ChunkOverlap:    defaultChunkOverlap,
			MinChunkSize:    defaultMinChunkSize,
			TopK:            defaultTopK,
			EmbeddingDim:    defaultEmbeddingDim,
			Temperature:     0.3,
			MaxTokens:       800,
			VisionMaxTokens: 300,
			Reingest:        ReingestAppend,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 5000,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads the YAML file at path on top of the defaults. A missing
// file is not an error. A .env file in the working directory is loaded first
// so credentials can stay out of the YAML.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvLLMKey); v != "" {
		cfg.LLM.Key = v
	}
	if v := os.Getenv(EnvLLMBaseURL); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		cfg.VectorStore.DSN = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// applyDefaults fills zero values left by a partial YAML file. ChunkOverlap
// is left alone since zero overlap is valid.
func applyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.MinChunkSize == 0 {
		cfg.RAG.MinChunkSize = defaultMinChunkSize
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.EmbeddingDim == 0 {
		cfg.RAG.EmbeddingDim = defaultEmbeddingDim
	}
	if cfg.RAG.Reingest == "" {
		cfg.RAG.Reingest = ReingestAppend
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = models.CollectionName
	}
}

// Validate checks values that would otherwise fail deep inside a pipeline.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 || c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)",
			models.ErrInvalidChunkConfig, c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.RAG.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding_dim must be positive, got %d", c.RAG.EmbeddingDim)
	}
	switch c.RAG.Reingest {
	case ReingestAppend, ReingestReplace:
	default:
		return fmt.Errorf("unknown reingest policy %q", c.RAG.Reingest)
	}
	if k := c.VectorStore.EncryptionKey; k != "" && len(k) != 32 {
		return fmt.Errorf("encryption_key must be 32 bytes, got %d", len(k))
	}
	switch c.VectorStore.Backend {
	case "chromem", "postgres":
	default:
		return fmt.Errorf("unknown vector store backend %q", c.VectorStore.Backend)
	}
	return nil
}

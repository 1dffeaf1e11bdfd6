package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string          `mapstructure:"port"`
	OpenAIAPIKey string          `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKey string          `mapstructure:"GEMINI_API_KEY"`
	AI           AIConfig        `mapstructure:"ai"`
	Store        StoreConfig     `mapstructure:"store"`
	Ingest       IngestConfig    `mapstructure:"ingest"`
	Prices       PricesConfig    `mapstructure:"prices"`
	Retrieval    RetrievalConfig `mapstructure:"retrieval"`
}

type AIConfig struct {
	Provider       string `mapstructure:"provider"` // "openai" or "gemini"
	Mode           string `mapstructure:"mode"`     // "agent" or "chain"
	Endpoint       string `mapstructure:"endpoint"` // OpenAI-compatible base URL
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	MaxToolSteps   int    `mapstructure:"max_tool_steps"`
}

type StoreConfig struct {
	Path       string `mapstructure:"path"`
	Collection string `mapstructure:"collection"`
}

type IngestConfig struct {
	DocumentsDir string `mapstructure:"documents_dir"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
}

type PricesConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	BeginDate string `mapstructure:"begin_date"`
	ChartsDir string `mapstructure:"charts_dir"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

// LoadConfig reads the yaml config file and environment variables. A missing
// config file is not an error; the built-in defaults mirror the values the
// system shipped with.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.AutomaticEnv()
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8000")

	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.mode", "agent")
	v.SetDefault("ai.endpoint", "http://localhost:11434/v1")
	v.SetDefault("ai.model", "llama3.1:8b-instruct-q4_K_M")
	v.SetDefault("ai.embedding_model", "bge-large-en-v1.5")
	v.SetDefault("ai.max_tool_steps", 5)

	v.SetDefault("store.path", "data/chroma")
	v.SetDefault("store.collection", "agri_reports")

	v.SetDefault("ingest.documents_dir", "data/reports")
	v.SetDefault("ingest.chunk_size", 1000)
	v.SetDefault("ingest.chunk_overlap", 200)

	v.SetDefault("prices.base_url", "https://www.ec.europa.eu/agrifood/api/cereal/prices")
	v.SetDefault("prices.begin_date", "2020-01-01")
	v.SetDefault("prices.charts_dir", "data/charts")

	v.SetDefault("retrieval.top_k", 3)
}

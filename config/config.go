package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/dokupintar/dokubot-be/types"
)

type Config struct {
	Port      string `mapstructure:"port"`
	MongoURI  string `mapstructure:"MONGODB_URI"`
	Database  string `mapstructure:"database"`
	UploadDir string `mapstructure:"upload_dir"`
	TempDir   string `mapstructure:"temp_dir"`

	// AIBackend selects the chat model implementation: "openai" for any
	// OpenAI-compatible endpoint (including local servers), or "gemini".
	AIBackend     string   `mapstructure:"ai_backend"`
	AIEndpoint    string   `mapstructure:"ai_endpoint"`
	Model         string   `mapstructure:"model"`
	OpenAIAPIKey  string   `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKeys []string `mapstructure:"gemini_api_keys"`

	EmbeddingEndpoint  string `mapstructure:"embedding_endpoint"`
	EmbeddingModel     string `mapstructure:"embedding_model"`
	EmbeddingDimension int    `mapstructure:"embedding_dimension"`

	SearchAPIKey   string `mapstructure:"SEARCH_API_KEY"`
	SearchEngineID string `mapstructure:"search_engine_id"`

	Chunker   ChunkerConfig   `mapstructure:"chunker"`
	Index     IndexConfig     `mapstructure:"index"`
	Retriever RetrieverConfig `mapstructure:"retriever"`
}

type ChunkerConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
	Overlap   int `mapstructure:"overlap"`
	MinLength int `mapstructure:"min_length"`
}

type IndexConfig struct {
	MaxChunks int `mapstructure:"max_chunks"`
	BatchSize int `mapstructure:"batch_size"`
}

type RetrieverConfig struct {
	TopK             int      `mapstructure:"top_k"`
	FeeVocabulary    []string `mapstructure:"fee_vocabulary"`
	DomainKeywords   []string `mapstructure:"domain_keywords"`
	LocationTokens   []string `mapstructure:"location_tokens"`
	AmountQuestions  []string `mapstructure:"amount_questions"`
	MinRelevance     float64  `mapstructure:"min_relevance"`
	DedupBucketChars int      `mapstructure:"dedup_bucket_chars"`
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("MONGODB_URI")
	v.BindEnv("SEARCH_API_KEY")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.Database == "" {
		c.Database = "dokubot"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.Chunker.ChunkSize == 0 {
		c.Chunker = ChunkerConfig(types.DefaultChunkerConfig)
	}
	if c.Index.MaxChunks == 0 {
		c.Index = IndexConfig(types.DefaultIndexConfig)
	}
	if c.Retriever.TopK == 0 {
		c.Retriever.TopK = types.DefaultRetrieverConfig.TopK
	}
	if c.Retriever.FeeVocabulary == nil {
		c.Retriever.FeeVocabulary = types.DefaultRetrieverConfig.FeeVocabulary
	}
	if c.Retriever.DomainKeywords == nil {
		c.Retriever.DomainKeywords = types.DefaultRetrieverConfig.DomainKeywords
	}
	if c.Retriever.LocationTokens == nil {
		c.Retriever.LocationTokens = types.DefaultRetrieverConfig.LocationTokens
	}
	if c.Retriever.AmountQuestions == nil {
		c.Retriever.AmountQuestions = types.DefaultRetrieverConfig.AmountQuestions
	}
	if c.Retriever.MinRelevance == 0 {
		c.Retriever.MinRelevance = types.DefaultRetrieverConfig.MinRelevance
	}
	if c.Retriever.DedupBucketChars == 0 {
		c.Retriever.DedupBucketChars = types.DefaultRetrieverConfig.DedupBucketChars
	}
}

func (c *Config) ChunkerTypes() types.ChunkerConfig {
	return types.ChunkerConfig(c.Chunker)
}

func (c *Config) IndexTypes() types.IndexConfig {
	return types.IndexConfig(c.Index)
}

func (c *Config) RetrieverTypes() types.RetrieverConfig {
	return types.RetrieverConfig(c.Retriever)
}

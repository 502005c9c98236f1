package types

import "time"

// HTTPConfig holds shared HTTP settings used by clients of remote services.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries bounds retries on HTTP 429 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ReviewConfig holds settings for the document review pipeline.
type ReviewConfig struct {
	// Workers is the number of documents reviewed concurrently (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// LeadingParagraphs is how many non-empty paragraphs the classifier
	// treats as the document heading (default 15).
	LeadingParagraphs int `json:"leading_paragraphs" yaml:"leading_paragraphs" mapstructure:"leading_paragraphs"`

	// RuleSet is an optional YAML file replacing the built-in rule tables.
	RuleSet string `json:"ruleset,omitempty" yaml:"ruleset,omitempty" mapstructure:"ruleset"`

	// OutputDir receives reviewed documents with inline comments. Empty
	// disables reviewed output.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// EnableAI turns on reasoner validation and correction suggestions.
	EnableAI bool `json:"enable_ai" yaml:"enable_ai" mapstructure:"enable_ai"`
}

// CacheConfig configures the optional retrieval cache.
type CacheConfig struct {
	// RedisAddr enables the Redis cache when set (e.g. "localhost:6379").
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`

	// TTL is how long a cached search result stays valid (default 10m).
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// RetrievalConfig holds settings for the hybrid retrieval engine.
type RetrievalConfig struct {
	// TopK is the default number of passages returned by a search (default 10).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// ContextPassages is how many of the top passages are given to the
	// reasoner as context (default 5).
	ContextPassages int `json:"context_passages" yaml:"context_passages" mapstructure:"context_passages"`

	Cache CacheConfig `json:"cache" yaml:"cache" mapstructure:"cache"`
}

// KnowledgeBackend selects the vector store implementation.
type KnowledgeBackend string

const (
	KnowledgeSQLite   KnowledgeBackend = "sqlite"
	KnowledgePGVector KnowledgeBackend = "pgvector"
)

// KnowledgeConfig holds settings for the regulatory knowledge base.
type KnowledgeConfig struct {
	// Backend selects sqlite (default) or pgvector.
	Backend KnowledgeBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// KnowledgeDir is the base directory (contains corpus/ and index/).
	KnowledgeDir string `json:"knowledge_dir" yaml:"knowledge_dir" mapstructure:"knowledge_dir"`

	// DatabaseURL is the Postgres connection string for the pgvector backend.
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty" mapstructure:"database_url"`

	// Partitions names the independently queried subsets of the knowledge base.
	Partitions []string `json:"partitions" yaml:"partitions" mapstructure:"partitions"`
}

// Provider identifies a remote AI service.
type Provider string

const (
	ProviderNone   Provider = "none"
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
	ProviderGemini Provider = "gemini"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the backend: openai, claude, gemini, or none.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "llama2", "text-embedding-3-small").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the API endpoint, for OpenAI-compatible local servers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// RerankerConfig configures the pairwise relevance model endpoint.
type RerankerConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// URL is a TEI-compatible rerank endpoint. Empty disables re-ranking.
	URL string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups all settings for the compliance-review tool.
type Config struct {
	Review    ReviewConfig    `json:"review" yaml:"review" mapstructure:"review"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval" mapstructure:"retrieval"`
	Knowledge KnowledgeConfig `json:"knowledge" yaml:"knowledge" mapstructure:"knowledge"`
	Embedding AIConfig        `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	LLM       AIConfig        `json:"llm" yaml:"llm" mapstructure:"llm"`
	Reranker  RerankerConfig  `json:"reranker" yaml:"reranker" mapstructure:"reranker"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
}

// DefaultPartitions are the knowledge-base partitions used when none are configured.
var DefaultPartitions = []string{
	"adgm_regulations",
	"document_templates",
	"compliance_rules",
	"legal_precedents",
	"official_documents",
}

// DefaultConfig returns the settings used when no config file overrides them.
func DefaultConfig() Config {
	return Config{
		Review: ReviewConfig{
			Workers:           4,
			LeadingParagraphs: 15,
			OutputDir:         "output",
		},
		Retrieval: RetrievalConfig{
			TopK:            10,
			ContextPassages: 5,
			Cache:           CacheConfig{TTL: 10 * time.Minute},
		},
		Knowledge: KnowledgeConfig{
			Backend:      KnowledgeSQLite,
			KnowledgeDir: "knowledge",
			Partitions:   DefaultPartitions,
		},
		Embedding: AIConfig{
			Provider:   ProviderOpenAI,
			Model:      "text-embedding-3-small",
			MaxRetries: 3,
		},
		LLM: AIConfig{
			Provider:   ProviderNone,
			MaxRetries: 3,
		},
		Reranker: RerankerConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second},
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port            int              `json:"port"`
	ChatRateLimitMS int              `json:"chat_rate_limit_ms"`
	Database        DatabaseConfig   `json:"database"`
	LogConfig       logger.LogConfig `json:"log_config"`
	FileStore       FileStoreConfig  `json:"file_store"`
	AI              AIConfig         `json:"ai"`
	Pipeline        PipelineConfig   `json:"pipeline"`
	Jobs            JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	Model          string      `json:"model"`
	EmbedModel     string      `json:"embed_model"`
	EmbedDimension int         `json:"embed_dimension"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	Data           interface{} `json:"data"`
}

type PipelineConfig struct {
	Chunking  ChunkingConfig  `json:"chunking"`
	Retrieval RetrievalConfig `json:"retrieval"`
	Invoker   InvokerConfig   `json:"invoker"`
	Synthesis SynthesisConfig `json:"synthesis"`
	Template  TemplateConfig  `json:"template"`
}

type ChunkingConfig struct {
	ChunkSize         int      `json:"chunk_size"`
	ChunkOverlap      int      `json:"chunk_overlap"`
	MinChunkSize      int      `json:"min_chunk_size"`
	BoundaryTolerance int      `json:"boundary_tolerance"`
	QualityFloor      float64  `json:"quality_floor"`
	DomainKeywords    []string `json:"domain_keywords"`
}

type RetrievalConfig struct {
	QueryVariations  int     `json:"query_variations"`
	PerQueryTopK     int     `json:"per_query_top_k"`
	FinalCount       int     `json:"final_count"`
	SimilarityWeight float64 `json:"similarity_weight"`
	QualityWeight    float64 `json:"quality_weight"`
	ImportanceWeight float64 `json:"importance_weight"`
	TierCritical     float64 `json:"tier_critical"`
	TierHigh         float64 `json:"tier_high"`
	TierAcceptable   float64 `json:"tier_acceptable"`
}

type InvokerConfig struct {
	MaxBatchSize       int `json:"max_batch_size"`
	MaxConcurrent      int `json:"max_concurrent"`
	MinDelayMS         int `json:"min_delay_ms"`
	MaxAttempts        int `json:"max_attempts"`
	BaseBackoffMS      int `json:"base_backoff_ms"`
	MaxBackoffMS       int `json:"max_backoff_ms"`
	CacheSize          int `json:"cache_size"`
	CallTimeoutSeconds int `json:"call_timeout_seconds"`
}

type SynthesisConfig struct {
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	PreviewChars int     `json:"preview_chars"`
}

type TemplateConfig struct {
	QuestionsPerField  int `json:"questions_per_field"`
	SignatureRunLength int `json:"signature_run_length"`
}

type JobsConfig struct {
	VectorCleanupCron   string `json:"vector_cleanup_cron"`
	EmbedCacheCron      string `json:"embed_cache_cron"`
	EmbedCacheKeepDays  int    `json:"embed_cache_keep_days"`
	EmbedCacheLRUSize   int    `json:"embed_cache_lru_size"`
	EmbedCacheTTLHours  int    `json:"embed_cache_ttl_hours"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = cfg.AI.Model
	}
	if cfg.AI.EmbedDimension == 0 {
		cfg.AI.EmbedDimension = 768
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	applyPipelineDefaults(&cfg.Pipeline)
	if err := validatePipeline(&cfg.Pipeline); err != nil {
		return nil, err
	}
	if cfg.Jobs.VectorCleanupCron == "" {
		cfg.Jobs.VectorCleanupCron = "30 3 * * *"
	}
	if cfg.Jobs.EmbedCacheCron == "" {
		cfg.Jobs.EmbedCacheCron = "0 4 * * *"
	}
	if cfg.Jobs.EmbedCacheKeepDays == 0 {
		cfg.Jobs.EmbedCacheKeepDays = 30
	}
	if cfg.Jobs.EmbedCacheLRUSize == 0 {
		cfg.Jobs.EmbedCacheLRUSize = 10000
	}
	if cfg.Jobs.EmbedCacheTTLHours == 0 {
		cfg.Jobs.EmbedCacheTTLHours = 2
	}
	return &cfg, nil
}

func applyPipelineDefaults(p *PipelineConfig) {
	c := &p.Chunking
	if c.ChunkSize == 0 {
		c.ChunkSize = 1500
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 400
	}
	if c.MinChunkSize == 0 {
		c.MinChunkSize = 300
	}
	if c.BoundaryTolerance == 0 {
		c.BoundaryTolerance = 200
	}
	if c.QualityFloor == 0 {
		c.QualityFloor = 0.30
	}

	r := &p.Retrieval
	if r.QueryVariations == 0 {
		r.QueryVariations = 3
	}
	if r.PerQueryTopK == 0 {
		r.PerQueryTopK = 15
	}
	if r.FinalCount == 0 {
		r.FinalCount = 10
	}
	if r.SimilarityWeight == 0 {
		r.SimilarityWeight = 0.70
	}
	if r.QualityWeight == 0 {
		r.QualityWeight = 0.15
	}
	if r.ImportanceWeight == 0 {
		r.ImportanceWeight = 0.15
	}
	if r.TierCritical == 0 {
		r.TierCritical = 0.80
	}
	if r.TierHigh == 0 {
		r.TierHigh = 0.70
	}
	if r.TierAcceptable == 0 {
		r.TierAcceptable = 0.55
	}

	i := &p.Invoker
	if i.MaxBatchSize == 0 {
		i.MaxBatchSize = 5
	}
	if i.MaxConcurrent == 0 {
		i.MaxConcurrent = 4
	}
	if i.MinDelayMS == 0 {
		i.MinDelayMS = 500
	}
	if i.MaxAttempts == 0 {
		i.MaxAttempts = 4
	}
	if i.BaseBackoffMS == 0 {
		i.BaseBackoffMS = 1000
	}
	if i.MaxBackoffMS == 0 {
		i.MaxBackoffMS = 30000
	}
	if i.CacheSize == 0 {
		i.CacheSize = 4096
	}
	if i.CallTimeoutSeconds == 0 {
		i.CallTimeoutSeconds = 30
	}

	s := &p.Synthesis
	if s.Temperature == 0 {
		s.Temperature = 0.02
	}
	if s.MaxTokens == 0 {
		s.MaxTokens = 2500
	}
	if s.PreviewChars == 0 {
		s.PreviewChars = 200
	}

	t := &p.Template
	if t.QuestionsPerField == 0 {
		t.QuestionsPerField = 3
	}
	if t.SignatureRunLength == 0 {
		t.SignatureRunLength = 12
	}
}

func validatePipeline(p *PipelineConfig) error {
	c := p.Chunking
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("pipeline.chunking: chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.MinChunkSize > c.ChunkSize {
		return fmt.Errorf("pipeline.chunking: min_chunk_size (%d) must not exceed chunk_size (%d)", c.MinChunkSize, c.ChunkSize)
	}
	r := p.Retrieval
	if !(r.TierCritical > r.TierHigh && r.TierHigh > r.TierAcceptable) {
		return fmt.Errorf("pipeline.retrieval: confidence tiers must be strictly ordered, got critical=%v high=%v acceptable=%v",
			r.TierCritical, r.TierHigh, r.TierAcceptable)
	}
	if r.SimilarityWeight <= 0 {
		return fmt.Errorf("pipeline.retrieval: similarity_weight must be positive")
	}
	return nil
}

// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Pipeline      PipelineConfig      `yaml:"pipeline" mapstructure:"pipeline"`
	Assembler     AssemblerConfig     `yaml:"assembler" mapstructure:"assembler"`
	Quality       QualityConfig       `yaml:"quality" mapstructure:"quality"`
	Editor        EditorConfig        `yaml:"editor" mapstructure:"editor"`
	Normalizer    NormalizerConfig    `yaml:"normalizer" mapstructure:"normalizer"`
	Archive       ArchiveConfig       `yaml:"archive" mapstructure:"archive"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate" mapstructure:"auto_migrate"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
	// LoreTTL 设定集条目缓存时间
	LoreTTL time.Duration `yaml:"lore_ttl" mapstructure:"lore_ttl"`
	// StateTTL 当前状态快照缓存时间
	StateTTL time.Duration `yaml:"state_ttl" mapstructure:"state_ttl"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	// Tiers 模型档位（1 最便宜，3 最贵）
	Tiers []TierConfig `yaml:"tiers" mapstructure:"tiers"`
	// Fallback 档位不可用或调用失败时使用的固定兜底
	Fallback FallbackConfig `yaml:"fallback" mapstructure:"fallback"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	// Kind 接入方式：openai（OpenAI 兼容接口）或 gemini
	Kind      string        `yaml:"kind" mapstructure:"kind"`
	APIKey    string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Model     string        `yaml:"model" mapstructure:"model"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// TierConfig 模型档位配置，价格单位为美元 / 百万 token
type TierConfig struct {
	Level           int     `yaml:"level" mapstructure:"level"`
	Provider        string  `yaml:"provider" mapstructure:"provider"`
	Model           string  `yaml:"model" mapstructure:"model"`
	InputPricePerM  float64 `yaml:"input_price_per_m" mapstructure:"input_price_per_m"`
	OutputPricePerM float64 `yaml:"output_price_per_m" mapstructure:"output_price_per_m"`
}

// FallbackConfig 兜底提供商
type FallbackConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Model    string `yaml:"model" mapstructure:"model"`
}

// Tier 按档位查找配置
func (c LLMConfig) Tier(level int) (TierConfig, bool) {
	for _, t := range c.Tiers {
		if t.Level == level {
			return t, true
		}
	}
	return TierConfig{}, false
}

// ProviderUsable 提供商已配置且带有 API Key
func (c LLMConfig) ProviderUsable(name string) bool {
	p, ok := c.Providers[strings.TrimSpace(name)]
	if !ok {
		return false
	}
	return strings.TrimSpace(p.APIKey) != ""
}

// AnyProviderUsable 至少存在一个可用提供商
func (c LLMConfig) AnyProviderUsable() bool {
	for name := range c.Providers {
		if c.ProviderUsable(name) {
			return true
		}
	}
	return false
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
	// Workers 任务消费协程数
	Workers int `yaml:"workers" mapstructure:"workers"`
	// JobStatusTTL 任务状态保留时间
	JobStatusTTL time.Duration `yaml:"job_status_ttl" mapstructure:"job_status_ttl"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	MaxLen              int           `yaml:"max_len" mapstructure:"max_len"`
	ConsumerGroupPrefix string        `yaml:"consumer_group_prefix" mapstructure:"consumer_group_prefix"`
	BlockTimeout        time.Duration `yaml:"block_timeout" mapstructure:"block_timeout"`
	ClaimInterval       time.Duration `yaml:"claim_interval" mapstructure:"claim_interval"`
	RetryLimit          int           `yaml:"retry_limit" mapstructure:"retry_limit"`
}

// PipelineConfig 生成流水线配置
type PipelineConfig struct {
	MinOutlineChars           int           `yaml:"min_outline_chars" mapstructure:"min_outline_chars"`
	LengthCeiling             int           `yaml:"length_ceiling" mapstructure:"length_ceiling"`
	LengthFloor               int           `yaml:"length_floor" mapstructure:"length_floor"`
	EarlyInstallmentThreshold int           `yaml:"early_installment_threshold" mapstructure:"early_installment_threshold"`
	Timeout                   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	SingleMaxTokens           int           `yaml:"single_max_tokens" mapstructure:"single_max_tokens"`
	MinPhaseMaxTokens         int           `yaml:"min_phase_max_tokens" mapstructure:"min_phase_max_tokens"`
	Temperature               float64       `yaml:"temperature" mapstructure:"temperature"`
	ChunkRatios               []float64     `yaml:"chunk_ratios" mapstructure:"chunk_ratios"`
	BeatTailChars             int           `yaml:"beat_tail_chars" mapstructure:"beat_tail_chars"`
	ChunkTailChars            int           `yaml:"chunk_tail_chars" mapstructure:"chunk_tail_chars"`
	// MinBeats 可用节拍的下限，少于此数降级为分段生成
	MinBeats                  int           `yaml:"min_beats" mapstructure:"min_beats"`
	// PlanMinBeats 规划提示词要求的节拍数下限
	PlanMinBeats              int           `yaml:"plan_min_beats" mapstructure:"plan_min_beats"`
	MaxBeats                  int           `yaml:"max_beats" mapstructure:"max_beats"`
	PlanTemperature           float64       `yaml:"plan_temperature" mapstructure:"plan_temperature"`
	PlanMaxTokens             int           `yaml:"plan_max_tokens" mapstructure:"plan_max_tokens"`
}

// AssemblerConfig 上下文组装配置
type AssemblerConfig struct {
	PrevTailChars            int      `yaml:"prev_tail_chars" mapstructure:"prev_tail_chars"`
	LoreBudgetChars          int      `yaml:"lore_budget_chars" mapstructure:"lore_budget_chars"`
	MaxLoreSections          int      `yaml:"max_lore_sections" mapstructure:"max_lore_sections"`
	MaxCharacters            int      `yaml:"max_characters" mapstructure:"max_characters"`
	StyleWindow              int      `yaml:"style_window" mapstructure:"style_window"`
	StyleSamples             int      `yaml:"style_samples" mapstructure:"style_samples"`
	StyleMinChars            int      `yaml:"style_min_chars" mapstructure:"style_min_chars"`
	StyleMaxChars            int      `yaml:"style_max_chars" mapstructure:"style_max_chars"`
	SensoryWords             []string `yaml:"sensory_words" mapstructure:"sensory_words"`
	VoiceWindow              int      `yaml:"voice_window" mapstructure:"voice_window"`
	VoiceSamplesPerCharacter int      `yaml:"voice_samples_per_character" mapstructure:"voice_samples_per_character"`
}

// QualityConfig 质量闸门配置
type QualityConfig struct {
	BanList          []string `yaml:"ban_list" mapstructure:"ban_list"`
	EarlyBanList     []string `yaml:"early_ban_list" mapstructure:"early_ban_list"`
	RetryAcceptRatio float64  `yaml:"retry_accept_ratio" mapstructure:"retry_accept_ratio"`
}

// EditorConfig 段落选择性编辑配置
type EditorConfig struct {
	Enabled            bool    `yaml:"enabled" mapstructure:"enabled"`
	Tier               int     `yaml:"tier" mapstructure:"tier"`
	MinParagraphChars  int     `yaml:"min_paragraph_chars" mapstructure:"min_paragraph_chars"`
	MinParagraphs      int     `yaml:"min_paragraphs" mapstructure:"min_paragraphs"`
	ScoreThreshold     int     `yaml:"score_threshold" mapstructure:"score_threshold"`
	MaxRewrites        int     `yaml:"max_rewrites" mapstructure:"max_rewrites"`
	AcceptRatio        float64 `yaml:"accept_ratio" mapstructure:"accept_ratio"`
	MaxGrowthRatio     float64 `yaml:"max_growth_ratio" mapstructure:"max_growth_ratio"`
	ScoreTemperature   float64 `yaml:"score_temperature" mapstructure:"score_temperature"`
	RewriteTemperature float64 `yaml:"rewrite_temperature" mapstructure:"rewrite_temperature"`
	ScoreMaxTokens     int     `yaml:"score_max_tokens" mapstructure:"score_max_tokens"`
	RewriteMaxTokens   int     `yaml:"rewrite_max_tokens" mapstructure:"rewrite_max_tokens"`
}

// NormalizerConfig 规范化配置
type NormalizerConfig struct {
	// TablesPath 校正表 YAML 路径，为空时使用内置表
	TablesPath string `yaml:"tables_path" mapstructure:"tables_path"`
}

// ArchiveConfig 分集存档与设定集存储配置
type ArchiveConfig struct {
	// Backend postgres 或 file
	Backend string `yaml:"backend" mapstructure:"backend"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
	LoreDir string `yaml:"lore_dir" mapstructure:"lore_dir"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// Validate 校验配置的一致性
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.MinOutlineChars <= 0 {
		return fmt.Errorf("pipeline.min_outline_chars must be positive")
	}
	if p.LengthCeiling <= 0 {
		return fmt.Errorf("pipeline.length_ceiling must be positive")
	}
	if p.LengthFloor < 0 || p.LengthFloor > p.LengthCeiling {
		return fmt.Errorf("pipeline.length_floor must be within [0, length_ceiling]")
	}
	if len(p.ChunkRatios) != 3 {
		return fmt.Errorf("pipeline.chunk_ratios must have exactly 3 entries")
	}
	var sum float64
	for _, r := range p.ChunkRatios {
		if r <= 0 {
			return fmt.Errorf("pipeline.chunk_ratios must be positive")
		}
		sum += r
	}
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("pipeline.chunk_ratios must sum to 1, got %.2f", sum)
	}
	if p.MinBeats <= 0 || p.MaxBeats < p.MinBeats {
		return fmt.Errorf("pipeline beat bounds invalid: min=%d max=%d", p.MinBeats, p.MaxBeats)
	}
	if p.PlanMinBeats != 0 && (p.PlanMinBeats < p.MinBeats || p.PlanMinBeats > p.MaxBeats) {
		return fmt.Errorf("pipeline.plan_min_beats must be within %d..%d, got %d", p.MinBeats, p.MaxBeats, p.PlanMinBeats)
	}
	for _, t := range c.LLM.Tiers {
		if t.Level < 1 || t.Level > 3 {
			return fmt.Errorf("llm.tiers level must be 1..3, got %d", t.Level)
		}
	}
	switch c.Archive.Backend {
	case "postgres", "file":
	default:
		return fmt.Errorf("archive.backend must be postgres or file, got %q", c.Archive.Backend)
	}
	return nil
}

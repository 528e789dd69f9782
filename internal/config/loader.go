// Package config 提供配置加载功能
package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultPath 默认配置文件路径，可用 CONFIG_PATH 覆盖
const DefaultPath = "configs/config.yaml"

// ${NAME} 或 ${NAME:default}
var envPattern = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load 依次合并基础配置、<name>.<APP_ENV>.yaml 与环境变量，最后校验
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path, false)
}

// LoadFile optional 为 true 时基础文件缺失只使用默认值
func LoadFile(path string, optional bool) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	overlay := strings.TrimSuffix(path, ".yaml") + "." + env + ".yaml"
	for _, f := range []struct {
		path     string
		optional bool
	}{{path, optional}, {overlay, true}} {
		if err := mergeFile(v, f.path, f.optional); err != nil {
			return nil, err
		}
	}

	// SERVER_HTTP_PORT 覆盖 server.http.port
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// mergeFile 展开占位符后合并进 viper
func mergeFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.MergeConfig(bytes.NewReader(expandEnv(content))); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// expandEnv 替换 ${NAME:default}；未设置且无默认值的占位符原样保留
func expandEnv(content []byte) []byte {
	return envPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		m := envPattern.FindSubmatchIndex(match)
		name := string(match[m[2]:m[3]])
		if val, ok := os.LookupEnv(name); ok {
			return []byte(val)
		}
		if m[4] >= 0 {
			return match[m[4]:m[5]]
		}
		return match
	})
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "serial-novel-engine")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "180s")
	v.SetDefault("server.http.idle_timeout", "120s")

	// 数据库默认值
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "serial_novel")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 50)
	v.SetDefault("database.postgres.max_idle_conns", 10)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")
	v.SetDefault("database.postgres.auto_migrate", false)

	// Redis 默认值
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 50)
	v.SetDefault("cache.redis.min_idle_conns", 5)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.lore_ttl", "10m")
	v.SetDefault("cache.state_ttl", "1m")

	// LLM 默认值：档位与价格（美元 / 百万 token）
	v.SetDefault("llm.default_provider", "gemini")
	v.SetDefault("llm.tiers", []map[string]any{
		{"level": 1, "provider": "gemini", "model": "gemini-2.0-flash", "input_price_per_m": 0.10, "output_price_per_m": 0.40},
		{"level": 2, "provider": "claude", "model": "claude-3-5-sonnet-latest", "input_price_per_m": 3.00, "output_price_per_m": 15.00},
		{"level": 3, "provider": "claude", "model": "claude-3-opus-latest", "input_price_per_m": 15.00, "output_price_per_m": 75.00},
	})
	v.SetDefault("llm.fallback.provider", "gemini")
	v.SetDefault("llm.fallback.model", "gemini-2.0-flash")

	// 消息队列默认值
	v.SetDefault("messaging.redis_stream.max_len", 10000)
	v.SetDefault("messaging.redis_stream.consumer_group_prefix", "serial-novel")
	v.SetDefault("messaging.redis_stream.block_timeout", "5s")
	v.SetDefault("messaging.redis_stream.claim_interval", "30s")
	v.SetDefault("messaging.redis_stream.retry_limit", 3)
	v.SetDefault("messaging.workers", 2)
	v.SetDefault("messaging.job_status_ttl", "72h")

	// 流水线默认值
	v.SetDefault("pipeline.min_outline_chars", 100)
	v.SetDefault("pipeline.length_ceiling", 5500)
	v.SetDefault("pipeline.length_floor", 3000)
	v.SetDefault("pipeline.early_installment_threshold", 30)
	v.SetDefault("pipeline.timeout", "120s")
	v.SetDefault("pipeline.single_max_tokens", 12000)
	v.SetDefault("pipeline.min_phase_max_tokens", 1024)
	v.SetDefault("pipeline.temperature", 0.8)
	v.SetDefault("pipeline.chunk_ratios", []float64{0.40, 0.45, 0.15})
	v.SetDefault("pipeline.beat_tail_chars", 800)
	v.SetDefault("pipeline.chunk_tail_chars", 1500)
	v.SetDefault("pipeline.min_beats", 3)
	v.SetDefault("pipeline.plan_min_beats", 8)
	v.SetDefault("pipeline.max_beats", 12)
	v.SetDefault("pipeline.plan_temperature", 0.5)
	v.SetDefault("pipeline.plan_max_tokens", 2000)

	// 上下文组装默认值
	v.SetDefault("assembler.prev_tail_chars", 2000)
	v.SetDefault("assembler.lore_budget_chars", 1500)
	v.SetDefault("assembler.max_lore_sections", 5)
	v.SetDefault("assembler.max_characters", 8)
	v.SetDefault("assembler.style_window", 5)
	v.SetDefault("assembler.style_samples", 6)
	v.SetDefault("assembler.style_min_chars", 20)
	v.SetDefault("assembler.style_max_chars", 120)
	v.SetDefault("assembler.sensory_words", []string{
		"냄새", "향", "소리", "바람", "차가운", "뜨거운", "빛", "그림자", "비린", "축축", "서늘", "온기",
	})
	v.SetDefault("assembler.voice_window", 10)
	v.SetDefault("assembler.voice_samples_per_character", 3)

	// 质量闸门默认值
	v.SetDefault("quality.ban_list", []string{
		"띠링", "조건이 충족되었습니다", "상태창", "아메리카노", "오케이", "팩트 체크",
	})
	v.SetDefault("quality.early_ban_list", []string{"술", "주점", "소흥주", "백주", "해장국"})
	v.SetDefault("quality.retry_accept_ratio", 0.5)

	// 段落编辑默认值
	v.SetDefault("editor.enabled", true)
	v.SetDefault("editor.tier", 1)
	v.SetDefault("editor.min_paragraph_chars", 20)
	v.SetDefault("editor.min_paragraphs", 3)
	v.SetDefault("editor.score_threshold", 2)
	v.SetDefault("editor.max_rewrites", 5)
	v.SetDefault("editor.accept_ratio", 0.5)
	v.SetDefault("editor.max_growth_ratio", 1.5)
	v.SetDefault("editor.score_temperature", 0.3)
	v.SetDefault("editor.rewrite_temperature", 0.7)
	v.SetDefault("editor.score_max_tokens", 2000)
	v.SetDefault("editor.rewrite_max_tokens", 1500)

	// 存档默认值
	v.SetDefault("archive.backend", "postgres")
	v.SetDefault("archive.dir", "data/episodes")
	v.SetDefault("archive.lore_dir", "data/lore")

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_minute", 20)
}

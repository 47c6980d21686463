package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/houzhh15/meetassist/cmd/server/internal/simhash"
)

// Config 统一配置结构
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Inference InferenceConfig `yaml:"inference"`
	Limiter   LimiterConfig   `yaml:"limiter"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Assistant AssistantConfig `yaml:"assistant"`
	Audit     AuditConfig     `yaml:"audit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Env  string `yaml:"env"` // dev, staging, production
	Port string `yaml:"port"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	File   string `yaml:"file"`
}

// InferenceConfig 推理服务配置
type InferenceConfig struct {
	WhisperURL     string        `yaml:"whisper_url"`
	WhisperModel   string        `yaml:"whisper_model"`
	NLPURL         string        `yaml:"nlp_url"`
	Timeout        time.Duration `yaml:"timeout"`
	HealthInterval time.Duration `yaml:"health_interval"`
	FailThreshold  int           `yaml:"fail_threshold"`
}

// LimiterConfig 推理并发限制
type LimiterConfig struct {
	MaxConcurrent  int           `yaml:"max_concurrent"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

// DedupConfig 行动项去重配置，SimhashDistance 为 0 时仅做精确匹配
// NearDuplicates 开启且未指定距离时使用 simhash.DefaultDistance
type DedupConfig struct {
	NearDuplicates  bool `yaml:"near_duplicates"`
	SimhashDistance int  `yaml:"simhash_distance"`
}

// AssistantConfig 助手命令配置
type AssistantConfig struct {
	ContextSegments int `yaml:"context_segments"`
}

// AuditConfig 审计日志配置
type AuditConfig struct {
	Path string `yaml:"path"`
}

// GlobalConfig 全局配置实例
var GlobalConfig *Config

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Env: "dev", Port: "8000"},
		Log:    LogConfig{Level: "info", Format: "console"},
		Inference: InferenceConfig{
			WhisperURL:     "http://localhost:8082",
			WhisperModel:   "ggml-base",
			NLPURL:         "http://localhost:8090",
			Timeout:        30 * time.Second,
			HealthInterval: time.Minute,
			FailThreshold:  3,
		},
		Limiter: LimiterConfig{
			MaxConcurrent:  4,
			AcquireTimeout: 5 * time.Second,
		},
		Assistant: AssistantConfig{ContextSegments: 20},
		Audit:     AuditConfig{Path: "./audit_logs/assistant.log"},
	}
}

// LoadConfig 加载配置：默认值 -> YAML 文件（MEETASSIST_CONFIG）-> 环境变量
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("MEETASSIST_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.Dedup.NearDuplicates && cfg.Dedup.SimhashDistance == 0 {
		cfg.Dedup.SimhashDistance = simhash.DefaultDistance
	}

	GlobalConfig = cfg
	return cfg, nil
}

// mergeFile 用 YAML 文件中出现的字段覆盖当前配置
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Env, "ENV")
	setString(&c.Server.Port, "PORT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Log.File, "LOG_FILE")
	setString(&c.Inference.WhisperURL, "WHISPER_URL")
	setString(&c.Inference.WhisperModel, "WHISPER_MODEL")
	setString(&c.Inference.NLPURL, "NLP_URL")
	setString(&c.Audit.Path, "AUDIT_LOG_PATH")

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"INFERENCE_TIMEOUT", &c.Inference.Timeout},
		{"HEALTH_CHECK_INTERVAL", &c.Inference.HealthInterval},
		{"LIMITER_ACQUIRE_TIMEOUT", &c.Limiter.AcquireTimeout},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.key); err != nil {
			return err
		}
	}

	if value := os.Getenv("ACTION_ITEM_NEAR_DUPLICATES"); value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid ACTION_ITEM_NEAR_DUPLICATES: %w", err)
		}
		c.Dedup.NearDuplicates = b
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"HEALTH_FAIL_THRESHOLD", &c.Inference.FailThreshold},
		{"INFERENCE_MAX_CONCURRENT", &c.Limiter.MaxConcurrent},
		{"ACTION_ITEM_SIMHASH_DISTANCE", &c.Dedup.SimhashDistance},
		{"ASSISTANT_CONTEXT_SEGMENTS", &c.Assistant.ContextSegments},
	}
	for _, i := range ints {
		if err := setInt(i.dst, i.key); err != nil {
			return err
		}
	}
	return nil
}

// ValidateConfig 验证配置的有效性
func ValidateConfig(cfg *Config) error {
	var errors []string

	// 1. 端口验证
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid PORT value: %s (must be 1-65535)", cfg.Server.Port))
	}

	// 2. 日志级别验证
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %s (must be: debug, info, warn, error)", cfg.Log.Level))
	}

	// 3. 日志格式验证
	validLogFormats := map[string]bool{"console": true, "json": true}
	if !validLogFormats[cfg.Log.Format] {
		errors = append(errors, fmt.Sprintf("invalid LOG_FORMAT: %s (must be: console, json)", cfg.Log.Format))
	}

	// 4. 环境验证
	validEnvs := map[string]bool{"dev": true, "development": true, "staging": true, "production": true}
	if !validEnvs[cfg.Server.Env] {
		errors = append(errors, fmt.Sprintf("invalid ENV: %s (must be: dev, development, staging, production)", cfg.Server.Env))
	}

	// 5. 推理服务
	if cfg.Inference.NLPURL == "" {
		errors = append(errors, "NLP_URL is required")
	}
	if cfg.Inference.WhisperURL == "" {
		errors = append(errors, "WHISPER_URL is required")
	}
	if cfg.Inference.Timeout <= 0 {
		errors = append(errors, "INFERENCE_TIMEOUT must be positive")
	}
	if cfg.Inference.HealthInterval <= 0 {
		errors = append(errors, "HEALTH_CHECK_INTERVAL must be positive")
	}
	if cfg.Inference.FailThreshold < 1 {
		errors = append(errors, "HEALTH_FAIL_THRESHOLD must be at least 1")
	}

	// 6. 并发与去重
	if cfg.Limiter.MaxConcurrent < 1 {
		errors = append(errors, "INFERENCE_MAX_CONCURRENT must be at least 1")
	}
	if cfg.Limiter.AcquireTimeout <= 0 {
		errors = append(errors, "LIMITER_ACQUIRE_TIMEOUT must be positive")
	}
	if cfg.Dedup.SimhashDistance < 0 || cfg.Dedup.SimhashDistance > 64 {
		errors = append(errors, fmt.Sprintf("invalid ACTION_ITEM_SIMHASH_DISTANCE: %d (must be 0-64)", cfg.Dedup.SimhashDistance))
	}
	if cfg.Assistant.ContextSegments < 1 {
		errors = append(errors, "ASSISTANT_CONTEXT_SEGMENTS must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsProduction 判断是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetServerAddr 获取服务器监听地址
func (c *Config) GetServerAddr() string {
	return ":" + c.Server.Port
}

// PrintConfig 打印配置摘要
func (c *Config) PrintConfig() string {
	return fmt.Sprintf(`Configuration Loaded:
  Environment: %s
  Server Port: %s
  Logging:
    - Level: %s
    - Format: %s
    - File: %s
  Inference:
    - Whisper: %s (%s)
    - NLP: %s
    - Timeout: %s
    - Health: every %s, threshold %d
  Limiter: %d concurrent, acquire timeout %s
  Dedup simhash distance: %d
  Assistant context segments: %d
  Audit log: %s`,
		c.Server.Env,
		c.Server.Port,
		c.Log.Level,
		c.Log.Format,
		orNotSet(c.Log.File),
		c.Inference.WhisperURL,
		c.Inference.WhisperModel,
		c.Inference.NLPURL,
		c.Inference.Timeout,
		c.Inference.HealthInterval,
		c.Inference.FailThreshold,
		c.Limiter.MaxConcurrent,
		c.Limiter.AcquireTimeout,
		c.Dedup.SimhashDistance,
		c.Assistant.ContextSegments,
		c.Audit.Path,
	)
}

// 辅助函数

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func orNotSet(v string) string {
	if v == "" {
		return "<not set>"
	}
	return v
}

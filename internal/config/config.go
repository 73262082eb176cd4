package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration 评分配置无效
var ErrConfiguration = errors.New("评分配置无效")

// Config 应用程序配置
type Config struct {
	// OCR服务配置
	OCR OCRConfig `yaml:"ocr"`

	// Embedding服务配置
	Embedding EmbeddingConfig `yaml:"embedding"`

	// 外部数据文件配置
	Data DataConfig `yaml:"data"`

	// 评分策略配置
	Scoring ScoringConfig `yaml:"scoring"`

	// 日志配置
	Logger LoggerConfig `yaml:"logger"`

	// 上传文件大小上限（字节）
	MaxFileSize int64 `yaml:"max_file_size"`
}

// OCRConfig OCR服务配置结构（HTTP服务，tesseract-server兼容）
type OCRConfig struct {
	ServerURL      string `yaml:"server_url"`      // OCR服务器URL
	TimeoutSeconds int    `yaml:"timeout_seconds"` // 超时时间(秒)
}

// EmbeddingConfig Embedding服务配置（OpenAI兼容端点）
type EmbeddingConfig struct {
	APIKey            string `yaml:"api_key,omitempty"`
	Model             string `yaml:"model"`
	Dimensions        int    `yaml:"dimensions"`
	BaseURL           string `yaml:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"` // 0表示不限流
}

// DataConfig 外部数据文件路径，缺失时各自回退到内置数据
type DataConfig struct {
	SkillsTaxonomyPath string `yaml:"skills_taxonomy_path"` // 技能分类表(JSON)
	CueLexiconPath     string `yaml:"cue_lexicon_path"`     // 提示词词表(JSON)
}

// SimilarityThresholds 相似度门限
type SimilarityThresholds struct {
	RequiredHit  float64 `yaml:"required_hit"`  // 必备技能命中门限
	PreferredHit float64 `yaml:"preferred_hit"` // 优选技能命中门限
	WeakSupport  float64 `yaml:"weak_support"`  // 弱支撑下限
}

// ScoreWeights 总分加权
type ScoreWeights struct {
	Coverage   float64 `yaml:"coverage"`
	Experience float64 `yaml:"experience"`
	Education  float64 `yaml:"education"`
}

// ScoringConfig 评分策略配置，全部可覆盖
type ScoringConfig struct {
	SimilarityThresholds SimilarityThresholds `yaml:"similarity_thresholds"`
	Weights              ScoreWeights         `yaml:"weights"`
	SectionWeights       map[string]float64   `yaml:"section_weights"`
	RecencyYearsBoost    int                  `yaml:"recency_years_boost"` // 近期经历加分窗口(年)
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
}

// LoadConfig 从文件加载配置
// 未找到配置文件时回退到内置默认值，而不是报错
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
			filepath.Join(os.Getenv("HOME"), ".ats-analyzer", "config.yaml"),
		}
		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
		if configPath == "" {
			return DefaultConfig(), nil
		}
	}

	if _, err := os.Stat(configPath); err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 从环境变量覆盖（如果存在）
	if envKey := os.Getenv("ALIYUN_API_KEY"); envKey != "" {
		config.Embedding.APIKey = envKey
	}

	if err := config.Scoring.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate 校验评分策略配置
func (s *ScoringConfig) Validate() error {
	for name, v := range map[string]float64{
		"required_hit":  s.SimilarityThresholds.RequiredHit,
		"preferred_hit": s.SimilarityThresholds.PreferredHit,
		"weak_support":  s.SimilarityThresholds.WeakSupport,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: 门限 %s=%v 超出 [0,1]", ErrConfiguration, name, v)
		}
	}
	if s.SimilarityThresholds.WeakSupport > s.SimilarityThresholds.RequiredHit {
		return fmt.Errorf("%w: weak_support (%v) 不能高于 required_hit (%v)",
			ErrConfiguration, s.SimilarityThresholds.WeakSupport, s.SimilarityThresholds.RequiredHit)
	}
	sum := s.Weights.Coverage + s.Weights.Experience + s.Weights.Education
	if s.Weights.Coverage < 0 || s.Weights.Experience < 0 || s.Weights.Education < 0 {
		return fmt.Errorf("%w: 权重不能为负", ErrConfiguration)
	}
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("%w: 权重之和为 %v，应为 1.0", ErrConfiguration, sum)
	}
	if s.RecencyYearsBoost < 0 {
		return fmt.Errorf("%w: recency_years_boost 不能为负", ErrConfiguration)
	}
	return nil
}

// DefaultConfig 内置默认配置，配置文件缺失时使用
func DefaultConfig() *Config {
	config := &Config{}

	// OCR默认配置
	config.OCR.ServerURL = "http://localhost:8884"
	config.OCR.TimeoutSeconds = 60

	// Embedding默认配置
	config.Embedding.Model = "text-embedding-v3"
	config.Embedding.Dimensions = 1024
	config.Embedding.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	config.Embedding.RequestsPerMinute = 60
	if envKey := os.Getenv("ALIYUN_API_KEY"); envKey != "" {
		config.Embedding.APIKey = envKey
	}

	// 数据文件默认路径
	config.Data.SkillsTaxonomyPath = "data/skills_taxonomy.json"
	config.Data.CueLexiconPath = "data/cue_lexicon.json"

	// 评分策略默认值
	config.Scoring = ScoringConfig{
		SimilarityThresholds: SimilarityThresholds{
			RequiredHit:  0.75,
			PreferredHit: 0.75,
			WeakSupport:  0.65,
		},
		Weights: ScoreWeights{
			Coverage:   0.6,
			Experience: 0.3,
			Education:  0.1,
		},
		SectionWeights: map[string]float64{
			"experience": 1.0,
			"projects":   0.8,
			"skills":     0.4,
		},
		RecencyYearsBoost: 2,
	}

	// 日志默认配置
	config.Logger.Level = "info"
	config.Logger.Format = "pretty"
	config.Logger.TimeFormat = "2006-01-02 15:04:05"
	config.Logger.ReportCaller = false

	// 上传上限 10MB
	config.MaxFileSize = 10 * 1024 * 1024

	return config
}

package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Tracking   TrackingConfig   `yaml:"tracking" mapstructure:"tracking"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	ResearchModel string `yaml:"research_model" mapstructure:"research_model"`
	CleanupModel  string `yaml:"cleanup_model" mapstructure:"cleanup_model"`
	// TimeoutSecs bounds a single HTTP call; deep research runs long.
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ResearchConfig configures the research pipeline.
type ResearchConfig struct {
	OutputDir            string `yaml:"output_dir" mapstructure:"output_dir"`
	QuestionWorkers      int    `yaml:"question_workers" mapstructure:"question_workers"`
	CitationWorkers      int    `yaml:"citation_workers" mapstructure:"citation_workers"`
	MaxCitations         int    `yaml:"max_citations" mapstructure:"max_citations"`
	StaggerSecs          int    `yaml:"stagger_secs" mapstructure:"stagger_secs"`
	ResearchTimeoutSecs  int    `yaml:"research_timeout_secs" mapstructure:"research_timeout_secs"`
	CitationTimeoutSecs  int    `yaml:"citation_timeout_secs" mapstructure:"citation_timeout_secs"`
	PrecheckTimeoutSecs  int    `yaml:"precheck_timeout_secs" mapstructure:"precheck_timeout_secs"`
	ExecutiveSummaries   bool   `yaml:"executive_summaries" mapstructure:"executive_summaries"`
	// Cleaner selects the cleanup provider: "perplexity" or "anthropic".
	Cleaner string `yaml:"cleaner" mapstructure:"cleaner"`
}

// RetryConfig configures retry behavior for upstream API calls.
type RetryConfig struct {
	MaxRetries       int `yaml:"max_retries" mapstructure:"max_retries"`
	InitialDelaySecs int `yaml:"initial_delay_secs" mapstructure:"initial_delay_secs"`
	MaxDelaySecs     int `yaml:"max_delay_secs" mapstructure:"max_delay_secs"`
}

// TrackingConfig configures the project registry backend.
type TrackingConfig struct {
	// Backend is "json" or "sqlite".
	Backend string `yaml:"backend" mapstructure:"backend"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Stagger returns the dispatch spacing as a duration.
func (r ResearchConfig) Stagger() time.Duration {
	return time.Duration(r.StaggerSecs) * time.Second
}

// ResearchTimeout returns the per-question budget as a duration.
func (r ResearchConfig) ResearchTimeout() time.Duration {
	return time.Duration(r.ResearchTimeoutSecs) * time.Second
}

// CitationTimeout returns the per-citation budget as a duration.
func (r ResearchConfig) CitationTimeout() time.Duration {
	return time.Duration(r.CitationTimeoutSecs) * time.Second
}

// PrecheckTimeout returns the reachability probe budget as a duration.
func (r ResearchConfig) PrecheckTimeout() time.Duration {
	return time.Duration(r.PrecheckTimeoutSecs) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.research_model", "sonar-deep-research")
	v.SetDefault("perplexity.cleanup_model", "sonar-pro")
	v.SetDefault("perplexity.timeout_secs", 600)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("research.output_dir", ".")
	v.SetDefault("research.citation_workers", 4)
	v.SetDefault("research.max_citations", 50)
	v.SetDefault("research.stagger_secs", 2)
	v.SetDefault("research.research_timeout_secs", 600)
	v.SetDefault("research.citation_timeout_secs", 300)
	v.SetDefault("research.precheck_timeout_secs", 15)
	v.SetDefault("research.executive_summaries", true)
	v.SetDefault("research.cleaner", "perplexity")
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_delay_secs", 5)
	v.SetDefault("retry.max_delay_secs", 60)
	v.SetDefault("tracking.backend", "json")
	v.SetDefault("tracking.path", "research_projects.json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

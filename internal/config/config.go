package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "EPUB_TRANSLATOR"

// ProviderConfig 单个后端的配置
type ProviderConfig struct {
	Model          string            `mapstructure:"model"`
	BaseURL        string            `mapstructure:"base_url"`
	APIKey         string            `mapstructure:"api_key"`
	Temperature    float64           `mapstructure:"temperature"`
	MaxTokens      int               `mapstructure:"max_tokens"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`
	PerItem        bool              `mapstructure:"per_item"` // 每段文本单独请求
	Prefix         string            `mapstructure:"prefix"`   // 仅 raw
	Headers        map[string]string `mapstructure:"headers"`
}

// CacheConfig 翻译缓存配置
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // sqlite 文件，空表示内存
}

// Config 保存翻译器的所有配置
type Config struct {
	SourceLang          string  `mapstructure:"source_lang"`
	TargetLang          string  `mapstructure:"target_lang"`
	BatchSize           int     `mapstructure:"batch_size"`
	MaxRetries          int     `mapstructure:"max_retries"`
	Concurrency         int     `mapstructure:"concurrency"`
	AllOrNothing        bool    `mapstructure:"all_or_nothing"`
	Debug               bool    `mapstructure:"debug"`
	LogFormat           string  `mapstructure:"log_format"` // json 或 console
	RetryInitialDelayMS int     `mapstructure:"retry_initial_delay_ms"`
	RetryMaxDelayMS     int     `mapstructure:"retry_max_delay_ms"`
	RetryBackoffFactor  float64 `mapstructure:"retry_backoff_factor"`

	Provider               string                    `mapstructure:"provider"`
	Providers              map[string]ProviderConfig `mapstructure:"providers"`
	RequestsPerMinute      int                       `mapstructure:"requests_per_minute"`
	Cache                  CacheConfig               `mapstructure:"cache"`
	PredefinedTranslations string                    `mapstructure:"predefined_translations"`
	SkipTags               []string                  `mapstructure:"skip_tags"`
	StatsPath              string                    `mapstructure:"stats_path"`
}

// 各后端读取 API 密钥的通用环境变量
var apiKeyEnv = map[string]string{
	factory.TypeOpenAI: "OPENAI_API_KEY",
	factory.TypeDeepL:  "DEEPL_API_KEY",
}

// LoadDotEnv 加载 .env，文件不存在时忽略
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// Load 从文件加载配置；configPath 为空时在家目录与当前目录查找 .epub-translator.yaml
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".epub-translator")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return decode(v)
}

// Default 返回全部默认值，不读取文件与环境变量
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic("默认配置无法解析: " + err.Error())
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// 名称里可能带点号，逐个解析 providers
	cfg.Providers = make(map[string]ProviderConfig)
	for name := range v.GetStringMap("providers") {
		var pc ProviderConfig
		if err := v.UnmarshalKey("providers."+name, &pc); err != nil {
			return nil, fmt.Errorf("failed to decode provider %s: %w", name, err)
		}
		cfg.Providers[name] = pc
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := translation.DefaultConfig()
	v.SetDefault("source_lang", d.SourceLanguage)
	v.SetDefault("target_lang", d.TargetLanguage)
	v.SetDefault("batch_size", d.BatchSize)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("all_or_nothing", d.AllOrNothing)
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "console")
	v.SetDefault("retry_initial_delay_ms", d.InitialDelay.Milliseconds())
	v.SetDefault("retry_max_delay_ms", d.MaxDelay.Milliseconds())
	v.SetDefault("retry_backoff_factor", d.BackoffFactor)
	v.SetDefault("provider", factory.TypeOpenAI)
	v.SetDefault("requests_per_minute", 0)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "")
	v.SetDefault("predefined_translations", "")
	v.SetDefault("skip_tags", d.SkipTags)
	v.SetDefault("stats_path", "")

	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.base_url", "")
	v.SetDefault("providers.compat.model", "llama3")
	v.SetDefault("providers.compat.api_key", "")
	v.SetDefault("providers.compat.base_url", "http://localhost:11434/v1")
	v.SetDefault("providers.deepl.api_key", "")
	v.SetDefault("providers.libretranslate.base_url", "http://localhost:5000")
	v.SetDefault("providers.libretranslate.api_key", "")
}

// RunOptions 映射为流水线运行配置
func (c *Config) RunOptions() translation.Config {
	rc := translation.DefaultConfig()
	rc.SourceLanguage = c.SourceLang
	rc.TargetLanguage = c.TargetLang
	rc.BatchSize = c.BatchSize
	rc.MaxRetries = c.MaxRetries
	rc.Concurrency = c.Concurrency
	rc.AllOrNothing = c.AllOrNothing
	rc.Debug = c.Debug
	rc.InitialDelay = time.Duration(c.RetryInitialDelayMS) * time.Millisecond
	rc.MaxDelay = time.Duration(c.RetryMaxDelayMS) * time.Millisecond
	rc.BackoffFactor = c.RetryBackoffFactor
	if len(c.SkipTags) > 0 {
		rc.SkipTags = c.SkipTags
	}
	return rc
}

// ProviderOptions 映射为后端组装参数
func (c *Config) ProviderOptions() factory.Options {
	pc := c.Providers[c.Provider]

	cfg := providers.DefaultConfig()
	cfg.Model = pc.Model
	cfg.BaseURL = pc.BaseURL
	cfg.APIKey = pc.APIKey
	cfg.PerItem = pc.PerItem
	cfg.Prefix = pc.Prefix
	if pc.Temperature > 0 {
		cfg.Temperature = pc.Temperature
	}
	if pc.MaxTokens > 0 {
		cfg.MaxTokens = pc.MaxTokens
	}
	if pc.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(pc.TimeoutSeconds) * time.Second
	}
	for k, v := range pc.Headers {
		cfg.Headers[k] = v
	}
	if cfg.APIKey == "" {
		if env, ok := apiKeyEnv[c.Provider]; ok {
			cfg.APIKey = os.Getenv(env)
		}
	}

	return factory.Options{
		Provider:          c.Provider,
		Config:            cfg,
		RequestsPerMinute: c.RequestsPerMinute,
		PredefinedPath:    c.PredefinedTranslations,
		CacheEnabled:      c.Cache.Enabled,
		CachePath:         c.Cache.Path,
	}
}

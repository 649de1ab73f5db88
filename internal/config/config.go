package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置
type Config struct {
	App      AppConfig
	Shopify  ShopifyConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Billing  BillingConfig
	Pipeline PipelineConfig
	Log      LogConfig
	Task     TaskConfig
}

// AppConfig 服务基础配置
type AppConfig struct {
	Name string
	Env  string // development | production
	Port string
	// URL 应用对外地址 (https://app.example.com)，用于 OAuth 回调与计费回跳
	URL string
}

// ShopifyConfig 平台应用凭证
type ShopifyConfig struct {
	APIKey     string
	APISecret  string
	APIVersion string
	Scopes     []string
	// SessionMode 会话令牌校验模式：verified 校验签名，decode 仅解析结构 (不安全，仅限调试)
	SessionMode string
	ProxyURL    string
	Debug       bool
}

// DatabaseConfig 数据库连接
type DatabaseConfig struct {
	Driver string // postgres | sqlite
	DSN    string
}

// RedisConfig 凭证缓存 (可选)
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// BillingConfig 订阅计划
type BillingConfig struct {
	PlanName     string
	Price        float64
	CurrencyCode string
	Interval     string // EVERY_30_DAYS | ANNUAL
	TrialDays    int
	Test         bool
	ReturnPath   string
}

// PipelineConfig 附件流水线调优参数
type PipelineConfig struct {
	PollInterval   time.Duration
	PollAttempts   int
	HTTPTimeout    time.Duration
	MaxUploadBytes int64
	// AttachRate 每个店铺每秒允许的上传次数
	AttachRate  float64
	AttachBurst int
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// TaskConfig 定时任务
type TaskConfig struct {
	SweepEnabled     bool
	SweepSpec        string
	SweepConcurrency int
}

// Load 加载配置
// 优先级：环境变量 (APP_ 前缀) > config.toml > 内置默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/app")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// 未找到配置文件时使用默认值与环境变量
		if !errors.As(err, &notFound) && path != "" {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
			URL:  strings.TrimRight(v.GetString("app.url"), "/"),
		},
		Shopify: ShopifyConfig{
			APIKey:      v.GetString("shopify.api_key"),
			APISecret:   v.GetString("shopify.api_secret"),
			APIVersion:  v.GetString("shopify.api_version"),
			Scopes:      splitList(v.GetString("shopify.scopes")),
			SessionMode: strings.ToLower(v.GetString("shopify.session_mode")),
			ProxyURL:    v.GetString("shopify.proxy_url"),
			Debug:       v.GetBool("shopify.debug"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Billing: BillingConfig{
			PlanName:     v.GetString("billing.plan_name"),
			Price:        v.GetFloat64("billing.price"),
			CurrencyCode: v.GetString("billing.currency_code"),
			Interval:     v.GetString("billing.interval"),
			TrialDays:    v.GetInt("billing.trial_days"),
			Test:         v.GetBool("billing.test"),
			ReturnPath:   v.GetString("billing.return_path"),
		},
		Pipeline: PipelineConfig{
			PollInterval:   v.GetDuration("pipeline.poll_interval"),
			PollAttempts:   v.GetInt("pipeline.poll_attempts"),
			HTTPTimeout:    v.GetDuration("pipeline.http_timeout"),
			MaxUploadBytes: v.GetInt64("pipeline.max_upload_bytes"),
			AttachRate:     v.GetFloat64("pipeline.attach_rate"),
			AttachBurst:    v.GetInt("pipeline.attach_burst"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Task: TaskConfig{
			SweepEnabled:     v.GetBool("task.sweep_enabled"),
			SweepSpec:        v.GetString("task.sweep_spec"),
			SweepConcurrency: v.GetInt("task.sweep_concurrency"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mockup-embedder")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")

	v.SetDefault("shopify.api_version", "2024-07")
	v.SetDefault("shopify.scopes", "read_products,write_products,write_files")
	v.SetDefault("shopify.session_mode", "verified")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data.sqlite")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("billing.plan_name", "Mockup Auto-Embedder Pro")
	v.SetDefault("billing.price", 4.99)
	v.SetDefault("billing.currency_code", "USD")
	v.SetDefault("billing.interval", "EVERY_30_DAYS")
	v.SetDefault("billing.trial_days", 7)
	v.SetDefault("billing.test", true)
	v.SetDefault("billing.return_path", "/billing/confirm")

	// 500ms * 8 次，最坏等待约 4s
	v.SetDefault("pipeline.poll_interval", 500*time.Millisecond)
	v.SetDefault("pipeline.poll_attempts", 8)
	v.SetDefault("pipeline.http_timeout", 30*time.Second)
	v.SetDefault("pipeline.max_upload_bytes", 20<<20)
	v.SetDefault("pipeline.attach_rate", 1.0)
	v.SetDefault("pipeline.attach_burst", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("task.sweep_enabled", true)
	v.SetDefault("task.sweep_spec", "0 0 */6 * * *")
	v.SetDefault("task.sweep_concurrency", 5)
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	if c.Shopify.SessionMode != SessionModeVerified && c.Shopify.SessionMode != SessionModeDecode {
		return fmt.Errorf("shopify.session_mode 只能是 %s 或 %s", SessionModeVerified, SessionModeDecode)
	}
	if c.Shopify.SessionMode == SessionModeVerified && c.Shopify.APISecret == "" && c.IsProduction() {
		return errors.New("verified 模式下必须配置 shopify.api_secret")
	}
	if c.Pipeline.PollAttempts <= 0 {
		return errors.New("pipeline.poll_attempts 必须大于 0")
	}
	if c.Pipeline.PollInterval < 0 {
		return errors.New("pipeline.poll_interval 不能为负数")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	return nil
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// 会话校验模式
const (
	SessionModeVerified = "verified"
	SessionModeDecode   = "decode"
)

// splitList 解析逗号分隔列表
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

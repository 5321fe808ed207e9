package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Export    ExportConfig    `mapstructure:"export"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// StorageConfig 上传目录配置
type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // local | memory
	UploadDir   string `mapstructure:"upload_dir"`
	MaxUploadMB int    `mapstructure:"max_upload_mb"`
}

// MaxUploadBytes 单文件上传上限（字节）
func (c *StorageConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// RedisConfig Redis 配置（仅用于限流，可关闭）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	UploadPerMinute   int `mapstructure:"upload_per_minute"`
	GeneratePerMinute int `mapstructure:"generate_per_minute"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output stdout、stderr 或文件路径
	Output string `mapstructure:"output"`
}

// GeneratorConfig 课表生成配置
type GeneratorConfig struct {
	// Seed 固定洗牌种子；0 表示每次请求使用当前时间
	Seed int64 `mapstructure:"seed"`
}

// ExportConfig 课表导出配置
type ExportConfig struct {
	// Timezone 日历导出使用的 IANA 时区名，"Local" 为本机时区
	Timezone string `mapstructure:"timezone"`
}

// Location 解析导出时区
func (c *ExportConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.cors.allow_origins", []string{
		"http://localhost:3000",
		"http://localhost:3001",
		"http://localhost:4200",
		"http://localhost:5173",
		"http://localhost:8080",
	})

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.max_upload_mb", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.upload_per_minute", 30)
	v.SetDefault("rate_limit.generate_per_minute", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("generator.seed", 0)

	v.SetDefault("export.timezone", "Local")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("SUTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Storage.MaxUploadMB <= 0 {
		return fmt.Errorf("配置校验失败: storage.max_upload_mb 必须大于 0")
	}
	switch c.Storage.Driver {
	case "local":
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("配置校验失败: storage.upload_dir 不能为空")
		}
	case "memory":
	default:
		return fmt.Errorf("配置校验失败: 未知的 storage.driver %q", c.Storage.Driver)
	}
	if _, err := c.Export.Location(); err != nil {
		return fmt.Errorf("配置校验失败: export.timezone 无效: %w", err)
	}
	return nil
}

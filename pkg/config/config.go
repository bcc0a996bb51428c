package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultAddr           = ":8080"
	defaultSearchEndpoint = "https://api.greptile.com/v2/search"
	defaultSearchTimeout  = 30 * time.Second
	defaultCacheTTL       = 5 * time.Minute
	defaultCacheSize      = 256
	defaultSessionLimit   = 4096
)

// Config 表示应用程序的配置
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
		Mode string `yaml:"mode"` // gin 运行模式: debug, release, test
	} `yaml:"server"`

	Search SearchConfig `yaml:"search"`

	Cache struct {
		Size         int    `yaml:"size"` // 负数表示关闭结果缓存
		TTL          string `yaml:"ttl"`
		SessionLimit int    `yaml:"session_limit"`
	} `yaml:"cache"`

	Tree struct {
		DuplicatePolicy string `yaml:"duplicate_policy"` // last_wins, first_wins
	} `yaml:"tree"`

	Logging struct {
		Level      string `yaml:"level"`       // 日志级别: debug, info, warn, error
		OutputPath string `yaml:"output_path"` // 日志输出路径
	} `yaml:"logging"`
}

// SearchConfig 搜索 API 的连接参数，构造客户端时显式注入
type SearchConfig struct {
	Endpoint    string `yaml:"endpoint"`
	APIToken    string `yaml:"api_token"`
	GithubToken string `yaml:"github_token"`
	Timeout     string `yaml:"timeout"`
	UserAgent   string `yaml:"user_agent"`
}

// GetTimeout 返回出站请求超时时间
func (s SearchConfig) GetTimeout() time.Duration {
	return parseDuration(s.Timeout, defaultSearchTimeout)
}

// GetEndpoint 返回搜索 API 地址
func (s SearchConfig) GetEndpoint() string {
	if s.Endpoint == "" {
		return defaultSearchEndpoint
	}
	return s.Endpoint
}

// GetUserAgent 返回出站请求的 User-Agent
func (s SearchConfig) GetUserAgent() string {
	if s.UserAgent == "" {
		return "Repo-Search-Web/1.0"
	}
	return s.UserAgent
}

// Load 加载配置文件，文件不存在时使用默认值；随后读取 .env 和环境变量覆盖
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	if configPath != "" {
		if err := loadConfig(configPath, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	// .env 不存在时忽略
	_ = godotenv.Load()
	applyEnv(cfg)

	return cfg, nil
}

// loadConfig 从文件加载配置
func loadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv 环境变量优先于配置文件
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("GREPTILE_API_TOKEN")); v != "" {
		cfg.Search.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv("GITHUB_API_KEY")); v != "" {
		cfg.Search.GithubToken = v
	}
	if v := strings.TrimSpace(os.Getenv("GREPTILE_API_URL")); v != "" {
		cfg.Search.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if strings.HasPrefix(v, ":") {
			cfg.Server.Addr = v
		} else {
			cfg.Server.Addr = ":" + v
		}
	}
}

// Validate 检查启动服务所需的凭据
func (c *Config) Validate() error {
	if c.Search.APIToken == "" {
		return errors.New("未配置 Greptile API 密钥 (GREPTILE_API_TOKEN)")
	}
	if c.Search.GithubToken == "" {
		return errors.New("未配置 GitHub 访问令牌 (GITHUB_API_KEY)")
	}
	return nil
}

// GetAddr 返回监听地址
func (c *Config) GetAddr() string {
	if c.Server.Addr == "" {
		return defaultAddr
	}
	return c.Server.Addr
}

// GetServerMode 返回 gin 运行模式
func (c *Config) GetServerMode() string {
	if c.Server.Mode == "" {
		return "release"
	}
	return c.Server.Mode
}

// GetCacheSize 返回结果缓存容量
func (c *Config) GetCacheSize() int {
	if c.Cache.Size < 0 {
		return 0
	}
	if c.Cache.Size == 0 {
		return defaultCacheSize
	}
	return c.Cache.Size
}

// GetCacheTTL 返回结果缓存有效期
func (c *Config) GetCacheTTL() time.Duration {
	return parseDuration(c.Cache.TTL, defaultCacheTTL)
}

// GetSessionLimit 返回同时跟踪的会话上限
func (c *Config) GetSessionLimit() int {
	if c.Cache.SessionLimit <= 0 {
		return defaultSessionLimit
	}
	return c.Cache.SessionLimit
}

// GetDuplicatePolicy 返回重复路径的处理策略
func (c *Config) GetDuplicatePolicy() string {
	if c.Tree.DuplicatePolicy == "" {
		return "last_wins"
	}
	return c.Tree.DuplicatePolicy
}

// GetLogLevel 返回日志级别
func (c *Config) GetLogLevel() string {
	if c.Logging.Level == "" {
		return "info" // 默认日志级别
	}
	return c.Logging.Level
}

// GetLogOutputPath 返回日志输出路径，空串表示只输出到控制台
func (c *Config) GetLogOutputPath() string {
	return c.Logging.OutputPath
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	// 兼容纯数字秒数
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

package configs

import (
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// 基础配置
	HTTPAddr string `json:"http_addr" yaml:"http_addr"` // HTTP监听地址

	Database Database `json:"database" yaml:"database"`

	// 上游行情源参数
	Upstream Upstream `json:"upstream" yaml:"upstream"`

	// 缓存参数
	Cache Cache `json:"cache" yaml:"cache"`

	// 限流参数
	RateLimit RateLimit `json:"rate_limit" yaml:"rate_limit"`
}

type Upstream struct {
	SearchTimeoutSeconds  int `json:"search_timeout_seconds" yaml:"search_timeout_seconds"`   // 搜索超时
	DetailsTimeoutSeconds int `json:"details_timeout_seconds" yaml:"details_timeout_seconds"` // 详情超时
}

type Cache struct {
	TTLMinutes int `json:"ttl_minutes" yaml:"ttl_minutes"` // 缓存有效期
}

type RateLimit struct {
	WindowSeconds        int `json:"window_seconds" yaml:"window_seconds"`                 // 每用户冷却窗口
	SweepIntervalSeconds int `json:"sweep_interval_seconds" yaml:"sweep_interval_seconds"` // 清理间隔
}

type Database struct {
	ConnStr string `json:"conn_str" yaml:"conn_str"` // 数据库连接字符串, 为空时使用内存存储
}

// Load reads the JSON config file and applies environment overrides.
// A .env file is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	config := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, config); err != nil {
			return nil, err
		}
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		config.HTTPAddr = addr
	}
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		config.Database.ConnStr = connStr
	}

	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		HTTPAddr: ":8080",
		Upstream: Upstream{
			SearchTimeoutSeconds:  5,
			DetailsTimeoutSeconds: 10,
		},
		Cache: Cache{
			TTLMinutes: 30,
		},
		RateLimit: RateLimit{
			WindowSeconds:        10,
			SweepIntervalSeconds: 60,
		},
	}
}

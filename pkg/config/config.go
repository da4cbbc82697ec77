package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config 应用程序配置
type Config struct {
	Log      LogConfig      `json:"log"`
	Scope    ScopeConfig    `json:"scope"`
	Backends BackendsConfig `json:"backends"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `json:"level"`
}

// ScopeConfig 作用域配置
type ScopeConfig struct {
	DefaultPolicy string `json:"default_policy"` // required / requires_new

	// WarnIncomplete 持有会话的作用域未标记完成就关闭时是否告警
	WarnIncomplete bool `json:"warn_incomplete"`
}

// BackendsConfig 后端配置
type BackendsConfig struct {
	SQL    SQLConfig    `json:"sql"`
	Badger BadgerConfig `json:"badger"`
	Redis  RedisConfig  `json:"redis"`
}

// SQLConfig SQL后端配置
type SQLConfig struct {
	Driver          string        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpen         int      `json:"max_open"`
	MaxIdle         int      `json:"max_idle"`
	ConnMaxLifetime Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime Duration `json:"conn_max_idle_time"`
	BeginTx         bool     `json:"begin_tx"`
}

// BadgerConfig Badger后端配置
type BadgerConfig struct {
	DataDir  string `json:"data_dir"`
	InMemory bool   `json:"in_memory"`
}

// RedisConfig Redis后端配置
type RedisConfig struct {
	Addr      string `json:"addr"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Scope: ScopeConfig{
			DefaultPolicy:  "required",
			WarnIncomplete: true,
		},
		Backends: BackendsConfig{
			SQL: SQLConfig{
				Driver:          "sqlite",
				DSN:             ":memory:",
				MaxOpen:         10,
				MaxIdle:         5,
				ConnMaxLifetime: Duration(30 * time.Minute),
				ConnMaxIdleTime: Duration(5 * time.Minute),
				BeginTx:         true,
			},
			Badger: BadgerConfig{
				DataDir:  "",
				InMemory: true,
			},
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				DB:        0,
				KeyPrefix: "dbscope:",
			},
		},
	}
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	// 如果没有指定配置文件，使用默认配置
	if configPath == "" {
		return DefaultConfig(), nil
	}

	// 检查配置文件是否存在
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	// 读取配置文件
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 验证配置
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault 尝试从常见位置加载配置文件
func LoadConfigOrDefault() *Config {
	// 尝试的配置文件路径
	possiblePaths := []string{
		"config.json",
		"./config/config.json",
		"/etc/dbscope/config.json",
	}

	// 尝试从环境变量获取配置文件路径
	if envPath := os.Getenv("DBSCOPE_CONFIG"); envPath != "" {
		if config, err := LoadConfig(envPath); err == nil {
			return config
		}
	}

	// 尝试从常见位置加载
	for _, path := range possiblePaths {
		if absPath, err := filepath.Abs(path); err == nil {
			if config, err := LoadConfig(absPath); err == nil {
				return config
			}
		}
	}

	// 使用默认配置
	return DefaultConfig()
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	switch config.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("无效的日志级别: %s", config.Log.Level)
	}

	switch config.Scope.DefaultPolicy {
	case "", "required", "requires_new":
	default:
		return fmt.Errorf("无效的作用域策略: %s", config.Scope.DefaultPolicy)
	}

	if config.Backends.SQL.Driver == "" {
		return fmt.Errorf("SQL驱动名称不能为空")
	}

	if config.Backends.SQL.MaxOpen < 1 {
		return fmt.Errorf("连接池最大连接数必须大于0")
	}

	if config.Backends.SQL.MaxIdle < 1 {
		return fmt.Errorf("连接池最大空闲连接数必须大于0")
	}

	if !config.Backends.Badger.InMemory && config.Backends.Badger.DataDir == "" {
		return fmt.Errorf("Badger数据目录不能为空")
	}

	if config.Backends.Redis.DB < 0 {
		return fmt.Errorf("Redis数据库编号不能为负数")
	}

	return nil
}

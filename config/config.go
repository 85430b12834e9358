// config.go

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/spf13/viper"
)

// Config 服务器配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	World    WorldConfig    `mapstructure:"world"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Journal  JournalConfig  `mapstructure:"journal"`
}

// ServerConfig 服务器基本配置
type ServerConfig struct {
	GamePort    int    `mapstructure:"game_port"`
	GatewayPort int    `mapstructure:"gateway_port"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	MaxPlayers  int    `mapstructure:"max_players"`
	AdminToken  string `mapstructure:"admin_token"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 身份验证配置
type AuthConfig struct {
	Mode      string `mapstructure:"mode"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

// ThrottleConfig 位置写入节流阈值
type ThrottleConfig struct {
	TimeThresholdSeconds   float64 `mapstructure:"time_threshold_seconds"`
	DistanceThresholdUnits float64 `mapstructure:"distance_threshold_units"`
}

// Interval 返回时间阈值
func (c ThrottleConfig) Interval() time.Duration {
	return time.Duration(c.TimeThresholdSeconds * float64(time.Second))
}

// WorldConfig 世界状态配置
type WorldConfig struct {
	Throttle        ThrottleConfig `mapstructure:"throttle"`
	LeaderboardSize int            `mapstructure:"leaderboard_size"`
	PersistQueue    int            `mapstructure:"persist_queue"`
}

// ChatConfig 聊天配置
type ChatConfig struct {
	History       string  `mapstructure:"history"`
	HistoryLimit  int     `mapstructure:"history_limit"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// JournalConfig 事件日志配置，Dir为空时不记录
type JournalConfig struct {
	Dir string `mapstructure:"dir"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	AuthModeJWT     = "jwt"
	AuthModeSession = "session"

	HistoryNone  = "none"
	HistoryStore = "store"
	HistoryRedis = "redis"
)

var (
	// GlobalConfig 全局配置实例
	GlobalConfig Config
)

// SetDefaults 注册默认配置
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.game_port", 8080)
	v.SetDefault("server.gateway_port", 8081)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.max_players", 200)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.sqlite_path", "seastorm.db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("auth.mode", AuthModeJWT)
	v.SetDefault("world.throttle.time_threshold_seconds", 0.2)
	v.SetDefault("world.throttle.distance_threshold_units", 1.5)
	v.SetDefault("world.leaderboard_size", 10)
	v.SetDefault("world.persist_queue", 1024)
	v.SetDefault("chat.history", HistoryStore)
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("chat.rate_per_second", 2.0)
	v.SetDefault("chat.burst", 5)
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) error {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("seastorm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("无法读取配置文件: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("无法解析配置文件: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	GlobalConfig = cfg
	return nil
}

// Validate 校验配置，一次返回全部问题
func (c *Config) Validate() error {
	el := errors.NewErrorList()
	el.Add(validatePort("server.game_port", c.Server.GamePort))
	el.Add(validatePort("server.gateway_port", c.Server.GatewayPort))

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			el.Add(fmt.Errorf("database: postgres需要host和dbname"))
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			el.Add(fmt.Errorf("database.sqlite_path不能为空"))
		}
	default:
		el.Add(fmt.Errorf("database.driver不支持: %q", c.Database.Driver))
	}

	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			el.Add(fmt.Errorf("auth.jwt_secret不能为空"))
		}
	case AuthModeSession:
		if !c.Redis.Enabled {
			el.Add(fmt.Errorf("auth.mode=session需要启用redis"))
		}
	default:
		el.Add(fmt.Errorf("auth.mode不支持: %q", c.Auth.Mode))
	}

	switch c.Chat.History {
	case HistoryNone, HistoryStore:
	case HistoryRedis:
		if !c.Redis.Enabled {
			el.Add(fmt.Errorf("chat.history=redis需要启用redis"))
		}
	default:
		el.Add(fmt.Errorf("chat.history不支持: %q", c.Chat.History))
	}

	if c.World.Throttle.TimeThresholdSeconds < 0 || c.World.Throttle.DistanceThresholdUnits < 0 {
		el.Add(fmt.Errorf("world.throttle阈值不能为负数"))
	}
	if c.World.LeaderboardSize <= 0 {
		el.Add(fmt.Errorf("world.leaderboard_size必须大于0"))
	}
	if c.Chat.RatePerSecond <= 0 || c.Chat.Burst <= 0 {
		el.Add(fmt.Errorf("chat.rate_per_second和chat.burst必须大于0"))
	}

	return el.Err()
}

func validatePort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s无效: %d", name, port)
	}
	return nil
}

// GetDSN 获取PostgreSQL连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetRedisAddr 获取Redis连接地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

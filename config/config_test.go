package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func defaultConfig(t *testing.T) Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.Set("auth.jwt_secret", "secret")
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal defaults: %v", err)
	}
	return cfg
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  game_port: 9000
auth:
  jwt_secret: s3cret
world:
  throttle:
    time_threshold_seconds: 0.5
chat:
  history: none
`)
	t.Cleanup(func() { GlobalConfig = Config{} })

	if err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	testutil.AssertEqual(t, "game port", GlobalConfig.Server.GamePort, 9000)
	testutil.AssertEqual(t, "gateway port default", GlobalConfig.Server.GatewayPort, 8081)
	testutil.AssertEqual(t, "driver default", GlobalConfig.Database.Driver, DriverSQLite)
	testutil.AssertEqual(t, "auth mode default", GlobalConfig.Auth.Mode, AuthModeJWT)
	testutil.AssertEqual(t, "interval", GlobalConfig.World.Throttle.Interval(), 500*time.Millisecond)
	testutil.AssertEqual(t, "distance default", GlobalConfig.World.Throttle.DistanceThresholdUnits, 1.5)
	testutil.AssertEqual(t, "history", GlobalConfig.Chat.History, HistoryNone)
	testutil.AssertEqual(t, "history limit default", GlobalConfig.Chat.HistoryLimit, 50)
	testutil.AssertEqual(t, "journal off", GlobalConfig.Journal.Dir, "")
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  gateway_port: 8081
auth:
  jwt_secret: s3cret
`)
	t.Setenv("SEASTORM_SERVER_GATEWAY_PORT", "9191")
	t.Cleanup(func() { GlobalConfig = Config{} })

	if err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	testutil.AssertEqual(t, "gateway port", GlobalConfig.Server.GatewayPort, 9191)
}

func TestLoadConfig_Errors(t *testing.T) {
	err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	testutil.AssertErrorContains(t, err, "无法读取配置文件")

	path := writeConfig(t, "auth:\n  jwt_secret: \"\"\n")
	err = LoadConfig(path)
	testutil.AssertErrorContains(t, err, "auth.jwt_secret不能为空")
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(c *Config)
		expErrs []string
	}{
		"defaults are valid": {
			mutate: func(c *Config) {},
		},
		"bad ports": {
			mutate: func(c *Config) {
				c.Server.GamePort = 0
				c.Server.GatewayPort = 70000
			},
			expErrs: []string{"server.game_port无效", "server.gateway_port无效"},
		},
		"postgres without host": {
			mutate: func(c *Config) {
				c.Database.Driver = DriverPostgres
			},
			expErrs: []string{"postgres需要host和dbname"},
		},
		"unknown driver": {
			mutate: func(c *Config) {
				c.Database.Driver = "mysql"
			},
			expErrs: []string{"database.driver不支持"},
		},
		"session without redis": {
			mutate: func(c *Config) {
				c.Auth.Mode = AuthModeSession
			},
			expErrs: []string{"auth.mode=session需要启用redis"},
		},
		"session with redis": {
			mutate: func(c *Config) {
				c.Auth.Mode = AuthModeSession
				c.Redis.Enabled = true
			},
		},
		"redis history without redis": {
			mutate: func(c *Config) {
				c.Chat.History = HistoryRedis
			},
			expErrs: []string{"chat.history=redis需要启用redis"},
		},
		"negative thresholds": {
			mutate: func(c *Config) {
				c.World.Throttle.DistanceThresholdUnits = -1
			},
			expErrs: []string{"world.throttle阈值不能为负数"},
		},
		"multiple errors": {
			mutate: func(c *Config) {
				c.Auth.Mode = "oauth"
				c.Chat.History = "disk"
				c.World.LeaderboardSize = 0
				c.Chat.Burst = 0
			},
			expErrs: []string{
				"auth.mode不支持",
				"chat.history不支持",
				"world.leaderboard_size必须大于0",
				"chat.rate_per_second和chat.burst必须大于0",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()

			if len(tt.expErrs) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected errors %v, got nil", tt.expErrs)
			}
			errStr := err.Error()
			for _, e := range tt.expErrs {
				if !strings.Contains(errStr, e) {
					t.Errorf("error %q does not contain %q", errStr, e)
				}
			}
		})
	}
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "sea", SSLMode: "disable"}
	testutil.AssertEqual(t, "dsn", c.GetDSN(), "host=db port=5432 user=u password=p dbname=sea sslmode=disable")

	r := RedisConfig{Host: "cache", Port: 6380}
	testutil.AssertEqual(t, "redis addr", r.GetRedisAddr(), "cache:6380")
}

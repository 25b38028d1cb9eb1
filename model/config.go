package model

import (
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config ..
type Config struct {
	Debug    bool
	Database struct {
		Driver string // sqlite 或 postgres
		DSN    string
	}
	Log struct {
		Level string
		File  string // 为空时仅输出到 stdout
	}
	Pagespeed struct {
		APIKey string `mapstructure:"api_key"`
	}
	SMTP struct {
		Host string
		Port int
		User string
		Pass string
	}
	Probe struct {
		Timeout        time.Duration
		PingPrivileged bool `mapstructure:"ping_privileged"`
	}
	Maintenance struct {
		RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	}
	Notification struct {
		Workers         int
		ChannelCacheTTL time.Duration `mapstructure:"channel_cache_ttl"`
	}
	Retention struct {
		Checks time.Duration
	}
	Scheduler struct {
		CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	}
	Agent struct {
		Listen string
		Token  string
		Mode   string
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/uptime.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("pagespeed.api_key", "")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("probe.timeout", 30*time.Second)
	v.SetDefault("probe.ping_privileged", false)
	v.SetDefault("maintenance.refresh_ttl", time.Minute)
	v.SetDefault("notification.workers", 4)
	v.SetDefault("notification.channel_cache_ttl", 30*time.Second)
	v.SetDefault("retention.checks", 30*24*time.Hour)
	v.SetDefault("scheduler.cleanup_interval", 24*time.Hour)
	v.SetDefault("agent.listen", ":8787")
	v.SetDefault("agent.token", "")
	v.SetDefault("agent.mode", "local")
}

// ReadInConfig 读取配置文件，path 为空时只使用默认值与 UPTIME_ 前缀的环境变量。
// 配置文件变更后重新解析并回调 onChange。
func ReadInConfig(path string, onChange func(*Config)) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("uptime")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	if path != "" && onChange != nil {
		v.OnConfigChange(func(in fsnotify.Event) {
			var nc Config
			if err := v.Unmarshal(&nc); err == nil {
				onChange(&nc)
			}
		})
		go v.WatchConfig()
	}
	return &c, nil
}

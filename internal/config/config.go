package config

import "time"

// Config is the root configuration for Taskhive.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Places   PlacesConfig   `yaml:"places"`
	Cache    CacheConfig    `yaml:"cache"`
	Notify   NotifyConfig   `yaml:"notify"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type PlacesConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Radius  int    `yaml:"radius"`
}

type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// NotifyConfig sizes the notification pipeline: QueueSize bounds pending
// group recomputations, SubscriberBuffer the per-connection event buffer.
type NotifyConfig struct {
	QueueSize        int `yaml:"queue_size"`
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8000,
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Path: "~/.config/taskhive/taskhive.db",
		},
		Places: PlacesConfig{
			Radius: 1000,
		},
		Cache: CacheConfig{
			Addr: "127.0.0.1:6379",
			TTL:  15 * time.Minute,
		},
		Notify: NotifyConfig{
			QueueSize:        64,
			SubscriberBuffer: 16,
		},
	}
}

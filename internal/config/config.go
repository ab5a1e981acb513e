package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the task service and worker processes.
// The mapstructure tags are used by Viper to unmarshal the data.
type Config struct {
	EtcdEndpoints     []string      `mapstructure:"etcd_endpoints"`
	EtcdTimeout       time.Duration `mapstructure:"etcd_timeout"`
	RedisAddr         string        `mapstructure:"redis_addr"`
	QueueName         string        `mapstructure:"queue_name"`
	HttpListenAddr    string        `mapstructure:"http_listen_addr"`
	MetricsListenAddr string        `mapstructure:"metrics_listen_addr"`
	ApiBaseURL        string        `mapstructure:"api_base_url"`
	ApiTimeout        time.Duration `mapstructure:"api_timeout"`
	PollTimeout       time.Duration `mapstructure:"poll_timeout"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	WorkerTTL         time.Duration `mapstructure:"worker_ttl"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("etcd_endpoints", []string{"localhost:2379"})
	viper.SetDefault("etcd_timeout", "5s")
	viper.SetDefault("redis_addr", "localhost:6379")
	viper.SetDefault("queue_name", "task_queue")
	viper.SetDefault("http_listen_addr", ":8080")
	viper.SetDefault("metrics_listen_addr", ":8081")
	viper.SetDefault("api_base_url", "http://localhost:8080")
	viper.SetDefault("api_timeout", "15s")
	viper.SetDefault("poll_timeout", "20s")
	viper.SetDefault("retry_backoff", "5s")
	viper.SetDefault("worker_ttl", "10s")

	// Set config file details
	viper.SetConfigName("config")    // name of config file (without extension)
	viper.SetConfigType("yaml")      // or "json", "toml"
	viper.AddConfigPath("./configs") // path to look for the config file in
	viper.AddConfigPath(".")         // optionally look for config in the working directory

	// Read environment variables
	viper.AutomaticEnv()

	// Read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; rely on defaults and env vars
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

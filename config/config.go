package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	PriceBox PriceBoxConfig `yaml:"pricebox"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	NotificationsTopicName string `yaml:"notifications_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type PriceBoxConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	WorkerHTTPAddr     string `yaml:"worker_http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`
	AllowedOrigins     string `yaml:"allowed_origins"`
	APIRequestsPerSec  int    `yaml:"api_requests_per_second"`

	// "live" scrapes the real marketplaces, "fake" returns deterministic prices.
	MarketplaceMode string `yaml:"marketplace_mode"`

	// "cron" (default) runs cycles under the Redis leader lock, "ticker" runs
	// them in-process on every replica.
	SchedulerMode string `yaml:"scheduler_mode"`

	RefreshIntervalSeconds  int `yaml:"refresh_interval_seconds"`
	RefreshConcurrency      int `yaml:"refresh_concurrency"`
	SchedulerLockTTLSeconds int `yaml:"scheduler_lock_ttl_seconds"`

	FetchDelayMinMillis    int `yaml:"fetch_delay_min_millis"`
	FetchDelayMaxMillis    int `yaml:"fetch_delay_max_millis"`
	FetchTimeoutSeconds    int `yaml:"fetch_timeout_seconds"`
	BlockRetryMinMillis    int `yaml:"block_retry_min_millis"`
	BlockRetryMaxMillis    int `yaml:"block_retry_max_millis"`
	HostRateLimitPerMinute int `yaml:"host_rate_limit_per_minute"`

	HistoryMinPoints      int `yaml:"history_min_points"`
	HistorySynthDays      int `yaml:"history_synth_days"`
	SearchMaxResults      int `yaml:"search_max_results"`
	SearchCacheTTLSeconds int `yaml:"search_cache_ttl_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	// .env is optional; only real read errors matter.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	applyEnvOverrides(&config)
	return &config, nil
}

// applyEnvOverrides lets deployments keep secrets and addresses out of the YAML file.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("PRICEBOX_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("PRICEBOX_DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if host, port, ok := splitHostPort(os.Getenv("PRICEBOX_REDIS_ADDR")); ok {
		c.Redis.Host, c.Redis.Port = host, port
	}
	if host, port, ok := splitHostPort(os.Getenv("PRICEBOX_KAFKA_ADDR")); ok {
		c.Kafka.Host, c.Kafka.Port = host, port
	}
	if v := os.Getenv("PRICEBOX_MARKETPLACE_MODE"); v != "" {
		c.PriceBox.MarketplaceMode = v
	}
}

func splitHostPort(addr string) (string, int, bool) {
	i := strings.LastIndex(addr, ":")
	if i <= 0 {
		return "", 0, false
	}
	port, err := strconv.Atoi(addr[i+1:])
	if err != nil {
		return "", 0, false
	}
	return addr[:i], port, true
}

func (d DatabaseConfig) ConnString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

func (k KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

package config

import (
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rzzdr/swap-aad-risk/internal/kafka"
	"github.com/rzzdr/swap-aad-risk/internal/risk"
	"github.com/rzzdr/swap-aad-risk/internal/swap"
	"github.com/rzzdr/swap-aad-risk/pkg/api"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
)

// Config for the whole application
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	API     APIConfig     `mapstructure:"api"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Risk    RiskConfig    `mapstructure:"risk"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// General application configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// Configuration for the API server
type APIConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	StreamResults   bool          `mapstructure:"stream_results"` // Relay risk engine results to websocket clients
	RateLimit       float64       `mapstructure:"rate_limit"`     // Requests per second per client, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
}

// Configuration for Kafka
type KafkaConfig struct {
	Brokers      []string            `mapstructure:"brokers"`
	ClientID     string              `mapstructure:"client_id"`
	GroupID      string              `mapstructure:"group_id"`
	StartOffset  string              `mapstructure:"start_offset"`
	Codec        string              `mapstructure:"codec"`
	RequiredAcks int                 `mapstructure:"required_acks"`
	BatchTimeout time.Duration       `mapstructure:"batch_timeout"`
	DialTimeout  time.Duration       `mapstructure:"dial_timeout"`
	Topics       KafkaTopicsConfig   `mapstructure:"topics"`
	Breaker      KafkaBreakerConfig  `mapstructure:"breaker"`
	Partitions   KafkaTopologyConfig `mapstructure:"partitions"`
}

// Kafka topics configuration
type KafkaTopicsConfig struct {
	SwapRequests string `mapstructure:"swap_requests"`
	RiskResults  string `mapstructure:"risk_results"`
}

// Circuit breaker guarding the result producer
type KafkaBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Topic layout used when the risk engine creates its topics
type KafkaTopologyConfig struct {
	Count             int  `mapstructure:"count"`
	ReplicationFactor int  `mapstructure:"replication_factor"`
	CreateTopics      bool `mapstructure:"create_topics"`
}

// Configuration for risk calculations
type RiskConfig struct {
	ForwardShift         float64 `mapstructure:"forward_shift"`
	ZeroShift            float64 `mapstructure:"zero_shift"`
	PayReceiveConvention string  `mapstructure:"pay_receive_convention"`
	Workers              int     `mapstructure:"workers"`
	FiniteDifference     bool    `mapstructure:"finite_difference"`
	FDStep               float64 `mapstructure:"fd_step"`
	HistoryLimit         int     `mapstructure:"history_limit"`
}

// Configuration for metrics
type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Port     int           `mapstructure:"port"`
	Path     string        `mapstructure:"path"`
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads the configuration from GetConfigPath and the environment
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom reads the configuration from path, then applies SWAPRISK_*
// environment overrides. A missing file leaves the defaults in place.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SWAPRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	if _, err := swap.ParseSignConvention(c.Risk.PayReceiveConvention); err != nil {
		return errors.InvalidArgument("risk.pay_receive_convention: " + err.Error())
	}
	if c.Risk.ForwardShift <= 0 || c.Risk.ZeroShift <= 0 {
		return errors.InvalidArgument("risk.forward_shift and risk.zero_shift must be positive")
	}
	if _, err := kafka.CodecFor(c.Kafka.Codec); err != nil {
		return errors.InvalidArgument("kafka.codec: " + err.Error())
	}
	return nil
}

// EngineConfig returns the valuation engine settings
func (c *Config) EngineConfig() swap.Config {
	convention, _ := swap.ParseSignConvention(c.Risk.PayReceiveConvention)
	return swap.Config{
		ForwardShift:   c.Risk.ForwardShift,
		ZeroShift:      c.Risk.ZeroShift,
		SignConvention: convention,
	}
}

// ServiceConfig returns the risk service settings
func (c *Config) ServiceConfig() risk.ServiceConfig {
	return risk.ServiceConfig{
		Workers:          c.Risk.Workers,
		FiniteDifference: c.Risk.FiniteDifference,
		FDStep:           c.Risk.FDStep,
	}
}

// KafkaClientConfig returns the kafka-go connection settings
func (c *Config) KafkaClientConfig() *kafka.Config {
	kc := kafka.DefaultConfig()
	kc.Brokers = c.Kafka.Brokers
	kc.ClientID = c.Kafka.ClientID
	kc.GroupID = c.Kafka.GroupID
	kc.StartOffset = c.Kafka.StartOffset
	kc.RequiredAcks = c.Kafka.RequiredAcks
	kc.BatchTimeout = c.Kafka.BatchTimeout
	kc.DialTimeout = c.Kafka.DialTimeout
	return kc
}

// APIServerConfig returns the HTTP server settings
func (c *Config) APIServerConfig() api.Config {
	return api.Config{
		Host:           c.API.Host,
		Port:           c.API.Port,
		ReadTimeout:    c.API.ReadTimeout,
		WriteTimeout:   c.API.WriteTimeout,
		AllowedOrigins: c.API.AllowedOrigins,
		RateLimit:      c.API.RateLimit,
		RateBurst:      c.API.RateBurst,
	}
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "swap-aad-risk")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.shutdown_timeout", "15s")
	v.SetDefault("api.allowed_origins", []string{})
	v.SetDefault("api.stream_results", false)
	v.SetDefault("api.rate_limit", 50.0)
	v.SetDefault("api.rate_burst", 100)

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "swaprisk")
	v.SetDefault("kafka.group_id", "swaprisk-engine")
	v.SetDefault("kafka.start_offset", "earliest")
	v.SetDefault("kafka.codec", "json")
	v.SetDefault("kafka.required_acks", -1)
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.dial_timeout", "10s")
	v.SetDefault("kafka.topics.swap_requests", "swaps.requests")
	v.SetDefault("kafka.topics.risk_results", "swaps.risk")
	v.SetDefault("kafka.breaker.max_failures", 5)
	v.SetDefault("kafka.breaker.timeout", "30s")
	v.SetDefault("kafka.partitions.count", 3)
	v.SetDefault("kafka.partitions.replication_factor", 1)
	v.SetDefault("kafka.partitions.create_topics", false)

	// Risk defaults
	v.SetDefault("risk.forward_shift", swap.BasisPoint)
	v.SetDefault("risk.zero_shift", swap.BasisPoint)
	v.SetDefault("risk.pay_receive_convention", string(swap.ReceiveFixedPositive))
	v.SetDefault("risk.workers", 4)
	v.SetDefault("risk.finite_difference", false)
	v.SetDefault("risk.fd_step", 1.0)
	v.SetDefault("risk.history_limit", 50)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.interval", "15s")
}

func GetConfigPath() string {
	configPath := os.Getenv("SWAPRISK_CONFIG_PATH")
	if configPath != "" {
		return configPath
	}

	return "./config/config.yaml"
}

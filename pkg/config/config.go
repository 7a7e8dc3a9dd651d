package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type GuardrailsConfig struct {
	ProfilesDir   string       `mapstructure:"profiles_dir"`
	ActiveProfile string       `mapstructure:"active_profile"`
	Stream        StreamConfig `mapstructure:"stream"`
}

// StreamConfig tunes the streaming sanitizer release policy.
type StreamConfig struct {
	ReleaseWatermark int `mapstructure:"release_watermark"`
	TailRetention    int `mapstructure:"tail_retention"`
	WidenAfterDeltas int `mapstructure:"widen_after_deltas"`
}

type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	AwsRegion string `mapstructure:"aws_region"`
}

type AuditConfig struct {
	QueueSize int         `mapstructure:"queue_size"`
	Workers   int         `mapstructure:"workers"`
	LogFile   string      `mapstructure:"log_file"`
	Kafka     KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	Topic   string `mapstructure:"topic"`
}

type UpstreamConfig struct {
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	BreakerMaxFailures uint32 `mapstructure:"breaker_max_failures"`
	BreakerCooldown    int    `mapstructure:"breaker_cooldown_seconds"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load main config file: %w", err)
	}
	setDefaultValues()
	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file %s.yaml not found, using only environment variables", fileName)
		}
		return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
	}

	if err := viper.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

func setDefaultValues() {
	if globalConfig.Server.Port == 0 {
		globalConfig.Server.Port = 8080
	}
	if globalConfig.Server.MetricsPort == 0 {
		globalConfig.Server.MetricsPort = 9090
	}
	if globalConfig.Database.SSLMode == "" {
		globalConfig.Database.SSLMode = "disable"
	}
	if globalConfig.Guardrails.ProfilesDir == "" {
		globalConfig.Guardrails.ProfilesDir = "configs"
	}
	if globalConfig.Guardrails.ActiveProfile == "" {
		globalConfig.Guardrails.ActiveProfile = "default.yaml"
	}
	if globalConfig.Guardrails.Stream.ReleaseWatermark == 0 {
		globalConfig.Guardrails.Stream.ReleaseWatermark = 48
	}
	if globalConfig.Guardrails.Stream.TailRetention == 0 {
		globalConfig.Guardrails.Stream.TailRetention = 24
	}
	if globalConfig.Guardrails.Stream.WidenAfterDeltas == 0 {
		globalConfig.Guardrails.Stream.WidenAfterDeltas = 32
	}
	if globalConfig.Embedding.Provider == "" {
		globalConfig.Embedding.Provider = "openai"
	}
	if globalConfig.Audit.QueueSize == 0 {
		globalConfig.Audit.QueueSize = 1000
	}
	if globalConfig.Audit.Workers == 0 {
		globalConfig.Audit.Workers = 2
	}
	if globalConfig.Audit.LogFile == "" {
		globalConfig.Audit.LogFile = "logs/audit.jsonl"
	}
	if globalConfig.Upstream.TimeoutSeconds == 0 {
		globalConfig.Upstream.TimeoutSeconds = 60
	}
	if globalConfig.Upstream.BreakerMaxFailures == 0 {
		globalConfig.Upstream.BreakerMaxFailures = 5
	}
	if globalConfig.Upstream.BreakerCooldown == 0 {
		globalConfig.Upstream.BreakerCooldown = 30
	}
	setProviderDefaults()
}

func resolveEnv(current, envName string) string {
	if current != "" {
		return current
	}
	return os.Getenv(envName)
}

func GetConfig() *Config {
	return &globalConfig
}

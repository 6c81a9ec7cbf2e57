package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"
)

// Config собирается в три слоя: дефолты, YAML-файл (configPath), переменные окружения.
type Config struct {
	App      AppConfig      `yaml:"app"`
	HTTP     HTTPConfig     `yaml:"http"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Notify   NotifyConfig   `yaml:"notify"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
	Log      LogConfig      `yaml:"log"`
}

type AppConfig struct {
	Env         string `yaml:"env" env:"APP_ENV"`
	SwaggerPath string `yaml:"swagger_path" env:"SWAGGER_PATH"`
}

type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST"`
	Port int    `yaml:"port" env:"HTTP_PORT"`
}

type KafkaConfig struct {
	Brokers               []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	DispatchCommandTopic  string   `yaml:"dispatch_command_topic" env:"KAFKA_DISPATCH_COMMAND_TOPIC"`
	FulfillmentReplyTopic string   `yaml:"fulfillment_reply_topic" env:"KAFKA_FULFILLMENT_REPLY_TOPIC"`
	ConsumerGroup         string   `yaml:"consumer_group" env:"KAFKA_CONSUMER_GROUP"`
}

type NotifyConfig struct {
	// RedisAddr пустой: уведомления отключены (Noop).
	RedisAddr string        `yaml:"redis_addr" env:"NOTIFY_REDIS_ADDR"`
	Channel   string        `yaml:"channel" env:"NOTIFY_CHANNEL"`
	Timeout   time.Duration `yaml:"timeout" env:"NOTIFY_TIMEOUT"`
}

type DedupConfig struct {
	Enabled bool `yaml:"enabled" env:"DEDUP_ENABLED"`
	// RedisAddr пустой: хранилище в памяти процесса.
	RedisAddr string        `yaml:"redis_addr" env:"DEDUP_REDIS_ADDR"`
	TTL       time.Duration `yaml:"ttl" env:"DEDUP_TTL"`
}

type ShutdownConfig struct {
	Settle time.Duration `yaml:"settle" env:"SHUTDOWN_SETTLE"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

func Default() Config {
	return Config{
		App:  AppConfig{Env: "local"},
		HTTP: HTTPConfig{Port: 8080},
		Kafka: KafkaConfig{
			Brokers:               []string{"localhost:9092"},
			DispatchCommandTopic:  "dispatch.commands",
			FulfillmentReplyTopic: "fulfillment.replies",
			ConsumerGroup:         "shipment-api",
		},
		Notify: NotifyConfig{
			RedisAddr: "localhost:6379",
			Channel:   "analytics.notifications",
			Timeout:   time.Second,
		},
		Dedup: DedupConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Shutdown: ShutdownConfig{Settle: 3 * time.Second},
		Log:      LogConfig{Level: "info"},
	}
}

// LoadConfig читает YAML поверх дефолтов. Отсутствующие в файле поля сохраняют дефолт.
func LoadConfig(filename string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal YAML")
	}
	return &cfg, nil
}

// Load: дефолты, затем файл (если filename не пуст), затем env. Результат валидируется.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		fromFile, err := LoadConfig(filename)
		if err != nil {
			return nil, err
		}
		cfg = *fromFile
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}
	for _, b := range c.Kafka.Brokers {
		if b == "" {
			return errors.New("kafka.brokers contains an empty address")
		}
	}
	if c.Kafka.DispatchCommandTopic == "" {
		return errors.New("kafka.dispatch_command_topic is required")
	}
	if c.Kafka.FulfillmentReplyTopic == "" {
		return errors.New("kafka.fulfillment_reply_topic is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		return errors.New("kafka.consumer_group is required")
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return errors.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if c.Notify.RedisAddr != "" && c.Notify.Channel == "" {
		return errors.New("notify.channel is required when notify.redis_addr is set")
	}
	if c.Notify.Timeout <= 0 {
		return errors.New("notify.timeout must be positive")
	}
	if c.Dedup.Enabled && c.Dedup.TTL <= 0 {
		return errors.New("dedup.ttl must be positive")
	}
	if c.Shutdown.Settle <= 0 {
		return errors.New("shutdown.settle must be positive")
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}

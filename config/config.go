// Package config loads consumerd settings: defaults, then a YAML file, then
// SCG_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

const (
	TransportInMemory = "inmemory"
	TransportRabbitMQ = "rabbitmq"
	TransportNATS     = "nats"
	TransportKafka    = "kafka"
)

type Config struct {
	Service   string
	Transport string
	Endpoints EndpointConfig
	Logging   LoggingConfig
	RabbitMQ  RabbitMQConfig
	NATS      NATSConfig
	Kafka     KafkaConfig
}

type EndpointConfig struct {
	// Naming is one of type, kebab or snake.
	Naming string
	Prefix string
}

type LoggingConfig struct {
	Level     string
	Format    string
	AddSource bool
}

type RabbitMQConfig struct {
	URL         string
	Prefetch    int
	ConnTimeout time.Duration
}

type NATSConfig struct {
	URL           string
	Name          string
	ConnTimeout   time.Duration
	MaxReconnects int
}

type KafkaConfig struct {
	Brokers   []string
	ClientID  string
	FromStart bool
}

type configFile struct {
	Service   string `yaml:"service"`
	Transport string `yaml:"transport"`
	Endpoints struct {
		Naming string `yaml:"naming"`
		Prefix string `yaml:"prefix"`
	} `yaml:"endpoints"`
	Logging struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		AddSource bool   `yaml:"add_source"`
	} `yaml:"logging"`
	RabbitMQ struct {
		URL                string `yaml:"url"`
		Prefetch           int    `yaml:"prefetch"`
		ConnTimeoutSeconds int    `yaml:"conn_timeout_seconds"`
	} `yaml:"rabbitmq"`
	NATS struct {
		URL                string `yaml:"url"`
		Name               string `yaml:"name"`
		ConnTimeoutSeconds int    `yaml:"conn_timeout_seconds"`
		MaxReconnects      int    `yaml:"max_reconnects"`
	} `yaml:"nats"`
	Kafka struct {
		Brokers   []string `yaml:"brokers"`
		ClientID  string   `yaml:"client_id"`
		FromStart bool     `yaml:"from_start"`
	} `yaml:"kafka"`
}

// Default returns the configuration used when no file or environment is present.
func Default() Config {
	return Config{
		Service:   "consumerd",
		Transport: TransportInMemory,
		Endpoints: EndpointConfig{Naming: "type"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		RabbitMQ:  RabbitMQConfig{Prefetch: 16, ConnTimeout: 30 * time.Second},
		NATS:      NATSConfig{Name: "consumerd", ConnTimeout: 5 * time.Second, MaxReconnects: 60},
		Kafka:     KafkaConfig{ClientID: "consumerd"},
	}
}

// LoadConfig reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)

		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, err
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg.Transport = fold(cfg.Transport)
	cfg.Endpoints.Naming = fold(cfg.Endpoints.Naming)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	cfg.Service = orDefault(f.Service, cfg.Service)
	cfg.Transport = orDefault(f.Transport, cfg.Transport)
	cfg.Endpoints.Naming = orDefault(f.Endpoints.Naming, cfg.Endpoints.Naming)
	cfg.Endpoints.Prefix = orDefault(f.Endpoints.Prefix, cfg.Endpoints.Prefix)
	cfg.Logging.Level = orDefault(f.Logging.Level, cfg.Logging.Level)
	cfg.Logging.Format = orDefault(f.Logging.Format, cfg.Logging.Format)
	cfg.Logging.AddSource = cfg.Logging.AddSource || f.Logging.AddSource

	cfg.RabbitMQ.URL = orDefault(f.RabbitMQ.URL, cfg.RabbitMQ.URL)
	if f.RabbitMQ.Prefetch > 0 {
		cfg.RabbitMQ.Prefetch = f.RabbitMQ.Prefetch
	}

	if f.RabbitMQ.ConnTimeoutSeconds > 0 {
		cfg.RabbitMQ.ConnTimeout = time.Duration(f.RabbitMQ.ConnTimeoutSeconds) * time.Second
	}

	cfg.NATS.URL = orDefault(f.NATS.URL, cfg.NATS.URL)
	cfg.NATS.Name = orDefault(f.NATS.Name, cfg.NATS.Name)

	if f.NATS.ConnTimeoutSeconds > 0 {
		cfg.NATS.ConnTimeout = time.Duration(f.NATS.ConnTimeoutSeconds) * time.Second
	}

	if f.NATS.MaxReconnects != 0 {
		cfg.NATS.MaxReconnects = f.NATS.MaxReconnects
	}

	if len(f.Kafka.Brokers) > 0 {
		cfg.Kafka.Brokers = f.Kafka.Brokers
	}

	cfg.Kafka.ClientID = orDefault(f.Kafka.ClientID, cfg.Kafka.ClientID)
	cfg.Kafka.FromStart = cfg.Kafka.FromStart || f.Kafka.FromStart

	return nil
}

// applyEnv reports every malformed numeric or boolean variable at once.
func applyEnv(cfg *Config) error {
	var errs []error

	cfg.Service = envString("SCG_SERVICE", cfg.Service)
	cfg.Transport = envString("SCG_TRANSPORT", cfg.Transport)
	cfg.Endpoints.Naming = envString("SCG_ENDPOINT_NAMING", cfg.Endpoints.Naming)
	cfg.Endpoints.Prefix = envString("SCG_ENDPOINT_PREFIX", cfg.Endpoints.Prefix)
	cfg.RabbitMQ.URL = envString("SCG_RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.NATS.URL = envString("SCG_NATS_URL", cfg.NATS.URL)
	cfg.Kafka.Brokers = envCSV("SCG_KAFKA_BROKERS", cfg.Kafka.Brokers)

	var err error

	if cfg.RabbitMQ.Prefetch, err = envInt("SCG_RABBITMQ_PREFETCH", cfg.RabbitMQ.Prefetch); err != nil {
		errs = append(errs, err)
	}

	if cfg.Kafka.FromStart, err = envBool("SCG_KAFKA_FROM_START", cfg.Kafka.FromStart); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Validate checks the transport and the settings it requires.
func (c Config) Validate() error {
	switch fold(c.Endpoints.Naming) {
	case "", "type", "kebab", "snake":
	default:
		return fmt.Errorf("endpoint naming %q: %w", c.Endpoints.Naming, berr.ErrNotConfigured)
	}

	switch fold(c.Transport) {
	case TransportInMemory:
	case TransportRabbitMQ:
		if c.RabbitMQ.URL == "" {
			return fmt.Errorf("rabbitmq.url required: %w", berr.ErrNotConfigured)
		}
	case TransportNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url required: %w", berr.ErrNotConfigured)
		}
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers required: %w", berr.ErrNotConfigured)
		}
	default:
		return fmt.Errorf("transport %q: %w", c.Transport, berr.ErrNotConfigured)
	}

	return nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}

	return fallback
}

func envString(name, fallback string) string {
	if raw := strings.TrimSpace(os.Getenv(name)); raw != "" {
		return raw
	}

	return fallback
}

func fold(v string) string { return strings.ToLower(strings.TrimSpace(v)) }

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s=%q: %w", name, raw, errors.Join(berr.ErrNotConfigured, err))
	}

	return v, nil
}

func envBool(name string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s=%q: %w", name, raw, errors.Join(berr.ErrNotConfigured, err))
	}

	return v, nil
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}

	var out []string

	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	return out
}

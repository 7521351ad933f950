package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every configuration error. Configuration errors
// are fatal and surface before the sampling loop starts.
var ErrInvalidConfig = errors.New("invalid configuration")

// Scheduling modes
const (
	SchedulingSleep    = "sleep"    // sleep a full interval after each tick
	SchedulingDeadline = "deadline" // wait until the next tick deadline
)

// Acquisition sources
const (
	SourceSystem = "system"
	SourceMock   = "mock"
)

// Acquisition failure policies
const (
	OnErrorFatal = "fatal"
	OnErrorSkip  = "skip"
)

// Outlet backends
const (
	BackendZeroMQ    = "zeromq"
	BackendMQTT      = "mqtt"
	BackendKafka     = "kafka"
	BackendWebSocket = "websocket"
)

// Sample encodings
const (
	EncodingJSON        = "json"
	EncodingFlatbuffers = "flatbuffers"
)

// Config represents the mouse tracker configuration
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Sampling SamplingConfig `yaml:"sampling" json:"sampling"`
	Display  DisplayConfig  `yaml:"display" json:"display"`
	Stream   StreamConfig   `yaml:"stream" json:"stream"`
	Server   ServerConfig   `yaml:"server" json:"server"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	LogPath string `yaml:"log_path,omitempty" json:"log_path,omitempty"`
}

// SamplingConfig controls the acquisition loop
type SamplingConfig struct {
	Hertz      int    `yaml:"hertz" json:"hertz"`
	Scheduling string `yaml:"scheduling" json:"scheduling"`
	Source     string `yaml:"source" json:"source"`
	OnError    string `yaml:"on_error" json:"on_error"`
}

// DisplayConfig controls telemetry rendering
type DisplayConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// StreamConfig describes the outbound stream and its transport
type StreamConfig struct {
	Enabled     bool            `yaml:"enabled" json:"enabled"`
	Backend     string          `yaml:"backend" json:"backend"`
	Encoding    string          `yaml:"encoding" json:"encoding"`
	Name        string          `yaml:"name" json:"name"`
	Type        string          `yaml:"type" json:"type"`
	SourceID    string          `yaml:"source_id" json:"source_id"`
	MaxBuffered int             `yaml:"max_buffered" json:"max_buffered"`
	ZeroMQ      ZeroMQConfig    `yaml:"zeromq" json:"zeromq"`
	MQTT        MQTTConfig      `yaml:"mqtt" json:"mqtt"`
	Kafka       KafkaConfig     `yaml:"kafka" json:"kafka"`
	WebSocket   WebSocketConfig `yaml:"websocket" json:"websocket"`
}

// ZeroMQConfig holds ZeroMQ-specific configuration
type ZeroMQConfig struct {
	PublishBindAddress string `yaml:"publish_bind_address" json:"publish_bind_address"`
	ConnectAddress     string `yaml:"connect_address" json:"connect_address"`
	Topic              string `yaml:"topic" json:"topic"`
}

// MQTTConfig holds MQTT broker settings
type MQTTConfig struct {
	Broker   string `yaml:"broker" json:"broker"`
	ClientID string `yaml:"client_id" json:"client_id"`
	Topic    string `yaml:"topic" json:"topic"`
	QoS      byte   `yaml:"qos" json:"qos"`
}

// KafkaConfig holds Kafka producer settings
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`
}

// WebSocketConfig holds the websocket outlet route
type WebSocketConfig struct {
	Path string `yaml:"path" json:"path"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Enabled  bool `yaml:"enabled" json:"enabled"`
	HTTPPort int  `yaml:"http_port" json:"http_port"`
}

// Default returns the built-in configuration. Files, environment variables and
// flags are layered on top of it.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Sampling: SamplingConfig{
			Hertz:      100,
			Scheduling: SchedulingSleep,
			Source:     SourceSystem,
			OnError:    OnErrorFatal,
		},
		Display: DisplayConfig{Enabled: true},
		Stream: StreamConfig{
			Enabled:     true,
			Backend:     BackendZeroMQ,
			Encoding:    EncodingJSON,
			Name:        "Mouse Tracker",
			Type:        "Mouse",
			SourceID:    "mouseoutlet1",
			MaxBuffered: 360,
			ZeroMQ: ZeroMQConfig{
				PublishBindAddress: "tcp://*:5560",
				ConnectAddress:     "tcp://localhost:5560",
				Topic:              "mouse",
			},
			MQTT: MQTTConfig{
				Broker:   "tcp://localhost:1883",
				ClientID: "mousetracker",
				Topic:    "mousetracker/samples",
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Topic:   "mousetracker.samples",
			},
			WebSocket: WebSocketConfig{Path: "/stream"},
		},
		Server: ServerConfig{HTTPPort: 8080},
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults.
// The result is not validated; call Validate once all layers are applied.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: error parsing config file '%s': %v", ErrInvalidConfig, path, err)
	}

	return cfg, nil
}

// Validate checks value ranges and the fields required by the selected backend.
func (c *Config) Validate() error {
	if c.Sampling.Hertz <= 0 {
		return fmt.Errorf("%w: sampling.hertz must be a positive integer, got %d", ErrInvalidConfig, c.Sampling.Hertz)
	}
	if err := oneOf("sampling.scheduling", c.Sampling.Scheduling, SchedulingSleep, SchedulingDeadline); err != nil {
		return err
	}
	if err := oneOf("sampling.source", c.Sampling.Source, SourceSystem, SourceMock); err != nil {
		return err
	}
	if err := oneOf("sampling.on_error", c.Sampling.OnError, OnErrorFatal, OnErrorSkip); err != nil {
		return err
	}
	if err := oneOf("stream.encoding", c.Stream.Encoding, EncodingJSON, EncodingFlatbuffers); err != nil {
		return err
	}
	if c.Stream.MaxBuffered <= 0 {
		return fmt.Errorf("%w: stream.max_buffered must be positive, got %d", ErrInvalidConfig, c.Stream.MaxBuffered)
	}
	if c.Stream.Name == "" {
		return missing("stream.name")
	}
	if c.Stream.SourceID == "" {
		return missing("stream.source_id")
	}

	switch c.Stream.Backend {
	case BackendZeroMQ:
		if c.Stream.ZeroMQ.PublishBindAddress == "" {
			return missing("stream.zeromq.publish_bind_address")
		}
		if c.Stream.ZeroMQ.Topic == "" {
			return missing("stream.zeromq.topic")
		}
	case BackendMQTT:
		if c.Stream.MQTT.Broker == "" {
			return missing("stream.mqtt.broker")
		}
		if c.Stream.MQTT.Topic == "" {
			return missing("stream.mqtt.topic")
		}
		if c.Stream.MQTT.QoS > 2 {
			return fmt.Errorf("%w: stream.mqtt.qos must be 0-2, got %d", ErrInvalidConfig, c.Stream.MQTT.QoS)
		}
	case BackendKafka:
		if len(c.Stream.Kafka.Brokers) == 0 {
			return missing("stream.kafka.brokers")
		}
		if c.Stream.Kafka.Topic == "" {
			return missing("stream.kafka.topic")
		}
	case BackendWebSocket:
		if c.Stream.WebSocket.Path == "" {
			return missing("stream.websocket.path")
		}
	default:
		return fmt.Errorf("%w: unknown stream.backend %q", ErrInvalidConfig, c.Stream.Backend)
	}

	if c.ServerRequired() && (c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535) {
		return fmt.Errorf("%w: server.http_port must be 1-65535, got %d", ErrInvalidConfig, c.Server.HTTPPort)
	}
	return nil
}

// ServerRequired reports whether the HTTP server has to run: either it is
// enabled explicitly or the websocket outlet needs it.
func (c *Config) ServerRequired() bool {
	return c.Server.Enabled || c.Stream.Backend == BackendWebSocket
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be one of %v, got %q", ErrInvalidConfig, field, allowed, value)
}

func missing(field string) error {
	return fmt.Errorf("%w: missing required field: %s", ErrInvalidConfig, field)
}

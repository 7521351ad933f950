package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "mousetracker.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadConfig(t *testing.T) {
	configContent := `
logging:
  level: "debug"
  log_path: "/var/log/mousetracker"
sampling:
  hertz: 250
  scheduling: "deadline"
  source: "mock"
  on_error: "skip"
display:
  enabled: false
stream:
  backend: "mqtt"
  encoding: "flatbuffers"
  mqtt:
    broker: "tcp://broker.local:1883"
    topic: "lab/mouse"
    qos: 1
server:
  enabled: true
  http_port: 9090
`
	config, err := LoadConfig(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Logging.Level != "debug" {
		t.Errorf("Expected logging level 'debug', got '%s'", config.Logging.Level)
	}
	if config.Sampling.Hertz != 250 {
		t.Errorf("Expected hertz 250, got %d", config.Sampling.Hertz)
	}
	if config.Sampling.Scheduling != SchedulingDeadline {
		t.Errorf("Expected scheduling deadline, got %s", config.Sampling.Scheduling)
	}
	if config.Display.Enabled {
		t.Errorf("Expected display disabled")
	}
	if config.Stream.MQTT.Broker != "tcp://broker.local:1883" {
		t.Errorf("Expected mqtt broker tcp://broker.local:1883, got %s", config.Stream.MQTT.Broker)
	}
	if config.Stream.MQTT.QoS != 1 {
		t.Errorf("Expected mqtt qos 1, got %d", config.Stream.MQTT.QoS)
	}
	if config.Server.HTTPPort != 9090 {
		t.Errorf("Expected http_port 9090, got %d", config.Server.HTTPPort)
	}

	// Fields absent from the file keep their defaults
	if config.Stream.Name != "Mouse Tracker" {
		t.Errorf("Expected default stream name, got %s", config.Stream.Name)
	}
	if config.Stream.SourceID != "mouseoutlet1" {
		t.Errorf("Expected default source id, got %s", config.Stream.SourceID)
	}
	if config.Stream.MaxBuffered != 360 {
		t.Errorf("Expected default max_buffered 360, got %d", config.Stream.MaxBuffered)
	}
	if !config.Stream.Enabled {
		t.Errorf("Expected streaming enabled by default")
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected loaded config to validate, got %v", err)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "sampling: [hertz"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero hertz", func(c *Config) { c.Sampling.Hertz = 0 }, "sampling.hertz must be a positive integer"},
		{"negative hertz", func(c *Config) { c.Sampling.Hertz = -5 }, "sampling.hertz must be a positive integer"},
		{"bad scheduling", func(c *Config) { c.Sampling.Scheduling = "cron" }, "sampling.scheduling"},
		{"bad source", func(c *Config) { c.Sampling.Source = "tablet" }, "sampling.source"},
		{"bad on_error", func(c *Config) { c.Sampling.OnError = "retry" }, "sampling.on_error"},
		{"bad encoding", func(c *Config) { c.Stream.Encoding = "xml" }, "stream.encoding"},
		{"zero buffer", func(c *Config) { c.Stream.MaxBuffered = 0 }, "stream.max_buffered"},
		{"unknown backend", func(c *Config) { c.Stream.Backend = "lsl" }, "unknown stream.backend"},
		{"zeromq address", func(c *Config) { c.Stream.ZeroMQ.PublishBindAddress = "" }, "missing required field: stream.zeromq.publish_bind_address"},
		{"mqtt broker", func(c *Config) {
			c.Stream.Backend = BackendMQTT
			c.Stream.MQTT.Broker = ""
		}, "missing required field: stream.mqtt.broker"},
		{"mqtt qos", func(c *Config) {
			c.Stream.Backend = BackendMQTT
			c.Stream.MQTT.QoS = 3
		}, "stream.mqtt.qos"},
		{"kafka brokers", func(c *Config) {
			c.Stream.Backend = BackendKafka
			c.Stream.Kafka.Brokers = nil
		}, "missing required field: stream.kafka.brokers"},
		{"websocket port", func(c *Config) {
			c.Stream.Backend = BackendWebSocket
			c.Server.HTTPPort = 0
		}, "server.http_port"},
		{"disabled server ignores port", func(c *Config) { c.Server.HTTPPort = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error to contain '%s', got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestBootstrapDefaults(t *testing.T) {
	cfg, err := Bootstrap("mousetracker", nil, io.Discard)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if cfg.Sampling.Hertz != 100 {
		t.Errorf("Expected default hertz 100, got %d", cfg.Sampling.Hertz)
	}
	if !cfg.Stream.Enabled {
		t.Errorf("Expected streaming enabled by default")
	}
}

func TestBootstrapFlags(t *testing.T) {
	tests := []struct {
		args        []string
		wantHertz   int
		wantEnabled bool
	}{
		{[]string{"-s", "10"}, 10, true},
		{[]string{"--hertz", "250"}, 250, true},
		{[]string{"-l", "0"}, 100, false},
		{[]string{"--LSL", "1"}, 100, true},
		{[]string{"-l", "7"}, 100, false},
		{[]string{"-s", "10", "-l", "0"}, 10, false},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			cfg, err := Bootstrap("mousetracker", tt.args, io.Discard)
			if err != nil {
				t.Fatalf("Bootstrap failed: %v", err)
			}
			if cfg.Sampling.Hertz != tt.wantHertz {
				t.Errorf("Expected hertz %d, got %d", tt.wantHertz, cfg.Sampling.Hertz)
			}
			if cfg.Stream.Enabled != tt.wantEnabled {
				t.Errorf("Expected streaming %v, got %v", tt.wantEnabled, cfg.Stream.Enabled)
			}
		})
	}
}

func TestBootstrapRejectsBadRate(t *testing.T) {
	for _, args := range [][]string{
		{"-s", "0"},
		{"-s", "-10"},
		{"--hertz", "fast"},
		{"-s", "12.5"},
	} {
		_, err := Bootstrap("mousetracker", args, io.Discard)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig for %v, got %v", args, err)
		}
	}
}

func TestBootstrapHelp(t *testing.T) {
	_, err := Bootstrap("mousetracker", []string{"-h"}, io.Discard)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("Expected flag.ErrHelp, got %v", err)
	}
}

func TestBootstrapMissingExplicitConfigFile(t *testing.T) {
	missingPath := filepath.Join(t.TempDir(), "nope.yaml")
	_, err := Bootstrap("mousetracker", []string{"-config", missingPath}, io.Discard)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for missing explicit file, got %v", err)
	}
}

func TestBootstrapPrecedence(t *testing.T) {
	configPath := writeConfig(t, `
sampling:
  hertz: 50
stream:
  backend: "kafka"
`)

	// Environment beats the file
	t.Setenv(EnvHertz, "60")
	cfg, err := Bootstrap("mousetracker", []string{"-config", configPath}, io.Discard)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if cfg.Sampling.Hertz != 60 {
		t.Errorf("Expected env hertz 60, got %d", cfg.Sampling.Hertz)
	}
	if cfg.Stream.Backend != BackendKafka {
		t.Errorf("Expected file backend kafka, got %s", cfg.Stream.Backend)
	}

	// Flags beat the environment
	cfg, err = Bootstrap("mousetracker", []string{"-config", configPath, "-s", "70", "-backend", "zeromq"}, io.Discard)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if cfg.Sampling.Hertz != 70 {
		t.Errorf("Expected flag hertz 70, got %d", cfg.Sampling.Hertz)
	}
	if cfg.Stream.Backend != BackendZeroMQ {
		t.Errorf("Expected flag backend zeromq, got %s", cfg.Stream.Backend)
	}
}

func TestBootstrapInvalidEnv(t *testing.T) {
	t.Setenv(EnvHertz, "lots")
	_, err := Bootstrap("mousetracker", nil, io.Discard)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestBootstrapDotEnv(t *testing.T) {
	// godotenv never overrides variables that are already present
	for _, key := range []string{EnvBackend, EnvKafkaBroker} {
		key := key
		if prev, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, prev) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}

	envPath := filepath.Join(t.TempDir(), "test.env")
	envContent := EnvBackend + "=kafka\n" + EnvKafkaBroker + "=k1:9092, k2:9092\n"
	if err := os.WriteFile(envPath, []byte(envContent), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	cfg, err := Bootstrap("mousetracker", []string{"-env", envPath}, io.Discard)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if cfg.Stream.Backend != BackendKafka {
		t.Errorf("Expected backend kafka from .env, got %s", cfg.Stream.Backend)
	}
	if len(cfg.Stream.Kafka.Brokers) != 2 || cfg.Stream.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Expected brokers [k1:9092 k2:9092], got %v", cfg.Stream.Kafka.Brokers)
	}
}

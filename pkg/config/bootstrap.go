package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultConfigFile is read when -config is not given. It is optional.
const DefaultConfigFile = "mousetracker.yaml"

// Environment variable overrides, applied after the config file and before flags.
const (
	EnvHertz       = "MOUSETRACKER_HERTZ"
	EnvLSL         = "MOUSETRACKER_LSL"
	EnvBackend     = "MOUSETRACKER_BACKEND"
	EnvEncoding    = "MOUSETRACKER_ENCODING"
	EnvLogLevel    = "MOUSETRACKER_LOG_LEVEL"
	EnvLogPath     = "MOUSETRACKER_LOG_PATH"
	EnvZMQAddress  = "MOUSETRACKER_ZMQ_ADDRESS"
	EnvMQTTBroker  = "MOUSETRACKER_MQTT_BROKER"
	EnvKafkaBroker = "MOUSETRACKER_KAFKA_BROKERS"
	EnvHTTPPort    = "MOUSETRACKER_HTTP_PORT"
)

// Bootstrap resolves the run configuration from defaults, the YAML file, an
// optional .env file, MOUSETRACKER_* environment variables and command-line
// flags, in that order of precedence. The result is validated.
//
// flag.ErrHelp is returned unchanged when -h is given.
func Bootstrap(name string, args []string, stderr io.Writer) (*Config, error) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath string
		envPath    string
		hertz      int
		lsl        int
		backend    string
		logLevel   string
	)
	flags.StringVar(&configPath, "config", DefaultConfigFile, "path to the YAML configuration file")
	flags.StringVar(&envPath, "env", "", "path to a .env file with MOUSETRACKER_* overrides")
	flags.IntVar(&hertz, "s", 100, "sample rate in Hz")
	flags.IntVar(&hertz, "hertz", 100, "sample rate in Hz")
	flags.IntVar(&lsl, "l", 1, "1 = stream samples from startup, anything else = start with streaming off")
	flags.IntVar(&lsl, "LSL", 1, "1 = stream samples from startup, anything else = start with streaming off")
	flags.StringVar(&backend, "backend", "", "outbound stream backend (zeromq, mqtt, kafka, websocket)")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", ErrInvalidConfig, flags.Args())
	}

	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := loadLayeredFile(configPath, set["config"])
	if err != nil {
		return nil, err
	}

	if err := loadDotEnv(envPath, set["env"]); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if set["s"] || set["hertz"] {
		cfg.Sampling.Hertz = hertz
	}
	if set["l"] || set["LSL"] {
		cfg.Stream.Enabled = lsl == 1
	}
	if set["backend"] {
		cfg.Stream.Backend = backend
	}
	if set["log-level"] {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadLayeredFile reads the config file. A missing default file yields the
// built-in defaults; a missing explicitly named file is an error.
func loadLayeredFile(path string, explicit bool) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if errors.Is(err, ErrInvalidConfig) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
}

// loadDotEnv loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set.
func loadDotEnv(path string, explicit bool) error {
	if !explicit {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: error loading env file '%s': %v", ErrInvalidConfig, path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvHertz); ok {
		hz, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: invalid %s %q: %v", ErrInvalidConfig, EnvHertz, v, err)
		}
		cfg.Sampling.Hertz = hz
	}
	if v, ok := os.LookupEnv(EnvLSL); ok {
		flagVal, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: invalid %s %q: %v", ErrInvalidConfig, EnvLSL, v, err)
		}
		cfg.Stream.Enabled = flagVal == 1
	}
	if v, ok := os.LookupEnv(EnvBackend); ok {
		cfg.Stream.Backend = v
	}
	if v, ok := os.LookupEnv(EnvEncoding); ok {
		cfg.Stream.Encoding = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogPath); ok {
		cfg.Logging.LogPath = v
	}
	if v, ok := os.LookupEnv(EnvZMQAddress); ok {
		cfg.Stream.ZeroMQ.PublishBindAddress = v
	}
	if v, ok := os.LookupEnv(EnvMQTTBroker); ok {
		cfg.Stream.MQTT.Broker = v
	}
	if v, ok := os.LookupEnv(EnvKafkaBroker); ok {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.Stream.Kafka.Brokers = brokers
	}
	if v, ok := os.LookupEnv(EnvHTTPPort); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: invalid %s %q: %v", ErrInvalidConfig, EnvHTTPPort, v, err)
		}
		cfg.Server.HTTPPort = port
	}
	return nil
}

package web2rpc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigFormat  = errors.New("web2rpc: unsupported config format")
	ErrConfigInvalid = errors.New("web2rpc: invalid config")
)

// Duration is a [time.Duration] read from and written to config files as text, such as "13s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}

	d.Duration = v

	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds the settings shared by service clients. It is loaded from TOML or
// YAML with [LoadConfig].
//
//	endpoint = "https://public-api.birdeye.so"
//	api_key = "..."
//	timeout = "13s"
//	log_level = "debug"
//
//	[headers]
//	x-chain = "solana"
type Config struct {
	Headers        map[string]string `toml:"headers" yaml:"headers"`
	Endpoint       string            `toml:"endpoint" yaml:"endpoint"`
	APIKey         string            `toml:"api_key" yaml:"api_key"`
	UserAgent      string            `toml:"user_agent" yaml:"user_agent"`
	LogLevel       string            `toml:"log_level" yaml:"log_level"`
	Timeout        Duration          `toml:"timeout" yaml:"timeout"`
	MaxBodyBytes   int64             `toml:"max_body_bytes" yaml:"max_body_bytes"`
	BufferPoolSize int32             `toml:"buffer_pool_size" yaml:"buffer_pool_size"`
	Compression    bool              `toml:"compression" yaml:"compression"`
}

// DefaultConfig returns the settings used for anything a config file leaves out.
func DefaultConfig() Config {
	return Config{
		Timeout:      Duration{DefaultTimeout},
		MaxBodyBytes: DefaultMaxBodyBytes,
		LogLevel:     "info",
		Compression:  true,
	}
}

// LoadConfig reads a config file over [DefaultConfig] and validates it. The format is
// chosen by extension: .toml, .yaml or .yml. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}

		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}

			sort.Strings(keys)

			return Config{}, fmt.Errorf("%w (%s): unknown keys %s", ErrConfigInvalid, path, strings.Join(keys, ", "))
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrConfigFormat, path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil {
			return fmt.Errorf("%w: endpoint: %w", ErrConfigInvalid, err)
		}

		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: endpoint must be an absolute http(s) url: %q", ErrConfigInvalid, c.Endpoint)
		}
	}

	if c.Timeout.Duration < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrConfigInvalid)
	}

	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: max_body_bytes must not be negative", ErrConfigInvalid)
	}

	if c.BufferPoolSize < 0 {
		return fmt.Errorf("%w: buffer_pool_size must not be negative", ErrConfigInvalid)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrConfigInvalid, err)
	}

	return nil
}

// Level returns the configured log level, or info if it is not a valid level.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}

	return lvl
}

// Logger builds a console logger writing to w at the configured level.
func (c Config) Logger(w io.Writer, app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).Level(c.Level()).With().Timestamp().Str("app", app).Logger()
}

// Header returns the configured headers as an [http.Header].
func (c Config) Header() http.Header {
	h := make(http.Header, len(c.Headers))
	for k, v := range c.Headers {
		h.Set(k, v)
	}

	return h
}

// NewTransport builds an [*HTTPTransport] from the config.
func (c Config) NewTransport() (*HTTPTransport, error) {
	return NewHTTPTransport(HTTPTransportConfig{
		Header:             c.Header(),
		UserAgent:          c.UserAgent,
		MaxBodyBytes:       c.MaxBodyBytes,
		BufferPoolSize:     c.BufferPoolSize,
		DisableCompression: !c.Compression,
	})
}

// NewPipeline builds a [*Pipeline] over t with the configured timeout and logger.
func (c Config) NewPipeline(t Transport, logger zerolog.Logger) *Pipeline {
	p := NewPipeline(t)
	p.SetDefaultTimeout(c.Timeout.Duration)
	p.SetLogger(logger)

	return p
}

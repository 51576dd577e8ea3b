// Package config loads the demo server configuration from a YAML file
// with RESTMACH_ environment variables layered on top.
package config

import (
	"errors"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Greeting  GreetingConfig  `koanf:"greeting"`
	Remote    RemoteConfig    `koanf:"remote"`
}

type ServerConfig struct {
	Port           int    `koanf:"port"`
	RequestTimeout string `koanf:"request_timeout"` // Duration string like "30s"
	DebugHeader    string `koanf:"debug_header"`    // Optional: rename the debug unlock header
	TraceStages    bool   `koanf:"trace_stages"`    // Log per-stage timing to the console
	AllowOrigin    string `koanf:"allow_origin"`    // CORS origin answered on OPTIONS
}

// Timeout parses RequestTimeout, falling back to 30s.
func (c ServerConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // memory, sqlite, mongo
	SQLite SQLiteConfig `koanf:"sqlite"`
	Mongo  MongoConfig  `koanf:"mongo"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

type GreetingConfig struct {
	Message string `koanf:"message"`
}

type RemoteConfig struct {
	Target string `koanf:"target"` // Empty disables the remote endpoint
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml from the working directory.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile reads the named YAML file, then environment variables on
// top. A missing file is not an error; RESTMACH_SERVER__PORT style
// variables map to server.port style keys.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	// Environment variables override file config
	if err := k.Load(env.Provider("RESTMACH_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "RESTMACH_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("server.request_timeout") {
		k.Set("server.request_timeout", "30s")
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "memory")
	}
	if !k.Exists("storage.sqlite.path") {
		k.Set("storage.sqlite.path", "./data/restmach.db")
	}
	if !k.Exists("greeting.message") {
		k.Set("greeting.message", "Hello from restmach!\n")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute ${VAR} references in secret-bearing fields
	cfg.Storage.Mongo.URI = substituteEnvVars(cfg.Storage.Mongo.URI)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

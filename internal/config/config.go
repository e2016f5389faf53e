package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultUpdateFrequency is used for websites without update_frequency.
const DefaultUpdateFrequency = 30 * time.Second

// DefaultPostTypes is used for websites without post_types.
var DefaultPostTypes = []string{"post"}

// Document is a decoded configuration file keyed by environment name.
type Document map[string]any

// Environment is the typed view of one environment section.
type Environment struct {
	Database Database  `yaml:"database"`
	Websites []Website `yaml:"websites"`
	Logging  Logging   `yaml:"logging"`
	Publish  *Publish  `yaml:"publish,omitempty"`
}

type Database struct {
	Client     string      `yaml:"client"`
	Connection Connection  `yaml:"connection"`
	Pool       *Pool       `yaml:"pool,omitempty"`
	Migrations *Migrations `yaml:"migrations,omitempty"`
	Seeds      *Seeds      `yaml:"seeds,omitempty"`
}

type Connection struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port,omitempty"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Pool bounds are optional; nil means "driver default".
type Pool struct {
	Min *int `yaml:"min,omitempty"`
	Max *int `yaml:"max,omitempty"`
}

type Migrations struct {
	TableName           string `yaml:"tableName,omitempty"`
	Directory           string `yaml:"directory,omitempty"`
	Extension           string `yaml:"extension,omitempty"`
	DisableTransactions bool   `yaml:"disableTransactions,omitempty"`
}

type Seeds struct {
	Directory string `yaml:"directory"`
}

// Website describes one remote content source.
type Website struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	URL      string `yaml:"url"`
	APIURL   string `yaml:"api_url,omitempty"`
	// XMLRPC is the legacy spelling of api_url.
	XMLRPC          string   `yaml:"xmlrpc,omitempty"`
	Languages       []string `yaml:"languages,omitempty"`
	UpdateFrequency int64    `yaml:"update_frequency,omitempty"` // milliseconds
	PostTypes       []string `yaml:"post_types,omitempty"`
}

// Interval returns the polling interval, falling back to DefaultUpdateFrequency.
func (w Website) Interval() time.Duration {
	if w.UpdateFrequency <= 0 {
		return DefaultUpdateFrequency
	}
	return time.Duration(w.UpdateFrequency) * time.Millisecond
}

type Logging struct {
	DebugFile string `yaml:"debug_file"`
	ErrorFile string `yaml:"error_file"`
	Level     string `yaml:"level,omitempty"`
}

// Publish configures the optional Kafka sink for fetched resources.
type Publish struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Load reads a YAML configuration document. A file that cannot be read is
// reported as ErrConfigMissing; a file that cannot be parsed is a plain error.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigMissing, path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a Document. Empty input yields an empty
// Document, which Resolve rejects as missing. Nested mappings decode as
// map[string]any.
func Parse(data []byte) (Document, error) {
	// Decoding into Document directly would make every nested mapping a
	// Document too.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if raw == nil {
		return Document{}, nil
	}
	return Document(raw), nil
}

// Decode converts a validated environment section into its typed form and
// applies defaults.
func Decode(raw map[string]any) (Environment, error) {
	var env Environment
	if raw == nil {
		return env, errors.New("config: decode: empty environment")
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return env, fmt.Errorf("config: decode: %w", err)
	}
	if err := yaml.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("config: decode: %w", err)
	}

	for i := range env.Websites {
		w := &env.Websites[i]
		if w.APIURL == "" {
			w.APIURL = w.XMLRPC
		}
		if len(w.PostTypes) == 0 {
			w.PostTypes = append([]string(nil), DefaultPostTypes...)
		}
	}
	if env.Logging.Level == "" {
		env.Logging.Level = "info"
	}
	return env, nil
}

// DefaultPath returns ORCHESTRA_CONFIG or "config.yaml".
func DefaultPath() string {
	return envOr("ORCHESTRA_CONFIG", "config.yaml")
}

// DefaultEnvironment returns ORCHESTRA_ENV or "production".
func DefaultEnvironment() string {
	return envOr("ORCHESTRA_ENV", "production")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Package config loads engine and store configuration from YAML or CUE
// files.
//
// Precedence is defaults, then the file, then explicit overrides applied by
// the caller (the CLI applies its flags last).
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dagclosure/internal/model"
)

//go:embed schema.cue
var schemaSource string

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// DefaultPath is the SQLite database used when none is configured.
const DefaultPath = "dag.db"

// ErrUnknownFormat is returned for files that are neither YAML nor CUE.
var ErrUnknownFormat = errors.New("unknown config format")

// Config is the top-level configuration.
type Config struct {
	Store       StoreConfig `json:"store" yaml:"store"`
	Polymorphic bool        `json:"polymorphic" yaml:"polymorphic"`
	LogLevel    string      `json:"log_level" yaml:"log_level"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	// Driver is one of sqlite, badger, memory.
	Driver string `json:"driver" yaml:"driver"`

	// Path is the SQLite file or Badger directory.
	Path string `json:"path" yaml:"path"`

	// SyncWrites makes Badger fsync every commit.
	SyncWrites bool `json:"sync_writes" yaml:"sync_writes"`

	// Columns names the SQLite table and columns.
	Columns model.Columns `json:"columns" yaml:"columns"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver:     DriverSQLite,
			Path:       DefaultPath,
			SyncWrites: true,
			Columns:    model.DefaultColumns(),
		},
		LogLevel: "info",
	}
}

// Load reads path, choosing the decoder by extension (.yaml, .yml, .cue),
// and returns the validated result on top of Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = decodeYAML(data)
	case ".cue":
		cfg, err = decodeCUE(path, data)
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeYAML(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// An empty file decodes to EOF; defaults stand.
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func decodeCUE(path string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}

	file := ctx.CompileBytes(data, cue.Filename(path))
	if err := file.Err(); err != nil {
		return Config{}, fmt.Errorf("compile cue: %w", err)
	}

	v := schema.Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("validate cue: %w", err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode cue: %w", err)
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	d := Default()
	if c.Store.Driver == "" {
		c.Store.Driver = d.Store.Driver
	}
	if c.Store.Path == "" && c.Store.Driver != DriverMemory {
		c.Store.Path = d.Store.Path
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	c.Store.Columns = c.Store.Columns.WithDefaults()
	return c
}

// Validate checks driver, path, columns and log level.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverBadger:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for driver %q", c.Store.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	if err := c.Store.Columns.Validate(); err != nil {
		return fmt.Errorf("store.columns: %w", err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured slog level. Invalid levels yield Info.
func (c Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

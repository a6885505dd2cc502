// Package config loads settings from a YAML file, EXAMDECK_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "EXAMDECK_"

// Config holds the runtime settings.
type Config struct {
	DBPath   string `koanf:"db" validate:"required"`
	Strategy string `koanf:"strategy" validate:"oneof=line block"`
	Mode     string `koanf:"mode" validate:"oneof=due random"`
	Addr     string `koanf:"addr" validate:"required"`
	ReposDir string `koanf:"repos-dir" validate:"required"`
	Repo     string `koanf:"repo"`
	LogLevel string `koanf:"log-level" validate:"oneof=debug info warn error"`

	// Overrides maps a question number to the letter treated as correct,
	// for source documents with known wrong answers.
	Overrides map[string]string `koanf:"overrides" validate:"dive,keys,numeric,endkeys,len=1,uppercase"`
}

// Load parses args and layers the config file, environment and flags.
// It returns the positional arguments left after the flags.
func Load(args []string) (*Config, []string, error) {
	flags := pflag.NewFlagSet("examdeck", pflag.ContinueOnError)
	configPath := flags.String("config", "examdeck.yaml", "Path to the YAML config file")
	flags.String("db", "examdeck.db", "Path to the SQLite database file")
	flags.String("strategy", "block", "Question extraction strategy: line or block")
	flags.String("mode", "due", "Question selection: due or random")
	flags.String("addr", "127.0.0.1:8080", "Listen address for serve")
	flags.String("repos-dir", "repos", "Directory for cloned git sources")
	flags.String("repo", "", "Git repository to read the PDF from (ingest)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")

	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(*configPath), yaml.Parser()); err != nil {
		// A missing file is fine unless it was asked for explicitly.
		if !errors.Is(err, fs.ErrNotExist) || flags.Changed("config") {
			return nil, nil, fmt.Errorf("failed to load config file %s: %w", *configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, flags.Args(), nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// AnswerOverrides returns the overrides keyed by question number.
func (c *Config) AnswerOverrides() map[int]string {
	out := make(map[int]string, len(c.Overrides))
	for k, v := range c.Overrides {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[n] = v
	}
	return out
}

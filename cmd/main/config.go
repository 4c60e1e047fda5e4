package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/namegen/pkg/markov"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// GenerationConfig holds the settings used to build chains and generate names.
type GenerationConfig struct {
	HaltSymbol  string `json:"halt_symbol" yaml:"halt_symbol"`
	Separator   string `json:"separator" yaml:"separator"` // empty uses the tokenizer's separator
	Tokenizer   string `json:"tokenizer" yaml:"tokenizer"`
	MaxLength   int    `json:"max_length" yaml:"max_length"`
	MinLength   int    `json:"min_length" yaml:"min_length"`
	MaxAttempts int    `json:"max_attempts" yaml:"max_attempts"`
	Seed        uint64 `json:"seed" yaml:"seed"` // 0 seeds from the clock
	Count       int    `json:"count" yaml:"count"`
}

// MarshalYAML writes the halt symbol and separator double-quoted. A plain
// block scalar holding only "\n" reads back as an empty string.
func (g GenerationConfig) MarshalYAML() (any, error) {
	type plain GenerationConfig
	var node yaml.Node
	if err := node.Encode(plain(g)); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case "halt_symbol", "separator":
			node.Content[i+1].Style = yaml.DoubleQuotedStyle
		}
	}
	return &node, nil
}

// ServerConfig holds the configuration for the HTTP server and the database.
type ServerConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	LogLevel     string `json:"log_level" yaml:"log_level"`
	DatabasePath string `json:"database_path" yaml:"database_path"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Generation *GenerationConfig `json:"generation_config" yaml:"generation_config"`
	Server     *ServerConfig     `json:"server_config" yaml:"server_config"`
}

// DefaultGenerationConfig creates a generation configuration with default values.
func DefaultGenerationConfig() *GenerationConfig {
	return &GenerationConfig{
		HaltSymbol:  "\n",
		Separator:   "",
		Tokenizer:   markov.CharTokenizerName,
		MaxLength:   0,
		MinLength:   markov.DefaultMinLength,
		MaxAttempts: markov.DefaultMaxAttempts,
		Seed:        0,
		Count:       20,
	}
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:         ":7279",
		LogLevel:     "info",
		DatabasePath: "./data/namegen.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
	}
}

// DefaultConfig returns a Config filled with default values.
func DefaultConfig() *Config {
	return &Config{
		Generation: DefaultGenerationConfig(),
		Server:     DefaultServerConfig(),
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func marshalConfig(path string, config *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}
	return json.MarshalIndent(config, "", "  ")
}

// LoadConfig reads the configuration from a JSON or YAML file at the given
// path, chosen by extension. If the file doesn't exist, it creates one with
// default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			var data []byte
			data, err = marshalConfig(path, config)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(file, config)
	} else {
		err = json.Unmarshal(file, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// A file may omit a whole section.
	if config.Generation == nil {
		config.Generation = DefaultGenerationConfig()
	}
	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}

	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	g := c.Generation
	switch {
	case g.HaltSymbol == "":
		return errors.New("halt_symbol must not be empty")
	case g.MinLength < 0:
		return errors.New("min_length must not be negative")
	case g.MaxLength < 0:
		return errors.New("max_length must not be negative")
	case g.MaxAttempts < 1:
		return errors.New("max_attempts must be at least 1")
	case g.Count < 0:
		return errors.New("count must not be negative")
	case g.MaxLength > 0 && g.MaxLength <= g.MinLength:
		return errors.New("max_length must be greater than min_length")
	}
	if _, err := markov.TokenizerByName(g.Tokenizer); err != nil {
		return err
	}
	return nil
}

// NewTokenizer returns the configured tokenizer.
func (g *GenerationConfig) NewTokenizer() (markov.Tokenizer, error) {
	if g.Tokenizer == markov.WordTokenizerName && g.Separator != "" {
		return markov.NewWordTokenizer(markov.WithTokenSeparator(g.Separator)), nil
	}
	return markov.TokenizerByName(g.Tokenizer)
}

// NewChain returns an empty chain for tok, honoring the configured halt
// symbol and separator.
func (g *GenerationConfig) NewChain(tok markov.Tokenizer, logger *slog.Logger) *markov.Chain[string] {
	opts := []markov.ChainOption[string]{markov.WithLogger[string](logger)}
	if g.Separator != "" {
		opts = append(opts, markov.WithSeparator[string](g.Separator))
	}
	return markov.NewTokenizerChain(tok, g.HaltSymbol, opts...)
}

// GenerateOptions converts the length and retry settings to markov options.
func (g *GenerationConfig) GenerateOptions() []markov.GenerateOption {
	return []markov.GenerateOption{
		markov.WithMinLength(g.MinLength),
		markov.WithMaxLength(g.MaxLength),
		markov.WithMaxAttempts(g.MaxAttempts),
	}
}

// parseLogLevel maps a config string to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

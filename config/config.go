// Package config holds runtime configuration: defaults, the optional YAML
// file, command-line flags, and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"photoconv/contracts"
)

// WorkerMode selects where conversions run.
type WorkerMode string

const (
	WorkerInProcess WorkerMode = "inprocess" // Dedicated worker goroutine (default).
	WorkerProcess   WorkerMode = "process"   // Child process speaking the frame protocol.
	WorkerNone      WorkerMode = "none"      // Everything on the calling goroutine.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

type ThumbnailConfig struct {
	MaxEdge int `yaml:"max_edge"` // Default: 160 px.
	Quality int `yaml:"quality"`  // Default: 70 (JPEG, 1-100).
}

type WorkerConfig struct {
	Mode    WorkerMode `yaml:"mode"`
	Command string     `yaml:"command"` // Worker binary; empty means this executable.
}

// Config holds all runtime settings. It is populated by DefaultConfig, then
// by LoadFile when -config is given, then by ParseFlags.
type Config struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`

	Format     contracts.TargetFormat   `yaml:"format"`
	Quality    float64                  `yaml:"quality"`     // 0-1, or 1-100 as a percentage.
	TargetSize ByteSize                 `yaml:"target_size"` // 0 disables the quality search.
	Metadata   contracts.MetadataPolicy `yaml:"metadata"`

	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Worker    WorkerConfig    `yaml:"worker"`

	Watch   bool      `yaml:"watch"`
	LogFile string    `yaml:"log_file"`
	Color   ColorMode `yaml:"color"`
	Verbose bool      `yaml:"verbose"`

	// Command-line only.
	ConfigPath  string `yaml:"-"`
	ServeWorker bool   `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Format:   contracts.FormatJPEG,
		Quality:  0.85,
		Metadata: contracts.MetadataStrip,
		Thumbnail: ThumbnailConfig{
			MaxEdge: 160,
			Quality: 70,
		},
		Worker: WorkerConfig{
			Mode: WorkerInProcess,
		},
		Color: ColorAuto,
	}
}

// LoadFile reads a YAML file on top of the values already in cfg.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// Validate checks enum fields and ranges and normalizes Quality to (0,1].
// Directory paths are only required outside worker mode.
func (c *Config) Validate() error {
	switch c.Format {
	case contracts.FormatJPEG, contracts.FormatPNG, contracts.FormatPDF:
	default:
		return errors.New("invalid format (use 'jpeg', 'png' or 'pdf')")
	}
	switch c.Metadata {
	case contracts.MetadataStrip, contracts.MetadataKeepBasic:
	default:
		return errors.New("invalid metadata policy (use 'strip' or 'keepBasic')")
	}
	switch c.Worker.Mode {
	case WorkerInProcess, WorkerProcess, WorkerNone:
	default:
		return errors.New("invalid worker mode (use 'inprocess', 'process' or 'none')")
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.Quality > 1 && c.Quality <= 100 {
		c.Quality /= 100
	}
	if c.Quality <= 0 || c.Quality > 1 {
		return fmt.Errorf("quality %v out of range (use 0-1 or 1-100)", c.Quality)
	}
	if c.TargetSize < 0 {
		return errors.New("target size must not be negative")
	}
	if c.Thumbnail.MaxEdge <= 0 {
		return errors.New("thumbnail max edge must be positive")
	}
	if c.Thumbnail.Quality < 1 || c.Thumbnail.Quality > 100 {
		return errors.New("thumbnail quality must be within 1-100")
	}

	if c.ServeWorker {
		return nil
	}
	if c.InputDir == "" || c.OutputDir == "" {
		return errors.New("input and output directories required")
	}
	return nil
}

// Request builds the per-batch conversion request.
func (c *Config) Request() contracts.ConversionRequest {
	return contracts.ConversionRequest{
		TargetFormat:    c.Format,
		Quality:         c.Quality,
		TargetSizeBytes: int(c.TargetSize),
		MetadataPolicy:  c.Metadata,
	}
}

// ByteSize is a size in bytes that parses "200KB", "1.5MB", "300k" or "4096".
// Units are binary (1KB = 1024 bytes).
type ByteSize int64

func ParseByteSize(raw string) (ByteSize, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" || s == "0" {
		return 0, nil
	}
	mult := 1.0
	for _, u := range []struct {
		suffix string
		mult   float64
	}{
		{"MB", 1 << 20}, {"M", 1 << 20},
		{"KB", 1 << 10}, {"K", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q (e.g. 200KB, 1.5MB)", raw)
	}
	return ByteSize(n * mult), nil
}

func (b ByteSize) String() string {
	switch {
	case b >= 1<<20 && b%(1<<20) == 0:
		return fmt.Sprintf("%dMB", b>>20)
	case b >= 1<<10 && b%(1<<10) == 0:
		return fmt.Sprintf("%dKB", b>>10)
	}
	return strconv.FormatInt(int64(b), 10)
}

func (b *ByteSize) Set(raw string) error {
	v, err := ParseByteSize(raw)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	return b.Set(node.Value)
}

package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/opcall/engine"
	"github.com/wippyai/opcall/errors"
	"github.com/wippyai/opcall/runtime"
)

// Config is the opcall configuration file.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
	Kernels []Kernel      `yaml:"kernels,omitempty"`
	Cache   CacheConfig   `yaml:"cache"`
	// KernelMemoryPages caps the linear memory of wasm kernels in 64KB
	// pages. 0 means the wazero default.
	KernelMemoryPages uint32 `yaml:"kernel_memory_pages"`
}

type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is console or json.
	Format string `yaml:"format"`
}

// CacheConfig sets the reference engine's operation cache. Zero values
// take the engine defaults; a negative max disables the cache.
type CacheConfig struct {
	Max      int   `yaml:"max"`
	MaxMem   int64 `yaml:"max_mem"`
	MaxFiles int   `yaml:"max_files"`
	Trace    bool  `yaml:"trace"`
}

// Kernel is a wasm module to register as an operation. Relative paths are
// resolved against the config file's directory.
type Kernel struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Export      string `yaml:"export,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type JournalConfig struct {
	// Path is the sqlite journal file. Empty disables the journal.
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and reports the first problem.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level %q: %v", c.Log.Level, err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return invalid("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Cache.MaxMem < 0 {
		return invalid("cache.max_mem must not be negative")
	}
	if c.Cache.MaxFiles < 0 {
		return invalid("cache.max_files must not be negative")
	}

	seen := make(map[string]bool, len(c.Kernels))
	for i, k := range c.Kernels {
		switch {
		case k.Name == "":
			return invalid("kernels[%d]: name is required", i)
		case k.Path == "":
			return invalid("kernels[%d] %s: path is required", i, k.Name)
		case seen[k.Name]:
			return invalid("kernels[%d]: duplicate name %s", i, k.Name)
		}
		seen[k.Name] = true
	}
	return nil
}

func (c *Config) resolve(dir string) {
	for i := range c.Kernels {
		if c.Kernels[i].Path != "" && !filepath.IsAbs(c.Kernels[i].Path) {
			c.Kernels[i].Path = filepath.Join(dir, c.Kernels[i].Path)
		}
	}
	if p := c.Journal.Path; p != "" && p != ":memory:" && !filepath.IsAbs(p) {
		c.Journal.Path = filepath.Join(dir, p)
	}
}

// Logger builds the zap logger the config describes, writing to stderr.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, invalid("log.level %q: %v", c.Log.Level, err)
	}
	zc := zap.NewDevelopmentConfig()
	if strings.EqualFold(c.Log.Format, "json") {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// EngineConfig maps the cache section onto engine.Config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		CacheMax:         c.Cache.Max,
		CacheMaxMem:      c.Cache.MaxMem,
		CacheMaxFiles:    c.Cache.MaxFiles,
		CacheTrace:       c.Cache.Trace,
		MemoryLimitPages: c.KernelMemoryPages,
	}
}

// RuntimeKernels converts the kernels section for runtime.LoadKernels.
func (c *Config) RuntimeKernels() []runtime.Kernel {
	out := make([]runtime.Kernel, len(c.Kernels))
	for i, k := range c.Kernels {
		out[i] = runtime.Kernel{Name: k.Name, Path: k.Path, Export: k.Export, Description: k.Description}
	}
	return out
}

func invalid(format string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Detail(format, args...).Build()
}

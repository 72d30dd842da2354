package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "obfpkg.yaml"

// Config represents the application configuration
type Config struct {
	Tools    ToolsConfig    `yaml:"tools"`
	Stubs    StubsConfig    `yaml:"stubs"`
	Manifest ManifestConfig `yaml:"manifest"`
	Retry    RetryConfig    `yaml:"retry"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ToolsConfig names the external collaborators invoked by the pipeline.
type ToolsConfig struct {
	Stubgen    ToolConfig `yaml:"stubgen"`
	Obfuscator ToolConfig `yaml:"obfuscator"`
	Assembler  ToolConfig `yaml:"assembler"`
}

// ToolConfig describes one external command. Args may contain the
// placeholders {src}, {workdir}, {dist}, {package} and {build}.
type ToolConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// StubsConfig controls the stub package pipeline.
type StubsConfig struct {
	// Overlay copies hand written stubs from the source tree over generated ones.
	Overlay *bool  `yaml:"overlay,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
	Suffix  string `yaml:"suffix,omitempty"`
}

// OverlayEnabled reports the effective overlay capability (default on).
func (s StubsConfig) OverlayEnabled() bool {
	return s.Overlay == nil || *s.Overlay
}

// ManifestConfig lists directives ensured in addition to the built-in ones.
type ManifestConfig struct {
	ExtraDirectives []string `yaml:"extra_directives,omitempty"`
}

// DefaultMaxRetries applies when retry.max_retries is not set.
const DefaultMaxRetries = 2

// RetryConfig configures the stub rename retry loop.
type RetryConfig struct {
	Backoff string        `yaml:"backoff,omitempty"`
	Initial time.Duration `yaml:"initial,omitempty"`
	Max     time.Duration `yaml:"max,omitempty"`
	// MaxRetries is a pointer so an explicit 0 (no retries) survives defaulting.
	MaxRetries *int `yaml:"max_retries,omitempty"`
}

// Retries reports the effective retry count.
func (r RetryConfig) Retries() int {
	if r.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *r.MaxRetries
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// HistoryConfig enables the sqlite build history.
type HistoryConfig struct {
	Database string `yaml:"database,omitempty"`
}

// LoggingConfig sets the default log level (overridden by --verbose).
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// A missing .env file is not an error.
	_ = loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadOrDefault behaves like Load but returns defaults when the file does
// not exist. Used for the implicit default path.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		_ = loadEnvFile()
		return Default(), nil
	}
	return Load(configPath)
}

func (c *Config) applyDefaults() {
	if c.Tools.Stubgen.Command == "" {
		c.Tools.Stubgen.Command = "stubgen"
	}
	if c.Tools.Obfuscator.Command == "" {
		c.Tools.Obfuscator.Command = "pyarmor"
		if len(c.Tools.Obfuscator.Args) == 0 {
			c.Tools.Obfuscator.Args = []string{"gen", "--recursive", "-O", "{dist}", "{src}/{package}"}
		}
	}
	if c.Tools.Assembler.Command == "" {
		c.Tools.Assembler.Command = "python"
		if len(c.Tools.Assembler.Args) == 0 {
			c.Tools.Assembler.Args = []string{"-m", "build", "--outdir", "dist", "."}
		}
	}
	if c.Stubs.Pattern == "" {
		c.Stubs.Pattern = "*/*.pyi"
	}
	if c.Stubs.Suffix == "" {
		c.Stubs.Suffix = "-stubs"
	}
	if c.Retry.Backoff == "" {
		c.Retry.Backoff = string(RetryBackoffFixed)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = string(LogLevelInfo)
	}
}

// Validate checks invariants that defaults cannot repair.
func (c *Config) Validate() error {
	if NormalizeRetryBackoff(c.Retry.Backoff) == "" {
		return fmt.Errorf("invalid retry.backoff %q (want fixed|linear|exponential)", c.Retry.Backoff)
	}
	if c.Retry.Retries() < 0 {
		return fmt.Errorf("retry.max_retries cannot be negative")
	}
	if c.Stubs.Suffix == "" || c.Stubs.Suffix[0] != '-' {
		return fmt.Errorf("stubs.suffix must start with '-': %q", c.Stubs.Suffix)
	}
	return nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	overlay, retries := true, DefaultMaxRetries
	exampleConfig := Config{
		Tools: ToolsConfig{
			Stubgen: ToolConfig{Command: "stubgen"},
			Obfuscator: ToolConfig{
				Command: "pyarmor",
				Args:    []string{"gen", "--recursive", "-O", "{dist}", "{src}/{package}"},
			},
			Assembler: ToolConfig{
				Command: "python",
				Args:    []string{"-m", "build", "--outdir", "dist", "."},
			},
		},
		Stubs:   StubsConfig{Overlay: &overlay, Pattern: "*/*.pyi", Suffix: "-stubs"},
		Retry:   RetryConfig{Backoff: string(RetryBackoffFixed), Initial: 200 * time.Millisecond, Max: time.Second, MaxRetries: &retries},
		Logging: LoggingConfig{Level: string(LogLevelInfo)},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

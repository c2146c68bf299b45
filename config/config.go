package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the root configuration.
type Config struct {
	SubgraphGen SubgraphGenConfig `yaml:"subgraphgen"`
}

// SubgraphGenConfig is the project configuration.
type SubgraphGenConfig struct {
	Input      InputConfig      `yaml:"input"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Rules      RulesConfig      `yaml:"rules"`
	Output     OutputConfig     `yaml:"output"`
	DeadLetter DeadLetterConfig `yaml:"dead_letter"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// InputConfig controls the input reader.
type InputConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// PipelineConfig controls batching and fan-out.
type PipelineConfig struct {
	Workers       int           `yaml:"workers" validate:"min=1,max=1024"`
	BatchSize     int           `yaml:"batch_size" validate:"min=1,max=1000000"`
	FlushInterval time.Duration `yaml:"flush_interval" validate:"gt=0"`
}

// RulesConfig controls Sigma tagging.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// RedisConfig is shared by the Redis input and the Redis sinks.
type RedisConfig struct {
	Addr         string        `yaml:"addr" validate:"required,hostname_port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db" validate:"min=0"`
	Key          string        `yaml:"key" validate:"required"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// OutputConfig selects the payload sink.
type OutputConfig struct {
	Mode  string           `yaml:"mode" validate:"oneof=file http redis"`
	File  FileOutputConfig `yaml:"file"`
	HTTP  HTTPOutputConfig `yaml:"http"`
	Redis RedisConfig      `yaml:"redis" validate:"-"`
}

// FileOutputConfig config for local payload files.
type FileOutputConfig struct {
	Dir string `yaml:"dir"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// DeadLetterConfig controls where raw messages of failed batches go.
type DeadLetterConfig struct {
	Enabled bool        `yaml:"enabled"`
	Redis   RedisConfig `yaml:"redis" validate:"-"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"oneof=debug info warn warning error"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file, applies defaults and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse is LoadConfig for config already in memory.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	c := &cfg.SubgraphGen

	redisDefaults(&c.Input.Redis, "process_events")
	if c.Input.Redis.BlockTimeout == 0 {
		c.Input.Redis.BlockTimeout = 5 * time.Second
	}

	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 8
	}
	if c.Pipeline.BatchSize <= 0 {
		c.Pipeline.BatchSize = 1000
	}
	if c.Pipeline.FlushInterval <= 0 {
		c.Pipeline.FlushInterval = 2 * time.Second
	}

	c.Output.Mode = strings.ToLower(strings.TrimSpace(c.Output.Mode))
	if c.Output.Mode == "" {
		c.Output.Mode = "file"
	}
	if c.Output.File.Dir == "" {
		c.Output.File.Dir = "output/subgraphs"
	}
	if c.Output.HTTP.Timeout <= 0 {
		c.Output.HTTP.Timeout = 5 * time.Second
	}
	if c.Output.Mode == "redis" {
		redisDefaults(&c.Output.Redis, "generated_subgraphs")
	}

	if c.DeadLetter.Enabled {
		redisDefaults(&c.DeadLetter.Redis, "process_events_dead_letter")
	}

	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9464"
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func redisDefaults(r *RedisConfig, key string) {
	if r.Addr == "" {
		r.Addr = "127.0.0.1:6379"
	}
	if r.Key == "" {
		r.Key = key
	}
}

// Validate checks field constraints. Redis settings of sinks that are not
// selected are skipped.
func (c *Config) Validate() error {
	s := &c.SubgraphGen
	checks := []struct {
		name string
		v    interface{}
	}{
		{"input.redis", &s.Input.Redis},
		{"pipeline", &s.Pipeline},
		{"rules", &s.Rules},
		{"output", &s.Output},
		{"logging", &s.Logging},
	}
	for _, check := range checks {
		if err := validate.Struct(check.v); err != nil {
			return formatValidationError(check.name, err)
		}
	}

	switch s.Output.Mode {
	case "file":
		if strings.TrimSpace(s.Output.File.Dir) == "" {
			return fmt.Errorf("output.file.dir is required")
		}
	case "http":
		if err := validate.Var(s.Output.HTTP.URL, "required,url"); err != nil {
			return formatValidationError("output.http.url", err)
		}
	case "redis":
		if err := validate.Struct(&s.Output.Redis); err != nil {
			return formatValidationError("output.redis", err)
		}
	}

	if s.DeadLetter.Enabled {
		if err := validate.Struct(&s.DeadLetter.Redis); err != nil {
			return formatValidationError("dead_letter.redis", err)
		}
	}
	if s.Metrics.Enabled {
		if err := validate.Var(s.Metrics.Listen, "required,hostname_port"); err != nil {
			return formatValidationError("metrics.listen", err)
		}
	}
	return nil
}

func formatValidationError(section string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("invalid %s: %w", section, err)
	}
	fe := verrs[0]
	field := section
	if fe.StructField() != "" {
		field = section + "." + fe.StructField()
	}
	if fe.Param() != "" {
		return fmt.Errorf("invalid %s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("invalid %s: failed %s (got %v)", field, fe.Tag(), fe.Value())
}

// Package config loads the copilot configuration from YAML.
//
// Values may reference environment variables as ${VAR}; they are expanded
// before parsing. Fields left out of the file keep their defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"newsletter_copilot/generator"
	"newsletter_copilot/logging"
)

// EnvModel overrides llm.model when set.
const EnvModel = "NEWSLETTER_MODEL"

// Config is the full application configuration.
type Config struct {
	Log       logging.Config   `yaml:"log"`
	LLM       LLMConfig        `yaml:"llm"`
	Topics    TopicsConfig     `yaml:"topics"`
	Output    OutputConfig     `yaml:"output"`
	Schedule  ScheduleConfig   `yaml:"schedule"`
	Retry     RetryConfig      `yaml:"retry"`
	Content   ContentConfig    `yaml:"content"`
	Templates []TemplateConfig `yaml:"templates" validate:"dive"`
}

type LLMConfig struct {
	Provider string        `yaml:"provider" validate:"required,oneof=ollama openai deepseek mock"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
}

type TopicsConfig struct {
	// Backend is "file" (JSON) or "sqlite".
	Backend  string `yaml:"backend" validate:"required,oneof=file sqlite"`
	Path     string `yaml:"path" validate:"required"`
	SeedFile string `yaml:"seed_file"`
}

type OutputConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

type ScheduleConfig struct {
	Interval  time.Duration `yaml:"interval" validate:"gt=0"`
	DeliverAt string        `yaml:"deliver_at" validate:"omitempty,datetime=15:04"`
	Timezone  string        `yaml:"timezone" validate:"omitempty,timezone"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" validate:"gte=1,lte=20"`
	InitialDelay time.Duration `yaml:"initial_delay" validate:"gte=0"`
	MaxDelay     time.Duration `yaml:"max_delay" validate:"gte=0"`
	Multiplier   float64       `yaml:"multiplier" validate:"gte=1"`
}

// ContentConfig names the long and short content types produced each cycle.
type ContentConfig struct {
	LongType  string `yaml:"long_type" validate:"required"`
	ShortType string `yaml:"short_type" validate:"required"`
}

// TemplateConfig adds or overrides a content template.
type TemplateConfig struct {
	Type       string              `yaml:"type" validate:"required"`
	Tone       string              `yaml:"tone"`
	Length     int                 `yaml:"length" validate:"gt=0"`
	Formatting string              `yaml:"formatting" validate:"omitempty,oneof=plain_text html"`
	Framework  []generator.Section `yaml:"framework"`
}

// Template converts the entry into a generator template.
func (t TemplateConfig) Template() generator.ContentTemplate {
	return generator.ContentTemplate{
		Type:       t.Type,
		Framework:  t.Framework,
		Tone:       t.Tone,
		Length:     t.Length,
		Formatting: generator.Formatting(t.Formatting),
	}
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Log: logging.Config{Level: "info"},
		LLM: LLMConfig{
			Provider: "ollama",
			Timeout:  generator.DefaultTimeout,
		},
		Topics: TopicsConfig{
			Backend: "file",
			Path:    "topic_store.json",
		},
		Output: OutputConfig{Dir: "newsletters"},
		Schedule: ScheduleConfig{
			Interval:  24 * time.Hour,
			DeliverAt: "09:50",
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 5 * time.Second,
			MaxDelay:     time.Minute,
			Multiplier:   2,
		},
		Content: ContentConfig{
			LongType:  generator.TypeNewsletter,
			ShortType: generator.TypeTweet,
		},
	}
}

// SearchPaths lists where FindConfig looks when no path is given.
func SearchPaths() []string {
	paths := []string{"config.yaml", "config.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "newsletter-copilot", "config.yaml"))
	}
	return paths
}

// FindConfig resolves the config file. An explicit path must exist.
// Without one, the first existing search path wins; "" means none was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Load reads path over the defaults, applies env overrides and validates.
// An empty path yields the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := Parse([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, rejecting unknown keys.
func Parse(data []byte, cfg *Config) error {
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func (c *Config) applyEnv() {
	if m := os.Getenv(EnvModel); m != "" {
		c.LLM.Model = m
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "deepseek":
			c.LLM.APIKey = os.Getenv("DEEPSEEK_API_KEY")
		}
	}
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.LLM.Provider == "deepseek" && c.LLM.BaseURL == "" {
		return errors.New("invalid config: llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
	}
	return nil
}

// Location returns the schedule time zone, local time when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

// LLMSettings converts the llm block for provider constructors.
func (c *Config) LLMSettings() *generator.LLMSettings {
	return &generator.LLMSettings{
		Provider: c.LLM.Provider,
		Model:    c.LLM.Model,
		APIKey:   c.LLM.APIKey,
		BaseURL:  c.LLM.BaseURL,
	}
}

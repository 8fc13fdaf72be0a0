package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Site    SiteConfig  `yaml:"site"`
	Content string      `yaml:"content"` // Content root (authored markdown + assets)
	Output  string      `yaml:"output"`  // Published tree
	Data    string      `yaml:"data"`    // History ledger and state snapshot
	Build   BuildConfig `yaml:"build"`
	Watch   WatchConfig `yaml:"watch"`
}

// SiteConfig carries site-wide presentation values shared by every page.
type SiteConfig struct {
	Title   string `yaml:"title"`
	Origin  string `yaml:"origin,omitempty"`  // Absolute origin for OGP URLs, e.g. https://example.com
	Twitter string `yaml:"twitter,omitempty"` // Handle for twitter:site cards
	Lang    string `yaml:"lang,omitempty"`
}

// BuildConfig holds build performance tuning knobs. All zero values trigger
// sensible defaults.
type BuildConfig struct {
	// RenderConcurrency caps the number of pages rendered in parallel within a
	// single run. Zero means runtime.NumCPU.
	RenderConcurrency int `yaml:"render_concurrency,omitempty"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	DebounceMS  int    `yaml:"debounce_ms,omitempty"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"` // Empty disables the metrics listener
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env files if present; existing process env wins.
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
			}
			break
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Site.Title == "" {
		c.Site.Title = "Fiction Site"
	}
	if c.Site.Lang == "" {
		c.Site.Lang = "ja"
	}
	if c.Content == "" {
		c.Content = "private"
	}
	if c.Output == "" {
		c.Output = "public"
	}
	if c.Data == "" {
		c.Data = "data"
	}
	if c.Watch.DebounceMS <= 0 {
		c.Watch.DebounceMS = 2000
	}
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Site: SiteConfig{
			Title:   "Mogura Novel",
			Origin:  "https://www.example.com",
			Twitter: "@example",
			Lang:    "ja",
		},
		Content: "private",
		Output:  "public",
		Data:    "data",
		Build:   BuildConfig{RenderConcurrency: 0},
		Watch:   WatchConfig{DebounceMS: 2000},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

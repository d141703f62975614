package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/solobuilderhub/memegen-ai/pkg/fonts"
	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Fonts  FontsConfig  `json:"fonts"`
	Render RenderConfig `json:"render"`
	Vision VisionConfig `json:"vision"`
	Output OutputConfig `json:"output"`
}

// FontsConfig holds the font directory and allow-list
type FontsConfig struct {
	Dir       string   `json:"dir"`
	Default   string   `json:"default"`
	Available []string `json:"available"`
}

// RenderConfig holds output encoding and reference frame settings
type RenderConfig struct {
	OutputFormat    string `json:"output_format"`
	Quality         int    `json:"quality"`
	ReferenceWidth  int    `json:"reference_width"`
	ReferenceHeight int    `json:"reference_height"`
}

// VisionConfig holds configuration for the analysis model
type VisionConfig struct {
	Backend     string  `json:"backend"`
	URL         string  `json:"url"`
	Model       string  `json:"model"`
	SendFormat  string  `json:"send_format"`
	SendQuality int     `json:"send_quality"`
	Temperature float64 `json:"temperature"`
}

// OutputConfig holds configuration for output files
type OutputConfig struct {
	Dir    string `json:"dir"`
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
}

// Default returns a configuration with default values. With no font
// directory the embedded Go Regular font is the default.
func Default() *Config {
	return &Config{
		Fonts: FontsConfig{
			Dir:       "",
			Default:   fonts.BuiltinGoRegular,
			Available: append([]string(nil), fonts.DefaultAvailable...),
		},
		Render: RenderConfig{
			OutputFormat:    "jpg",
			Quality:         95,
			ReferenceWidth:  512,
			ReferenceHeight: 512,
		},
		Vision: VisionConfig{
			Backend:     "ollama",
			URL:         "",
			Model:       "openbmb/minicpm-v4.5",
			SendFormat:  "jpg",
			SendQuality: 85,
			Temperature: 0.3,
		},
		Output: OutputConfig{
			Dir:    "./output",
			Prefix: "",
			Suffix: "_meme",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Render.Quality < 1 || c.Render.Quality > 100 {
		return fmt.Errorf("render.quality must be between 1 and 100")
	}

	if c.Render.ReferenceWidth < 1 || c.Render.ReferenceHeight < 1 {
		return fmt.Errorf("render.reference_width and render.reference_height must be positive")
	}

	switch strings.ToLower(c.Render.OutputFormat) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("render.output_format must be one of jpg, jpeg, png, webp")
	}

	if c.Fonts.Default == "" {
		return fmt.Errorf("fonts.default cannot be empty")
	}

	if c.Fonts.Default != fonts.BuiltinGoRegular && !slices.Contains(c.Fonts.Available, c.Fonts.Default) {
		return fmt.Errorf("fonts.default %q must be listed in fonts.available", c.Fonts.Default)
	}

	switch c.Vision.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("vision.backend must be ollama or llamacpp")
	}

	if c.Vision.SendQuality < 1 || c.Vision.SendQuality > 100 {
		return fmt.Errorf("vision.send_quality must be between 1 and 100")
	}

	return nil
}

// ReferenceFrame returns the configured reference frame.
func (c *Config) ReferenceFrame() types.Dims {
	return types.Dims{Width: c.Render.ReferenceWidth, Height: c.Render.ReferenceHeight}
}

// FontResolverConfig maps the fonts section onto a resolver config.
func (c *Config) FontResolverConfig() fonts.Config {
	return fonts.Config{
		Dir:       c.Fonts.Dir,
		Default:   c.Fonts.Default,
		Available: c.Fonts.Available,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "memegen", "config.json")
}

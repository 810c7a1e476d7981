package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/jewelmatch/internal/domain/rules"
)

// Config holds the jewelmatch service configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Catalog CatalogConfig `yaml:"catalog"`
	LLM     LLMConfig     `yaml:"llm"`
	Match   MatchConfig   `yaml:"match"`
	Rules   RulesConfig   `yaml:"rules"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CatalogConfig holds the product search API settings.
type CatalogConfig struct {
	URL         string `yaml:"url"`
	App         string `yaml:"app"`
	Key         string `yaml:"key"`
	Secret      string `yaml:"secret"`
	PageSize    int    `yaml:"page_size"`
	MaxResults  int    `yaml:"max_results"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	PageDelayMS int    `yaml:"page_delay_ms"`
}

// LLMConfig holds the OpenAI-compatible model settings.
type LLMConfig struct {
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	CaptionModel     string `yaml:"caption_model"`
	ExtractionModel  string `yaml:"extraction_model"`
	KeywordModel     string `yaml:"keyword_model"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	CaptionAttempts  int    `yaml:"caption_attempts"`
	CaptionBackoffMS int    `yaml:"caption_backoff_ms"`
	ImageTimeoutSec  int    `yaml:"image_timeout_sec"`
	MaxImageBytes    int64  `yaml:"max_image_bytes"`
}

// MatchConfig holds cascade settings.
type MatchConfig struct {
	DesiredLimit    int    `yaml:"desired_limit"`
	DefaultMaterial string `yaml:"default_material"`
}

// RulesConfig overrides the built-in heuristic word lists. Empty fields keep defaults.
type RulesConfig struct {
	GenericDesigns          []string          `yaml:"generic_designs"`
	ColorPalette            []string          `yaml:"color_palette"`
	StandardColors          []string          `yaml:"standard_colors"`
	InscriptionCues         []string          `yaml:"inscription_cues"`
	UnquotedInscriptionCues []string          `yaml:"unquoted_inscription_cues"`
	GenericInscriptionNouns []string          `yaml:"generic_inscription_nouns"`
	StopWordOnly            []string          `yaml:"stop_word_only"`
	StopWords               []string          `yaml:"stop_words"`
	GenericFallbackWords    []string          `yaml:"generic_fallback_words"`
	PriorityCategories      []string          `yaml:"priority_categories"`
	FixedPhrases            map[string]string `yaml:"fixed_phrases"`
	MaterialAliases         map[string]string `yaml:"material_aliases"`
	TypeAliases             map[string]string `yaml:"type_aliases"`
	CompanionTypes          map[string]string `yaml:"companion_types"`
}

// CacheConfig holds caption cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, when present, is loaded into the process
// environment first so ${VAR} references in the YAML can resolve secrets.
func Load(env string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates YAML configuration data.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadDotEnv loads KEY=VALUE pairs from path without overriding variables that
// are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 5001
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// One request runs up to three model calls and a paged catalog scan.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Catalog.PageSize <= 0 {
		c.Catalog.PageSize = 500
	}
	if c.Catalog.MaxResults <= 0 {
		c.Catalog.MaxResults = 5000
	}
	if c.Catalog.TimeoutSec <= 0 {
		c.Catalog.TimeoutSec = 20
	}
	if c.Catalog.PageDelayMS < 0 {
		c.Catalog.PageDelayMS = 0
	} else if c.Catalog.PageDelayMS == 0 {
		c.Catalog.PageDelayMS = 100
	}
	if c.LLM.CaptionModel == "" {
		c.LLM.CaptionModel = "llama-3.2-90b-vision-preview"
	}
	if c.LLM.ExtractionModel == "" {
		c.LLM.ExtractionModel = "llama-3.3-70b-versatile"
	}
	if c.LLM.KeywordModel == "" {
		c.LLM.KeywordModel = "llama-3.1-8b-instant"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 20
	}
	if c.LLM.CaptionAttempts <= 0 {
		c.LLM.CaptionAttempts = 3
	}
	if c.LLM.CaptionBackoffMS <= 0 {
		c.LLM.CaptionBackoffMS = 2000
	}
	if c.LLM.ImageTimeoutSec <= 0 {
		c.LLM.ImageTimeoutSec = 10
	}
	if c.LLM.MaxImageBytes <= 0 {
		c.LLM.MaxImageBytes = 10 << 20
	}
	if c.Match.DesiredLimit <= 0 {
		c.Match.DesiredLimit = 10
	}
	if c.Match.DefaultMaterial == "" {
		c.Match.DefaultMaterial = "Sterling Silver"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 86400
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Catalog.URL == "" {
		return fmt.Errorf("catalog.url is required")
	}
	if u, err := url.Parse(c.Catalog.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.url must be an absolute URL, got %q", c.Catalog.URL)
	}
	if c.Catalog.App == "" || c.Catalog.Key == "" || c.Catalog.Secret == "" {
		return fmt.Errorf("catalog.app, catalog.key and catalog.secret are required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache.enabled is true")
	}
	return nil
}

// CatalogTimeout returns the per-request catalog timeout.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutSec) * time.Second
}

// PageDelay returns the pause between catalog pages.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.Catalog.PageDelayMS) * time.Millisecond
}

// RuleSet returns the built-in rules with configured overrides applied.
func (c *Config) RuleSet() rules.Set {
	r := c.Rules
	return rules.Default().Merge(rules.Set{
		GenericDesigns:          lower(r.GenericDesigns),
		ColorPalette:            lower(r.ColorPalette),
		StandardColors:          lower(r.StandardColors),
		InscriptionCues:         lower(r.InscriptionCues),
		UnquotedInscriptionCues: lower(r.UnquotedInscriptionCues),
		GenericInscriptionNouns: lower(r.GenericInscriptionNouns),
		StopWordOnly:            lower(r.StopWordOnly),
		StopWords:               lower(r.StopWords),
		GenericFallbackWords:    lower(r.GenericFallbackWords),
		PriorityCategories:      lower(r.PriorityCategories),
		FixedPhrases:            lowerMap(r.FixedPhrases),
		MaterialAliases:         lowerMap(r.MaterialAliases),
		TypeAliases:             lowerMap(r.TypeAliases),
		CompanionTypes:          lowerMap(r.CompanionTypes),
	})
}

func lower(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// lowerMap normalizes keys and values; rule lookups key on lower-cased input.
func lowerMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out[k] = strings.ToLower(strings.TrimSpace(v))
		}
	}
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

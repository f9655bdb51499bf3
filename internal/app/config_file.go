package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// DefaultConfigFiles are read in order when no explicit file is given. The
// local file overlays the shared one and is usually kept out of version control.
var DefaultConfigFiles = []string{"config.yaml", "config.local.yaml"}

// FileConfig represents the configuration file schema.
type FileConfig struct {
	LLM struct {
		BaseURL   string `yaml:"base" json:"base"`
		Model     string `yaml:"model" json:"model"`
		APIKey    string `yaml:"key" json:"key"`
		Prompt    string `yaml:"prompt" json:"prompt"`
		MaxTokens int    `yaml:"maxTokens" json:"maxTokens"`
	} `yaml:"llm" json:"llm"`

	// OpenAI is the older section name; llm wins when both are set.
	OpenAI struct {
		BaseURL string `yaml:"baseURL" json:"baseURL"`
		APIKey  string `yaml:"apiKey" json:"apiKey"`
		Model   string `yaml:"model" json:"model"`
		Prompt  string `yaml:"prompt" json:"prompt"`
	} `yaml:"openai" json:"openai"`

	Fetch struct {
		Timeout   time.Duration `yaml:"timeout" json:"timeout"`
		UserAgent string        `yaml:"userAgent" json:"userAgent"`
		MaxBytes  int64         `yaml:"maxBytes" json:"maxBytes"`
	} `yaml:"fetch" json:"fetch"`

	Images struct {
		Concurrency int           `yaml:"concurrency" json:"concurrency"`
		MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"images" json:"images"`

	Cache struct {
		Dir    string        `yaml:"dir" json:"dir"`
		MaxAge time.Duration `yaml:"maxAge" json:"maxAge"`
	} `yaml:"cache" json:"cache"`

	MinLatency time.Duration `yaml:"minLatency" json:"minLatency"`
	Verbose    bool          `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads one YAML or JSON file into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	err := decodeInto(&fc, path)
	return fc, err
}

// LoadConfigFiles decodes each existing file over the previous ones, so keys
// present in a later file replace earlier values and nested sections merge.
// Missing files are skipped. It returns the paths that were read.
func LoadConfigFiles(paths ...string) (FileConfig, []string, error) {
	var fc FileConfig
	var loaded []string
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := decodeInto(&fc, p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fc, loaded, err
		}
		loaded = append(loaded, p)
	}
	return fc, loaded, nil
}

func decodeInto(fc *FileConfig, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, fc); err != nil {
			return fmt.Errorf("parse yaml %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, fc); err != nil {
			return fmt.Errorf("parse json %s: %w", path, err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, fc); err != nil {
			if jerr := json.Unmarshal(b, fc); jerr != nil {
				return fmt.Errorf("parse config %s: %v (yaml) / %v (json)", path, err, jerr)
			}
		}
	}
	return nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset/zero in cfg. Flags should already have been parsed; this
// lets the file supply defaults while preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	first := func(vals ...string) string {
		for _, v := range vals {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
		return ""
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = first(fc.LLM.BaseURL, fc.OpenAI.BaseURL)
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = first(fc.LLM.Model, fc.OpenAI.Model)
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = first(fc.LLM.APIKey, fc.OpenAI.APIKey)
	}
	if cfg.SummaryPrompt == "" {
		cfg.SummaryPrompt = first(fc.LLM.Prompt, fc.OpenAI.Prompt)
	}
	if cfg.SummaryMaxTokens == 0 && fc.LLM.MaxTokens > 0 {
		cfg.SummaryMaxTokens = fc.LLM.MaxTokens
	}

	if cfg.FetchTimeout == 0 && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if cfg.UserAgent == "" && fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if cfg.MaxPageBytes == 0 && fc.Fetch.MaxBytes > 0 {
		cfg.MaxPageBytes = fc.Fetch.MaxBytes
	}

	if cfg.ImageConcurrency == 0 && fc.Images.Concurrency > 0 {
		cfg.ImageConcurrency = fc.Images.Concurrency
	}
	if cfg.ImageMaxBytes == 0 && fc.Images.MaxBytes > 0 {
		cfg.ImageMaxBytes = fc.Images.MaxBytes
	}
	if cfg.ImageTimeout == 0 && fc.Images.Timeout > 0 {
		cfg.ImageTimeout = fc.Images.Timeout
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = first(fc.Cache.Dir)
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}

	if cfg.MinLatency == 0 && fc.MinLatency > 0 {
		cfg.MinLatency = fc.MinLatency
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig rejects negative limits and malformed endpoints. Summary
// settings are optional: without an API key summary mode degrades to plain.
func ValidateConfig(cfg Config) error {
	if cfg.FetchTimeout < 0 || cfg.ImageTimeout < 0 || cfg.MinLatency < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	if cfg.ImageConcurrency < 0 || cfg.ImageMaxBytes < 0 || cfg.MaxPageBytes < 0 || cfg.SummaryMaxTokens < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if s := strings.TrimSpace(cfg.LLMBaseURL); s != "" {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("config: llm.base must be an http(s) URL, got %q", s)
		}
	}
	return nil
}

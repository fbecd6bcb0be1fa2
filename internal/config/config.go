// Package config handles the loading and parsing of the application's configuration.
// It uses the Viper library to read from a YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultUserAgent is sent when no user agents are configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Settings defines the overall configuration structure for formprobe.
// It mirrors the structure of the formprobe.yaml file and is populated by Viper.
type Settings struct {
	Target    TargetConfig    `mapstructure:"target"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Payloads  PayloadConfig   `mapstructure:"payloads"`
	Reporting ReportingConfig `mapstructure:"reporting"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// TargetConfig holds the configuration related to the crawl target.
type TargetConfig struct {
	URL     string `mapstructure:"url"`
	MaxURLs int    `mapstructure:"max_urls"`
}

// ScannerConfig contains settings for request behavior shared by both phases.
type ScannerConfig struct {
	Timeout    int      `mapstructure:"timeout"`
	DelayMS    int      `mapstructure:"delay_ms"`
	RateLimit  int      `mapstructure:"rate_limit"`
	Retries    int      `mapstructure:"retries"`
	UserAgents []string `mapstructure:"user_agents"`
}

// PayloadConfig overrides the built-in payload and error-signature lists.
type PayloadConfig struct {
	File          string   `mapstructure:"file"`
	XSS           []string `mapstructure:"xss"`
	SQLi          []string `mapstructure:"sqli"`
	ErrorPatterns []string `mapstructure:"error_patterns"`
}

// ReportingConfig defines where the spider command writes its output.
type ReportingConfig struct {
	Path               string `mapstructure:"path"`
	VulnReportFile     string `mapstructure:"vuln_report_file"`
	DiscoveredUrlsFile string `mapstructure:"discovered_urls_file"`
}

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Key     string `mapstructure:"key"`
}

// ServerConfig configures the HTTP status interface.
type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	DefaultURL string `mapstructure:"default_url"`
}

// LogConfig configures the diagnostic logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	JSONFormat bool   `mapstructure:"json_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target.url", "")
	v.SetDefault("target.max_urls", 50)
	v.SetDefault("scanner.timeout", 5)
	v.SetDefault("scanner.delay_ms", 100)
	v.SetDefault("scanner.rate_limit", 0)
	v.SetDefault("scanner.retries", 0)
	v.SetDefault("scanner.user_agents", []string{DefaultUserAgent})
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.key", "formprobe:visited")
	v.SetDefault("server.addr", "127.0.0.1:5000")
	v.SetDefault("server.default_url", "http://testphp.vulnweb.com/")
	v.SetDefault("reporting.path", "reports")
	v.SetDefault("reporting.vuln_report_file", "report")
	v.SetDefault("reporting.discovered_urls_file", "")
	v.SetDefault("payloads.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.json_format", false)
}

// LoadConfig reads formprobe.yaml from the given directory (a missing file is not an
// error), overlays FORMPROBE_* environment variables and unmarshals the result.
// A path ending in .yaml or .yml is read as that exact file.
func LoadConfig(path string) (Settings, error) {
	var cfg Settings

	v := viper.New()
	setDefaults(v)

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		v.SetConfigFile(path)
	} else {
		if path == "" {
			path = "."
		}
		v.AddConfigPath(path)
		v.SetConfigName("formprobe")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("formprobe")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the crawl and scan phases cannot run with.
func (s Settings) Validate() error {
	if s.Target.MaxURLs <= 0 {
		return fmt.Errorf("target.max_urls must be positive, got %d", s.Target.MaxURLs)
	}
	if s.Scanner.Timeout <= 0 {
		return fmt.Errorf("scanner.timeout must be positive, got %d", s.Scanner.Timeout)
	}
	if s.Scanner.DelayMS < 0 || s.Scanner.RateLimit < 0 || s.Scanner.Retries < 0 {
		return errors.New("scanner.delay_ms, scanner.rate_limit and scanner.retries must not be negative")
	}
	return nil
}

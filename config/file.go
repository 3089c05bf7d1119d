package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pevans/ydnscraper/discovery"
	"github.com/pevans/ydnscraper/scraper"
)

// CrawlFile is the crawl section of the config file. Unset fields keep
// their defaults.
type CrawlFile struct {
	SitemapURLs     []string          `yaml:"sitemap_urls"`
	FeedURLs        []string          `yaml:"feed_urls"`
	AllowedDomains  []string          `yaml:"allowed_domains"`
	Rules           *discovery.Rules  `yaml:"rules"`
	Parallelism     *int              `yaml:"parallelism"`
	Delay           *time.Duration    `yaml:"delay"`
	RandomDelay     *time.Duration    `yaml:"random_delay"`
	RequestTimeout  *time.Duration    `yaml:"request_timeout"`
	RetryTimes      *int              `yaml:"retry_times"`
	RetryHTTPCodes  []int             `yaml:"retry_http_codes"`
	MaxErrors       *int              `yaml:"max_errors"`
	MaxPages        *int              `yaml:"max_pages"`
	RandomUserAgent *bool             `yaml:"random_user_agent"`
	UserAgent       string            `yaml:"user_agent"`
	Headers         map[string]string `yaml:"headers"`

	// OnMalformed is "fail" or "null". Quote "null" in YAML.
	OnMalformed string `yaml:"on_malformed"`
}

// FileConfig represents the structure of the YAML config file.
type FileConfig struct {
	Crawl   CrawlFile              `yaml:"crawl"`
	Scraper *scraper.ScraperConfig `yaml:"scraper"`
}

// DefaultConfigPath returns ~/.ydnscraper/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ydnscraper", "config.yaml"), nil
}

// LoadConfigFile loads configuration from path, or from DefaultConfigPath
// when path is empty. Returns nil if the file doesn't exist (not an error).
// Returns error if the file exists but cannot be parsed.
func LoadConfigFile(path string) (*FileConfig, error) {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

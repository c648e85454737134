package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default destination roots, matching what the account-side folder layout
// expects for relayed shares.
const (
	DefaultQuarkRoot = "来自：分享/LinkChanger"
	DefaultBaiduRoot = "/我的资源/LinkChanger"
)

// ProviderConfig holds everything recognized for one storage backend.
type ProviderConfig struct {
	Cookie   string
	SaveRoot string
	Inject   InjectConfig
}

// Configured reports whether credentials are present for this provider.
func (p ProviderConfig) Configured() bool {
	return p.Cookie != ""
}

// Config holds application configuration
type Config struct {
	Quark ProviderConfig
	Baidu ProviderConfig

	// Job retention: jobs older than this are swept when a new job is created.
	JobRetention time.Duration

	// HTTP behavior
	HTTPTimeout time.Duration
	ProxyURL    string

	// Transfer-completion polling (folder-addressed backend)
	PollInterval time.Duration
	PollAttempts int

	// Randomized pacing between links of one provider batch
	PaceMin time.Duration
	PaceMax time.Duration

	// Push notification keys
	BarkKey     string
	PushDeerKey string

	// Logging configuration
	LogLevel    string
	EnableDebug bool
	QuietMode   bool
	LogFile     string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Quark: ProviderConfig{SaveRoot: DefaultQuarkRoot},
		Baidu: ProviderConfig{SaveRoot: DefaultBaiduRoot},

		JobRetention: 24 * time.Hour,

		HTTPTimeout: 45 * time.Second,

		PollInterval: time.Second,
		PollAttempts: 8,

		PaceMin: 2 * time.Second,
		PaceMax: 4 * time.Second,

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "", // Empty means stderr
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("LINKCHANGER_QUARK_COOKIE"); v != "" {
		c.Quark.Cookie = v
	}
	if v := os.Getenv("LINKCHANGER_QUARK_ROOT"); v != "" {
		c.Quark.SaveRoot = v
	}
	if v := os.Getenv("LINKCHANGER_QUARK_INJECT_URL"); v != "" {
		c.Quark.Inject.URL = v
		c.Quark.Inject.Enabled = true
	}

	if v := os.Getenv("LINKCHANGER_BAIDU_COOKIE"); v != "" {
		c.Baidu.Cookie = v
	}
	if v := os.Getenv("LINKCHANGER_BAIDU_ROOT"); v != "" {
		c.Baidu.SaveRoot = v
	}
	if v := os.Getenv("LINKCHANGER_BAIDU_INJECT_URL"); v != "" {
		c.Baidu.Inject.URL = v
		c.Baidu.Inject.Enabled = true
	}
	if v := os.Getenv("LINKCHANGER_BAIDU_INJECT_PWD"); v != "" {
		c.Baidu.Inject.Password = v
	}

	if v := os.Getenv("LINKCHANGER_RETENTION_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			c.JobRetention = time.Duration(h) * time.Hour
		}
	}

	if v := os.Getenv("LINKCHANGER_TIMEOUT"); v != "" {
		if s, err := strconv.Atoi(v); err == nil && s > 0 {
			c.HTTPTimeout = time.Duration(s) * time.Second
		}
	}

	if v := os.Getenv("LINKCHANGER_PROXY"); v != "" {
		c.ProxyURL = v
	}

	if v := os.Getenv("LINKCHANGER_BARK_KEY"); v != "" {
		c.BarkKey = v
	}
	if v := os.Getenv("LINKCHANGER_PUSHDEER_KEY"); v != "" {
		c.PushDeerKey = v
	}

	// Load logging configuration from environment
	if v := os.Getenv("LINKCHANGER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LINKCHANGER_DEBUG"); v != "" {
		c.EnableDebug = v == "true" || v == "1"
	}
	if v := os.Getenv("LINKCHANGER_QUIET"); v != "" {
		c.QuietMode = v == "true" || v == "1"
	}
	if v := os.Getenv("LINKCHANGER_LOG_FILE"); v != "" {
		c.LogFile = v
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.JobRetention <= 0 {
		return fmt.Errorf("invalid job retention: %v (must be > 0)", c.JobRetention)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid HTTP timeout: %v (must be > 0)", c.HTTPTimeout)
	}

	if c.PollAttempts < 1 {
		return fmt.Errorf("invalid poll attempts: %d (must be >= 1)", c.PollAttempts)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval: %v (must be > 0)", c.PollInterval)
	}

	if c.PaceMin < 0 || c.PaceMax < c.PaceMin {
		return fmt.Errorf("invalid pacing window: [%v, %v]", c.PaceMin, c.PaceMax)
	}

	if c.Quark.Configured() && c.Quark.SaveRoot == "" {
		return fmt.Errorf("quark save root cannot be empty")
	}

	if c.Baidu.Configured() && c.Baidu.SaveRoot == "" {
		return fmt.Errorf("baidu save root cannot be empty")
	}

	return nil
}

// InjectFor returns the inject configuration for the given provider.
func (c *Config) InjectFor(p Provider) InjectConfig {
	switch p {
	case ProviderQuark:
		return c.Quark.Inject
	case ProviderBaidu:
		return c.Baidu.Inject
	default:
		return InjectConfig{}
	}
}

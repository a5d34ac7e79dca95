package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/logger"
	"github.com/spf13/viper"
)

// ErrInvalidConfig indicates a configuration value failed validation
var ErrInvalidConfig = errors.New("LOTTO_100: invalid configuration")

// Config is the full application configuration
type Config struct {
	Server         *ServerConfig         `mapstructure:"server"`
	Simulator      *SimulatorConfig      `mapstructure:"simulator"`
	Prizes         *PrizesConfig         `mapstructure:"prizes"`
	Scraper        *ScraperConfig        `mapstructure:"scraper"`
	CircuitBreaker *CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	RateLimit      *RateLimitConfig      `mapstructure:"rate_limit"`
	Log            *LogConfig            `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SimulatorConfig struct {
	// MaxBatch caps a single batch request
	MaxBatch int `mapstructure:"max_batch"`
	// HistoryPageSize is how many records the state endpoint returns by default
	HistoryPageSize int `mapstructure:"history_page_size"`
}

// PrizesConfig holds payout amounts per rank; zero means unset
type PrizesConfig struct {
	First  int64 `mapstructure:"first"`
	Second int64 `mapstructure:"second"`
	Third  int64 `mapstructure:"third"`
	Fourth int64 `mapstructure:"fourth"`
	Fifth  int64 `mapstructure:"fifth"`
}

type ScraperConfig struct {
	URL             string        `mapstructure:"url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	NumbersSelector string        `mapstructure:"numbers_selector"`
	BonusSelector   string        `mapstructure:"bonus_selector"`
	UserAgent       string        `mapstructure:"user_agent"`
}

// CircuitBreakerConfig configures the breaker around the scraper
type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Name         string        `mapstructure:"name"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Verbose   bool   `mapstructure:"verbose"`
	SystemLog bool   `mapstructure:"system_log"`
	File      string `mapstructure:"file"`
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.Server == nil || c.Simulator == nil || c.Prizes == nil || c.Scraper == nil ||
		c.CircuitBreaker == nil || c.RateLimit == nil || c.Log == nil {
		return fmt.Errorf("%w: missing section", ErrInvalidConfig)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server address is required", ErrInvalidConfig)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("%w: unknown server mode %q", ErrInvalidConfig, c.Server.Mode)
	}
	if c.Simulator.MaxBatch <= 0 {
		return fmt.Errorf("%w: simulator max batch must be positive", ErrInvalidConfig)
	}
	if c.Simulator.HistoryPageSize <= 0 {
		return fmt.Errorf("%w: history page size must be positive", ErrInvalidConfig)
	}
	for _, v := range []int64{c.Prizes.First, c.Prizes.Second, c.Prizes.Third, c.Prizes.Fourth, c.Prizes.Fifth} {
		if v < 0 {
			return fmt.Errorf("%w: prize amounts cannot be negative", ErrInvalidConfig)
		}
	}
	if c.Scraper.URL == "" {
		return fmt.Errorf("%w: scraper url is required", ErrInvalidConfig)
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("%w: scraper timeout must be positive", ErrInvalidConfig)
	}
	if c.CircuitBreaker.FailureRatio < 0 || c.CircuitBreaker.FailureRatio > 1 {
		return fmt.Errorf("%w: circuit breaker failure ratio must be within [0,1]", ErrInvalidConfig)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("%w: rate limit needs positive rate and burst", ErrInvalidConfig)
	}
	return nil
}

// ConfigManager loads configuration from file and environment
type ConfigManager struct {
	viper  *viper.Viper
	mu     sync.RWMutex
	config *Config
}

// NewConfigManager creates a config manager looking for config.yaml in the usual places
func NewConfigManager() *ConfigManager {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/lottosim")
	v.AddConfigPath("$HOME/.lottosim")

	v.SetEnvPrefix("LOTTOSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cm := &ConfigManager{viper: v}
	cm.setDefaults()
	return cm
}

// SetConfigFile points the manager at an explicit file instead of the search paths
func (cm *ConfigManager) SetConfigFile(path string) {
	cm.viper.SetConfigFile(path)
}

// LoadConfig reads, unmarshals and validates the configuration
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	if err := cm.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file, defaults and environment only
	}

	config, err := cm.decode()
	if err != nil {
		return nil, err
	}

	cm.mu.Lock()
	cm.config = config
	cm.mu.Unlock()
	return config, nil
}

func (cm *ConfigManager) decode() (*Config, error) {
	config := &Config{}
	if err := cm.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func (cm *ConfigManager) setDefaults() {
	cm.viper.SetDefault("server.addr", ":8080")
	cm.viper.SetDefault("server.mode", "release")
	cm.viper.SetDefault("server.read_timeout", "10s")
	cm.viper.SetDefault("server.write_timeout", "60s")
	cm.viper.SetDefault("server.shutdown_timeout", "10s")

	cm.viper.SetDefault("simulator.max_batch", 100000)
	cm.viper.SetDefault("simulator.history_page_size", 50)

	// zero means unset; the keys still need registering for env overrides to unmarshal
	cm.viper.SetDefault("prizes.first", 0)
	cm.viper.SetDefault("prizes.second", 0)
	cm.viper.SetDefault("prizes.third", 0)
	cm.viper.SetDefault("prizes.fourth", 0)
	cm.viper.SetDefault("prizes.fifth", 0)

	cm.viper.SetDefault("scraper.url", "https://www.dhlottery.co.kr/common.do?method=main")
	cm.viper.SetDefault("scraper.timeout", "10s")
	cm.viper.SetDefault("scraper.numbers_selector", ".win_result strong")
	cm.viper.SetDefault("scraper.bonus_selector", ".bonus strong")
	cm.viper.SetDefault("scraper.user_agent", "lottosim/1.0")

	cm.viper.SetDefault("circuit_breaker.enabled", true)
	cm.viper.SetDefault("circuit_breaker.name", "lotto-scraper")
	cm.viper.SetDefault("circuit_breaker.max_requests", 1)
	cm.viper.SetDefault("circuit_breaker.interval", "60s")
	cm.viper.SetDefault("circuit_breaker.timeout", "30s")
	cm.viper.SetDefault("circuit_breaker.failure_ratio", 0.6)
	cm.viper.SetDefault("circuit_breaker.min_requests", 3)

	cm.viper.SetDefault("rate_limit.enabled", true)
	cm.viper.SetDefault("rate_limit.requests_per_second", 20)
	cm.viper.SetDefault("rate_limit.burst", 40)

	cm.viper.SetDefault("log.verbose", true)
	cm.viper.SetDefault("log.system_log", false)
	cm.viper.SetDefault("log.file", "")
}

// WatchConfig re-reads the config file on change and hands valid configs to callback.
// Invalid edits are logged and ignored, the previous config stays in effect.
func (cm *ConfigManager) WatchConfig(callback func(*Config)) {
	cm.viper.OnConfigChange(func(e fsnotify.Event) {
		config, err := cm.decode()
		if err != nil {
			logger.Warningf("Ignoring config change from %s: %v", e.Name, err)
			return
		}

		cm.mu.Lock()
		cm.config = config
		cm.mu.Unlock()

		logger.Infof("Reloaded config from %s (%s)", e.Name, e.Op)
		if callback != nil {
			callback(config)
		}
	})
	cm.viper.WatchConfig()
}

// GetConfig returns the most recently loaded config
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFileUsed returns the path of the file that was read, if any
func (cm *ConfigManager) ConfigFileUsed() string {
	return cm.viper.ConfigFileUsed()
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pricefeed/internal/logger"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
	ServiceName       string `json:"service_name" yaml:"service_name"`
	Version           string `json:"version" yaml:"version"`
	// Environment overrides the derived production/development label.
	Environment string `json:"environment" yaml:"environment"`
	// PageLang and PageDir set the lang and dir attributes of the landing page.
	PageLang string `json:"page_lang" yaml:"page_lang"`
	PageDir  string `json:"page_dir" yaml:"page_dir"`
}

type CoinMarketCap struct {
	APIKey                string `json:"api_key" yaml:"api_key"`
	BaseURL               string `json:"base_url" yaml:"base_url"`
	Convert               string `json:"convert" yaml:"convert"`
	TimeoutSec            int    `json:"timeout_sec" yaml:"timeout_sec"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec"`
}

type Feed struct {
	Symbols      []string `json:"symbols" yaml:"symbols"`
	FallbackMode string   `json:"fallback_mode" yaml:"fallback_mode"`
}

type Fallback struct {
	File  string `json:"file" yaml:"file"`
	Watch bool   `json:"watch" yaml:"watch"`
}

type Cache struct {
	TTLSeconds int    `json:"ttl_sec" yaml:"ttl_sec"`
	MaxItems   int    `json:"max_items" yaml:"max_items"`
	RedisAddr  string `json:"redis_addr" yaml:"redis_addr"`
	RedisDB    int    `json:"redis_db" yaml:"redis_db"`
	KeyPrefix  string `json:"key_prefix" yaml:"key_prefix"`
}

type Config struct {
	Server        Server        `json:"server" yaml:"server"`
	CoinMarketCap CoinMarketCap `json:"coinmarketcap" yaml:"coinmarketcap"`
	Feed          Feed          `json:"feed" yaml:"feed"`
	Fallback      Fallback      `json:"fallback" yaml:"fallback"`
	Cache         Cache         `json:"cache" yaml:"cache"`
	Log           logger.Config `json:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		Server: Server{
			Port:              "3000",
			RequestTimeoutSec: 15,
			ServiceName:       "RimToken Trading Platform",
			Version:           "1.0.0",
			PageLang:          "en",
			PageDir:           "ltr",
		},
		CoinMarketCap: CoinMarketCap{
			BaseURL:    "https://pro-api.coinmarketcap.com",
			Convert:    "USD",
			TimeoutSec: 10,
		},
		Feed: Feed{
			Symbols:      []string{"BTC", "ETH", "BNB", "SOL", "DOGE", "USDC"},
			FallbackMode: "table",
		},
		Cache: Cache{MaxItems: 1000, KeyPrefix: "pricefeed:quote:"},
		Log:   logger.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, then the config file at path
// (JSON, or YAML for .yaml/.yml), then the dotenv file, then the process
// environment. A missing file at any stage is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		for _, p := range []string{"config.yaml", "config.yml", "config.json"} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	// variables already set in the environment win over the file
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load env file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func readFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, cfg)
	default:
		err = json.Unmarshal(b, cfg)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"PORT":                  &cfg.Server.Port,
		"ENVIRONMENT":           &cfg.Server.Environment,
		"PAGE_LANG":             &cfg.Server.PageLang,
		"PAGE_DIR":              &cfg.Server.PageDir,
		"COINMARKETCAP_API_KEY": &cfg.CoinMarketCap.APIKey,
		"CMC_BASE_URL":          &cfg.CoinMarketCap.BaseURL,
		"CMC_CONVERT":           &cfg.CoinMarketCap.Convert,
		"FEED_FALLBACK_MODE":    &cfg.Feed.FallbackMode,
		"FALLBACK_FILE":         &cfg.Fallback.File,
		"CACHE_REDIS_ADDR":      &cfg.Cache.RedisAddr,
		"LOG_LEVEL":             &cfg.Log.Level,
		"LOG_FORMAT":            &cfg.Log.Format,
		"LOG_OUTPUT":            &cfg.Log.Output,
	}
	for k, dst := range str {
		if v, ok := os.LookupEnv(k); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	num := map[string]*int{
		"REQUEST_TIMEOUT_SEC":  &cfg.Server.RequestTimeoutSec,
		"FEED_TIMEOUT_SEC":     &cfg.CoinMarketCap.TimeoutSec,
		"CMC_MAX_RPM":          &cfg.CoinMarketCap.MaxRequestsPerMinute,
		"CMC_MIN_INTERVAL_SEC": &cfg.CoinMarketCap.MinRequestIntervalSec,
		"CACHE_TTL_SEC":        &cfg.Cache.TTLSeconds,
		"CACHE_MAX_ITEMS":      &cfg.Cache.MaxItems,
		"CACHE_REDIS_DB":       &cfg.Cache.RedisDB,
	}
	for k, dst := range num {
		v, ok := os.LookupEnv(k)
		if !ok || v == "" {
			continue
		}
		x, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env %s: %w", k, err)
		}
		*dst = x
	}

	if v := os.Getenv("FEED_SYMBOLS"); v != "" {
		cfg.Feed.Symbols = splitCSV(v)
	}
	if v := os.Getenv("FALLBACK_WATCH"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Fallback.Watch = true
		case "0", "false", "no", "n":
			cfg.Fallback.Watch = false
		default:
			return fmt.Errorf("env FALLBACK_WATCH: invalid boolean %q", v)
		}
	}
	return nil
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Server.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("server.port: invalid %q", c.Server.Port))
	}
	switch c.Server.PageDir {
	case "ltr", "rtl", "auto":
	default:
		errs = append(errs, fmt.Errorf("server.page_dir: must be ltr, rtl or auto, got %q", c.Server.PageDir))
	}
	if c.CoinMarketCap.TimeoutSec <= 0 {
		errs = append(errs, errors.New("coinmarketcap.timeout_sec: must be positive"))
	}
	if c.CoinMarketCap.MaxRequestsPerMinute < 0 || c.CoinMarketCap.MinRequestIntervalSec < 0 {
		errs = append(errs, errors.New("coinmarketcap: rate limits must not be negative"))
	}
	if c.CoinMarketCap.BaseURL == "" {
		errs = append(errs, errors.New("coinmarketcap.base_url: required"))
	}
	switch c.Feed.FallbackMode {
	case "table", "empty":
	default:
		errs = append(errs, fmt.Errorf("feed.fallback_mode: must be table or empty, got %q", c.Feed.FallbackMode))
	}
	if len(c.Feed.Symbols) == 0 {
		errs = append(errs, errors.New("feed.symbols: at least one symbol required"))
	}
	if c.Cache.TTLSeconds < 0 || c.Cache.MaxItems < 0 {
		errs = append(errs, errors.New("cache: ttl and max_items must not be negative"))
	}
	if c.Fallback.Watch && c.Fallback.File == "" {
		errs = append(errs, errors.New("fallback.watch: requires fallback.file"))
	}
	return errors.Join(errs...)
}

// ProductionReady reports whether live market data can be served.
func (c Config) ProductionReady() bool { return c.CoinMarketCap.APIKey != "" }

// EnvironmentName is the explicit Environment, else production when ready.
func (c Config) EnvironmentName() string {
	if c.Server.Environment != "" {
		return c.Server.Environment
	}
	if c.ProductionReady() {
		return "production"
	}
	return "development"
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"time"

	"CoinPull/internal/domain/models"
	applogger "CoinPull/pkg/logger"
	xutil "CoinPull/pkg/util"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		RateLimit       struct {
			Enabled      bool    `yaml:"enabled" default:"true"`
			Burst        float64 `yaml:"burst" default:"20"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"2"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log     applogger.Config `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	CoinGecko struct {
		BaseURL           string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3"`
		APIKey            string        `yaml:"api_key"`
		APIKeyHeader      string        `yaml:"api_key_header" default:"x-cg-demo-api-key"`
		UserAgent         string        `yaml:"user_agent" default:"CoinPull/1.0 (+market_chart)"`
		AttemptTimeout    time.Duration `yaml:"attempt_timeout" default:"15s"`
		MaxAttempts       int           `yaml:"max_attempts" default:"3"`
		BackoffBase       time.Duration `yaml:"backoff_base" default:"1s"`
		BackoffCap        time.Duration `yaml:"backoff_cap" default:"5s"`
		RequestsPerMinute int           `yaml:"requests_per_minute" default:"0"`
	} `yaml:"coingecko"`
	Cache struct {
		Window   time.Duration `yaml:"window" default:"15m"`
		Capacity int           `yaml:"capacity" default:"64"`
	} `yaml:"cache"`
	Coins     []models.Coin `yaml:"coins"`
	Refresher struct {
		Enabled    bool   `yaml:"enabled" default:"false"`
		Schedule   string `yaml:"schedule" default:"@every 15m"`
		Windows    []int  `yaml:"windows"`
		RunOnStart bool   `yaml:"run_on_start" default:"false"`
	} `yaml:"refresher"`
	Redis struct {
		Enabled  bool   `yaml:"enabled" default:"false"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" default:"0"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"coinpull"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled" default:"false"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"coinpull.price_snapshots"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async" default:"false"`
	} `yaml:"kafka"`
}

// DefaultCoins is the coin list used when none is configured.
func DefaultCoins() []models.Coin {
	return []models.Coin{
		{ID: "bitcoin", Label: "Bitcoin (BTC)", Symbol: "BTC"},
		{ID: "ethereum", Label: "Ethereum (ETH)", Symbol: "ETH"},
		{ID: "solana", Label: "Solana (SOL)", Symbol: "SOL"},
		{ID: "tether", Label: "Tether (USDT)", Symbol: "USDT"},
	}
}

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.fillDerived()
	return &c, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.fillDerived()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment looked up via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("COINGECKO_API_KEY"); v != "" {
		c.CoinGecko.APIKey = v
	}
	if v := getenv("COINGECKO_BASE_URL"); v != "" {
		c.CoinGecko.BaseURL = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = xutil.SplitCSV(v)
		c.Kafka.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.CoinGecko.BaseURL == "" {
		return fmt.Errorf("coingecko.base_url is required")
	}
	if c.CoinGecko.MaxAttempts < 1 {
		return fmt.Errorf("coingecko.max_attempts must be at least 1")
	}
	if c.CoinGecko.AttemptTimeout <= 0 {
		return fmt.Errorf("coingecko.attempt_timeout must be positive")
	}
	if c.CoinGecko.BackoffCap < c.CoinGecko.BackoffBase {
		return fmt.Errorf("coingecko.backoff_cap (%s) below backoff_base (%s)", c.CoinGecko.BackoffCap, c.CoinGecko.BackoffBase)
	}
	if c.Cache.Window < time.Second {
		return fmt.Errorf("cache.window must be at least 1s, got %s", c.Cache.Window)
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache.capacity must be at least 1")
	}
	seen := make(map[string]bool, len(c.Coins))
	for _, coin := range c.Coins {
		if coin.ID == "" {
			return fmt.Errorf("coins: id is required")
		}
		if seen[coin.ID] {
			return fmt.Errorf("coins: duplicate id %q", coin.ID)
		}
		seen[coin.ID] = true
	}
	if c.Refresher.Enabled {
		if c.Refresher.Schedule == "" {
			return fmt.Errorf("refresher.schedule is required when enabled")
		}
		for _, d := range c.Refresher.Windows {
			if d < 1 || d > 365 {
				return fmt.Errorf("refresher.windows: %d out of range 1..365", d)
			}
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// fillDerived fills list defaults that struct tags cannot express.
func (c *Config) fillDerived() {
	if len(c.Coins) == 0 {
		c.Coins = DefaultCoins()
	}
	for i := range c.Coins {
		if c.Coins[i].Symbol == "" {
			c.Coins[i].Symbol = models.SymbolFor(nil, c.Coins[i].ID)
		}
		if c.Coins[i].Label == "" {
			c.Coins[i].Label = c.Coins[i].ID
		}
	}
	if len(c.Refresher.Windows) == 0 {
		c.Refresher.Windows = []int{1, 7, 30}
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env       string `mapstructure:"OLND_ENV"`
	HTTPAddr  string `mapstructure:"OLND_HTTP_ADDR"`
	PublicURL string `mapstructure:"OLND_PUBLIC_ORIGIN"`

	Ledger   LedgerConfig   `mapstructure:",squash"`
	Bridge   BridgeConfig   `mapstructure:",squash"`
	Database DBConfig       `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Prices   PriceConfig    `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type LedgerConfig struct {
	// OwnerAddress is the only identity allowed on admin entry points.
	OwnerAddress string `mapstructure:"OLND_OWNER_ADDRESS"`
	// JournalBackend selects where operation history goes: "memory" or
	// "postgres".
	JournalBackend string `mapstructure:"OLND_JOURNAL_BACKEND"`
}

type BridgeConfig struct {
	GatewayCaller       string        `mapstructure:"OLND_GATEWAY_CALLER"`
	DestinationChainID  uint64        `mapstructure:"OLND_DESTINATION_CHAIN_ID"`
	RelayerAddress      string        `mapstructure:"OLND_RELAYER_ADDRESS"`
	MessageMaxAge       time.Duration `mapstructure:"OLND_MESSAGE_MAX_AGE"`
	DedupTTL            time.Duration `mapstructure:"OLND_DELIVERY_DEDUP_TTL"`
	AllowedOriginChains []uint64      // parsed from OLND_ALLOWED_ORIGIN_CHAINS
}

type DBConfig struct {
	PostgresDSN string `mapstructure:"OLND_POSTGRES_DSN"`
}

type CacheConfig struct {
	RedisAddr string `mapstructure:"OLND_REDIS_ADDR"`
}

type PriceConfig struct {
	Provider        string        `mapstructure:"OLND_PRICE_PROVIDER"` // "static", "mock", "http"
	OracleURL       string        `mapstructure:"OLND_PRICE_ORACLE_URL"`
	MaxAge          time.Duration `mapstructure:"OLND_PRICE_MAX_AGE"`
	RefreshInterval time.Duration `mapstructure:"OLND_PRICE_REFRESH_INTERVAL"`
	StaticPrices    string        `mapstructure:"OLND_PRICE_STATIC"`   // "ETH=2000,SOL=150"
	Mappings        string        `mapstructure:"OLND_PRICE_MAPPINGS"` // "ETH=ETHUSDT"
	MockVolatility  float64       `mapstructure:"OLND_PRICE_MOCK_VOLATILITY"`
	MockBasePrice   float64       `mapstructure:"OLND_PRICE_MOCK_BASE_PRICE"`
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"OLND_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"OLND_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("backend", ".env"),
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if !filepath.IsAbs(path) {
			if resolved, err := filepath.Abs(path); err == nil {
				abs = resolved
			}
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("OLND_ENV", "dev")
	viper.SetDefault("OLND_HTTP_ADDR", ":8080")
	viper.SetDefault("OLND_PUBLIC_ORIGIN", "http://localhost:3000")
	viper.SetDefault("OLND_JOURNAL_BACKEND", "memory")
	viper.SetDefault("OLND_GATEWAY_CALLER", "gateway")
	viper.SetDefault("OLND_DESTINATION_CHAIN_ID", 7000)
	viper.SetDefault("OLND_MESSAGE_MAX_AGE", "10m")
	viper.SetDefault("OLND_DELIVERY_DEDUP_TTL", "24h")
	viper.SetDefault("OLND_POSTGRES_DSN", "")
	viper.SetDefault("OLND_REDIS_ADDR", "")
	viper.SetDefault("OLND_PRICE_PROVIDER", "static")
	viper.SetDefault("OLND_PRICE_MAX_AGE", "60s")
	viper.SetDefault("OLND_PRICE_REFRESH_INTERVAL", "15s")
	viper.SetDefault("OLND_PRICE_MOCK_VOLATILITY", 0.002)
	viper.SetDefault("OLND_PRICE_MOCK_BASE_PRICE", 1.50)
	viper.SetDefault("OLND_RATE_LIMIT_RPM", 120)
	viper.SetDefault("OLND_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")

	if origins := viper.GetString("OLND_CORS_ALLOWED_ORIGINS"); origins != "" {
		viper.Set("OLND_CORS_ALLOWED_ORIGINS", strings.Split(origins, ","))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	chains, err := parseChainList(viper.GetString("OLND_ALLOWED_ORIGIN_CHAINS"))
	if err != nil {
		return nil, fmt.Errorf("invalid OLND_ALLOWED_ORIGIN_CHAINS: %w", err)
	}
	cfg.Bridge.AllowedOriginChains = chains

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func parseChainList(raw string) ([]uint64, error) {
	var out []uint64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chain id %q: %w", part, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Ledger.OwnerAddress) == "" {
		return fmt.Errorf("OLND_OWNER_ADDRESS is required")
	}
	switch c.Ledger.JournalBackend {
	case "memory":
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("OLND_POSTGRES_DSN is required with the postgres journal backend")
		}
	default:
		return fmt.Errorf("invalid OLND_JOURNAL_BACKEND %q (must be memory or postgres)", c.Ledger.JournalBackend)
	}
	switch c.Prices.Provider {
	case "static", "mock":
	case "http":
		if c.Prices.OracleURL == "" {
			return fmt.Errorf("OLND_PRICE_ORACLE_URL is required with the http price provider")
		}
	default:
		return fmt.Errorf("invalid OLND_PRICE_PROVIDER %q (must be static, mock, or http)", c.Prices.Provider)
	}
	if c.Bridge.DestinationChainID == 0 {
		return fmt.Errorf("OLND_DESTINATION_CHAIN_ID must be non-zero")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

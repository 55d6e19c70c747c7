package config

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds the daemon's full configuration.
type Config struct {
	ListenTransport string   `mapstructure:"listen_transport"` // "tcp" or "vsock"
	ListenAddr      string   `mapstructure:"listen_addr"`      // tcp only
	VsockPort       uint32   `mapstructure:"vsock_port"`       // vsock only
	MaxWorkers      int      `mapstructure:"max_workers"`
	StoreBackend    string   `mapstructure:"store_backend"` // "memory" or "sqlite"
	SQLitePath      string   `mapstructure:"sqlite_path"`
	JournalPath     string   `mapstructure:"journal_path"`
	PlatformFeeBps  int64    `mapstructure:"platform_fee_bps"`
	FeeRecipient    string   `mapstructure:"fee_recipient"`
	AdminAddress    string   `mapstructure:"admin_address"`
	EscrowAccount   string   `mapstructure:"escrow_account"`
	MinBidIncrement string   `mapstructure:"min_bid_increment"`
	AcceptedTokens  []string `mapstructure:"accepted_tokens"`
	DebugLogging    bool     `mapstructure:"debug_logging"`
}

const (
	DefaultListenAddr     = "127.0.0.1:7650"
	DefaultVsockPort      = 7650
	DefaultMaxWorkers     = 8
	DefaultPlatformFeeBps = 250
	DefaultEscrowAccount  = "auctionhouse:escrow"
	DefaultIncrement      = "1"
)

// Load reads configuration from the given file (optional) with environment
// overrides under the AUCTIONHOUSE prefix.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Every key needs a default: AutomaticEnv only surfaces env values for
	// keys viper already knows about, so a key without one would ignore its
	// AUCTIONHOUSE_* override.
	defaults := map[string]interface{}{
		"listen_transport":  "tcp",
		"listen_addr":       DefaultListenAddr,
		"vsock_port":        DefaultVsockPort,
		"max_workers":       DefaultMaxWorkers,
		"store_backend":     "memory",
		"sqlite_path":       "",
		"journal_path":      "",
		"platform_fee_bps":  DefaultPlatformFeeBps,
		"fee_recipient":     "",
		"admin_address":     "",
		"escrow_account":    DefaultEscrowAccount,
		"min_bid_increment": DefaultIncrement,
		"accepted_tokens":   []string{},
		"debug_logging":     false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("AUCTIONHOUSE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, Validate(&cfg)
}

// Validate rejects configurations the daemon cannot run with.
func Validate(cfg *Config) error {
	switch cfg.ListenTransport {
	case "tcp":
		if cfg.ListenAddr == "" {
			return errors.New("listen_addr required for tcp transport")
		}
	case "vsock":
		if cfg.VsockPort == 0 {
			return errors.New("vsock_port required for vsock transport")
		}
	default:
		return fmt.Errorf("unknown listen_transport %q", cfg.ListenTransport)
	}

	switch cfg.StoreBackend {
	case "memory":
	case "sqlite":
		if cfg.SQLitePath == "" {
			return errors.New("sqlite_path required for sqlite backend")
		}
	default:
		return fmt.Errorf("unknown store_backend %q", cfg.StoreBackend)
	}

	if cfg.MaxWorkers <= 0 {
		return errors.New("max_workers must be positive")
	}
	if cfg.PlatformFeeBps < 0 || cfg.PlatformFeeBps > 10000 {
		return fmt.Errorf("platform_fee_bps %d out of range", cfg.PlatformFeeBps)
	}
	if cfg.FeeRecipient == "" {
		return errors.New("missing fee_recipient")
	}
	if cfg.AdminAddress == "" {
		return errors.New("missing admin_address")
	}
	if cfg.EscrowAccount == "" {
		return errors.New("missing escrow_account")
	}

	inc, err := decimal.NewFromString(cfg.MinBidIncrement)
	if err != nil {
		return fmt.Errorf("invalid min_bid_increment %q: %w", cfg.MinBidIncrement, err)
	}
	if !inc.IsPositive() {
		return errors.New("min_bid_increment must be positive")
	}
	return nil
}

// Increment returns the parsed minimum bid increment. Call after Validate.
func (c *Config) Increment() decimal.Decimal {
	return decimal.RequireFromString(c.MinBidIncrement)
}

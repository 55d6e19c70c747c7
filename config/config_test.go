package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func validConfig() *Config {
	return &Config{
		ListenTransport: "tcp",
		ListenAddr:      DefaultListenAddr,
		MaxWorkers:      DefaultMaxWorkers,
		StoreBackend:    "memory",
		PlatformFeeBps:  DefaultPlatformFeeBps,
		FeeRecipient:    "treasury",
		AdminAddress:    "admin",
		EscrowAccount:   DefaultEscrowAccount,
		MinBidIncrement: "1",
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
fee_recipient: treasury
admin_address: admin
accepted_tokens:
  - "0xwftm"
platform_fee_bps: 300
`)
	assert.Nil(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	assert.Nil(t, err)

	// Defaults fill the unset fields
	check.Equal(t, "tcp", cfg.ListenTransport)
	check.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	check.Equal(t, DefaultMaxWorkers, cfg.MaxWorkers)
	check.Equal(t, "memory", cfg.StoreBackend)

	check.Equal(t, int64(300), cfg.PlatformFeeBps)
	check.Equal(t, "treasury", cfg.FeeRecipient)
	check.Equal(t, []string{"0xwftm"}, cfg.AcceptedTokens)
	check.True(t, cfg.Increment().Equal(cfg.Increment()))
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("AUCTIONHOUSE_FEE_RECIPIENT", "treasury")
	t.Setenv("AUCTIONHOUSE_ADMIN_ADDRESS", "admin")
	t.Setenv("AUCTIONHOUSE_LISTEN_ADDR", "127.0.0.1:9999")
	t.Setenv("AUCTIONHOUSE_JOURNAL_PATH", "/var/lib/auctionhouse/events.journal")
	t.Setenv("AUCTIONHOUSE_DEBUG_LOGGING", "true")

	// No config file at all: env vars alone must produce a valid config
	cfg, err := Load("")
	assert.Nil(t, err)

	check.Equal(t, "treasury", cfg.FeeRecipient)
	check.Equal(t, "admin", cfg.AdminAddress)
	check.Equal(t, "127.0.0.1:9999", cfg.ListenAddr)
	check.Equal(t, "/var/lib/auctionhouse/events.journal", cfg.JournalPath)
	check.True(t, cfg.DebugLogging)

	// Untouched keys keep their defaults
	check.Equal(t, "tcp", cfg.ListenTransport)
	check.Equal(t, DefaultMaxWorkers, cfg.MaxWorkers)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
fee_recipient: treasury
admin_address: admin
platform_fee_bps: 300
`)
	assert.Nil(t, os.WriteFile(path, data, 0o644))
	t.Setenv("AUCTIONHOUSE_FEE_RECIPIENT", "treasury-v2")

	cfg, err := Load(path)
	assert.Nil(t, err)
	check.Equal(t, "treasury-v2", cfg.FeeRecipient)
	check.Equal(t, int64(300), cfg.PlatformFeeBps)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	check.NotNil(t, err)
}

func TestValidate(t *testing.T) {
	check.Nil(t, Validate(validConfig()))

	cfg := validConfig()
	cfg.ListenTransport = "carrier-pigeon"
	check.NotNil(t, Validate(cfg))

	cfg = validConfig()
	cfg.ListenTransport = "vsock"
	cfg.VsockPort = 0
	check.NotNil(t, Validate(cfg))
	cfg.VsockPort = 7650
	check.Nil(t, Validate(cfg))

	cfg = validConfig()
	cfg.StoreBackend = "sqlite"
	check.NotNil(t, Validate(cfg)) // missing path
	cfg.SQLitePath = "/tmp/a.db"
	check.Nil(t, Validate(cfg))

	cfg = validConfig()
	cfg.MaxWorkers = 0
	check.NotNil(t, Validate(cfg))

	cfg = validConfig()
	cfg.PlatformFeeBps = 10001
	check.NotNil(t, Validate(cfg))

	cfg = validConfig()
	cfg.FeeRecipient = ""
	check.NotNil(t, Validate(cfg))

	cfg = validConfig()
	cfg.AdminAddress = ""
	check.NotNil(t, Validate(cfg))

	cfg = validConfig()
	cfg.MinBidIncrement = "zero"
	check.NotNil(t, Validate(cfg))

	cfg = validConfig()
	cfg.MinBidIncrement = "0"
	check.NotNil(t, Validate(cfg))
}

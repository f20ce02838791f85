package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	ListenAddr string
	WalDir     string
	StateDir   string
	Currency   string
	UserID     string
	Platforms  []string
	Symbols    []string
	// Prices maps asset symbols to their USDT price for exchange operations.
	Prices map[string]decimal.Decimal
}

type configTmp struct {
	ListenAddr string            `yaml:"listen_addr,omitempty"`
	WalDir     string            `yaml:"wal_dir,omitempty"`
	StateDir   string            `yaml:"state_dir,omitempty"`
	Currency   string            `yaml:"currency,omitempty"`
	UserID     string            `yaml:"user_id,omitempty"`
	Platforms  []string          `yaml:"platforms,omitempty"`
	Symbols    []string          `yaml:"symbols,omitempty"`
	Prices     map[string]string `yaml:"prices,omitempty"`
}

var defaultPrices = map[string]string{
	"BTC": "60000",
	"ETH": "3000",
}

// Get loads configuration from the YAML file given via --config, falling
// back to flags and defaults.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	addr := flag.String("addr", ":8080", "http listen address")
	walDir := flag.String("waldir", "./wal/ledger", "ledger WAL directory")
	stateDir := flag.String("statedir", "./state/wallets", "wallet state directory")
	user := flag.String("user", "default", "demo user id")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	conf := Config{
		ListenAddr: *addr,
		WalDir:     *walDir,
		StateDir:   *stateDir,
		Currency:   "USD",
		UserID:     *user,
	}
	return withDefaults(conf, nil)
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	conf := Config{
		ListenAddr: tmp.ListenAddr,
		WalDir:     tmp.WalDir,
		StateDir:   tmp.StateDir,
		Currency:   tmp.Currency,
		UserID:     tmp.UserID,
		Platforms:  tmp.Platforms,
		Symbols:    tmp.Symbols,
	}
	return withDefaults(conf, tmp.Prices)
}

func withDefaults(conf Config, rawPrices map[string]string) (Config, error) {
	if conf.ListenAddr == "" {
		conf.ListenAddr = ":8080"
	}
	if conf.WalDir == "" {
		conf.WalDir = "./wal/ledger"
	}
	if conf.StateDir == "" {
		conf.StateDir = "./state/wallets"
	}
	if conf.Currency == "" {
		conf.Currency = "USD"
	}
	if conf.UserID == "" {
		conf.UserID = "default"
	}

	if len(rawPrices) == 0 {
		rawPrices = defaultPrices
	}
	conf.Prices = make(map[string]decimal.Decimal, len(rawPrices))
	for asset, raw := range rawPrices {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect price for %s in config: %w", asset, err)
		}
		if price.LessThanOrEqual(decimal.Zero) {
			return Config{}, fmt.Errorf("price for %s must be positive, got %s", asset, price)
		}
		conf.Prices[asset] = price
	}

	return conf, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "NEXUSQUEST"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App    AppConfig
	Chain  ChainConfig
	Game   GameConfig
	Market MarketConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Game.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Market.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NEXUSQUEST_APP_ENV" required:"true"`
	Port         string `envconfig:"NEXUSQUEST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NEXUSQUEST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NEXUSQUEST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ChainConfig struct {
	// RPCURL should be a websocket endpoint so live subscriptions work
	// alongside reads over the same connection.
	RPCURL      string        `envconfig:"NEXUSQUEST_CHAIN_RPC_URL" required:"true"`
	ChainID     int64         `envconfig:"NEXUSQUEST_CHAIN_ID" default:"1337"`
	PrivateKey  string        `envconfig:"NEXUSQUEST_CHAIN_PRIVATE_KEY" required:"true"`
	DialTimeout time.Duration `envconfig:"NEXUSQUEST_CHAIN_DIAL_TIMEOUT" default:"30s"`
}

type GameConfig struct {
	ContractAddress string `envconfig:"NEXUSQUEST_GAME_CONTRACT" required:"true"`
}

func (g GameConfig) Address() common.Address {
	return common.HexToAddress(g.ContractAddress)
}

func (g GameConfig) validate() error {
	if !common.IsHexAddress(g.ContractAddress) {
		return fmt.Errorf("invalid game contract address %q", g.ContractAddress)
	}
	return nil
}

type MarketConfig struct {
	ContractAddress string `envconfig:"NEXUSQUEST_MARKET_CONTRACT" required:"true"`

	// ScanLimit bounds the id range probed when enumerating listings. The
	// marketplace contract exposes no enumeration primitive, so discovery
	// is a best-effort probe of ids 1..ScanLimit. Known scaling limit.
	ScanLimit uint64 `envconfig:"NEXUSQUEST_MARKET_SCAN_LIMIT" default:"10"`
}

func (m MarketConfig) Address() common.Address {
	return common.HexToAddress(m.ContractAddress)
}

func (m MarketConfig) validate() error {
	if !common.IsHexAddress(m.ContractAddress) {
		return fmt.Errorf("invalid market contract address %q", m.ContractAddress)
	}
	if m.ScanLimit == 0 {
		return fmt.Errorf("market scan limit must be positive")
	}
	return nil
}

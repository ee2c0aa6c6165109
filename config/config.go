package config

import (
	"io/fs"
	"os"
	"strconv"
	"zetago/lib/serum"
	"zetago/math"

	"github.com/go-errors/errors"
	"github.com/joho/godotenv"
)

type ZetaEnv string

const (
	ZetaEnvNone        ZetaEnv = ""
	ZetaEnvDevnet      ZetaEnv = "devnet"
	ZetaEnvMainnetBeta ZetaEnv = "mainnet-beta"
)

type ZetaConfig struct {
	ENV             ZetaEnv
	RPC_ENDPOINT    string
	WS_ENDPOINT     string
	ZETA_PROGRAM_ID string
	DEX_PROGRAM_ID  string
}

var ZetaConfigs = map[ZetaEnv]ZetaConfig{
	ZetaEnvDevnet: {
		ENV:             ZetaEnvDevnet,
		RPC_ENDPOINT:    "https://api.devnet.solana.com",
		WS_ENDPOINT:     "wss://api.devnet.solana.com",
		ZETA_PROGRAM_ID: "BG3oRikW8d16YjUEmX3ZxHm9SiJzrGtMhsSR8aCw1Cd7",
		DEX_PROGRAM_ID:  "5CmWtUihvSrJpaUrpJ3H1jUa9DRjYz4v2xs6c3EgQWMf",
	},
	ZetaEnvMainnetBeta: {
		ENV:             ZetaEnvMainnetBeta,
		RPC_ENDPOINT:    "https://api.mainnet-beta.solana.com",
		WS_ENDPOINT:     "wss://api.mainnet-beta.solana.com",
		ZETA_PROGRAM_ID: "ZETAxsqBRek56DhiGXrn75yj2NHU3aYUnxvHXpkf3aD",
		DEX_PROGRAM_ID:  "zDEXqXEG7gAyxb1Kg9mK5fPnUdENCGKzWrM21RMdWRq",
	},
}

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env         ZetaEnv
	Network     ZetaConfig
	RpcEndpoint string
	WsEndpoint  string
	Precision   math.Precision
	Epoch       serum.Epoch
}

func Default() *Config {
	network := ZetaConfigs[ZetaEnvDevnet]
	return &Config{
		Env:         network.ENV,
		Network:     network,
		RpcEndpoint: network.RPC_ENDPOINT,
		WsEndpoint:  network.WS_ENDPOINT,
		Precision:   math.DefaultPrecision,
	}
}

// LoadFromEnv reads path (or ./.env when no path is given) into the process
// environment without overriding variables already set, then builds a Config
// on top of Default. A missing ./.env is not an error.
func LoadFromEnv(path ...string) (*Config, error) {
	if len(path) > 0 && path[0] != "" {
		if err := godotenv.Load(path...); err != nil {
			return nil, errors.WrapPrefix(err, "load env", 0)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.WrapPrefix(err, "load .env", 0)
	}

	cfg := Default()
	if env, ok := os.LookupEnv("ZETA_ENV"); ok {
		network, exists := ZetaConfigs[ZetaEnv(env)]
		if !exists {
			return nil, errors.Errorf("ZETA_ENV %q: %w", env, ErrInvalidConfig)
		}
		cfg.Env = network.ENV
		cfg.Network = network
		cfg.RpcEndpoint = network.RPC_ENDPOINT
		cfg.WsEndpoint = network.WS_ENDPOINT
	}
	if endpoint := os.Getenv("RPC_ENDPOINT"); endpoint != "" {
		cfg.RpcEndpoint = endpoint
	}
	if endpoint := os.Getenv("WS_ENDPOINT"); endpoint != "" {
		cfg.WsEndpoint = endpoint
	}

	var err error
	if cfg.Precision.Platform, err = lookupInt("PLATFORM_PRECISION", cfg.Precision.Platform); err != nil {
		return nil, err
	}
	if cfg.Precision.Position, err = lookupInt("POSITION_PRECISION", cfg.Precision.Position); err != nil {
		return nil, err
	}
	if cfg.Precision.TickSize, err = lookupInt("TICK_SIZE", cfg.Precision.TickSize); err != nil {
		return nil, err
	}
	if err = cfg.Precision.Validate(); err != nil {
		return nil, err
	}
	if cfg.Epoch.Length, err = lookupInt("EPOCH_LENGTH", cfg.Epoch.Length); err != nil {
		return nil, err
	}
	if cfg.Epoch.StartTs, err = lookupInt("EPOCH_START_TS", cfg.Epoch.StartTs); err != nil {
		return nil, err
	}
	if cfg.Epoch.StartSeqNum, err = lookupInt("START_EPOCH_SEQ_NUM", cfg.Epoch.StartSeqNum); err != nil {
		return nil, err
	}
	return cfg, nil
}

func lookupInt[T int32 | int64 | uint64](name string, fallback T) (T, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return fallback, nil
	}
	var zero T
	switch any(zero).(type) {
	case uint64:
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fallback, errors.Errorf("%s=%q: %w", name, raw, ErrInvalidConfig)
		}
		return T(v), nil
	case int32:
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return fallback, errors.Errorf("%s=%q: %w", name, raw, ErrInvalidConfig)
		}
		return T(v), nil
	default:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fallback, errors.Errorf("%s=%q: %w", name, raw, ErrInvalidConfig)
		}
		return T(v), nil
	}
}

// Package config loads the YAML settings of the tail tooling.
package config

import (
	crand "crypto/rand"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zkp-tail/zk-tail/replay"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const FileName = "tail-config.yaml"

type ProverConfig struct {
	// Enabled makes the tools prove bundles with the local backend.
	Enabled bool `yaml:"enabled"`
	// SolidityOut is where export-verifier writes the contract.
	SolidityOut string `yaml:"solidityOut"`
}

type Config struct {
	LogLevel   string       `yaml:"logLevel"`
	ReplayPath string       `yaml:"replayPath"`
	ReplayKey  string       `yaml:"replayKey"` // hex, 32 bytes
	Prover     ProverConfig `yaml:"prover"`
}

// DefaultConfig keeps all files under dir and uses a fresh replay key.
func DefaultConfig(dir string) (*Config, error) {
	key := make([]byte, replay.SecretSize)
	if _, err := crand.Read(key); err != nil {
		return nil, errors.Wrap(err, "replay key")
	}
	return &Config{
		LogLevel:   zerolog.InfoLevel.String(),
		ReplayPath: filepath.Join(dir, "replay.log"),
		ReplayKey:  hexutil.Encode(key),
		Prover: ProverConfig{
			Enabled:     false,
			SolidityOut: filepath.Join(dir, "TailVerifier.sol"),
		},
	}, nil
}

// LoadConfig reads path, writing a default config there first if it does
// not exist.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c, err := DefaultConfig(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		if err := SaveConfig(path, c); err != nil {
			return nil, err
		}
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if _, err := c.Level(); err != nil {
		return nil, err
	}
	return c, nil
}

func SaveConfig(path string, c *Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	// the file holds the replay key
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) Level() (zerolog.Level, error) {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "log level %q", c.LogLevel)
	}
	return l, nil
}

func (c *Config) ReplaySecret() ([]byte, error) {
	key, err := hexutil.Decode(c.ReplayKey)
	if err != nil {
		return nil, errors.Wrap(err, "replay key")
	}
	if len(key) != replay.SecretSize {
		return nil, errors.Errorf("replay key is %d bytes, want %d", len(key), replay.SecretSize)
	}
	return key, nil
}

// Logger sets the global level from c and returns a console logger for the
// command line tools.
func (c *Config) Logger() (zerolog.Logger, error) {
	l, err := c.Level()
	if err != nil {
		return zerolog.Nop(), err
	}
	zerolog.SetGlobalLevel(l)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(), nil
}

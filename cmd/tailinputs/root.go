package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zkp-tail/zk-tail/config"
	"github.com/kysee/zkp-tail/zk-tail/kernel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "tailinputs",
	Short:        "Build, inspect and prove private kernel tail inputs",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.LoadConfig(configPath); err != nil {
			return err
		}
		logger, err = cfg.Logger()
		return err
	},
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".zkp-tail", config.FileName)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "config file")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(proveCmd)
	rootCmd.AddCommand(exportVerifierCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(configCmd)
}

// readPayload accepts 0x-prefixed hex, or @path to a file holding hex.
func readPayload(arg string) ([]byte, error) {
	if strings.HasPrefix(arg, "@") {
		bz, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, errors.Wrap(err, "read payload")
		}
		arg = strings.TrimSpace(string(bz))
	}
	bz, err := hexutil.Decode(arg)
	if err != nil {
		return nil, errors.Wrap(err, "payload is not hex")
	}
	return bz, nil
}

func decodePayload(arg string) (*kernel.TailInputs, error) {
	bz, err := readPayload(arg)
	if err != nil {
		return nil, err
	}
	return kernel.Decode(bz)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "Config File: %s\n", configPath)
		fmt.Fprintf(cmd.OutOrStdout(), "Log Level: %s\n", cfg.LogLevel)
		fmt.Fprintf(cmd.OutOrStdout(), "Replay Log: %s\n", cfg.ReplayPath)
		fmt.Fprintf(cmd.OutOrStdout(), "Prover Enabled: %v\n", cfg.Prover.Enabled)
		fmt.Fprintf(cmd.OutOrStdout(), "Solidity Verifier: %s\n", cfg.Prover.SolidityOut)
		return nil
	},
}

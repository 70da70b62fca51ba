package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zkp-tail/zk-tail/replay"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Inspect the replay log",
}

func openReplay() (*replay.Log, error) {
	secret, err := cfg.ReplaySecret()
	if err != nil {
		return nil, err
	}
	return replay.Open(cfg.ReplayPath, secret)
}

var replayListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded bundle digests",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openReplay()
		if err != nil {
			return err
		}
		defer l.Close()
		entries, err := l.Entries()
		if err != nil {
			return err
		}
		for i, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s %d\n", i, e.Digest, len(e.Sealed))
		}
		return nil
	},
}

var replayShowCmd = &cobra.Command{
	Use:   "show <digest>",
	Short: "Print the encoding of a recorded bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		digest, err := types.ParseFr(args[0])
		if err != nil {
			return err
		}
		l, err := openReplay()
		if err != nil {
			return err
		}
		defer l.Close()
		t, err := l.Load(digest)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(t.Encode()))
		return nil
	},
}

func init() {
	replayCmd.AddCommand(replayListCmd)
	replayCmd.AddCommand(replayShowCmd)
}

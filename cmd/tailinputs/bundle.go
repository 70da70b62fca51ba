package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/zkp-tail/zk-tail/canon"
	"github.com/kysee/zkp-tail/zk-tail/circuit"
	"github.com/kysee/zkp-tail/zk-tail/kernel"
	"github.com/kysee/zkp-tail/zk-tail/prover"
	"github.com/kysee/zkp-tail/zk-tail/replay"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// buildInput is the JSON accepted by build. Arrays may be shorter than
// their capacity; missing entries are empty.
type buildInput struct {
	PreviousKernel            kernel.PreviousKernelData `json:"previousKernel"`
	MasterNullifierSecretKeys []types.GrumpkinScalar    `json:"masterNullifierSecretKeys"`
}

var record bool

var buildCmd = &cobra.Command{
	Use:   "build <input.json>",
	Short: "Build tail inputs from the previous kernel result and print their encoding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bz, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, "read input")
		}
		var in buildInput
		if err := json.Unmarshal(bz, &in); err != nil {
			return errors.Wrap(err, "parse input")
		}
		if len(in.MasterNullifierSecretKeys) > types.MaxNullifierKeyValidationRequestsPerTx {
			return errors.Wrapf(types.ErrCapacityExceeded, "%d master nullifier secret keys", len(in.MasterNullifierSecretKeys))
		}
		keys := make([]types.GrumpkinScalar, types.MaxNullifierKeyValidationRequestsPerTx)
		copy(keys, in.MasterNullifierSecretKeys)

		t, err := kernel.FromPreviousKernel(in.PreviousKernel, keys)
		if err != nil {
			return err
		}
		if record {
			if err := recordBundle(t); err != nil {
				return err
			}
		}
		logger.Info().Str("digest", t.Digest().String()).Int("size", t.EncodedSize()).Msg("tail inputs built")
		fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(t.Encode()))
		return nil
	},
}

func recordBundle(t *kernel.TailInputs) error {
	secret, err := cfg.ReplaySecret()
	if err != nil {
		return err
	}
	l, err := replay.Open(cfg.ReplayPath, secret)
	if err != nil {
		return err
	}
	defer l.Close()
	_, err = l.Append(t)
	return err
}

var decodeCmd = &cobra.Command{
	Use:   "decode <0xhex|@file>",
	Short: "Decode an encoded bundle and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := decodePayload(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <0xhex|@file>",
	Short: "Check ordering, permutations, hints and nullifier keys of a bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := decodePayload(args[0])
		if err != nil {
			return err
		}
		if err := checkBundle(t); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "digest:  %s\n", t.Digest())
		fmt.Fprintf(cmd.OutOrStdout(), "vk root: %s\n", t.PreviousKernel.VKMembershipRoot())
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

// checkBundle rebuilds the bundle from its previous kernel and keys and
// compares the two.
func checkBundle(t *kernel.TailInputs) error {
	if !canon.IsCanonical(t.SortedNewCommitments[:]) || !canon.IsCanonical(t.SortedNewNullifiers[:]) {
		return errors.New("sorted arrays are not in canonical order")
	}
	if !canon.IsPermutation(t.SortedNewCommitmentsIndexes[:]) || !canon.IsPermutation(t.SortedNewNullifiersIndexes[:]) {
		return errors.New("sort indexes are not permutations")
	}
	rebuilt, err := kernel.FromPreviousKernel(t.PreviousKernel, t.MasterNullifierSecretKeys[:])
	if err != nil {
		return err
	}
	if rebuilt.Digest() != t.Digest() {
		return errors.New("bundle differs from the one rebuilt from its previous kernel")
	}
	return t.VerifyNullifierKeys()
}

var proveCmd = &cobra.Command{
	Use:   "prove <0xhex|@file>",
	Short: "Prove the linkage circuit for a bundle and print the proof data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(args[0])
		if err != nil {
			return err
		}
		t, err := kernel.Decode(payload)
		if err != nil {
			return err
		}
		b, err := prover.NewLocalBackend(circuit.TailSizes, logger)
		if err != nil {
			return err
		}
		proof, err := b.Prove(context.Background(), payload)
		if err != nil {
			return err
		}
		if err := b.Verify(proof, payload); err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(prover.NewProofData(proof, circuit.Assign(t)))
	},
}

var exportVerifierCmd = &cobra.Command{
	Use:   "export-verifier",
	Short: "Write a Solidity verifier for the linkage circuit",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := prover.NewLocalBackend(circuit.TailSizes, logger)
		if err != nil {
			return err
		}
		f, err := os.Create(cfg.Prover.SolidityOut)
		if err != nil {
			return errors.Wrap(err, "create verifier file")
		}
		defer f.Close()
		if err := b.ExportSolidity(f); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.Prover.SolidityOut).Msg("solidity verifier generated")
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&record, "record", false, "append the bundle to the replay log")
}

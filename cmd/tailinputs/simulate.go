package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kysee/zkp-tail/zk-tail/abi"
	"github.com/kysee/zkp-tail/zk-tail/circuit"
	"github.com/kysee/zkp-tail/zk-tail/prover"
	"github.com/kysee/zkp-tail/zk-tail/replay"
	"github.com/kysee/zkp-tail/zk-tail/rpc"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/spf13/cobra"
)

var (
	simConstructorArgs []string
	simFrom            string
	simPortal          string
	simSalt            string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <abi.json> <function> [args...]",
	Short: "Deploy a contract on an in-memory node and call one of its functions",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		var backend prover.Backend
		if cfg.Prover.Enabled {
			b, err := prover.NewLocalBackend(circuit.TailSizes, logger)
			if err != nil {
				return err
			}
			backend = b
		}
		client := rpc.NewMemoryClient(backend)
		if _, err := client.AddAccount(ctx); err != nil {
			return err
		}
		from, err := abi.TxSender(ctx, client, simFrom)
		if err != nil {
			return err
		}

		contractAbi, err := abi.LoadContractAbi(args[0])
		if err != nil {
			return err
		}
		ctor, err := contractAbi.Function("constructor")
		if err != nil {
			return err
		}
		ctorArgs, err := abi.EncodeArgs(simConstructorArgs, ctor.Parameters)
		if err != nil {
			return err
		}
		salt, err := types.ParseFr(simSalt)
		if err != nil {
			return err
		}

		secret, err := cfg.ReplaySecret()
		if err != nil {
			return err
		}
		log, err := replay.Open(cfg.ReplayPath, secret)
		if err != nil {
			return err
		}
		defer log.Close()

		deployReq, err := client.CreateDeploymentTxRequest(ctx, contractAbi, ctorArgs, common.HexToAddress(simPortal), salt, from)
		if err != nil {
			return err
		}
		if _, err := submit(ctx, cmd, client, log, deployReq); err != nil {
			return err
		}

		_, callArgs, _, err := abi.PrepTx(args[0], deployReq.To.String(), args[1], args[2:])
		if err != nil {
			return err
		}
		callReq, err := client.CreateTxRequest(ctx, args[1], callArgs, deployReq.To, from)
		if err != nil {
			return err
		}
		_, err = submit(ctx, cmd, client, log, callReq)
		return err
	},
}

func submit(ctx context.Context, cmd *cobra.Command, client rpc.Client, log *replay.Log, req *rpc.TxRequest) (*rpc.TxReceipt, error) {
	sig, err := client.SignTxRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	tx, err := client.CreateTx(ctx, req, sig)
	if err != nil {
		return nil, err
	}
	if _, err := log.Append(tx.Inputs); err != nil {
		return nil, err
	}
	hash, err := client.SendTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	receipt, err := client.GetTxReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", req.FunctionName, receipt.TxHash, receipt.Status)
	if receipt.ContractAddress != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "contract %s\n", receipt.ContractAddress)
	}
	return receipt, nil
}

func init() {
	simulateCmd.Flags().StringSliceVar(&simConstructorArgs, "constructor-args", nil, "constructor arguments")
	simulateCmd.Flags().StringVar(&simFrom, "from", "", "sender address; defaults to the first account")
	simulateCmd.Flags().StringVar(&simPortal, "portal", "0x0000000000000000000000000000000000000000", "portal contract address")
	simulateCmd.Flags().StringVar(&simSalt, "salt", "0", "contract address salt")
}

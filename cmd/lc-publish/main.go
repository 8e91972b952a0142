// lc-publish deploys the light client contract suite and writes the
// resulting addresses as a .env file.
//
// Every contract address can be supplied up front (flag or env var named
// after the contract); a supplied contract is skipped entirely, including
// its dependencies.
package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AmunRaCode/espresso-sequencer/deploy"
	"github.com/AmunRaCode/espresso-sequencer/publish"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/lightclient"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/lightclientmock"
)

type config struct {
	RPCURL         string
	ChainID        int64
	PrivateKey     string
	Owner          string
	Mock           bool
	Out            string
	GasFeeCap      int64
	GasTipCap      int64
	TimeoutSeconds int

	GenesisViewNum       uint64
	GenesisBlockHeight   uint64
	GenesisBlockCommRoot string
	RetentionPeriod      uint32

	PlonkVerifier    string
	StateUpdateVK    string
	LightClient      string
	LightClientProxy string
}

func main() {
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config{
		RPCURL:               envOr("RPC_URL", ""),
		ChainID:              envInt64("CHAIN_ID", 0),
		PrivateKey:           envOr("PRIVATE_KEY", ""),
		Owner:                envOr("OWNER", ""),
		Out:                  envOr("OUT", "-"),
		GasFeeCap:            envInt64("GAS_FEE_CAP", 2_000_000_000),
		GasTipCap:            envInt64("GAS_TIP_CAP", 1_000_000_000),
		TimeoutSeconds:       600,
		RetentionPeriod:      deploy.DisabledRetention,
		PlonkVerifier:        envOr(publish.PlonkVerifier.String(), ""),
		StateUpdateVK:        envOr(publish.StateUpdateVK.String(), ""),
		LightClient:          envOr(publish.LightClient.String(), ""),
		LightClientProxy:     envOr(publish.LightClientProxy.String(), ""),
		GenesisBlockCommRoot: "",
	}

	cmd := &cobra.Command{
		Use:           "lc-publish",
		Short:         "Deploy the light client contracts and export their addresses",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&cfg.RPCURL, "rpc-url", cfg.RPCURL, "RPC URL")
	fs.Int64Var(&cfg.ChainID, "chain-id", cfg.ChainID, "chain id")
	fs.StringVar(&cfg.PrivateKey, "private-key", cfg.PrivateKey, "deployer private key hex")
	fs.StringVar(&cfg.Owner, "owner", cfg.Owner, "light client owner (default deployer)")
	fs.BoolVar(&cfg.Mock, "mock", false, "deploy LightClientMock instead of the upgradable production contract")
	fs.StringVar(&cfg.Out, "out", cfg.Out, "path of the exported .env file, - for stdout")
	fs.Int64Var(&cfg.GasFeeCap, "gas-fee-cap", cfg.GasFeeCap, "EIP-1559 fee cap")
	fs.Int64Var(&cfg.GasTipCap, "gas-tip-cap", cfg.GasTipCap, "EIP-1559 tip cap")
	fs.IntVar(&cfg.TimeoutSeconds, "timeout-seconds", cfg.TimeoutSeconds, "timeout in seconds")
	fs.Uint64Var(&cfg.GenesisViewNum, "genesis-view-num", cfg.GenesisViewNum, "genesis view number")
	fs.Uint64Var(&cfg.GenesisBlockHeight, "genesis-block-height", cfg.GenesisBlockHeight, "genesis block height")
	fs.StringVar(&cfg.GenesisBlockCommRoot, "genesis-block-comm-root", cfg.GenesisBlockCommRoot, "genesis block commitment root, hex")
	fs.Uint32Var(&cfg.RetentionPeriod, "state-history-retention", cfg.RetentionPeriod, "state history retention period in seconds, max uint32 to disable")
	fs.StringVar(&cfg.PlonkVerifier, "plonk-verifier", cfg.PlonkVerifier, "use an already-deployed PlonkVerifier")
	fs.StringVar(&cfg.StateUpdateVK, "light-client-state-update-vk", cfg.StateUpdateVK, "use an already-deployed LightClientStateUpdateVK")
	fs.StringVar(&cfg.LightClient, "light-client", cfg.LightClient, "use an already-deployed LightClient")
	fs.StringVar(&cfg.LightClientProxy, "light-client-proxy", cfg.LightClientProxy, "use an already-deployed LightClient proxy")

	return cmd
}

func run(cmd *cobra.Command, cfg config) error {
	if cfg.RPCURL == "" || cfg.ChainID == 0 || cfg.PrivateKey == "" {
		return errors.New("rpc-url, chain-id and private-key are required")
	}

	key, deployerAddr, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return err
	}

	owner := deployerAddr
	if cfg.Owner != "" {
		owner, err = parseAddress(cfg.Owner)
		if err != nil {
			return err
		}
	}

	deployed, err := parseDeployed(cfg)
	if err != nil {
		return err
	}

	d, err := publish.NewDeployer(cfg.RPCURL, cfg.ChainID, key, big.NewInt(cfg.GasFeeCap), big.NewInt(cfg.GasTipCap))
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	contracts := deployed.Contracts()
	if err := verifyPredeployed(ctx, d, contracts); err != nil {
		return err
	}

	genesis := deploy.DefaultGenesisState()
	if cmd.Flags().Changed("genesis-view-num") {
		genesis.ViewNum = cfg.GenesisViewNum
	}
	if cmd.Flags().Changed("genesis-block-height") {
		genesis.BlockHeight = cfg.GenesisBlockHeight
	}
	if cfg.GenesisBlockCommRoot != "" {
		genesis.BlockCommRoot = new(big.Int).SetBytes(common.FromHex(cfg.GenesisBlockCommRoot))
	}

	if cfg.Mock {
		var args *lightclientmock.ConstructorArgs
		if cmd.Flags().Changed("genesis-view-num") || cmd.Flags().Changed("genesis-block-height") ||
			cfg.GenesisBlockCommRoot != "" || cmd.Flags().Changed("state-history-retention") {
			args = &lightclientmock.ConstructorArgs{
				Genesis:                     genesis,
				StateHistoryRetentionPeriod: cfg.RetentionPeriod,
			}
		}
		_, err = deploy.LightClientMock(ctx, d, contracts, args)
	} else {
		_, err = deploy.LightClientProxy(ctx, d, contracts, lightclient.InitArgs{
			Genesis:                     genesis,
			StateHistoryRetentionPeriod: cfg.RetentionPeriod,
			Owner:                       owner,
		})
	}
	if err != nil {
		// Dependencies that made it on chain before the failure stay in
		// the cache; export them so a rerun can pick up where this one
		// stopped.
		if writeErr := writeContracts(contracts, cfg.Out); writeErr != nil {
			slog.Error("exporting partial results failed", "error", writeErr)
		}
		return err
	}

	return writeContracts(contracts, cfg.Out)
}

func parseDeployed(cfg config) (publish.DeployedContracts, error) {
	var deployed publish.DeployedContracts
	for _, f := range []struct {
		value string
		dst   *common.Address
	}{
		{cfg.PlonkVerifier, &deployed.PlonkVerifier},
		{cfg.StateUpdateVK, &deployed.StateUpdateVK},
		{cfg.LightClient, &deployed.LightClient},
		{cfg.LightClientProxy, &deployed.LightClientProxy},
	} {
		if f.value == "" {
			continue
		}
		addr, err := parseAddress(f.value)
		if err != nil {
			return publish.DeployedContracts{}, err
		}
		*f.dst = addr
	}
	return deployed, nil
}

func verifyPredeployed(ctx context.Context, d *publish.Deployer, contracts *publish.Contracts) error {
	for _, e := range contracts.Entries() {
		code, err := d.CodeAt(ctx, e.Address)
		if err != nil {
			return err
		}
		if len(code) == 0 {
			return fmt.Errorf("predeployed %s at %s has no code", e.Contract, e.Address.Hex())
		}
	}
	return nil
}

func writeContracts(contracts *publish.Contracts, out string) error {
	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return contracts.Write(w)
}

func parsePrivateKey(v string) (*ecdsa.PrivateKey, common.Address, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "0x")
	key, err := crypto.HexToECDSA(v)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

func parseAddress(v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("invalid address: %s", v)
	}
	return common.HexToAddress(v), nil
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

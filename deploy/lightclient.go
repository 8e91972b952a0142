// Package deploy composes the publish primitives into the standard light
// client deployment flows. Every flow runs through the shared Contracts
// cache, so contracts already deployed (in this run or predeployed by the
// caller) are never deployed twice.
package deploy

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AmunRaCode/espresso-sequencer/publish"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/erc1967proxy"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/lightclient"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/lightclientmock"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/plonkverifier"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/statevk"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/statevkmock"
)

// DisabledRetention disables the light client's bounded state history.
const DisabledRetention uint32 = math.MaxUint32

// DefaultGenesisState is the fixed genesis used when a test deployment
// does not supply its own constructor arguments.
func DefaultGenesisState() lightclient.State {
	return lightclient.State{
		ViewNum:     0,
		BlockHeight: 0,
		BlockCommRoot: new(big.Int).SetBytes(common.FromHex(
			"0x31a52cbb8c66e3cd06f1a1352f68fba3a4544e7f7602e48c353d6eb62ad0f6df")),
	}
}

// LightClient deploys the production light client: the PlonkVerifier and
// LightClientStateUpdateVK library contracts first (each memoized
// independently), then the implementation linked against them.
//
// The production contract is upgradable, so its constructor takes no
// arguments; callers initialize it afterwards, normally delegatecalled
// through the proxy (see LightClientProxy).
func LightClient(ctx context.Context, backend publish.Backend, contracts *publish.Contracts) (common.Address, error) {
	return contracts.DeployFn(ctx, publish.LightClient, func(ctx context.Context, c *publish.Contracts) (common.Address, error) {
		verifier, err := c.DeployTx(ctx, publish.PlonkVerifier, backend, publish.CreationTx{
			Code:     plonkverifier.Bytecode(),
			GasLimit: plonkverifier.GasLimit,
		})
		if err != nil {
			return common.Address{}, err
		}
		vk, err := c.DeployTx(ctx, publish.StateUpdateVK, backend, publish.CreationTx{
			Code:     statevk.Bytecode(),
			GasLimit: statevk.GasLimit,
		})
		if err != nil {
			return common.Address{}, err
		}

		code, err := lightclient.Artifact().
			Link(plonkverifier.QualifiedName, verifier).
			Link(statevk.QualifiedName, vk).
			Resolve()
		if err != nil {
			return common.Address{}, fmt.Errorf("link %s: %w", lightclient.Name(), err)
		}

		return backend.CreateContract(ctx, code, nil, lightclient.GasLimit)
	})
}

// LightClientMock deploys the test variant of the light client. It depends
// on the mock verification key library, recorded under the same identifier
// as the production one. If args is nil the constructor receives
// DefaultGenesisState with retention disabled; the mock's constructor
// fully initializes the contract, so no follow-up call is needed.
func LightClientMock(ctx context.Context, backend publish.Backend, contracts *publish.Contracts, args *lightclientmock.ConstructorArgs) (common.Address, error) {
	return contracts.DeployFn(ctx, publish.LightClient, func(ctx context.Context, c *publish.Contracts) (common.Address, error) {
		verifier, err := c.DeployTx(ctx, publish.PlonkVerifier, backend, publish.CreationTx{
			Code:     plonkverifier.Bytecode(),
			GasLimit: plonkverifier.GasLimit,
		})
		if err != nil {
			return common.Address{}, err
		}
		vk, err := c.DeployTx(ctx, publish.StateUpdateVK, backend, publish.CreationTx{
			Code:     statevkmock.Bytecode(),
			GasLimit: statevkmock.GasLimit,
		})
		if err != nil {
			return common.Address{}, err
		}

		code, err := lightclientmock.Artifact().
			Link(plonkverifier.QualifiedName, verifier).
			Link(statevkmock.QualifiedName, vk).
			Resolve()
		if err != nil {
			return common.Address{}, fmt.Errorf("link LightClientMock: %w", err)
		}

		if args == nil {
			args = &lightclientmock.ConstructorArgs{
				Genesis:                     DefaultGenesisState(),
				StateHistoryRetentionPeriod: DisabledRetention,
			}
		}
		constructorArgs, err := lightclientmock.EncodeConstructorArgs(*args)
		if err != nil {
			return common.Address{}, fmt.Errorf("encode LightClientMock constructor args: %w", err)
		}

		return backend.CreateContract(ctx, code, constructorArgs, lightclientmock.GasLimit)
	})
}

// LightClientProxy deploys the production light client behind an ERC1967
// proxy. The implementation is deployed first (memoized, with its own
// dependencies), then the proxy, whose constructor delegatecalls
// initialize with the given arguments.
func LightClientProxy(ctx context.Context, backend publish.Backend, contracts *publish.Contracts, init lightclient.InitArgs) (common.Address, error) {
	return contracts.DeployFn(ctx, publish.LightClientProxy, func(ctx context.Context, c *publish.Contracts) (common.Address, error) {
		impl, err := LightClient(ctx, backend, c)
		if err != nil {
			return common.Address{}, err
		}

		initData, err := lightclient.EncodeInit(init)
		if err != nil {
			return common.Address{}, fmt.Errorf("encode %s init: %w", lightclient.Name(), err)
		}
		constructorArgs, err := erc1967proxy.EncodeConstructorArgs(impl, initData)
		if err != nil {
			return common.Address{}, fmt.Errorf("encode proxy constructor args: %w", err)
		}

		return backend.CreateContract(ctx, erc1967proxy.Bytecode(), constructorArgs, erc1967proxy.GasLimit)
	})
}

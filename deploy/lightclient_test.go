package deploy

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmunRaCode/espresso-sequencer/publish"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/erc1967proxy"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/lightclient"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/lightclientmock"
)

type creation struct {
	code            []byte
	constructorArgs []byte
	gasLimit        uint64
}

// fakeBackend records every creation transaction and hands out sequential
// addresses.
type fakeBackend struct {
	calls  []creation
	failAt int // fail the n-th call, 0 to never fail
}

func (b *fakeBackend) CreateContract(_ context.Context, code, constructorArgs []byte, gasLimit uint64) (common.Address, error) {
	if b.failAt > 0 && len(b.calls)+1 == b.failAt {
		return common.Address{}, errors.New("creation tx reverted")
	}
	b.calls = append(b.calls, creation{code: code, constructorArgs: constructorArgs, gasLimit: gasLimit})
	return common.BytesToAddress([]byte{byte(len(b.calls))}), nil
}

func TestLightClientDeploysDependenciesFirst(t *testing.T) {
	backend := &fakeBackend{}
	contracts := publish.NewContracts()

	addr, err := LightClient(context.Background(), backend, contracts)
	require.NoError(t, err)
	require.Len(t, backend.calls, 3)

	verifier, ok := contracts.Address(publish.PlonkVerifier)
	require.True(t, ok)
	vk, ok := contracts.Address(publish.StateUpdateVK)
	require.True(t, ok)
	got, ok := contracts.Address(publish.LightClient)
	require.True(t, ok)
	assert.Equal(t, addr, got)

	// The light client bytecode is fully linked against the freshly
	// deployed libraries and carries no constructor arguments.
	code := backend.calls[2].code
	assert.NotContains(t, string(code), "__$")
	assert.True(t, bytes.Contains(code, verifier.Bytes()))
	assert.True(t, bytes.Contains(code, vk.Bytes()))
	assert.Empty(t, backend.calls[2].constructorArgs)
}

func TestLightClientPredeployedSkipsDependencies(t *testing.T) {
	predeployed := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	backend := &fakeBackend{}
	contracts := publish.DeployedContracts{LightClient: predeployed}.Contracts()

	addr, err := LightClient(context.Background(), backend, contracts)
	require.NoError(t, err)
	assert.Equal(t, predeployed, addr)
	assert.Empty(t, backend.calls, "predeployed light client must skip its dependencies too")
}

func TestLightClientReusesPredeployedLibrary(t *testing.T) {
	verifier := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	backend := &fakeBackend{}
	contracts := publish.DeployedContracts{PlonkVerifier: verifier}.Contracts()

	_, err := LightClient(context.Background(), backend, contracts)
	require.NoError(t, err)
	require.Len(t, backend.calls, 2, "only the VK library and the light client should be deployed")
	assert.True(t, bytes.Contains(backend.calls[1].code, verifier.Bytes()))
}

func TestLightClientMockDefaultConstructorArgs(t *testing.T) {
	backend := &fakeBackend{}
	contracts := publish.NewContracts()

	_, err := LightClientMock(context.Background(), backend, contracts, nil)
	require.NoError(t, err)
	require.Len(t, backend.calls, 3)

	want, err := lightclientmock.EncodeConstructorArgs(lightclientmock.ConstructorArgs{
		Genesis:                     DefaultGenesisState(),
		StateHistoryRetentionPeriod: DisabledRetention,
	})
	require.NoError(t, err)

	args := backend.calls[2].constructorArgs
	assert.Equal(t, want, args)

	// (uint64, uint64, uint256) genesis plus uint32 retention: four words.
	require.Len(t, args, 128)
	root := common.LeftPadBytes(DefaultGenesisState().BlockCommRoot.Bytes(), 32)
	assert.Equal(t, root, args[64:96])
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, args[124:128], "default retention is the disabled sentinel")
}

func TestLightClientMockExplicitConstructorArgs(t *testing.T) {
	backend := &fakeBackend{}
	contracts := publish.NewContracts()

	_, err := LightClientMock(context.Background(), backend, contracts, &lightclientmock.ConstructorArgs{
		Genesis: lightclient.State{
			ViewNum:       7,
			BlockHeight:   9,
			BlockCommRoot: common.Big1,
		},
		StateHistoryRetentionPeriod: 100,
	})
	require.NoError(t, err)
	require.Len(t, backend.calls, 3)

	args := backend.calls[2].constructorArgs
	require.Len(t, args, 128)
	assert.Equal(t, byte(7), args[31])
	assert.Equal(t, byte(9), args[63])
	assert.Equal(t, []byte{0, 0, 0, 100}, args[124:128], "explicit retention must not be substituted")
}

func TestLightClientFailureKeepsDependencyEntries(t *testing.T) {
	backend := &fakeBackend{failAt: 3}
	contracts := publish.NewContracts()

	_, err := LightClient(context.Background(), backend, contracts)
	require.Error(t, err)

	var deployErr *publish.DeployError
	require.ErrorAs(t, err, &deployErr)
	assert.Equal(t, publish.LightClient, deployErr.Contract)

	_, ok := contracts.Address(publish.PlonkVerifier)
	assert.True(t, ok)
	_, ok = contracts.Address(publish.StateUpdateVK)
	assert.True(t, ok)
	_, ok = contracts.Address(publish.LightClient)
	assert.False(t, ok)
}

func TestLightClientProxyInitializesThroughConstructor(t *testing.T) {
	backend := &fakeBackend{}
	contracts := publish.NewContracts()

	owner := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	proxy, err := LightClientProxy(context.Background(), backend, contracts, lightclient.InitArgs{
		Genesis:                     DefaultGenesisState(),
		StateHistoryRetentionPeriod: DisabledRetention,
		Owner:                       owner,
	})
	require.NoError(t, err)
	require.Len(t, backend.calls, 4)

	impl, ok := contracts.Address(publish.LightClient)
	require.True(t, ok)
	got, ok := contracts.Address(publish.LightClientProxy)
	require.True(t, ok)
	assert.Equal(t, proxy, got)

	// The proxy constructor receives the implementation address and the
	// delegatecalled initialize payload, which names the owner.
	last := backend.calls[3]
	assert.Equal(t, erc1967proxy.Bytecode(), last.code)
	assert.True(t, bytes.Contains(last.constructorArgs, common.LeftPadBytes(impl.Bytes(), 32)))
	assert.True(t, bytes.Contains(last.constructorArgs, common.LeftPadBytes(owner.Bytes(), 32)))
}

// Package lightclientmock embeds the test variant of the light client.
// The mock is not upgradable: its constructor takes the genesis state
// directly, so no follow-up initialize call is needed.
package lightclientmock

import (
	_ "embed"

	"github.com/lmittmann/w3"

	"github.com/AmunRaCode/espresso-sequencer/publish"
	"github.com/AmunRaCode/espresso-sequencer/publish/contracts/lightclient"
)

const GasLimit uint64 = 4_000_000

//go:embed LightClientMock.json
var artifactJSON []byte

var artifact = publish.MustParseArtifact(artifactJSON)

var funcConstructor = w3.MustNewFunc(
	"constructor((uint64 viewNum, uint64 blockHeight, uint256 blockCommRoot) genesis, uint32 stateHistoryRetentionPeriod)", "",
)

type ConstructorArgs struct {
	Genesis                     lightclient.State
	StateHistoryRetentionPeriod uint32
}

// Artifact returns the unlinked creation bytecode artifact.
func Artifact() *publish.Artifact {
	return artifact
}

// EncodeConstructorArgs ABI-encodes the constructor arguments. EncodeArgs
// prepends a 4-byte selector, but constructor input is raw arguments
// appended to the creation code, so the selector is stripped.
func EncodeConstructorArgs(args ConstructorArgs) ([]byte, error) {
	input, err := funcConstructor.EncodeArgs(args.Genesis, args.StateHistoryRetentionPeriod)
	if err != nil {
		return nil, err
	}
	return input[4:], nil
}

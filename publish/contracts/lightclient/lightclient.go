// Package lightclient embeds the unlinked creation bytecode of the
// production light client contract. The contract is upgradable: its
// constructor takes no arguments, and callers initialize it with a
// follow-up call (normally delegatecalled through the proxy).
package lightclient

import (
	_ "embed"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/AmunRaCode/espresso-sequencer/publish"
)

const (
	name            = "LightClient"
	license         = "GPL-3.0"
	solidityVersion = "0.8.23"
)

const GasLimit uint64 = 4_000_000

// The artifact ships inside this binary so that contract build outputs do
// not have to be distributed alongside it. Unlike the library contracts it
// is an unlinked solc artifact, not plain bytecode, because the compiler
// cannot inline the library addresses it links against.
//
//go:embed LightClient.json
var artifactJSON []byte

var artifact = publish.MustParseArtifact(artifactJSON)

var funcInitialize = w3.MustNewFunc(
	"initialize((uint64 viewNum, uint64 blockHeight, uint256 blockCommRoot) genesis, uint32 stateHistoryRetentionPeriod, address owner)", "",
)

// State is the finalized consensus state tracked by the light client.
type State struct {
	ViewNum       uint64
	BlockHeight   uint64
	BlockCommRoot *big.Int
}

// InitArgs are the arguments of the initialize call performed after
// construction.
type InitArgs struct {
	Genesis                     State
	StateHistoryRetentionPeriod uint32
	Owner                       common.Address
}

func Name() string            { return name }
func License() string         { return license }
func SolidityVersion() string { return solidityVersion }

// Artifact returns the unlinked creation bytecode artifact. Artifacts are
// immutable, so the shared value is safe to link from multiple callers.
func Artifact() *publish.Artifact {
	return artifact
}

func EncodeInit(args InitArgs) ([]byte, error) {
	return funcInitialize.EncodeArgs(args.Genesis, args.StateHistoryRetentionPeriod, args.Owner)
}

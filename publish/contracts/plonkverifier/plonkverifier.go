package plonkverifier

import (
	_ "embed"

	"github.com/AmunRaCode/espresso-sequencer/publish"
)

const (
	name            = "PlonkVerifier"
	license         = "GPL-3.0"
	solidityVersion = "0.8.23"
)

const GasLimit uint64 = 5_000_000

// QualifiedName is the library name under which the light client
// artifacts record their link references to this contract.
const QualifiedName = "contracts/src/libraries/PlonkVerifier.sol:PlonkVerifier"

//go:embed PlonkVerifier.bin
var bytecodeHex string

func Name() string            { return name }
func License() string         { return license }
func SolidityVersion() string { return solidityVersion }

func Bytecode() []byte {
	return publish.MustHexDecode(bytecodeHex)
}

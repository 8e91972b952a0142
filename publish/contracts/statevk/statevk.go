package statevk

import (
	_ "embed"

	"github.com/AmunRaCode/espresso-sequencer/publish"
)

const GasLimit uint64 = 3_000_000

const QualifiedName = "contracts/src/libraries/LightClientStateUpdateVK.sol:LightClientStateUpdateVK"

//go:embed LightClientStateUpdateVK.bin
var bytecodeHex string

func Bytecode() []byte {
	return publish.MustHexDecode(bytecodeHex)
}

package statevkmock

import (
	_ "embed"

	"github.com/AmunRaCode/espresso-sequencer/publish"
)

const GasLimit uint64 = 2_000_000

const QualifiedName = "contracts/tests/mocks/LightClientStateUpdateVKMock.sol:LightClientStateUpdateVKMock"

//go:embed LightClientStateUpdateVKMock.bin
var bytecodeHex string

func Bytecode() []byte {
	return publish.MustHexDecode(bytecodeHex)
}

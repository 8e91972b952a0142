package erc1967proxy

import (
	_ "embed"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/AmunRaCode/espresso-sequencer/publish"
)

const GasLimit uint64 = 500_000

//go:embed ERC1967Proxy.bin
var bytecodeHex string

var funcConstructor = w3.MustNewFunc(
	"constructor(address implementation, bytes data)", "",
)

func Bytecode() []byte {
	return publish.MustHexDecode(bytecodeHex)
}

// EncodeConstructorArgs ABI-encodes the proxy constructor arguments:
// the implementation address and the calldata the proxy delegatecalls
// into it during construction.
func EncodeConstructorArgs(implementation common.Address, data []byte) ([]byte, error) {
	input, err := funcConstructor.EncodeArgs(implementation, data)
	if err != nil {
		return nil, err
	}
	return input[4:], nil
}

package lightclient

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedArtifactIsUnlinked(t *testing.T) {
	require.True(t, Artifact().Unlinked(), "the embedded artifact must still reference its libraries")
}

func TestEncodeInit(t *testing.T) {
	data, err := EncodeInit(InitArgs{
		Genesis:                     State{ViewNum: 1, BlockHeight: 2, BlockCommRoot: common.Big1},
		StateHistoryRetentionPeriod: 3600,
		Owner:                       common.HexToAddress("0x00000000000000000000000000000000000000ee"),
	})
	require.NoError(t, err)

	// Selector plus five static words: genesis tuple, retention, owner.
	assert.Len(t, data, 4+5*32)
}

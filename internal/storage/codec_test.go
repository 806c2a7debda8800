package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subleqevo/internal/model"
)

func TestDecodeRunRejectsVersionMismatch(t *testing.T) {
	data, err := EncodeRun(model.RunRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
		ID:              "r1",
	})
	require.NoError(t, err)

	_, err = DecodeRun(data)
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeReplicatorKeepsMemoryImage(t *testing.T) {
	in := model.Replicator{
		VersionedRecord: Versioned(),
		Generation:      12,
		Genome:          model.Genome{0, 0, 0, 0, 0, 0},
		FinalMemory:     make([]int32, 256),
		Steps:           1000,
		Fitness:         1,
	}
	in.FinalMemory[200] = -7
	data, err := EncodeReplicator(in)
	require.NoError(t, err)

	out, err := DecodeReplicator(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeReplicatorRejectsMissingVersion(t *testing.T) {
	_, err := DecodeReplicator([]byte(`{"genome":[1,2,3]}`))
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeGenerationHistoryRejectsGarbage(t *testing.T) {
	_, err := DecodeGenerationHistory([]byte("not json"))
	require.Error(t, err)
}

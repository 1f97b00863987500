package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSnapshotGenerationParsesNumberAndTimestamp(t *testing.T) {
	gen, err := parseSnapshotGeneration([]string{"7 1700000000"})
	require.NoError(t, err)
	assert.Equal(t, 7, gen.GenerationNumber)
	assert.Equal(t, int64(1700000000), gen.Timestamp.Unix())
}

func TestParseSnapshotGenerationEmptyIsNotAnError(t *testing.T) {
	gen, err := parseSnapshotGeneration(nil)
	require.NoError(t, err)
	assert.Equal(t, SnapshotGeneration{}, gen)
}

func TestParseSnapshotGenerationRejectsMalformedLine(t *testing.T) {
	_, err := parseSnapshotGeneration([]string{"not-a-generation-line"})
	assert.Error(t, err)
}

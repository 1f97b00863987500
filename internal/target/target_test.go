package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coordinator/internal/manifest"
)

func newTarget(cores int) *manifest.Target {
	return &manifest.Target{
		TargetProperty: "hostname",
		Properties: map[string]manifest.PropertyValue{
			"hostname": {Kind: manifest.KindString, Str: "t1"},
		},
		Containers: map[string]map[string]string{
			"web": {"PORT": "8080", "HOST": "0.0.0.0"},
		},
		NumOfCores:     cores,
		AvailableCores: cores,
	}
}

func TestRequestAndReleaseCore(t *testing.T) {
	tg := newTarget(1)

	require.True(t, RequestCore(tg))
	assert.Equal(t, 0, tg.AvailableCores)

	assert.False(t, RequestCore(tg), "no cores left, must never block")

	ReleaseCore(tg)
	assert.Equal(t, 1, tg.AvailableCores)
	assert.True(t, RequestCore(tg))
}

func TestFindTargetKey(t *testing.T) {
	tg := newTarget(2)
	assert.Equal(t, "t1", FindTargetKey(tg))
}

func TestContainerEnvSortedAndMissing(t *testing.T) {
	tg := newTarget(2)
	assert.Equal(t, []string{"HOST=0.0.0.0", "PORT=8080"}, ContainerEnv(tg, "web"))
	assert.Equal(t, []string{}, ContainerEnv(tg, "nonexistent"))
}

func TestMultipleCoresBudget(t *testing.T) {
	tg := newTarget(3)
	for i := 0; i < 3; i++ {
		require.True(t, RequestCore(tg))
	}
	assert.False(t, RequestCore(tg))
	ReleaseCore(tg)
	assert.True(t, RequestCore(tg))
}

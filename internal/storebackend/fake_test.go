package storebackend

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeBackendRequisitesTraversesClosure(t *testing.T) {
	b := NewFakeBackend()
	b.RequisitesOf["/a"] = []string{"/b", "/c"}
	b.RequisitesOf["/b"] = []string{"/c"}

	reqs, err := b.Requisites([]string{"/a"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/a", "/b", "/c"}, reqs)
}

func TestFakeBackendExportImportRoundTrips(t *testing.T) {
	b := NewFakeBackend()
	var buf bytes.Buffer
	require.NoError(t, b.Export([]string{"/a", "/b"}, &buf))

	dest := NewFakeBackend()
	require.NoError(t, dest.Import(&buf))

	valid, err := dest.Valid([]string{"/a", "/b", "/missing"})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false}, valid)
}

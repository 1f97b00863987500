package closure

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coordinator/internal/storebackend"
)

type fakeRemote struct {
	invalid        []string
	importedPaths  []string
	exportTempFile string
}

func (f *fakeRemote) PrintInvalid(targetKey string, paths []string) ([]string, error) {
	return f.invalid, nil
}

func (f *fakeRemote) ImportLocalFile(targetKey, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f.importedPaths = append(f.importedPaths, string(data))
	return nil
}

func (f *fakeRemote) ExportRemoteFile(targetKey string) (string, error) {
	return f.exportTempFile, nil
}

func TestCopyClosureToExportsOnlyMissingPaths(t *testing.T) {
	local := storebackend.NewFakeBackend()
	local.RequisitesOf["/a"] = []string{"/b"}

	remote := &fakeRemote{invalid: []string{"/b"}}

	require.NoError(t, CopyClosureTo(local, remote, "test1", []string{"/a"}))
	require.Len(t, remote.importedPaths, 1)
	assert.Contains(t, remote.importedPaths[0], "/b")
}

func TestCopyClosureToSkipsWhenNothingMissing(t *testing.T) {
	local := storebackend.NewFakeBackend()
	remote := &fakeRemote{invalid: nil}

	require.NoError(t, CopyClosureTo(local, remote, "test1", []string{"/a"}))
	assert.Empty(t, remote.importedPaths)
}

func TestCopyClosureFromImportsMissingPaths(t *testing.T) {
	local := storebackend.NewFakeBackend()
	local.ValidPaths["/a"] = true // already present locally

	tmp, err := os.CreateTemp(t.TempDir(), "remote-export")
	require.NoError(t, err)
	_, err = tmp.WriteString("/b\n")
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	remote := &fakeRemote{exportTempFile: tmp.Name()}

	require.NoError(t, CopyClosureFrom(local, remote, "test1", []string{"/a", "/b"}))

	valid, err := local.Valid([]string{"/b"})
	require.NoError(t, err)
	assert.True(t, valid[0])
}

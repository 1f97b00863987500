// Package closure implements the closure transfer helpers (§4.11): diff
// remote vs local store validity, then export/import just the missing
// paths over the client-interface, cleaning up temp files regardless of
// outcome.
package closure

import (
	"fmt"
	"os"

	"coordinator/internal/storebackend"
)

// RemoteInterface is the subset of clientiface.Interface the closure
// helpers need: asking the remote which paths it's missing, and asking it
// to import/export a closure file.
type RemoteInterface interface {
	PrintInvalid(targetKey string, paths []string) ([]string, error)
	ImportLocalFile(targetKey, path string) error
	ExportRemoteFile(targetKey string) (string, error)
}

// CopyClosureTo exports the requisites of paths that targetKey's store
// lacks to a temp file, then asks the remote to import it (§4.11).
func CopyClosureTo(local storebackend.Backend, remote RemoteInterface, targetKey string, paths []string) error {
	requisites, err := local.Requisites(paths)
	if err != nil {
		return fmt.Errorf("query local requisites: %w", err)
	}

	missing, err := remote.PrintInvalid(targetKey, requisites)
	if err != nil {
		return fmt.Errorf("query remote invalid paths: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	tmp, err := os.CreateTemp("", "coordinator-closure-*.export")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	err = local.Export(missing, tmp)
	closeErr := tmp.Close()
	if err != nil {
		return fmt.Errorf("export closure: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close temp export file: %w", closeErr)
	}

	if err := remote.ImportLocalFile(targetKey, tmpPath); err != nil {
		return fmt.Errorf("remote import: %w", err)
	}
	return nil
}

// CopyClosureFrom mirrors CopyClosureTo: diff remoteRequisites against
// local validity, ask the remote to export to a remote temp file, then
// import that file locally. The remote requisites are supplied by the
// caller and are not queried here, and the export request carries no path
// list, so the remote decides what the exported file contains.
func CopyClosureFrom(local storebackend.Backend, remote RemoteInterface, targetKey string, remoteRequisites []string) error {
	valid, err := local.Valid(remoteRequisites)
	if err != nil {
		return fmt.Errorf("check local validity: %w", err)
	}

	var missing []string
	for i, p := range remoteRequisites {
		if !valid[i] {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	remoteTmpPath, err := remote.ExportRemoteFile(targetKey)
	if err != nil {
		return fmt.Errorf("remote export: %w", err)
	}

	f, err := os.Open(remoteTmpPath)
	if err != nil {
		return fmt.Errorf("open transferred closure file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(remoteTmpPath)
	}()

	if err := local.Import(f); err != nil {
		return fmt.Errorf("local import: %w", err)
	}
	return nil
}

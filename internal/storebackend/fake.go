package storebackend

import (
	"bufio"
	"io"
)

// FakeBackend is an in-memory Backend used by C11's tests: paths have a
// fixed set of (already-known) requisites and a validity flag, and
// export/import round-trip through a plain newline-joined path list rather
// than a real archive format.
type FakeBackend struct {
	// RequisitesOf maps a path to its full requisite closure (including
	// itself); paths with no entry are treated as having no dependencies.
	RequisitesOf map[string][]string
	// ValidPaths is the set of paths this backend currently considers
	// present and valid.
	ValidPaths map[string]bool
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		RequisitesOf: make(map[string][]string),
		ValidPaths:   make(map[string]bool),
	}
}

func (f *FakeBackend) Requisites(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	var visit func(string)
	visit = func(p string) {
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
		for _, dep := range f.RequisitesOf[p] {
			visit(dep)
		}
	}
	for _, p := range paths {
		visit(p)
	}
	return out, nil
}

func (f *FakeBackend) Export(paths []string, out io.Writer) error {
	for _, p := range paths {
		if _, err := io.WriteString(out, p+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeBackend) Import(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			f.ValidPaths[line] = true
		}
	}
	return scanner.Err()
}

func (f *FakeBackend) Valid(paths []string) ([]bool, error) {
	results := make([]bool, len(paths))
	for i, p := range paths {
		results[i] = f.ValidPaths[p]
	}
	return results, nil
}

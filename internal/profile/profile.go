// Package profile implements profile commit (§4.9): pushing the
// distribution's store paths onto each target's named profile, and
// atomically repointing the coordinator's own profile symlink, through one
// level of generation indirection, exactly like a Nix profile.
package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"coordinator/internal/procexec"
)

// Interface is the subset of clientiface.Interface the profile-commit phase
// needs.
type Interface interface {
	SetProfile(targetKey, profile, storePath string) (procexec.Handle, error)
}

// DistributionItem is one (target, store path) pair to commit (§4.9).
type DistributionItem struct {
	TargetKey string
	StorePath string
}

// SetTargetProfiles invokes `set --profile profile --path store-path`
// against every distribution item in parallel via the process iterator.
// Failure of any one is a phase failure.
func SetTargetProfiles(ctx context.Context, iface Interface, items []DistributionItem, profile string) bool {
	return procexec.Iterator(ctx, items, 0, func(item DistributionItem) (procexec.Handle, error) {
		return iface.SetProfile(item.TargetKey, profile, item.StorePath)
	}, func(item DistributionItem, res procexec.Result) {})
}

const defaultProfileBase = "/nix/var/nix/profiles/disnix-coordinator"

// SetCoordinatorProfile creates the profile base directory if missing,
// does nothing if the profile symlink already resolves (through one
// generation indirection) to manifestFile, and otherwise atomically
// repoints it at a freshly created generation symlink — idempotent and
// safe to call from multiple invocations.
func SetCoordinatorProfile(path, manifestFile, profile string) error {
	base := path
	if base == "" {
		base = defaultProfileBase
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fmt.Errorf("create coordinator profile directory %s: %w", base, err)
	}

	profileLink := filepath.Join(base, profile)

	if current, err := resolveGeneration(profileLink); err == nil && current == manifestFile {
		return nil // already pointing at this manifest; idempotent no-op
	}

	genName := fmt.Sprintf("%s-%s-link", profile, uuid.NewString())
	genLink := filepath.Join(base, genName)
	if err := os.Symlink(manifestFile, genLink); err != nil {
		return fmt.Errorf("create generation symlink: %w", err)
	}

	tmpLink := profileLink + ".tmp-" + uuid.NewString()
	if err := os.Symlink(genLink, tmpLink); err != nil {
		os.Remove(genLink)
		return fmt.Errorf("create temp profile symlink: %w", err)
	}
	if err := os.Rename(tmpLink, profileLink); err != nil {
		os.Remove(tmpLink)
		os.Remove(genLink)
		return fmt.Errorf("atomically repoint profile symlink: %w", err)
	}
	return nil
}

// Generation is one entry in a coordinator profile's history, grounded on
// src/libdeploy/profiles.c's generation-listing behavior: each previous
// SetCoordinatorProfile call left behind a generation-link symlink that
// nothing ever deletes, so the directory itself is the history.
type Generation struct {
	Name    string // generation symlink's file name
	Target  string // manifest file it points to
	Current bool   // whether profile currently resolves to this generation
	ModTime time.Time
}

// ListGenerations lists every generation symlink for profile under path,
// oldest first, marking whichever one the profile symlink currently
// resolves to.
func ListGenerations(path, profile string) ([]Generation, error) {
	base := path
	if base == "" {
		base = defaultProfileBase
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("read profile directory %s: %w", base, err)
	}

	currentGenLink, _ := os.Readlink(filepath.Join(base, profile))

	prefix, suffix := profile+"-", "-link"
	var gens []Generation
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		full := filepath.Join(base, name)
		info, err := os.Lstat(full)
		if err != nil {
			continue
		}
		target, err := os.Readlink(full)
		if err != nil {
			continue
		}
		gens = append(gens, Generation{
			Name:    name,
			Target:  target,
			Current: name == filepath.Base(currentGenLink),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(gens, func(i, j int) bool { return gens[i].ModTime.Before(gens[j].ModTime) })
	return gens, nil
}

// resolveGeneration follows the profile symlink's one level of generation
// indirection (profile -> generation-link -> manifest file) and returns the
// final target.
func resolveGeneration(profileLink string) (string, error) {
	genLink, err := os.Readlink(profileLink)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(genLink) {
		genLink = filepath.Join(filepath.Dir(profileLink), genLink)
	}
	return os.Readlink(genLink)
}

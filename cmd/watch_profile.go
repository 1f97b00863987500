package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// newWatchProfileCmd blocks and prints a line each time the coordinator
// profile symlink at path is repointed. [SUPPLEMENT]: absent from
// spec.md, but in the spirit of the original's profile directory
// conventions (§6) — a scriptable "wait for the next deploy" hook.
//
// SetCoordinatorProfile repoints the symlink via a rename, not an in-place
// write, so this watches the containing directory and filters by name
// rather than watching the symlink path directly — inotify tracks the
// watched path's inode at Add time, which a rename replaces out from
// under it.
func newWatchProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch-profile <path>",
		Short: "Block and print a line each time the coordinator profile symlink is repointed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			dir := filepath.Dir(path)
			name := filepath.Base(path)

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}

			out := cmd.OutOrStdout()
			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Base(event.Name) != name {
						continue
					}
					if event.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
						fmt.Fprintf(out, "profile repointed: %s\n", path)
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					return fmt.Errorf("watch error: %w", err)
				}
			}
		},
	}
}

package migration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SnapshotGeneration is the generation bookkeeping value object the
// client-interface's snapshot verb reports on stdout (§3 [SUPPLEMENT]
// "Generation metadata"): a number identifying this generation of a
// (target, container, component) snapshot, and the time it was taken.
// clean-snapshots --keep N and the ALL-vs-latest transfer distinction both
// key off it.
type SnapshotGeneration struct {
	GenerationNumber int
	Timestamp        time.Time
}

// parseSnapshotGeneration reads the single "<generation> <unix-seconds>"
// line a generation-aware snapshot verb prints on success. Older
// client-interfaces that print nothing aren't an error: the zero value
// means "generation unknown", and callers fall back to the client-interface's
// own notion of latest.
func parseSnapshotGeneration(lines []string) (SnapshotGeneration, error) {
	if len(lines) == 0 {
		return SnapshotGeneration{}, nil
	}
	fields := strings.Fields(lines[0])
	if len(fields) != 2 {
		return SnapshotGeneration{}, fmt.Errorf("malformed snapshot generation line: %q", lines[0])
	}
	gen, err := strconv.Atoi(fields[0])
	if err != nil {
		return SnapshotGeneration{}, fmt.Errorf("parse generation number: %w", err)
	}
	sec, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return SnapshotGeneration{}, fmt.Errorf("parse generation timestamp: %w", err)
	}
	return SnapshotGeneration{GenerationNumber: gen, Timestamp: time.Unix(sec, 0).UTC()}, nil
}

// generationKey identifies the (target, container, component) triple a
// recorded generation belongs to.
func generationKey(mv Move) string {
	return mv.OldTarget + "|" + mv.Container + "|" + mv.Component
}

// Package policy implements the Receiver's acceptance policy (spec.md
// §4.7, get_valid_path): deciding whether an incoming file or directory
// is accepted in place, renamed, skipped, or asked about, and whether
// the resolved path needs creating.
package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shorthop/shorthop/internal/config"
	"github.com/shorthop/shorthop/internal/events"
)

// Resolution is the outcome of GetValidPath.
type Resolution struct {
	Path       string
	NeedCreate bool
}

// Skipped is returned alongside a zero Resolution when the conflict
// resolves to Skip (or the session is cancelled mid-prompt).
var Skipped = Resolution{}

// GetValidPath resolves name against dir under the given overwrite
// strategy. isDir distinguishes a directory conflict (needs_create can
// be true even without a rename) from a file conflict.
//
// Returns ok=false when the caller should refuse (Skip, or
// cancellation while waiting on an Ask prompt).
func GetValidPath(bus *events.Bus, cancel <-chan struct{}, name, dir string, isDir bool, strategy config.Strategy) (res Resolution, ok bool) {
	candidate := filepath.Join(dir, name)

	exists := pathExists(candidate)
	if !exists {
		return Resolution{Path: candidate, NeedCreate: isDir}, true
	}

	// Ask is consulted per conflict, not remembered across conflicts;
	// the local copy of strategy is what the loop below mutates.
	current := strategy
	for {
		switch current {
		case config.Ask:
			reply, got := bus.Prompt("Please choose: overwrite(o) | rename(r) | skip (s): ", cancel)
			if !got {
				return Skipped, false
			}
			switch reply {
			case "o", "overwrite":
				current = config.Overwrite
			case "r", "rename":
				current = config.Rename
			case "s", "skip":
				current = config.Skip
			default:
				// Unknown input: remain in Ask and prompt again.
			}

		case config.Overwrite:
			return Resolution{Path: candidate, NeedCreate: false}, true

		case config.Rename:
			renamed, found := findUnusedName(dir, name)
			if !found {
				return Skipped, false
			}
			kind := "file"
			if isDir {
				kind = "directory"
			}
			bus.Send(events.Status(fmt.Sprintf("Renamed %s to %s", kind, filepath.Base(renamed))))
			return Resolution{Path: renamed, NeedCreate: true}, true

		case config.Skip:
			return Skipped, false
		}
	}
}

// findUnusedName returns "<i>_<name>" for the smallest index i
// (starting at 0) not already present under dir, searching the full
// uint16 range per spec.md §4.7.
func findUnusedName(dir, name string) (string, bool) {
	for i := 0; i <= 65535; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%d_%s", i, name))
		if !pathExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func pathExists(path string) bool {
	st, err := os.Stat(path)
	if err != nil {
		return false
	}
	return st.Mode().IsRegular() || st.IsDir()
}

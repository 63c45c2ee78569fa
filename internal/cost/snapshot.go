package cost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bgdnvk/clanker/internal/model"
)

// LoadSnapshot reads back a previously written inventory-snapshot file
// (spec.md §6, written by cmd/inventory.go's writeSnapshot) into its typed
// ResourceRef form.
func LoadSnapshot(path string) ([]model.ResourceRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	var refs []model.ResourceRef
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return refs, nil
}

// LatestSnapshotPath returns the most recently written snapshot file under
// baseDir/clanker/inventory. Snapshot filenames carry a fixed-width
// "20060102-150405" timestamp (cmd/inventory.go's writeSnapshot), so a
// lexical sort is also a chronological one.
func LatestSnapshotPath(baseDir string) (string, error) {
	dir := filepath.Join(baseDir, "clanker", "inventory")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading snapshot directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no snapshot files found under %s", dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// JoinedSubject pairs a snapshotted resource with its live counterpart, if
// the live describe still found one (spec.md §4.7's "snapshot + live state"
// cost contract, §8's notFoundLive boundary behavior).
type JoinedSubject struct {
	Snapshot model.ResourceRef
	Live     *model.ResourceRef
}

// JoinSnapshot pairs each snapshotRefs entry in (accountName, region) with
// its match in liveRefs by Key(), leaving Live nil when the resource has
// disappeared since the snapshot was taken.
func JoinSnapshot(snapshotRefs, liveRefs []model.ResourceRef, accountName, region string) []JoinedSubject {
	liveByKey := make(map[string]model.ResourceRef, len(liveRefs))
	for _, r := range liveRefs {
		liveByKey[r.Key()] = r
	}

	var joined []JoinedSubject
	for _, s := range snapshotRefs {
		if s.AccountName != accountName || s.Region != region {
			continue
		}
		js := JoinedSubject{Snapshot: s}
		if live, ok := liveByKey[s.Key()]; ok {
			l := live
			js.Live = &l
		}
		joined = append(joined, js)
	}
	return joined
}

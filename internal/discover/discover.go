// Package discover implements input file discovery: grouping a
// directory's capture files by device id and ordering each group by its
// numeric sequence suffix (spec §6, "external collaborator").
package discover

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/infuse-iot/tdf2csv/internal/fsutil"
)

// filenamePattern matches "infuse_<16-hex-device-id>_<decimal>.bin".
var filenamePattern = regexp.MustCompile(`^infuse_([0-9a-fA-F]{16})_(\d+)\.bin$`)

// Group is one device's capture files, ordered by increasing sequence
// number (not lexicographic filename order: "_9" sorts before "_10").
type Group struct {
	DeviceID uint64
	Files    []string // absolute paths, in sequence order
}

type match struct {
	seq  int
	path string
}

// Dir scans dir for "infuse_<id>_<n>.bin" files and returns one Group per
// distinct device id, sorted by device id ascending. Files that don't
// match the naming convention are ignored.
func Dir(fs fsutil.FileSystem, dir string) ([]Group, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("discover: read dir %s: %w", dir, err)
	}

	byDevice := make(map[uint64][]match)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := filenamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, err := strconv.ParseUint(m[1], 16, 64)
		if err != nil {
			continue
		}
		seq, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		byDevice[id] = append(byDevice[id], match{seq: seq, path: filepath.Join(dir, e.Name())})
	}

	groups := make([]Group, 0, len(byDevice))
	for id, matches := range byDevice {
		sort.Slice(matches, func(i, j int) bool { return matches[i].seq < matches[j].seq })
		files := make([]string, len(matches))
		for i, m := range matches {
			files[i] = m.path
		}
		groups = append(groups, Group{DeviceID: id, Files: files})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].DeviceID < groups[j].DeviceID })
	return groups, nil
}

// SingleFile wraps one explicitly named input file as a Group with device
// id 0, bypassing directory discovery entirely (spec §6, "single-file
// mode bypasses this and uses id 0").
func SingleFile(path string) Group {
	return Group{DeviceID: 0, Files: []string{path}}
}

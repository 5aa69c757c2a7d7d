package app

import (
	"path/filepath"
	"strings"
)

// MarkerFileName is written to the root of a source volume after a
// successful copy and holds the destination that was used.
const MarkerFileName = "ingest.txt"

func MarkerPath(root string) string {
	return filepath.Join(root, MarkerFileName)
}

// ReadMarker returns the trimmed destination stored on the volume at root.
// A missing, unreadable or blank marker yields ok == false.
func ReadMarker(fsys FileSystem, root string) (dest string, ok bool) {
	data, err := fsys.ReadFile(MarkerPath(root))
	if err != nil {
		return "", false
	}
	dest = strings.TrimSpace(string(data))
	return dest, dest != ""
}

func WriteMarker(fsys FileSystem, root, dest string) error {
	return fsys.WriteFile(MarkerPath(root), []byte(dest), 0o644)
}

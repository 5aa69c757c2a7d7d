// Package volumes finds removable volumes and the space left on them.
package volumes

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

type partitionFunc func(ctx context.Context, all bool) ([]disk.PartitionStat, error)

// Lister reports the mount points of physical partitions below Roots.
// With no roots every partition except the system ones is reported.
type Lister struct {
	Roots []string

	partitions partitionFunc
}

func NewLister(roots []string) *Lister {
	return &Lister{Roots: roots, partitions: disk.PartitionsWithContext}
}

func (l *Lister) Mounts(ctx context.Context) ([]string, error) {
	list := l.partitions
	if list == nil {
		list = disk.PartitionsWithContext
	}
	parts, err := list(ctx, false)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(parts))
	var mounts []string
	for _, part := range parts {
		mount := filepath.Clean(part.Mountpoint)
		if part.Mountpoint == "" || seen[mount] || !l.accepts(mount) {
			continue
		}
		seen[mount] = true
		mounts = append(mounts, mount)
	}
	return mounts, nil
}

func (l *Lister) accepts(mount string) bool {
	if len(l.Roots) == 0 {
		return !isSystemMount(mount)
	}
	for _, root := range l.Roots {
		root = filepath.Clean(root)
		if strings.HasPrefix(mount, root+string(filepath.Separator)) {
			return true
		}
		if mount == root && !automountParents[root] {
			return true
		}
	}
	return false
}

// automountParents only ever hold per-user mount directories, so a volume
// mounted on the parent itself is not a card.
var automountParents = map[string]bool{
	"/media":     true,
	"/run/media": true,
	"/Volumes":   true,
}

func isSystemMount(mount string) bool {
	switch mount {
	case "/", "/boot", "/boot/efi", "/home", "/var", "/usr":
		return true
	}
	if runtime.GOOS == "windows" {
		if drive := os.Getenv("SystemDrive"); drive != "" {
			return strings.EqualFold(strings.TrimRight(mount, `\`), strings.TrimRight(drive, `\`))
		}
	}
	return strings.HasPrefix(mount, "/System/")
}

// Space reports free bytes of the filesystem holding a path.
type Space struct{}

func (Space) FreeBytes(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

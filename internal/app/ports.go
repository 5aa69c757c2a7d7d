package app

import (
	"context"
	"io/fs"

	"ingest/internal/domain"
)

type FileSystem interface {
	WalkDir(root string, fn fs.WalkDirFunc) error
	Stat(path string) (fs.FileInfo, error)
	MkdirAll(path string, perm fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm fs.FileMode) error
	CopyFile(src, dst string, onChunk func(n int64)) error
}

// VolumeLister returns the mount points of the volumes currently attached.
type VolumeLister interface {
	Mounts(ctx context.Context) ([]string, error)
}

type SpaceProbe interface {
	FreeBytes(ctx context.Context, path string) (uint64, error)
}

type HistoryRecorder interface {
	Record(rec domain.CopyRecord) error
}

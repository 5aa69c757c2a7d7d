package domain

import (
	"path/filepath"
	"strings"
)

// FileEntry is one regular file found under a copy source.
type FileEntry struct {
	SourcePath   string
	RelativePath string
	Name         string
	Ext          string
	Size         uint64
	IsImage      bool
}

func NewFileEntry(sourcePath, relativePath string, size uint64) FileEntry {
	name := filepath.Base(sourcePath)
	ext := strings.ToLower(filepath.Ext(name))

	return FileEntry{
		SourcePath:   sourcePath,
		RelativePath: filepath.ToSlash(relativePath),
		Name:         name,
		Ext:          ext,
		Size:         size,
		IsImage:      IsPreviewExtension(ext),
	}
}

// IsPreviewExtension reports whether files with ext can be shown as a preview.
func IsPreviewExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

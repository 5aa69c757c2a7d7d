package fs

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrSameFile is returned by CopyFile when src and dst are one file.
var ErrSameFile = errors.New("source and destination are the same file")

// DefaultBufferSize is the chunk size between progress callbacks.
const DefaultBufferSize = 64 * 1024

type OSFS struct {
	BufferSize int
}

func (OSFS) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (OSFS) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (OSFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// CopyFile copies src to dst, replacing dst if it exists. onChunk, when set,
// receives the size of every chunk written.
func (o OSFS) CopyFile(src, dst string, onChunk func(n int64)) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}

	// Opening dst with O_TRUNC would empty src before it is read.
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		return ErrSameFile
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	size := o.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	buf := make([]byte, size)

	for {
		n, readErr := srcFile.Read(buf)
		if n > 0 {
			if _, err := dstFile.Write(buf[:n]); err != nil {
				dstFile.Close()
				return err
			}
			if onChunk != nil {
				onChunk(int64(n))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			dstFile.Close()
			return readErr
		}
	}

	return dstFile.Close()
}

package app

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ingest/internal/domain"
)

// mockFS is an in-memory tree keyed by slash paths.
type mockFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMockFS() *mockFS {
	return &mockFS{files: map[string][]byte{}}
}

func (m *mockFS) add(path string, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.ToSlash(path)] = []byte(data)
}

func (m *mockFS) WalkDir(root string, fn fs.WalkDirFunc) error {
	m.mu.Lock()
	var paths []string
	for path := range m.files {
		if strings.HasPrefix(path, root+"/") {
			paths = append(paths, path)
		}
	}
	m.mu.Unlock()
	sort.Strings(paths)

	if err := fn(root, mockDirEntry{name: filepath.Base(root), isDir: true}, nil); err != nil {
		return err
	}
	for _, path := range paths {
		if err := fn(path, mockDirEntry{name: filepath.Base(path)}, nil); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockFS) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if data, ok := m.files[path]; ok {
		return mockFileInfo{name: filepath.Base(path), size: int64(len(data))}, nil
	}
	for p := range m.files {
		if strings.HasPrefix(p, path+"/") {
			return mockFileInfo{name: filepath.Base(path), isDir: true}, nil
		}
	}
	return nil, fs.ErrNotExist
}

func (m *mockFS) MkdirAll(path string, perm fs.FileMode) error {
	return nil
}

func (m *mockFS) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *mockFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	m.add(path, string(data))
	return nil
}

func (m *mockFS) CopyFile(src, dst string, onChunk func(n int64)) error {
	data, err := m.ReadFile(src)
	if err != nil {
		return err
	}
	m.add(dst, string(data))
	if onChunk != nil {
		onChunk(int64(len(data)))
	}
	return nil
}

type mockDirEntry struct {
	name  string
	isDir bool
}

func (m mockDirEntry) Name() string { return m.name }
func (m mockDirEntry) IsDir() bool  { return m.isDir }
func (m mockDirEntry) Type() fs.FileMode {
	if m.isDir {
		return fs.ModeDir
	}
	return 0
}
func (m mockDirEntry) Info() (fs.FileInfo, error) {
	return mockFileInfo{name: m.name, isDir: m.isDir}, nil
}

type mockFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (m mockFileInfo) Name() string       { return m.name }
func (m mockFileInfo) Size() int64        { return m.size }
func (m mockFileInfo) Mode() fs.FileMode  { return 0 }
func (m mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m mockFileInfo) IsDir() bool        { return m.isDir }
func (m mockFileInfo) Sys() interface{}   { return nil }

// mockVolumes returns one mount set per call, repeating the last one.
type mockVolumes struct {
	cycles [][]string
	calls  int
	err    error
}

func (m *mockVolumes) Mounts(ctx context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := m.calls
	if i >= len(m.cycles) {
		i = len(m.cycles) - 1
	}
	m.calls++
	return m.cycles[i], nil
}

type mockSpace struct {
	free uint64
}

func (m mockSpace) FreeBytes(ctx context.Context, path string) (uint64, error) {
	return m.free, nil
}

type mockRecorder struct {
	mu      sync.Mutex
	records []domain.CopyRecord
}

func (m *mockRecorder) Record(rec domain.CopyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// fakeClock advances by step on every call.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Package source provides seekable stream sources for the codec:
// memory-mapped local files and S3 objects buffered to disk.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// MmapFile is a read-only memory-mapped file exposed as a seekable
// stream. The whole file is mapped, which suits the format's
// scattered-seek access pattern.
type MmapFile struct {
	path string
	data []byte
	*bytes.Reader
}

var _ io.ReadSeeker = (*MmapFile)(nil)

// OpenMmap opens a file and maps it into memory.
func OpenMmap(path string) (*MmapFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	size := info.Size()
	if size == 0 {
		return &MmapFile{path: path, Reader: bytes.NewReader(nil)}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}

	return &MmapFile{
		path:   path,
		data:   data,
		Reader: bytes.NewReader(data),
	}, nil
}

// Close unmaps the file.
func (m *MmapFile) Close() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// Size returns the mapped size.
func (m *MmapFile) Size() int64 {
	return m.Reader.Size()
}

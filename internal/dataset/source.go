package dataset

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Source is a file-like upload. Open may be called more than once; each call
// returns a fresh reader positioned at the start.
type Source interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// FileSource reads from the local filesystem.
type FileSource struct {
	path string
	size int64
}

func NewFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{path: path, size: info.Size()}, nil
}

func (f *FileSource) Name() string { return filepath.Base(f.path) }
func (f *FileSource) Size() int64  { return f.size }

func (f *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// UploadSource wraps a multipart form file.
type UploadSource struct {
	header *multipart.FileHeader
}

func NewUploadSource(h *multipart.FileHeader) *UploadSource {
	return &UploadSource{header: h}
}

func (u *UploadSource) Name() string { return u.header.Filename }
func (u *UploadSource) Size() int64  { return u.header.Size }

func (u *UploadSource) Open() (io.ReadCloser, error) {
	return u.header.Open()
}

// MemorySource is an upload held in memory so it outlives the request that
// carried it.
type MemorySource struct {
	name string
	data []byte
}

func NewMemorySource(name string, data []byte) *MemorySource {
	return &MemorySource{name: name, data: data}
}

func (m *MemorySource) Name() string { return m.name }
func (m *MemorySource) Size() int64  { return int64(len(m.data)) }

func (m *MemorySource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

// BufferUpload copies a multipart file into memory. At most MaxFileSize+1
// bytes are read, so an oversized upload still fails CheckSelection.
func BufferUpload(h *multipart.FileHeader) (*MemorySource, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	return NewMemorySource(h.Filename, data), nil
}

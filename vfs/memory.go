package vfs

import (
	"bytes"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// MemoryDirectory is a flat directory of in-memory files.
type MemoryDirectory struct {
	name  string
	files map[string][]byte
}

func NewMemoryDirectory(name string, files map[string][]byte) *MemoryDirectory {
	if files == nil {
		files = make(map[string][]byte)
	}
	return &MemoryDirectory{name: name, files: files}
}

func (md *MemoryDirectory) Init(parent Directory) {}
func (md *MemoryDirectory) Name() string          { return md.name }
func (md *MemoryDirectory) IsDirectory() bool     { return true }

func (md *MemoryDirectory) List() ([]string, error) {
	result := make([]string, 0, len(md.files))
	for name := range md.files {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

func (md *MemoryDirectory) GetElement(name string) (Element, error) {
	data, ok := md.files[name]
	if !ok {
		return nil, errors.Errorf("File '%s' not found in '%s'", name, md.name)
	}
	return &MemoryFile{name: name, data: data}, nil
}

// Put adds or replaces a file.
func (md *MemoryDirectory) Put(name string, data []byte) {
	md.files[name] = data
}

type MemoryFile struct {
	name   string
	data   []byte
	opened bool
}

func (mf *MemoryFile) Init(parent Directory) {}
func (mf *MemoryFile) Name() string          { return mf.name }
func (mf *MemoryFile) IsDirectory() bool     { return false }
func (mf *MemoryFile) Size() int64           { return int64(len(mf.data)) }

func (mf *MemoryFile) Open() error {
	if mf.opened {
		return errors.Errorf("File '%s' already opened", mf.name)
	}
	mf.opened = true
	return nil
}

func (mf *MemoryFile) Close() error {
	mf.opened = false
	return nil
}

func (mf *MemoryFile) Reader() (*io.SectionReader, error) {
	if !mf.opened {
		return nil, errors.Errorf("First you need to open file")
	}
	return io.NewSectionReader(bytes.NewReader(mf.data), 0, mf.Size()), nil
}

func (mf *MemoryFile) ReadAt(b []byte, off int64) (int, error) {
	if !mf.opened {
		return 0, errors.Errorf("First you need to open file")
	}
	return bytes.NewReader(mf.data).ReadAt(b, off)
}

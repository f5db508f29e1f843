package vfs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/skelanim/vfs"
)

func TestDirectoryDriver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.iqm"), []byte("model"), 0666))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0777))

	d := vfs.NewDirectoryDriver(dir)
	names, err := d.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.iqm", "sub"}, names)

	data, err := vfs.ReadFile(d, "a.iqm")
	require.NoError(t, err)
	assert.Equal(t, "model", string(data))

	_, err = vfs.ReadFile(d, "b.iqm")
	assert.True(t, errors.Is(err, vfs.ErrNotExist), "%v", err)

	_, err = vfs.DirectoryGetFile(d, "sub")
	assert.Error(t, err)
}

func TestMemoryDirectory(t *testing.T) {
	d := vfs.NewMemoryDirectory("mem", nil)
	d.Put("b.anim", []byte("action"))
	d.Put("a.iqm", []byte("model"))

	names, err := d.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.iqm", "b.anim"}, names)

	data, err := vfs.ReadFile(d, "b.anim")
	require.NoError(t, err)
	assert.Equal(t, "action", string(data))

	f, err := vfs.DirectoryGetFile(d, "a.iqm")
	require.NoError(t, err)
	_, err = f.ReadAt(make([]byte, 1), 0)
	assert.Error(t, err, "closed file")
	require.NoError(t, f.Open())
	assert.Error(t, f.Open())
	buf := make([]byte, 3)
	_, err = f.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "del", string(buf))
	require.NoError(t, f.Close())

	_, err = vfs.ReadFile(d, "c")
	assert.True(t, errors.Is(err, vfs.ErrNotExist))
}

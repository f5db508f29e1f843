package vfs

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// ErrNotExist is wrapped by ReadFile when the directory has no such file.
var ErrNotExist = os.ErrNotExist

func OpenFileAndGetReader(f File) (*io.SectionReader, error) {
	if err := f.Open(); err != nil {
		return nil, errors.Wrapf(err, "Cannot open file '%s'", f.Name())
	}
	r, err := f.Reader()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "Cannot get file '%s' reader", f.Name())
	}
	return r, nil
}

func DirectoryGetFile(d Directory, name string) (File, error) {
	f, err := d.GetElement(name)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot open file '%s'", name)
	}
	if f.IsDirectory() {
		return nil, errors.Errorf("File '%s' is directory, not a file!", name)
	}
	return f.(File), nil
}

// HasFile reports whether name is listed in d.
func HasFile(d Directory, name string) (bool, error) {
	names, err := d.List()
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ReadFile returns the whole content of the file name in d.
func ReadFile(d Directory, name string) ([]byte, error) {
	if ok, err := HasFile(d, name); err != nil {
		return nil, err
	} else if !ok {
		return nil, errors.Wrapf(ErrNotExist, "'%s' in '%s'", name, d.Name())
	}

	f, err := DirectoryGetFile(d, name)
	if err != nil {
		return nil, err
	}
	r, err := OpenFileAndGetReader(f)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read file '%s'", name)
	}
	return data, nil
}

package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/filex"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
)

// DiskBackend keeps every blob as a file directly inside one directory.
type DiskBackend struct {
	dir string
}

// NewDiskBackend creates dir when missing.
func NewDiskBackend(dir string) (*DiskBackend, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &DiskBackend{dir: abs}, nil
}

// Dir is the absolute directory the backend writes to.
func (b *DiskBackend) Dir() string { return b.dir }

func (b *DiskBackend) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(b.dir, name), nil
}

// Put fails if name already exists.
func (b *DiskBackend) Put(_ context.Context, name string, data []byte) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

func (b *DiskBackend) Get(_ context.Context, name string) ([]byte, error) {
	p, err := b.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// List returns regular files in directory enumeration order, unsorted.
func (b *DiskBackend) List(_ context.Context) ([]models.StoredFile, error) {
	d, err := os.Open(b.dir)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", b.dir, err)
	}
	defer d.Close()

	entries, err := d.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", b.dir, err)
	}

	result := make([]models.StoredFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		result = append(result, models.StoredFile{Name: e.Name(), Size: info.Size()})
	}
	return result, nil
}

func (b *DiskBackend) Delete(_ context.Context, name string) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

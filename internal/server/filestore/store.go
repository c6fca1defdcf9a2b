package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/cryptox"
	"github.com/dmitrijs2005/typicaltools/internal/logging"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
)

// Store seals uploads before they reach the backend and opens them on the
// way out.
type Store struct {
	backend       Backend
	envelope      *cryptox.Envelope
	claimFormPath string
	log           logging.Logger
}

func NewStore(backend Backend, envelope *cryptox.Envelope, claimFormPath string, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop{}
	}
	return &Store{
		backend:       backend,
		envelope:      envelope,
		claimFormPath: claimFormPath,
		log:           log.With("module", "filestore"),
	}
}

// ErrNoExtension wraps common.ErrInvalidName for names without a usable
// extension.
var ErrNoExtension = fmt.Errorf("%w: no extension", common.ErrInvalidName)

// ValidateName accepts plain logical names only: no separators, no
// parent references, nothing absolute. Dots inside a name ("claim..v2.pdf")
// are allowed.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", common.ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path", common.ErrInvalidName, name)
	case filepath.IsAbs(name), filepath.VolumeName(name) != "":
		return fmt.Errorf("%w: %q is absolute", common.ErrInvalidName, name)
	case strings.IndexFunc(name, func(r rune) bool { return r < 0x20 || r == 0x7f }) >= 0:
		return fmt.Errorf("%w: %q contains control characters", common.ErrInvalidName, name)
	}
	return nil
}

// splitName cuts at the first dot: "a.tar.gz" is base "a", ext "tar.gz".
func splitName(name string) (base, ext string, err error) {
	base, ext, found := strings.Cut(name, ".")
	if !found || base == "" || ext == "" {
		return "", "", fmt.Errorf("%w: %q", ErrNoExtension, name)
	}
	return base, ext, nil
}

// GenerateUniqueName returns requested when no stored file shares its base
// name, and otherwise base(1).ext, base(2).ext, … whichever is free first.
// Extensions are ignored when comparing, so report.pdf blocks report.docx.
func (s *Store) GenerateUniqueName(ctx context.Context, requested string) (string, error) {
	if err := ValidateName(requested); err != nil {
		return "", err
	}
	base, ext, err := splitName(requested)
	if err != nil {
		return "", err
	}

	files, err := s.backend.List(ctx)
	if err != nil {
		return "", err
	}

	taken := make(map[string]struct{}, len(files))
	for _, f := range files {
		b, _, _ := strings.Cut(f.Name, ".")
		taken[b] = struct{}{}
	}

	candidate := base
	for counter := 1; ; counter++ {
		if _, ok := taken[candidate]; !ok {
			break
		}
		candidate = fmt.Sprintf("%s(%d)", base, counter)
	}
	return candidate + "." + ext, nil
}

// Save seals content under a fresh unique name and returns that name.
func (s *Store) Save(ctx context.Context, requested string, content []byte) (string, error) {
	name, err := s.GenerateUniqueName(ctx, requested)
	if err != nil {
		return "", err
	}

	sealed, err := s.envelope.Seal(content)
	if err != nil {
		return "", fmt.Errorf("seal %s: %w", name, err)
	}

	if err := s.backend.Put(ctx, name, sealed); err != nil {
		return "", err
	}

	s.log.Info(ctx, "file stored", "name", name, "requested", requested, "size", len(content))
	return name, nil
}

// List is a live snapshot in backend order.
func (s *Store) List(ctx context.Context) ([]models.StoredFile, error) {
	return s.backend.List(ctx)
}

// Load returns the opened content of name. A missing file is
// common.ErrorNotFound; an unreadable one is common.ErrDecryption.
// When no exact match exists a case-insensitive match is used.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	sealed, err := s.backend.Get(ctx, name)
	if errors.Is(err, common.ErrorNotFound) {
		sealed, err = s.loadFolded(ctx, name)
	}
	if err != nil {
		return nil, err
	}

	plain, err := s.envelope.Open(sealed)
	if err != nil {
		s.log.Warn(ctx, "stored file failed to open", "name", name, "error", err)
		return nil, err
	}
	return plain, nil
}

func (s *Store) loadFolded(ctx context.Context, name string) ([]byte, error) {
	files, err := s.backend.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if strings.EqualFold(f.Name, name) {
			return s.backend.Get(ctx, f.Name)
		}
	}
	return nil, common.ErrorNotFound
}

// Delete removes name. Deleting a missing file returns common.ErrorNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, name); err != nil {
		return err
	}
	s.log.Info(ctx, "file deleted", "name", name)
	return nil
}

// BlankForm returns the static, unencrypted claim form.
func (s *Store) BlankForm() ([]byte, string, error) {
	data, err := os.ReadFile(s.claimFormPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", common.ErrorNotFound
		}
		return nil, "", err
	}
	return data, filepath.Base(s.claimFormPath), nil
}

// Package filestore keeps warranty uploads sealed at rest. Files are
// addressed by logical name only; a Backend maps names to storage.
package filestore

import (
	"context"

	"github.com/dmitrijs2005/typicaltools/internal/server/models"
)

// Backend stores opaque blobs by logical name. Implementations return
// common.ErrorNotFound for missing names.
type Backend interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// List returns the current contents in the backend's natural order.
	List(ctx context.Context) ([]models.StoredFile, error)
	Delete(ctx context.Context, name string) error
}

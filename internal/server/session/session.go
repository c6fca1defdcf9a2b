// Package session tracks anonymous browser sessions. A session id is stamped
// on the comments written from it and is what grants self-service edit and
// delete rights.
package session

import (
	"context"

	"github.com/google/uuid"
)

// Store keeps session ids alive with an idle timeout.
type Store interface {
	// Create starts a new session and returns its id.
	Create(ctx context.Context) (string, error)
	// Touch refreshes the idle timeout. It reports false when the id is
	// unknown or already expired.
	Touch(ctx context.Context, id string) (bool, error)
}

// newID is replaced in tests.
var newID = func() string { return uuid.NewString() }

// validID rejects cookie values that cannot be one of our ids before they
// reach the backing store.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

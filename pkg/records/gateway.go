// Package records defines stored records, the error taxonomy shared by every
// layer and the Persistence Gateway contract the storage engines implement.
package records

import (
	"context"

	"github.com/celerix-dev/celerix-records/pkg/schema"
)

// --- Functional Interfaces (Interface Segregation) ---

// Reader defines the read operations of a gateway.
type Reader interface {
	// List returns every record in insertion order. It never fails with
	// NotFoundError; an empty collection yields an empty slice.
	List(ctx context.Context) ([]Record, error)
	// Get returns the record with the given id or a NotFoundError.
	Get(ctx context.Context, id int64) (Record, error)
}

// Writer defines the mutating operations of a gateway.
type Writer interface {
	// Insert stores values and returns the record with its new id.
	Insert(ctx context.Context, values Values) (Record, error)
	// Update replaces every non-identity field of the record.
	Update(ctx context.Context, id int64, values Values) (Record, error)
	// Delete removes the record permanently.
	Delete(ctx context.Context, id int64) error
}

// --- Composite Interfaces ---

// Gateway is the storage of a single entity. Every operation is atomic with
// respect to one record.
type Gateway interface {
	Reader
	Writer
}

// Provider hands out gateways for schemas, one storage destination each.
type Provider interface {
	// Collection prepares the storage destination of s and returns its gateway.
	Collection(ctx context.Context, s *schema.Schema) (Gateway, error)
	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

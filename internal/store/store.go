package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mailsync/internal/model"
)

// ErrDuplicateEmail is returned by InsertEntity when an entity with the
// same email already exists. Callers re-fetch and update instead.
var ErrDuplicateEmail = eris.New("store: duplicate entity email")

// ErrEntityNotFound is returned by UpdateEntityFields when no row matched
// the given id.
var ErrEntityNotFound = eris.New("store: entity not found")

// EntityPatch carries field values to write onto an existing entity.
// Empty fields are left untouched.
type EntityPatch struct {
	Phone    string `json:"phone,omitempty"`
	Position string `json:"position,omitempty"`
	Category string `json:"category,omitempty"`
}

// IsZero reports whether the patch would change nothing.
func (p EntityPatch) IsZero() bool {
	return p.Phone == "" && p.Position == "" && p.Category == ""
}

// Store defines the persistence interface for the mail pipeline.
type Store interface {
	// Entities
	GetEntityByEmail(ctx context.Context, email string) (*model.Entity, error)
	InsertEntity(ctx context.Context, entity *model.Entity) error
	UpdateEntityFields(ctx context.Context, entityID string, patch EntityPatch) error
	ListEntities(ctx context.Context, limit int) ([]model.Entity, error)

	// Mail history
	MailRecordExists(ctx context.Context, messageID string) (bool, error)
	InsertMailRecord(ctx context.Context, rec *model.MailRecord) error
	ListMailRecords(ctx context.Context, limit int) ([]model.MailRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

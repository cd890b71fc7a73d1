package book

import (
	"context"
)

// Repository defines the contract for book storage and retrieval.
// Implementations return apperr types: NotFoundError for missing active
// records, ValidationError from Save, DatabaseError on store faults.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Book, error)
	FindAll(ctx context.Context) ([]*Book, error)
	Search(ctx context.Context, query string) ([]*Book, error)
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
	Save(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id int64) error
}

// Package store implements the catalog's persistence layer on Postgres:
// the database gateway and the book repository that orchestrates
// validation, enrichment, and row access.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/book"
	"bookcatalog/internal/platform/openlibrary"
)

// Database is the slice of the gateway the repository needs.
type Database interface {
	Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	InsertReturningID(ctx context.Context, sql string, args ...any) (int64, error)
}

// Enricher produces best-effort description/cover data for an ISBN.
type Enricher interface {
	Lookup(ctx context.Context, isbn string) (openlibrary.Enrichment, error)
}

// BookPG implements book.Repository on the Postgres gateway. When autoEnrich
// is set, Save consults the enricher for records missing both description and
// cover; enrichment failures never block persistence.
type BookPG struct {
	db         Database
	enricher   Enricher
	log        *slog.Logger
	autoEnrich bool
}

func NewBookPG(db Database, enricher Enricher, log *slog.Logger, autoEnrich bool) *BookPG {
	return &BookPG{db: db, enricher: enricher, log: log, autoEnrich: autoEnrich}
}

const bookColumns = `id, title, author, isbn, publication_year, created_at, status, description, cover_url, updated_at, deleted_at`

func (r *BookPG) FindByID(ctx context.Context, id int64) (*book.Book, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1 AND status = 1`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("book with id %d", id))
	}
	return mapRow(rows[0])
}

func (r *BookPG) FindAll(ctx context.Context) ([]*book.Book, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+bookColumns+` FROM books WHERE status = 1 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return mapRows(rows)
}

func (r *BookPG) Search(ctx context.Context, query string) ([]*book.Book, error) {
	pattern := "%" + query + "%"
	rows, err := r.db.Query(ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE (title ILIKE $1 OR author ILIKE $1 OR publication_year::text ILIKE $1)
		   AND status = 1
		 ORDER BY title ASC`, pattern)
	if err != nil {
		return nil, err
	}
	return mapRows(rows)
}

// ExistsByISBN reports whether any row, active or soft-deleted, carries the
// ISBN. Save does not consult it: duplicate ISBNs are accepted at write time.
func (r *BookPG) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT COUNT(*) AS count FROM books WHERE isbn = $1`, isbn)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	count, ok := asInt64(rows[0]["count"])
	return ok && count > 0, nil
}

// Save validates, optionally enriches, then inserts or updates. A new record
// gets its generated id assigned back; an existing one is touched and
// rewritten by id. Validation errors propagate unchanged.
func (r *BookPG) Save(ctx context.Context, b *book.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}

	if r.autoEnrich && r.enricher != nil && b.Description == nil && b.CoverURL == nil {
		r.enrich(ctx, b)
	}

	if b.ID == 0 {
		id, err := r.db.InsertReturningID(ctx,
			`INSERT INTO books (title, author, isbn, publication_year, created_at, status, description, cover_url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			b.Title, b.Author, b.ISBN, b.PublicationYear, b.CreatedAt, int(b.Status), b.Description, b.CoverURL)
		if err != nil {
			return err
		}
		b.ID = id
		return nil
	}

	b.Touch()
	_, err := r.db.Exec(ctx,
		`UPDATE books
		 SET title = $1, author = $2, isbn = $3, publication_year = $4,
		     description = $5, cover_url = $6, updated_at = $7
		 WHERE id = $8`,
		b.Title, b.Author, b.ISBN, b.PublicationYear, b.Description, b.CoverURL, b.UpdatedAt, b.ID)
	return err
}

// Delete soft-deletes an active record: the row keeps its data but is marked
// inactive with a deletion timestamp, and disappears from every read path.
func (r *BookPG) Delete(ctx context.Context, id int64) error {
	b, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	b.MarkDeleted()
	_, err = r.db.Exec(ctx,
		`UPDATE books SET deleted_at = $1, status = $2 WHERE id = $3`,
		b.DeletedAt, int(b.Status), id)
	return err
}

// enrich fills only still-absent fields. Lookup failures are logged and
// swallowed: enrichment is advisory.
func (r *BookPG) enrich(ctx context.Context, b *book.Book) {
	enr, err := r.enricher.Lookup(ctx, b.ISBN)
	if err != nil {
		r.log.Warn("enrichment failed, saving without it", "isbn", b.ISBN, "error", err)
		return
	}

	if b.Description == nil && enr.Description != nil {
		b.Description = enr.Description
	}
	if b.CoverURL == nil && enr.CoverURL != nil {
		b.CoverURL = enr.CoverURL
	}
	r.log.Info("book enriched from open library",
		"isbn", b.ISBN,
		"description_added", enr.Description != nil,
		"cover_added", enr.CoverURL != nil)
}

func mapRows(rows []map[string]any) ([]*book.Book, error) {
	out := make([]*book.Book, 0, len(rows))
	for _, row := range rows {
		b, err := mapRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// mapRow rehydrates a Book from a gateway row-mapping. Every read path
// funnels through here. A row that does not match the books schema is
// reported as a store fault.
func mapRow(row map[string]any) (*book.Book, error) {
	b := &book.Book{}

	var ok bool
	if b.ID, ok = asInt64(row["id"]); !ok {
		return nil, rowFault("id")
	}
	if b.Title, ok = row["title"].(string); !ok {
		return nil, rowFault("title")
	}
	if b.Author, ok = row["author"].(string); !ok {
		return nil, rowFault("author")
	}
	if b.ISBN, ok = row["isbn"].(string); !ok {
		return nil, rowFault("isbn")
	}

	year, ok := asInt64(row["publication_year"])
	if !ok {
		return nil, rowFault("publication_year")
	}
	b.PublicationYear = int(year)

	status, ok := asInt64(row["status"])
	if !ok {
		return nil, rowFault("status")
	}
	b.Status = book.Status(status)

	if b.CreatedAt, ok = row["created_at"].(time.Time); !ok {
		return nil, rowFault("created_at")
	}

	b.Description = asStringPtr(row["description"])
	b.CoverURL = asStringPtr(row["cover_url"])
	b.UpdatedAt = asTimePtr(row["updated_at"])
	b.DeletedAt = asTimePtr(row["deleted_at"])
	return b, nil
}

func rowFault(column string) error {
	return &apperr.DatabaseError{Op: "scanning books." + column}
}

// asInt64 absorbs the integer widths pgx hands back for bigint, integer and
// smallint columns.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int:
		return int64(n), true
	}
	return 0, false
}

func asStringPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func asTimePtr(v any) *time.Time {
	if t, ok := v.(time.Time); ok {
		return &t
	}
	return nil
}

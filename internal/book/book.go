// Package book holds the catalog's domain record: field validation and
// lifecycle transitions. Persistence is owned by the repository in
// internal/store; this package only guards in-memory field validity.
package book

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bookcatalog/internal/apperr"
)

// Status marks a record active or soft-deleted.
type Status int

const (
	StatusInactive Status = 0
	StatusActive   Status = 1
)

// Book is a single catalog record. ID is zero until the store assigns one
// on first persist and immutable afterwards. Description and CoverURL may be
// filled by direct edit or by Open Library enrichment.
type Book struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title" validate:"required"`
	Author          string     `json:"author" validate:"required"`
	ISBN            string     `json:"isbn" validate:"required,isbn_len"`
	PublicationYear int        `json:"publication_year" validate:"pub_year"`
	Status          Status     `json:"status" validate:"min=0,max=1"`
	Description     *string    `json:"description"`
	CoverURL        *string    `json:"cover_url"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report violations under the JSON field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterValidation("isbn_len", validISBNLength)
	validate.RegisterValidation("pub_year", validPublicationYear)
}

// validISBNLength accepts an ISBN whose normalized form (digits and the
// letter X only) is at most 20 characters. No checksum is verified.
func validISBNLength(fl validator.FieldLevel) bool {
	return len(normalizeISBN(fl.Field().String())) <= 20
}

func normalizeISBN(isbn string) string {
	var b strings.Builder
	for _, r := range isbn {
		if (r >= '0' && r <= '9') || r == 'X' || r == 'x' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validPublicationYear(fl validator.FieldLevel) bool {
	year := int(fl.Field().Int())
	return year >= 1000 && year <= time.Now().Year()+1
}

// New builds an unpersisted record. Validation is deferred to persist time.
func New(title, author, isbn string, publicationYear int) *Book {
	return &Book{
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		PublicationYear: publicationYear,
		Status:          StatusActive,
		CreatedAt:       time.Now(),
	}
}

// Validate checks every invariant independently and returns an
// *apperr.ValidationError listing all violations, or nil.
func (b *Book) Validate() error {
	err := validate.Struct(b)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &apperr.ValidationError{Fields: []apperr.FieldError{
			{Field: "book", Message: "invalid record"},
		}}
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return &apperr.ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "isbn_len":
		return "isbn must be at most 20 characters after normalization"
	case "pub_year":
		return "publication_year must be between 1000 and next year"
	case "min", "max":
		return "status must be 0 or 1"
	}
	return fe.Field() + " is invalid"
}

// MarkDeleted soft-deletes the record. Only the repository delete path calls
// this, exactly once per record.
func (b *Book) MarkDeleted() {
	now := time.Now()
	b.Status = StatusInactive
	b.DeletedAt = &now
}

// Touch stamps the record as modified.
func (b *Book) Touch() {
	now := time.Now()
	b.UpdatedAt = &now
}

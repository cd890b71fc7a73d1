package http

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"bookcatalog/internal/apperr"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type createBookRequest struct {
	Title           string  `json:"title" validate:"required"`
	Author          string  `json:"author" validate:"required"`
	ISBN            string  `json:"isbn" validate:"required"`
	PublicationYear int     `json:"publication_year" validate:"required"`
	Description     *string `json:"description"`
	CoverURL        *string `json:"cover_url"`
}

// updateBookRequest distinguishes "not provided" (nil) from "set to empty":
// only non-nil fields are applied, and provided text fields must be non-empty.
type updateBookRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=1"`
	Author          *string `json:"author" validate:"omitempty,min=1"`
	ISBN            *string `json:"isbn" validate:"omitempty,min=1"`
	PublicationYear *int    `json:"publication_year"`
	Description     *string `json:"description"`
	CoverURL        *string `json:"cover_url"`
}

// decodeAndValidate parses the JSON body into dst and runs struct validation,
// returning one detail per failing field.
func decodeAndValidate(r *http.Request, dst any) []apperr.FieldError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return []apperr.FieldError{{Field: "body", Message: "invalid JSON body"}}
	}
	if err := validate.Struct(dst); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []apperr.FieldError{{Field: "body", Message: "invalid request"}}
		}
		details := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, apperr.FieldError{
				Field:   fe.Field(),
				Message: requestFieldMessage(fe),
			})
		}
		return details
	}
	return nil
}

func requestFieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must not be empty"
	}
	return fe.Field() + " is invalid"
}

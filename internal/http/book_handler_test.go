package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/book"
	"bookcatalog/internal/store/mocks"
)

func testHandler(t *testing.T) (*BookHandler, *mocks.MockRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	repo := mocks.NewMockRepository(ctrl)
	return NewBookHandler(repo, slog.New(slog.DiscardHandler)), repo
}

func testBook() *book.Book {
	b := book.New("Dune", "Frank Herbert", "9780441013593", 1965)
	b.ID = 7
	return b
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, path, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestList(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(repo *mocks.MockRepository)
		expectedStatus int
	}{
		{
			name: "success with books",
			setupMock: func(repo *mocks.MockRepository) {
				repo.EXPECT().FindAll(gomock.Any()).Return([]*book.Book{testBook()}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "success empty",
			setupMock: func(repo *mocks.MockRepository) {
				repo.EXPECT().FindAll(gomock.Any()).Return([]*book.Book{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "store fault",
			setupMock: func(repo *mocks.MockRepository) {
				repo.EXPECT().FindAll(gomock.Any()).Return(nil, &apperr.DatabaseError{})
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, repo := testHandler(t)
			tt.setupMock(repo)

			w := httptest.NewRecorder()
			handler.List(w, jsonRequest(t, http.MethodGet, "/books", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestGet(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, repo := testHandler(t)
		repo.EXPECT().FindByID(gomock.Any(), int64(7)).Return(testBook(), nil)

		r := jsonRequest(t, http.MethodGet, "/books/7", nil)
		r.SetPathValue("id", "7")
		w := httptest.NewRecorder()
		handler.Get(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		data := body["data"].(map[string]any)
		assert.Equal(t, "Dune", data["title"])
	})

	t.Run("not found", func(t *testing.T) {
		handler, repo := testHandler(t)
		repo.EXPECT().FindByID(gomock.Any(), int64(99)).Return(nil, apperr.NotFound("book with id 99"))

		r := jsonRequest(t, http.MethodGet, "/books/99", nil)
		r.SetPathValue("id", "99")
		w := httptest.NewRecorder()
		handler.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-numeric id skips repository", func(t *testing.T) {
		handler, _ := testHandler(t)

		r := jsonRequest(t, http.MethodGet, "/books/abc", nil)
		r.SetPathValue("id", "abc")
		w := httptest.NewRecorder()
		handler.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCreate(t *testing.T) {
	payload := map[string]any{
		"title":            "Dune",
		"author":           "Frank Herbert",
		"isbn":             "9780441013593",
		"publication_year": 1965,
	}

	t.Run("created", func(t *testing.T) {
		handler, repo := testHandler(t)
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, b *book.Book) error {
				assert.Equal(t, "Dune", b.Title)
				assert.Equal(t, book.StatusActive, b.Status)
				b.ID = 42
				return nil
			})

		w := httptest.NewRecorder()
		handler.Create(w, jsonRequest(t, http.MethodPost, "/books", payload))

		require.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		data := body["data"].(map[string]any)
		assert.Equal(t, float64(42), data["id"])
	})

	t.Run("missing required fields skips repository", func(t *testing.T) {
		handler, _ := testHandler(t)

		w := httptest.NewRecorder()
		handler.Create(w, jsonRequest(t, http.MethodPost, "/books", map[string]any{"title": "Dune"}))

		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, "validation_failed", errBody["code"])
		assert.NotEmpty(t, errBody["details"])
	})

	t.Run("malformed JSON", func(t *testing.T) {
		handler, _ := testHandler(t)

		r := httptest.NewRequest(http.MethodPost, "/books", bytes.NewReader([]byte(`{not json`)))
		w := httptest.NewRecorder()
		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("entity validation errors surface with details", func(t *testing.T) {
		handler, repo := testHandler(t)
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(&apperr.ValidationError{
			Fields: []apperr.FieldError{{Field: "publication_year", Message: "publication_year must be between 1000 and next year"}},
		})

		w := httptest.NewRecorder()
		handler.Create(w, jsonRequest(t, http.MethodPost, "/books", payload))

		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		errBody := body["error"].(map[string]any)
		details := errBody["details"].([]any)
		require.Len(t, details, 1)
	})
}

func TestUpdate(t *testing.T) {
	t.Run("applies only provided fields", func(t *testing.T) {
		handler, repo := testHandler(t)
		existing := testBook()
		repo.EXPECT().FindByID(gomock.Any(), int64(7)).Return(existing, nil)
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, b *book.Book) error {
				assert.Equal(t, "Dune Messiah", b.Title)
				assert.Equal(t, "Frank Herbert", b.Author)
				assert.Equal(t, 1969, b.PublicationYear)
				return nil
			})

		r := jsonRequest(t, http.MethodPut, "/books/7", map[string]any{
			"title":            "Dune Messiah",
			"publication_year": 1969,
		})
		r.SetPathValue("id", "7")
		w := httptest.NewRecorder()
		handler.Update(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		handler, repo := testHandler(t)
		repo.EXPECT().FindByID(gomock.Any(), int64(99)).Return(nil, apperr.NotFound("book with id 99"))

		r := jsonRequest(t, http.MethodPut, "/books/99", map[string]any{"title": "x"})
		r.SetPathValue("id", "99")
		w := httptest.NewRecorder()
		handler.Update(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDelete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, repo := testHandler(t)
		repo.EXPECT().Delete(gomock.Any(), int64(7)).Return(nil)

		r := jsonRequest(t, http.MethodDelete, "/books/7", nil)
		r.SetPathValue("id", "7")
		w := httptest.NewRecorder()
		handler.Delete(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		handler, repo := testHandler(t)
		repo.EXPECT().Delete(gomock.Any(), int64(99)).Return(apperr.NotFound("book with id 99"))

		r := jsonRequest(t, http.MethodDelete, "/books/99", nil)
		r.SetPathValue("id", "99")
		w := httptest.NewRecorder()
		handler.Delete(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSearch(t *testing.T) {
	t.Run("missing query parameter", func(t *testing.T) {
		handler, _ := testHandler(t)

		w := httptest.NewRecorder()
		handler.Search(w, jsonRequest(t, http.MethodGet, "/books/search", nil))

		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		errBody := body["error"].(map[string]any)
		assert.Equal(t, "missing_query", errBody["code"])
	})

	t.Run("success", func(t *testing.T) {
		handler, repo := testHandler(t)
		repo.EXPECT().Search(gomock.Any(), "smith").Return([]*book.Book{testBook()}, nil)

		w := httptest.NewRecorder()
		handler.Search(w, jsonRequest(t, http.MethodGet, "/books/search?q=smith", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Len(t, body["data"].([]any), 1)
	})
}

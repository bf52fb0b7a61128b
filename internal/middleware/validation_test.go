package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "incomestatement/internal/errors"
)

type importRequest struct {
	SpreadsheetID string   `json:"spreadsheet_id" validate:"required,max=128"`
	Range         string   `json:"range" validate:"omitempty,max=128"`
	Name          string   `json:"name" validate:"omitempty,filename"`
	Products      []string `json:"products" validate:"omitempty,dive,product"`
}

func TestValidationMiddleware_ValidateStruct(t *testing.T) {
	m := NewValidationMiddleware(nil, apierrors.NewErrorHandler(nil, false))

	require.NoError(t, m.ValidateStruct(importRequest{SpreadsheetID: "sheet-1", Name: "book.xlsx", Products: []string{"A"}}))

	tests := []struct {
		name      string
		req       importRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing required",
			req:       importRequest{},
			wantField: "spreadsheet_id",
			wantMsg:   "spreadsheet_id is required",
		},
		{
			name:      "unsafe filename",
			req:       importRequest{SpreadsheetID: "s", Name: "../x.csv"},
			wantField: "name",
			wantMsg:   "name must be a valid filename",
		},
		{
			name:      "blank product",
			req:       importRequest{SpreadsheetID: "s", Products: []string{"A", "  "}},
			wantField: "products[1]",
			wantMsg:   "must be a non-blank product name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ValidateStruct(tt.req)
			require.Error(t, err)

			apiErr := apierrors.FromError(err)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, apierrors.CodeValidation, apiErr.ErrorCode)

			details := apiErr.Details.([]apierrors.ValidationError)
			require.NotEmpty(t, details)
			assert.Equal(t, tt.wantField, details[0].Field)
			assert.Contains(t, details[0].Message, tt.wantMsg)
		})
	}
}

func TestValidationMiddleware_ValidateRequest(t *testing.T) {
	m := NewValidationMiddleware(nil, apierrors.NewErrorHandler(nil, false))
	h := m.ValidateRequest(http.HandlerFunc(okHandler))

	t.Run("valid json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/datasets/d1/compute", strings.NewReader(`{"products":["A"]}`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("broken json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/datasets/d1/compute", strings.NewReader(`{"products":[`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apierrors.CodeInvalidRequest, problemCode(t, w))
	})

	t.Run("oversized body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/datasets/d1/compute", strings.NewReader("{}"))
		r.Header.Set("Content-Type", "application/json")
		r.ContentLength = 2 << 20
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("multipart passes through", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/datasets", strings.NewReader("not json"))
		r.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator(apierrors.NewErrorHandler(nil, false), "application/json", "multipart/form-data")(http.HandlerFunc(okHandler))

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"get skipped", http.MethodGet, "", http.StatusOK},
		{"delete skipped", http.MethodDelete, "", http.StatusOK},
		{"json", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"multipart", http.MethodPost, "multipart/form-data; boundary=abc", http.StatusOK},
		{"missing", http.MethodPost, "", http.StatusBadRequest},
		{"unsupported", http.MethodPost, "text/plain", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/api/datasets", strings.NewReader("{}"))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestQueryParamValidator(t *testing.T) {
	v := NewQueryParamValidator(nil, apierrors.NewErrorHandler(nil, false))

	t.Run("enum", func(t *testing.T) {
		allowed := []string{"table", "json", "markdown"}

		w := httptest.NewRecorder()
		got, ok := v.ValidateEnum(w, httptest.NewRequest(http.MethodGet, "/?format=json", nil), "format", allowed, "table")
		assert.True(t, ok)
		assert.Equal(t, "json", got)

		got, ok = v.ValidateEnum(w, httptest.NewRequest(http.MethodGet, "/", nil), "format", allowed, "table")
		assert.True(t, ok)
		assert.Equal(t, "table", got)

		w = httptest.NewRecorder()
		_, ok = v.ValidateEnum(w, httptest.NewRequest(http.MethodGet, "/?format=pdf", nil), "format", allowed, "table")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apierrors.CodeValidation, problemCode(t, w))
	})

	t.Run("products", func(t *testing.T) {
		w := httptest.NewRecorder()

		got, ok := v.ValidateProducts(w, httptest.NewRequest(http.MethodGet, "/", nil), "products")
		assert.True(t, ok)
		assert.Nil(t, got)

		got, ok = v.ValidateProducts(w, httptest.NewRequest(http.MethodGet, "/?products=A,+B+,,A", nil), "products")
		assert.True(t, ok)
		assert.Equal(t, []string{"A", "B", "A"}, got)

		got, ok = v.ValidateProducts(w, httptest.NewRequest(http.MethodGet, "/?products=", nil), "products")
		assert.True(t, ok)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("products with commas", func(t *testing.T) {
		w := httptest.NewRecorder()

		got, ok := v.ValidateProducts(w,
			httptest.NewRequest(http.MethodGet, "/?products=%22X,+Inc%22,A&products=B", nil), "products")
		assert.True(t, ok)
		assert.Equal(t, []string{"X, Inc", "A", "B"}, got)

		got, ok = v.ValidateProducts(w,
			httptest.NewRequest(http.MethodGet, "/?products=A&products=+&products=B", nil), "products")
		assert.True(t, ok)
		assert.Equal(t, []string{"A", "B"}, got)
	})

	t.Run("malformed product list", func(t *testing.T) {
		for _, target := range []string{"/?products=%22X,A", "/?products=A%0AB"} {
			w := httptest.NewRecorder()
			_, ok := v.ValidateProducts(w, httptest.NewRequest(http.MethodGet, target, nil), "products")
			assert.False(t, ok, target)
			assert.Equal(t, http.StatusBadRequest, w.Code, target)
			assert.Equal(t, apierrors.CodeValidation, problemCode(t, w), target)
		}
	})
}

package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
)

func TestOK(t *testing.T) {
	data := map[string]string{"key": "value"}
	resp := OK(data)

	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.Equal(t, data, resp.Data)
}

func TestError(t *testing.T) {
	resp := Error("something went wrong", apperr.CodeInternal)

	assert.False(t, resp.Success)
	assert.Equal(t, "something went wrong", resp.Error)
	assert.Equal(t, apperr.CodeInternal, resp.Code)
	assert.Nil(t, resp.Data)
}

func TestValidationError(t *testing.T) {
	type TestStruct struct {
		Name   string `validate:"required"`
		Title  string `validate:"max=3"`
		Status string `validate:"oneof=all selected"`
	}

	err := validator.New().Struct(TestStruct{Title: "long title", Status: "none"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.False(t, resp.Success)
	assert.Equal(t, apperr.CodeValidation, resp.Code)
	assert.Contains(t, resp.Error, "field Name is a required field")
	assert.Contains(t, resp.Error, "field Title must be at most 3 characters")
	assert.Contains(t, resp.Error, "field Status must be one of: all, selected")
}

func TestFail(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		detail     bool
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "not found",
			err:        fmt.Errorf("services.harvest.Update: %w", apperr.ErrRequestNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   apperr.CodeRequestNotFound,
		},
		{
			name:       "conflict",
			err:        apperr.ErrDuplicateRequest,
			wantStatus: http.StatusConflict,
			wantCode:   apperr.CodeDuplicateRequest,
		},
		{
			name:       "forbidden",
			err:        apperr.ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantCode:   apperr.CodeAccessDenied,
		},
		{
			name:       "validation",
			err:        apperr.Validation("quantity must be an integer"),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeValidation,
		},
		{
			name:       "unknown error hidden",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperr.CodeInternal,
		},
		{
			name:       "unknown error in development",
			err:        errors.New("pq: connection refused"),
			detail:     true,
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperr.CodeInternal,
			wantMsg:    "pq: connection refused",
		},
		{
			name:       "upstream",
			err:        fmt.Errorf("repo: %w", apperr.ErrDatabase),
			wantStatus: http.StatusBadGateway,
			wantCode:   apperr.CodeDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := WithDetail(tt.detail)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Fail(w, r, tt.err)
			}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		wantStatus int
	}{
		{name: "missing file", apiError: ErrMissingFile, wantStatus: http.StatusBadRequest},
		{name: "payload too large", apiError: ErrPayloadTooLarge, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "rate limited", apiError: ErrRateLimitExceeded, wantStatus: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			require.NoError(t, render.Render(w, r, tt.apiError))
			assert.Equal(t, tt.wantStatus, w.Code)

			var body APIError
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.apiError.ErrorCode, body.ErrorCode)
			assert.Equal(t, tt.apiError.Message, body.Message)
		})
	}
}

func TestAPIErrorHelpers(t *testing.T) {
	cause := fmt.Errorf("file is empty")

	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", InvalidRequestWithError(cause), http.StatusBadRequest, "INVALID_REQUEST"},
		{"invalid upload", InvalidUploadWithError(cause), http.StatusBadRequest, "INVALID_UPLOAD"},
		{"validation", ErrValidation("rules", "must be at most 10"), http.StatusBadRequest, "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
		})
	}

	assert.Equal(t, "file is empty", InvalidUploadWithError(cause).Details)
	assert.Equal(t, ValidationError{Field: "rules", Message: "must be at most 10"}, ErrValidation("rules", "must be at most 10").Details)
}

func TestAPIErrorAsError(t *testing.T) {
	wrapped := fmt.Errorf("upload: %w", ErrPayloadTooLarge)

	var apiErr *APIError
	require.True(t, stderrors.As(wrapped, &apiErr))
	assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.StatusCode)
}

func TestAppError(t *testing.T) {
	cause := stderrors.New("disk full")

	err := NewStorageError("failed to write segments", cause).WithContext("path", "/tmp/out.csv")
	assert.Equal(t, "[STORAGE] failed to write segments: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "/tmp/out.csv", err.Context["path"])

	assert.Equal(t, "[VALIDATION] bad flag", NewAppValidationError("bad flag").Error())
	assert.Equal(t, "[NOT_FOUND] input file not found", NewNotFoundError("input file").Error())

	for _, tt := range []struct {
		err  *AppError
		want ErrorType
	}{
		{NewInputError("x", nil), ErrTypeInput},
		{NewParsingError("x", nil), ErrTypeParsing},
		{NewConfigError("x", nil), ErrTypeConfig},
	} {
		assert.Equal(t, tt.want, tt.err.Type)
	}

	var empty AppError
	empty.WithContext("k", 1)
	assert.Equal(t, 1, empty.Context["k"])
}

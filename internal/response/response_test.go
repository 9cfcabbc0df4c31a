package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", apperr.NotFound("Loja não encontrada!"), http.StatusOK, "Loja não encontrada!"},
		{"not found default", apperr.NotFound(""), http.StatusOK, MessageNotFound},
		{"unauthorized", apperr.Unauthorized("Operação não permitida!"), http.StatusOK, MessageUnallowed},
		{"invalid", apperr.Invalid("open orders"), http.StatusOK, "open orders"},
		{"invalid token", apperr.InvalidToken("expired"), http.StatusOK, "expired"},
		{"duplicate", apperr.Duplicate("in use"), http.StatusOK, "in use"},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError, MessageFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := Classify(tc.err)
			assert.Equal(t, tc.status, status)
			assert.False(t, env.Success)
			assert.Equal(t, tc.message, env.Message)
		})
	}
}

func TestErrorPutsCauseInData(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	Error(rec, req, apperr.Unexpected(errors.New("connection refused")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, MessageFailure, env.Message)
	assert.Equal(t, "connection refused", env.Data)
}

func TestCollection(t *testing.T) {
	rec := httptest.NewRecorder()
	Collection(rec, []int{})
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, MessageNotFound, env.Message)

	rec = httptest.NewRecorder()
	Collection(rec, []int{1, 2})
	env = decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, []any{1.0, 2.0}, env.Data)
}

func TestCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, "ok", map[string]int{"id": 3})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, decode(t, rec).Success)
}

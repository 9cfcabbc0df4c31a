package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
)

func TestStringBody(t *testing.T) {
	cases := map[string]string{
		`{"email":" a@b "}`: "a@b",
		`"a@b"`:             "a@b",
		"a@b\n":             "a@b",
	}
	for body, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		got, err := StringBody(req, "email")
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)
	}

	_, err := StringBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("  ")), "email")
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
}

func TestSecretBodyKeepsWhitespace(t *testing.T) {
	cases := map[string]string{
		`{"password":"  secret  "}`: "  secret  ",
		`"  secret  "`:              "  secret  ",
		" secret ":                  " secret ",
	}
	for body, want := range cases {
		req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
		got, err := SecretBody(req, "password")
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)
	}

	_, err := SecretBody(httptest.NewRequest(http.MethodPut, "/", strings.NewReader("")), "password")
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
}

func TestPathInt64(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "42")
	rctx.URLParams.Add("bad", "x")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	id, err := PathInt64(req, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = PathInt64(req, "bad")
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
}

func TestInt64Slice(t *testing.T) {
	ids, err := Int64Slice(httptest.NewRequest(http.MethodDelete, "/", strings.NewReader("[1,2,3]")))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = Int64Slice(httptest.NewRequest(http.MethodDelete, "/", strings.NewReader("[]")))
	assert.Error(t, err)
}

package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/response"
)

func newTestRouter(t *testing.T, p access.Principal) (*chi.Mux, *fixture) {
	t.Helper()
	f := newFixture(t)
	tax := NewTaxonomyService(f.taxonomy, time.Minute)
	members := staticMembers{storeID: {{UserID: 7, Role: access.RoleStoreEmployee}}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(access.WithPrincipal(req.Context(), p)))
		})
	})
	NewHandler(f.svc, tax, members, f.storage).RegisterRoutes(r, func(next http.Handler) http.Handler { return next })
	return r, f
}

func call(t *testing.T, r http.Handler, method, target, body string) (int, response.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestHandlerCreateProductChecksMembership(t *testing.T) {
	body := `{"storeId":10,"productSubtypeId":5,"name":"Suco","price":3,"stockQuantity":1}`

	r, _ := newTestRouter(t, access.Principal{UserID: 8, Role: access.RoleStoreAdmin})
	_, env := call(t, r, http.MethodPost, "/products/create", body)
	assert.False(t, env.Success)
	assert.Equal(t, response.MessageUnallowed, env.Message)

	r, f := newTestRouter(t, member)
	code, env := call(t, r, http.MethodPost, "/products/create", body)
	assert.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)
	assert.Len(t, f.repo.products, 1)
}

func TestHandlerListings(t *testing.T) {
	r, f := newTestRouter(t, access.Anonymous)

	_, env := call(t, r, http.MethodGet, "/products/quantity/5", "")
	assert.False(t, env.Success)
	assert.Equal(t, response.MessageNotFound, env.Message)

	p := f.create(t, "Suco")

	_, env = call(t, r, http.MethodGet, "/products/quantity/5", "")
	assert.True(t, env.Success)

	_, env = call(t, r, http.MethodGet, "/products/quantity/0", "")
	assert.False(t, env.Success)
	assert.Equal(t, msgInvalidQuantity, env.Message)

	_, env = call(t, r, http.MethodGet, "/products/"+jsonNumber(p.ID), "")
	require.True(t, env.Success)
	data := env.Data.(map[string]any)
	assert.Equal(t, []any{}, data["imageList"])

	_, env = call(t, r, http.MethodGet, "/products/types/1/subtypes", "")
	assert.True(t, env.Success)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

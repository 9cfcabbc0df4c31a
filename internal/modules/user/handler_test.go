package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/modules/image"
	"github.com/georgemunganga/marketplace-api/internal/response"
)

type noUploads struct{}

func (noUploads) OpenUpload(*http.Request) (*image.Upload, error) { return nil, nil }

// as injects p into every request, standing in for the bearer middleware.
func as(p access.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(access.WithPrincipal(r.Context(), p)))
		})
	}
}

func newTestRouter(p access.Principal) (*chi.Mux, *memRepo) {
	s, repo, _ := newTestService()
	r := chi.NewRouter()
	r.Use(as(p))
	NewHandler(s, noUploads{}, nil).RegisterRoutes(r, func(next http.Handler) http.Handler { return next })
	return r, repo
}

func do(t *testing.T, r http.Handler, method, target, body string) (int, response.Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestHandlerCreateCustomer(t *testing.T) {
	r, repo := newTestRouter(access.Anonymous)

	code, env := do(t, r, http.MethodPost, "/users/create/customer",
		`{"name":"Bia","email":"bia@example.com","password":"pw","roleId":4}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)
	assert.Equal(t, msgCustomerCreated, env.Message)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, data, "password")
	assert.Len(t, repo.users, 1)

	code, env = do(t, r, http.MethodPost, "/users/create/customer",
		`{"email":"root@example.com","password":"pw","roleId":1}`)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, env.Success)
	assert.Equal(t, response.MessageUnallowed, env.Message)
}

func TestHandlerListsAndLookups(t *testing.T) {
	r, repo := newTestRouter(admin(99))

	_, env := do(t, r, http.MethodGet, "/users/all", "")
	assert.False(t, env.Success)
	assert.Equal(t, response.MessageNotFound, env.Message)

	u := repo.seed(User{Name: "Caio", Email: "caio@example.com", RoleID: access.RoleStoreAdmin})

	_, env = do(t, r, http.MethodGet, "/users/role/2", "")
	assert.True(t, env.Success)

	_, env = do(t, r, http.MethodGet, "/users/404", "")
	assert.False(t, env.Success)
	assert.Equal(t, msgUserNotFound, env.Message)

	_, env = do(t, r, http.MethodGet, "/users/"+jsonID(u.ID), "")
	assert.True(t, env.Success)
}

func TestHandlerRecoveryMail(t *testing.T) {
	r, _ := newTestRouter(access.Anonymous)

	_, env := do(t, r, http.MethodPost, "/users/recover/password/mail", `{"email":"known@example.com"}`)
	assert.True(t, env.Success)
	assert.Equal(t, msgRecoveryMailSent, env.Message)

	_, env = do(t, r, http.MethodPost, "/users/recover/password/mail", "nobody@example.com")
	assert.False(t, env.Success)
	assert.Equal(t, msgNoAccountOnEmail, env.Message)

	_, env = do(t, r, http.MethodGet, "/users/recover/password/status?token=good", "")
	assert.True(t, env.Success)
	assert.Equal(t, true, env.Data)
}

func TestHandlerPasswordKeepsSurroundingSpaces(t *testing.T) {
	s, repo, _ := newTestService()
	r := chi.NewRouter()
	r.Use(as(admin(99)))
	NewHandler(s, noUploads{}, nil).RegisterRoutes(r, func(next http.Handler) http.Handler { return next })
	u := repo.seed(User{Email: "pw@example.com", RoleID: access.RoleCustomer})

	_, env := do(t, r, http.MethodPut, "/users/update/password/"+jsonID(u.ID), `{"password":" pw "}`)
	require.True(t, env.Success)
	assert.Equal(t, "hashed: pw ", repo.users[u.ID].PasswordHash)

	_, env = do(t, r, http.MethodPost, "/users/recover/password?token=good", `{"password":" pw "}`)
	require.True(t, env.Success)
	assert.Equal(t, " pw ", s.recovery.(*fakeRecovery).consumed["good"])
}

func TestHandlerDeleteBatch(t *testing.T) {
	r, repo := newTestRouter(admin(99))
	a := repo.seed(User{Email: "a@example.com"})
	b := repo.seed(User{Email: "b@example.com"})

	_, env := do(t, r, http.MethodDelete, "/users/delete", "["+jsonID(a.ID)+","+jsonID(b.ID)+"]")
	assert.True(t, env.Success)
	assert.False(t, repo.users[a.ID].Active)
	assert.False(t, repo.users[b.ID].Active)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

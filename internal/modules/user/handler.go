package user

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/modules/image"
	"github.com/georgemunganga/marketplace-api/internal/platform/httpx"
	"github.com/georgemunganga/marketplace-api/internal/response"
)

const (
	msgUserCreated      = "Usuário cadastrado com sucesso!"
	msgCustomerCreated  = "Cadastro concluído com sucesso! Faça login para utilizar o sistema."
	msgImageCreated     = "Imagem cadastrada com sucesso!"
	msgProfileUpdated   = "Perfil atualizado com sucesso!"
	msgPasswordUpdated  = "Senha atualizada com sucesso! Faça login para utilizar o sistema."
	msgRecoveryMailSent = "E-mail para recuperação de senha enviado com sucesso!"
	msgNoAccountOnEmail = "Nenhum cadastro relacionado a esse e-mail foi encontrado"
	msgUserDeleted      = "Usuário removido com sucesso!"
	msgUsersDeleted     = "Usuários removidos com sucesso!"
	msgAddressCreated   = "Endereço cadastrado com sucesso!"
	msgAddressUpdated   = "Endereço atualizado com sucesso!"
	msgAddressDeleted   = "Endereço removido com sucesso!"
	msgTokenRequired    = "Token de recuperação não informado."
)

// UploadOpener reads the multipart image of a request.
type UploadOpener interface {
	OpenUpload(r *http.Request) (*image.Upload, error)
}

// Handler exposes user and address HTTP endpoints.
type Handler struct {
	service Service
	uploads UploadOpener
	limit   func(http.Handler) http.Handler
}

// NewHandler creates the user handler. limit, when set, wraps the recovery
// e-mail endpoint.
func NewHandler(service Service, uploads UploadOpener, limit func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, uploads: uploads, limit: limit}
}

// RegisterRoutes mounts the user routes. Self-registration and password
// recovery are open; everything else sits behind authn.
func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/create/customer", h.createCustomer)
		r.Get("/recover/password/status", h.checkRecoveryToken)
		r.Post("/recover/password", h.recoverPassword)
		if h.limit != nil {
			r.With(h.limit).Post("/recover/password/mail", h.sendRecoveryEmail)
		} else {
			r.Post("/recover/password/mail", h.sendRecoveryEmail)
		}

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/create", h.createUser)
			r.Post("/create/image/{userId}", h.createProfileImage)
			r.Get("/all", h.getAllUsers)
			r.Get("/role/{roleId}", h.getUsersByRole)
			r.Get("/store/{storeId}", h.getUsersByStore)
			r.Get("/profile", h.getProfile)
			r.Get("/image/{userId}", h.getProfileImage)
			r.Get("/{userId}", h.getUser)
			r.Put("/update/password/{userId}", h.updatePassword)
			r.Put("/update/profile", h.updateProfile)
			r.Delete("/delete/{userId}", h.deleteUser)
			r.Delete("/delete", h.deleteUsers)

			r.Post("/{userId}/addresses", h.createAddress)
			r.Get("/{userId}/addresses", h.getAddresses)
			r.Put("/{userId}/addresses/{addressId}", h.updateAddress)
			r.Delete("/{userId}/addresses/{addressId}", h.deleteAddress)
		})
	})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, msgUserCreated, h.service.CreateUser)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, msgCustomerCreated, h.service.CreateCustomer)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, msg string,
	fn func(ctx context.Context, p access.Principal, req CreateUserRequest) (*User, error)) {
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	u, err := fn(r.Context(), access.FromContext(r.Context()), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, msg, u)
}

func (h *Handler) createProfileImage(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	up, err := h.uploads.OpenUpload(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.CreateProfileImage(r.Context(), access.FromContext(r.Context()), userID, up); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, msgImageCreated, "")
}

func (h *Handler) getAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetAllUsers(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Collection(w, users)
}

func (h *Handler) getUsersByRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := httpx.PathInt(r, "roleId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	users, err := h.service.GetUsersByRole(r.Context(), access.Role(roleID))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Collection(w, users)
}

func (h *Handler) getUsersByStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.PathInt64(r, "storeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	users, err := h.service.GetUsersByStore(r.Context(), storeID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Collection(w, users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	u, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, u)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetProfile(r.Context(), access.FromContext(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, u)
}

func (h *Handler) getProfileImage(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	img, err := h.service.GetProfileImage(r.Context(), access.FromContext(r.Context()), userID, r.URL.Query().Get("path"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, img)
}

func (h *Handler) updatePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	password, err := httpx.SecretBody(r, "password")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.UpdateUserPassword(r.Context(), access.FromContext(r.Context()), false, userID, password); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgPasswordUpdated)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.UpdateUserProfile(r.Context(), access.FromContext(r.Context()), req); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgProfileUpdated)
}

func (h *Handler) checkRecoveryToken(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		response.Error(w, r, apperr.InvalidToken(msgTokenRequired))
		return
	}
	valid, err := h.service.CheckRecoveryToken(r.Context(), token)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, valid)
}

func (h *Handler) recoverPassword(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		response.Error(w, r, apperr.InvalidToken(msgTokenRequired))
		return
	}
	password, err := httpx.SecretBody(r, "password")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.RecoverPassword(r.Context(), password, token); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgPasswordUpdated)
}

func (h *Handler) sendRecoveryEmail(w http.ResponseWriter, r *http.Request) {
	email, err := httpx.StringBody(r, "email")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	sent, err := h.service.SendRecoveryEmail(r.Context(), email)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if !sent {
		response.Rejected(w, msgNoAccountOnEmail, "")
		return
	}
	response.Done(w, msgRecoveryMailSent)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.DeleteUserProfile(r.Context(), access.FromContext(r.Context()), userID); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgUserDeleted)
}

func (h *Handler) deleteUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := httpx.Int64Slice(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.DeleteUsers(r.Context(), access.FromContext(r.Context()), ids); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgUsersDeleted)
}

// ── Address ───────────────────────────────────────────────────────────────────

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var a Address
	if err := httpx.DecodeJSON(r, &a); err != nil {
		response.Error(w, r, err)
		return
	}
	created, err := h.service.CreateAddress(r.Context(), access.FromContext(r.Context()), userID, a)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, msgAddressCreated, created)
}

func (h *Handler) getAddresses(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	addrs, err := h.service.GetAddresses(r.Context(), access.FromContext(r.Context()), userID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Collection(w, addrs)
}

func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	addressID, err := httpx.PathInt64(r, "addressId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var a Address
	if err := httpx.DecodeJSON(r, &a); err != nil {
		response.Error(w, r, err)
		return
	}
	a.ID = addressID
	if err := h.service.UpdateAddress(r.Context(), access.FromContext(r.Context()), userID, a); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgAddressUpdated)
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	addressID, err := httpx.PathInt64(r, "addressId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.DeleteAddress(r.Context(), access.FromContext(r.Context()), userID, addressID); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgAddressDeleted)
}

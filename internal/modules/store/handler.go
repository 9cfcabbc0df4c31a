package store

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/modules/image"
	"github.com/georgemunganga/marketplace-api/internal/platform/httpx"
	"github.com/georgemunganga/marketplace-api/internal/response"
)

const (
	msgStoreCreated = "Loja cadastrada com sucesso!"
	msgImageCreated = "Imagem cadastrada com sucesso!"
	msgUserLinked   = "Usuário vinculado à loja com sucesso!"
	msgStoreUpdated = "Loja atualizada com sucesso!"
	msgStoreDeleted = "Loja removida com sucesso!"
)

// UploadOpener reads the multipart image of a request.
type UploadOpener interface {
	OpenUpload(r *http.Request) (*image.Upload, error)
}

// Handler exposes store HTTP endpoints.
type Handler struct {
	service Service
	uploads UploadOpener
}

func NewHandler(service Service, uploads UploadOpener) *Handler {
	return &Handler{service: service, uploads: uploads}
}

// RegisterRoutes mounts the store routes. Reads are public; mutations sit
// behind authn.
func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	r.Route("/stores", func(r chi.Router) {
		r.Get("/all", h.getAllStores)
		r.Get("/user/{userId}", h.getStoresByUser)
		r.Get("/product/{productId}", h.getStoreByProduct)
		r.Get("/{storeId}", h.getStore)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/create/{userId}", h.createStore)
			r.Post("/create/image/{storeId}", h.createProfileImage)
			r.Post("/{storeId}/users/{userId}", h.linkUser)
			r.Put("/update", h.updateStore)
			r.Delete("/delete/{storeId}", h.deleteStore)
		})
	})
}

func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req CreateStoreRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	st, err := h.service.CreateStore(r.Context(), access.FromContext(r.Context()), userID, req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, msgStoreCreated, st)
}

func (h *Handler) createProfileImage(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.PathInt64(r, "storeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	up, err := h.uploads.OpenUpload(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.CreateProfileImage(r.Context(), access.FromContext(r.Context()), storeID, up); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, msgImageCreated, "")
}

func (h *Handler) linkUser(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.PathInt64(r, "storeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.LinkUser(r.Context(), access.FromContext(r.Context()), storeID, userID); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgUserLinked)
}

func (h *Handler) getAllStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.service.GetAllStores(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Collection(w, stores)
}

func (h *Handler) getStoresByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	stores, err := h.service.GetStoresByUser(r.Context(), userID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Collection(w, stores)
}

func (h *Handler) getStore(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "storeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	st, err := h.service.GetStoreByID(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, st)
}

func (h *Handler) getStoreByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.PathInt64(r, "productId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	st, err := h.service.GetStoreByProduct(r.Context(), productID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, st)
}

func (h *Handler) updateStore(w http.ResponseWriter, r *http.Request) {
	var req UpdateStoreRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.UpdateStore(r.Context(), access.FromContext(r.Context()), req); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgStoreUpdated)
}

func (h *Handler) deleteStore(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "storeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.DeleteStore(r.Context(), access.FromContext(r.Context()), id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgStoreDeleted)
}

package order

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/platform/httpx"
	"github.com/georgemunganga/marketplace-api/internal/response"
)

const (
	msgOrderCreated = "Pedido cadastrado com sucesso!"
	msgStatusSaved  = "Status do pedido atualizado com sucesso!"
)

// Handler exposes order HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterRoutes mounts the order routes behind authn, which rejects
// anonymous callers.
func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(authn)
		r.Post("/create", h.placeOrder)
		r.Get("/store/{storeId}", h.listStoreOrders)
		r.Get("/user/{userId}", h.listUserOrders)
		r.Get("/product/{productId}", h.listProductOrders)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}/status", h.updateStatus)
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	o, err := h.service.PlaceOrder(r.Context(), access.FromContext(r.Context()), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, msgOrderCreated, o)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	o, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), access.FromContext(r.Context()), id, req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Write(w, http.StatusOK, response.Envelope{Success: true, Message: msgStatusSaved, Data: o})
}

func (h *Handler) listStoreOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "storeId", h.service.ListStoreOrders)
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "userId", h.service.ListUserOrders)
}

func (h *Handler) listProductOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "productId", h.service.ListProductOrders)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, param string, fetch func(ctx context.Context, id int64) ([]*Order, error)) {
	id, err := httpx.PathInt64(r, param)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	orders, err := fetch(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Collection(w, orders)
}

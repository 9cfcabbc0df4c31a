package catalog

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/modules/image"
	"github.com/georgemunganga/marketplace-api/internal/platform/httpx"
	"github.com/georgemunganga/marketplace-api/internal/response"
)

const (
	msgProductCreated = "Produto cadastrado com sucesso!"
	msgImageCreated   = "Imagem cadastrada com sucesso!"
	msgProductUpdated = "Produto atualizado com sucesso!"
	msgProductDeleted = "Produto removido com sucesso!"
	msgTypeCreated    = "Tipo de produto cadastrado com sucesso!"
	msgTypeUpdated    = "Tipo de produto atualizado com sucesso!"
	msgTypeDeleted    = "Tipo de produto removido com sucesso!"
	msgSubtypeCreated = "Subtipo de produto cadastrado com sucesso!"
	msgSubtypeUpdated = "Subtipo de produto atualizado com sucesso!"
	msgSubtypeDeleted = "Subtipo de produto removido com sucesso!"
)

// UploadOpener reads the multipart image of a request.
type UploadOpener interface {
	OpenUpload(r *http.Request) (*image.Upload, error)
}

// Handler exposes product and taxonomy HTTP endpoints.
type Handler struct {
	service  Service
	taxonomy TaxonomyService
	members  MemberLister
	uploads  UploadOpener
}

func NewHandler(service Service, taxonomy TaxonomyService, members MemberLister, uploads UploadOpener) *Handler {
	return &Handler{service: service, taxonomy: taxonomy, members: members, uploads: uploads}
}

// RegisterRoutes mounts the catalog routes. Reads are public; mutations sit
// behind authn.
func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/quantity/{quantity}", h.getProducts)
		r.Get("/name/{name}/quantity/{quantity}", h.getProductsByName)
		r.Get("/store/{storeId}/quantity/{quantity}", h.getProductsByStore)
		r.Get("/subtype/{subtypeId}/quantity/{quantity}", h.getProductsBySubtype)
		r.Get("/types", h.listTypes)
		r.Get("/types/{typeId}/subtypes", h.listSubtypes)
		r.Get("/{productId}", h.getProduct)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/create", h.createProduct)
			r.Post("/create/image/{productId}", h.createProductImage)
			r.Put("/update", h.updateProduct)
			r.Delete("/{productId}", h.deleteProduct)
			r.Delete("/delete/{productId}", h.deleteProduct)

			r.Post("/types", h.createType)
			r.Put("/types/{typeId}", h.updateType)
			r.Delete("/types/{typeId}", h.deleteType)
			r.Post("/subtypes", h.createSubtype)
			r.Put("/subtypes/{subtypeId}", h.updateSubtype)
			r.Delete("/subtypes/{subtypeId}", h.deleteSubtype)
		})
	})
}

// createProduct checks store membership here; the service does not.
func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	members, err := h.members.Members(r.Context(), req.StoreID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	p := access.FromContext(r.Context())
	if err := access.Permit(p, access.OpCreateProduct, access.Target{Members: members}).Err(); err != nil {
		response.Error(w, r, err)
		return
	}
	prod, err := h.service.CreateProduct(r.Context(), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, msgProductCreated, prod)
}

func (h *Handler) createProductImage(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.PathInt64(r, "productId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	up, err := h.uploads.OpenUpload(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.CreateProductImage(r.Context(), access.FromContext(r.Context()), productID, up); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, msgImageCreated, "")
}

func (h *Handler) getProducts(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, func(ctx context.Context, quantity int) ([]*Product, error) {
		return h.service.GetProducts(ctx, quantity)
	})
}

func (h *Handler) getProductsByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.page(w, r, func(ctx context.Context, quantity int) ([]*Product, error) {
		return h.service.GetProductsByName(ctx, name, quantity)
	})
}

func (h *Handler) getProductsByStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.PathInt64(r, "storeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	h.page(w, r, func(ctx context.Context, quantity int) ([]*Product, error) {
		return h.service.GetProductsByStore(ctx, storeID, quantity)
	})
}

func (h *Handler) getProductsBySubtype(w http.ResponseWriter, r *http.Request) {
	subtypeID, err := httpx.PathInt64(r, "subtypeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	h.page(w, r, func(ctx context.Context, quantity int) ([]*Product, error) {
		return h.service.GetProductsBySubtype(ctx, subtypeID, quantity)
	})
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, quantity int) ([]*Product, error)) {
	quantity, err := httpx.PathInt(r, "quantity")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	products, err := fetch(r.Context(), quantity)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Collection(w, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "productId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	p, err := h.service.GetProductByID(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.UpdateProduct(r.Context(), access.FromContext(r.Context()), req); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgProductUpdated)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "productId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), access.FromContext(r.Context()), id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgProductDeleted)
}

// ---- Taxonomy ----

func (h *Handler) listTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.taxonomy.ListTypes(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Collection(w, types)
}

func (h *Handler) listSubtypes(w http.ResponseWriter, r *http.Request) {
	typeID, err := httpx.PathInt64(r, "typeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	subtypes, err := h.taxonomy.ListSubtypes(r.Context(), typeID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Collection(w, subtypes)
}

func (h *Handler) createType(w http.ResponseWriter, r *http.Request) {
	var t ProductType
	if err := httpx.DecodeJSON(r, &t); err != nil {
		response.Error(w, r, err)
		return
	}
	created, err := h.taxonomy.CreateType(r.Context(), access.FromContext(r.Context()), t)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, msgTypeCreated, created)
}

func (h *Handler) updateType(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "typeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var t ProductType
	if err := httpx.DecodeJSON(r, &t); err != nil {
		response.Error(w, r, err)
		return
	}
	t.ID = id
	if err := h.taxonomy.UpdateType(r.Context(), access.FromContext(r.Context()), t); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgTypeUpdated)
}

func (h *Handler) deleteType(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "typeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.taxonomy.DeleteType(r.Context(), access.FromContext(r.Context()), id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgTypeDeleted)
}

func (h *Handler) createSubtype(w http.ResponseWriter, r *http.Request) {
	var st ProductSubtype
	if err := httpx.DecodeJSON(r, &st); err != nil {
		response.Error(w, r, err)
		return
	}
	created, err := h.taxonomy.CreateSubtype(r.Context(), access.FromContext(r.Context()), st)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, msgSubtypeCreated, created)
}

func (h *Handler) updateSubtype(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "subtypeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var st ProductSubtype
	if err := httpx.DecodeJSON(r, &st); err != nil {
		response.Error(w, r, err)
		return
	}
	st.ID = id
	if err := h.taxonomy.UpdateSubtype(r.Context(), access.FromContext(r.Context()), st); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgSubtypeUpdated)
}

func (h *Handler) deleteSubtype(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(r, "subtypeId")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if err := h.taxonomy.DeleteSubtype(r.Context(), access.FromContext(r.Context()), id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Done(w, msgSubtypeDeleted)
}

package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/modules/image"
	"github.com/georgemunganga/marketplace-api/internal/platform/logger"
)

// MaxPageSize caps every product listing.
const MaxPageSize = 100

const (
	msgProductNotFound = "Produto não encontrado!"
	msgSubtypeNotFound = "Subtipo de produto não encontrado!"
	msgInvalidQuantity = "A quantidade deve ser maior que zero."
	msgNameRequired    = "O nome do produto é obrigatório."
	msgNegativePrice   = "O preço não pode ser negativo."
	msgNegativeStock   = "A quantidade em estoque não pode ser negativa."
)

// imageWorkers bounds the files read concurrently for one listing.
const imageWorkers = 8

// Service defines product lifecycle and catalog query logic.
type Service interface {
	// CreateProduct trusts the caller to have checked store membership.
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	CreateProductImage(ctx context.Context, p access.Principal, productID int64, up *image.Upload) error

	GetProducts(ctx context.Context, quantity int) ([]*Product, error)
	GetProductsByName(ctx context.Context, name string, quantity int) ([]*Product, error)
	GetProductsByStore(ctx context.Context, storeID int64, quantity int) ([]*Product, error)
	GetProductsBySubtype(ctx context.Context, subtypeID int64, quantity int) ([]*Product, error)
	GetProductByID(ctx context.Context, id int64) (*Product, error)

	UpdateProduct(ctx context.Context, p access.Principal, req UpdateProductRequest) error
	// DeleteProduct soft-deletes the product once all orders containing it are finished.
	DeleteProduct(ctx context.Context, p access.Principal, id int64) error
}

// MemberLister returns the members of a store.
type MemberLister interface {
	Members(ctx context.Context, storeID int64) ([]access.Member, error)
}

// OrderGuard reports whether a product may be deactivated.
type OrderGuard interface {
	Product(ctx context.Context, productID int64) error
}

// ImageStore is the part of the image storage products need.
type ImageStore interface {
	SaveUpload(up *image.Upload, kind image.Kind, ownerID int64) (string, error)
	DataURI(path string) (string, error)
}

type service struct {
	repo     Repository
	taxonomy TaxonomyRepository
	members  MemberLister
	guard    OrderGuard
	images   ImageStore
	now      func() time.Time
}

// NewService creates a new catalog service.
func NewService(repo Repository, taxonomy TaxonomyRepository, members MemberLister, guard OrderGuard, images ImageStore) Service {
	return &service{
		repo:     repo,
		taxonomy: taxonomy,
		members:  members,
		guard:    guard,
		images:   images,
		now:      time.Now,
	}
}

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	p := &Product{
		StoreID:       req.StoreID,
		SubtypeID:     req.SubtypeID,
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		Active:        true,
		CreationDate:  s.now(),
	}
	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}
	err := s.repo.CreateProduct(ctx, p)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(msgSubtypeNotFound)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	p.ImageList = []string{}
	logger.From(ctx).Info("product created", zap.Int64("product_id", p.ID), zap.Int64("store_id", p.StoreID))
	return p, nil
}

func (s *service) CreateProductImage(ctx context.Context, p access.Principal, productID int64, up *image.Upload) error {
	defer up.Body.Close()
	prod, err := s.get(ctx, productID)
	if err != nil {
		return err
	}
	if err := s.permit(ctx, p, access.OpUpdateProduct, prod.StoreID); err != nil {
		return err
	}
	path, err := s.images.SaveUpload(up, image.KindProduct, productID)
	if err != nil {
		return err
	}
	return s.notFound(s.repo.AddImage(ctx, productID, path, s.now()))
}

func (s *service) GetProducts(ctx context.Context, quantity int) ([]*Product, error) {
	return s.list(ctx, ProductFilter{}, quantity)
}

func (s *service) GetProductsByName(ctx context.Context, name string, quantity int) ([]*Product, error) {
	return s.list(ctx, ProductFilter{Name: strings.TrimSpace(name)}, quantity)
}

func (s *service) GetProductsByStore(ctx context.Context, storeID int64, quantity int) ([]*Product, error) {
	return s.list(ctx, ProductFilter{StoreID: storeID}, quantity)
}

func (s *service) GetProductsBySubtype(ctx context.Context, subtypeID int64, quantity int) ([]*Product, error) {
	return s.list(ctx, ProductFilter{SubtypeID: subtypeID}, quantity)
}

func (s *service) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.withImages(ctx, []*Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) UpdateProduct(ctx context.Context, p access.Principal, req UpdateProductRequest) error {
	old, err := s.get(ctx, req.ID)
	if err != nil {
		return err
	}
	if err := s.permit(ctx, p, access.OpUpdateProduct, old.StoreID); err != nil {
		return err
	}

	now := s.now()
	prod := *old
	prod.SubtypeID = req.SubtypeID
	prod.Name = strings.TrimSpace(req.Name)
	prod.Description = strings.TrimSpace(req.Description)
	prod.Price = req.Price
	prod.StockQuantity = req.StockQuantity
	prod.LastUpdate = &now
	if err := s.validate(ctx, &prod); err != nil {
		return err
	}
	return s.notFound(s.repo.UpdateProduct(ctx, &prod))
}

func (s *service) DeleteProduct(ctx context.Context, p access.Principal, id int64) error {
	prod, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.permit(ctx, p, access.OpDeleteProduct, prod.StoreID); err != nil {
		return err
	}
	if err := s.guard.Product(ctx, id); err != nil {
		return err
	}
	if err := s.notFound(s.repo.DeleteProduct(ctx, id, s.now())); err != nil {
		return err
	}
	logger.From(ctx).Info("product deleted", zap.Int64("product_id", id))
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *service) list(ctx context.Context, f ProductFilter, quantity int) ([]*Product, error) {
	if quantity < 1 {
		return nil, apperr.Invalid(msgInvalidQuantity)
	}
	if quantity > MaxPageSize {
		quantity = MaxPageSize
	}
	products, err := s.repo.ListProducts(ctx, f, quantity)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if err := s.withImages(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// withImages replaces the stored paths of every product with data URIs.
// Paths are never written back.
func (s *service) withImages(ctx context.Context, products []*Product) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(imageWorkers)
	for _, p := range products {
		p := p
		p.ImageList = make([]string, len(p.ImagePaths))
		for i, path := range p.ImagePaths {
			i, path := i, path
			g.Go(func() error {
				uri, err := s.images.DataURI(path)
				if err != nil {
					return err
				}
				p.ImageList[i] = uri
				return nil
			})
		}
	}
	return g.Wait()
}

func (s *service) validate(ctx context.Context, p *Product) error {
	switch {
	case p.Name == "":
		return apperr.Invalid(msgNameRequired)
	case p.Price < 0:
		return apperr.Invalid(msgNegativePrice)
	case p.StockQuantity < 0:
		return apperr.Invalid(msgNegativeStock)
	}
	_, err := s.taxonomy.GetSubtype(ctx, p.SubtypeID)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(msgSubtypeNotFound)
	}
	return apperr.Unexpected(err)
}

func (s *service) permit(ctx context.Context, p access.Principal, op access.Operation, storeID int64) error {
	members, err := s.members.Members(ctx, storeID)
	if err != nil {
		return err
	}
	return access.Permit(p, op, access.Target{Members: members}).Err()
}

func (s *service) get(ctx context.Context, id int64) (*Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(msgProductNotFound)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return p, nil
}

func (s *service) notFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(msgProductNotFound)
	}
	return apperr.Unexpected(err)
}

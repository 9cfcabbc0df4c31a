package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no active row matches.
var ErrNotFound = errors.New("catalog: not found")

// ProductFilter narrows a product listing. Zero fields do not filter.
type ProductFilter struct {
	Name      string
	StoreID   int64
	SubtypeID int64
}

// Repository defines product storage. Listings return active products,
// newest first with ties broken by id, at most limit of them.
type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProductByID(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, f ProductFilter, limit int) ([]*Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id int64, at time.Time) error
	AddImage(ctx context.Context, productID int64, path string, at time.Time) error
}

// TaxonomyRepository defines product type and subtype storage.
type TaxonomyRepository interface {
	CreateType(ctx context.Context, t *ProductType) error
	GetType(ctx context.Context, id int64) (*ProductType, error)
	ListTypes(ctx context.Context) ([]*ProductType, error)
	UpdateType(ctx context.Context, t *ProductType) error
	DeleteType(ctx context.Context, id int64, at time.Time) error

	CreateSubtype(ctx context.Context, st *ProductSubtype) error
	GetSubtype(ctx context.Context, id int64) (*ProductSubtype, error)
	ListSubtypes(ctx context.Context, typeID int64) ([]*ProductSubtype, error)
	UpdateSubtype(ctx context.Context, st *ProductSubtype) error
	DeleteSubtype(ctx context.Context, id int64, at time.Time) error

	CountActiveSubtypes(ctx context.Context, typeID int64) (int, error)
	CountActiveProducts(ctx context.Context, subtypeID int64) (int, error)
}

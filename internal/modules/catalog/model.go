package catalog

import "time"

// Product belongs to exactly one store for its whole life. ImagePaths is the
// stored form; ImageList carries the same images as data URIs on reads.
type Product struct {
	ID            int64      `json:"productId"`
	StoreID       int64      `json:"storeId"`
	SubtypeID     int64      `json:"productSubtypeId"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	StockQuantity int        `json:"stockQuantity"`
	Active        bool       `json:"active"`
	ImagePaths    []string   `json:"-"`
	ImageList     []string   `json:"imageList"`
	CreationDate  time.Time  `json:"-"`
	LastUpdate    *time.Time `json:"-"`
}

type CreateProductRequest struct {
	StoreID       int64   `json:"storeId"`
	SubtypeID     int64   `json:"productSubtypeId"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stockQuantity"`
}

// UpdateProductRequest carries the mutable product fields. The store never
// changes.
type UpdateProductRequest struct {
	ID            int64   `json:"productId"`
	SubtypeID     int64   `json:"productSubtypeId"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stockQuantity"`
}

// ProductType is the top level of the taxonomy.
type ProductType struct {
	ID           int64      `json:"productTypeId"`
	Name         string     `json:"name"`
	Active       bool       `json:"active"`
	CreationDate time.Time  `json:"-"`
	LastUpdate   *time.Time `json:"-"`
}

// ProductSubtype refines a ProductType; products reference subtypes.
type ProductSubtype struct {
	ID           int64      `json:"productSubtypeId"`
	TypeID       int64      `json:"productTypeId"`
	Name         string     `json:"name"`
	Active       bool       `json:"active"`
	CreationDate time.Time  `json:"-"`
	LastUpdate   *time.Time `json:"-"`
}

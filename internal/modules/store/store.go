package store

import "time"

// Store is a tenant. ProfileImagePath stays on the server; reads carry the
// image itself in ProfileImage.
type Store struct {
	ID               int64      `json:"storeId"`
	Name             string     `json:"name"`
	ProfileImagePath string     `json:"-"`
	ProfileImage     string     `json:"profileImage"`
	Active           bool       `json:"active"`
	CreationDate     time.Time  `json:"-"`
	LastUpdate       *time.Time `json:"-"`
}

type CreateStoreRequest struct {
	Name string `json:"name"`
}

type UpdateStoreRequest struct {
	ID   int64  `json:"storeId"`
	Name string `json:"name"`
}

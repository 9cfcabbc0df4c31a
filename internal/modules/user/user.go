package user

import (
	"time"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
)

// User is a platform account. The password hash, image path and audit
// dates never leave the server; ProfileImage carries the base64 image on
// reads that ask for it.
type User struct {
	ID               int64       `json:"userId"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	PasswordHash     string      `json:"-"`
	RoleID           access.Role `json:"roleId"`
	ProfileImagePath string      `json:"-"`
	ProfileImage     string      `json:"profileImage,omitempty"`
	Active           bool        `json:"active"`
	CreationDate     time.Time   `json:"-"`
	LastUpdate       *time.Time  `json:"-"`
}

// CreateUserRequest is the body of both create endpoints.
type CreateUserRequest struct {
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Password         string      `json:"password"`
	RoleID           access.Role `json:"roleId"`
	ProfileImagePath string      `json:"-"`
}

// UpdateProfileRequest carries the mutable profile fields.
type UpdateProfileRequest struct {
	ID     int64       `json:"userId"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	RoleID access.Role `json:"roleId"`
}

// Address is a postal address owned by a user.
type Address struct {
	ID           int64      `json:"addressId"`
	UserID       int64      `json:"userId"`
	Country      string     `json:"country"`
	PostalCode   string     `json:"postalCode"`
	Address      string     `json:"address"`
	Number       int        `json:"number"`
	StateCode    string     `json:"stateCode"`
	City         string     `json:"city"`
	District     string     `json:"district"`
	Complement   string     `json:"complement"`
	Active       bool       `json:"active"`
	CreationDate time.Time  `json:"-"`
	LastUpdate   *time.Time `json:"-"`
}

package user

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/modules/auth"
	"github.com/georgemunganga/marketplace-api/internal/modules/image"
	"github.com/georgemunganga/marketplace-api/internal/platform/logger"
)

const (
	msgUserNotFound     = "Usuário não encontrado!"
	msgEmailInUse       = "Já existe um usuário cadastrado com este e-mail."
	msgEmailRequired    = "O e-mail é obrigatório."
	msgPasswordRequired = "A senha é obrigatória."
	msgInvalidRole      = "Perfil de usuário inválido."
	msgInvalidImagePath = "Caminho de imagem inválido."
	msgAddressNotFound  = "Endereço não encontrado!"
)

// PasswordHasher hashes plaintext passwords before they are stored.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// ImageStore is the part of the image storage the user lifecycle needs.
type ImageStore interface {
	SaveUpload(up *image.Upload, kind image.Kind, ownerID int64) (string, error)
	Base64(path string) (string, error)
	Owns(kind image.Kind, path string) bool
	UserDefault() string
}

// Recovery runs the password recovery token flow.
type Recovery interface {
	SendRecoveryEmail(ctx context.Context, email string) (bool, error)
	CheckRecoveryToken(ctx context.Context, token string) (bool, error)
	ConsumeRecoveryToken(ctx context.Context, token, newPassword string) error
}

type service struct {
	repo     Repository
	hasher   PasswordHasher
	images   ImageStore
	recovery Recovery
	now      func() time.Time
}

// NewService creates a new user service.
func NewService(repo Repository, hasher PasswordHasher, images ImageStore, recovery Recovery) Service {
	return &service{repo: repo, hasher: hasher, images: images, recovery: recovery, now: time.Now}
}

func (s *service) CreateUser(ctx context.Context, p access.Principal, req CreateUserRequest) (*User, error) {
	if err := access.Permit(p, access.OpCreateUser, access.Target{Role: req.RoleID}).Err(); err != nil {
		return nil, err
	}
	return s.create(ctx, req)
}

func (s *service) CreateCustomer(ctx context.Context, p access.Principal, req CreateUserRequest) (*User, error) {
	if err := access.Permit(p, access.OpCreateCustomer, access.Target{Role: req.RoleID}).Err(); err != nil {
		return nil, err
	}
	return s.create(ctx, req)
}

func (s *service) create(ctx context.Context, req CreateUserRequest) (*User, error) {
	email := auth.NormalizeEmail(req.Email)
	switch {
	case email == "":
		return nil, apperr.Invalid(msgEmailRequired)
	case req.Password == "":
		return nil, apperr.Invalid(msgPasswordRequired)
	case !req.RoleID.Valid():
		return nil, apperr.Invalid(msgInvalidRole)
	}

	exists, err := s.repo.CheckUserByEmail(ctx, email, false)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if exists {
		return nil, apperr.Duplicate(msgEmailInUse)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.Unexpectedf(err, "hash password")
	}
	imagePath := req.ProfileImagePath
	if imagePath == "" {
		imagePath = s.images.UserDefault()
	}

	u := &User{
		Name:             strings.TrimSpace(req.Name),
		Email:            email,
		PasswordHash:     hash,
		RoleID:           req.RoleID,
		ProfileImagePath: imagePath,
		Active:           true,
		CreationDate:     s.now(),
	}
	err = s.repo.CreateUser(ctx, u)
	if errors.Is(err, ErrEmailInUse) {
		return nil, apperr.Duplicate(msgEmailInUse)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	logger.From(ctx).Info("user created", zap.Int64("user_id", u.ID), zap.Stringer("role", u.RoleID))
	return u, nil
}

func (s *service) CreateProfileImage(ctx context.Context, p access.Principal, userID int64, up *image.Upload) error {
	defer up.Body.Close()
	if err := access.Permit(p, access.OpUpdateUserImage, access.Target{UserID: userID}).Err(); err != nil {
		return err
	}
	if _, err := s.get(ctx, userID); err != nil {
		return err
	}
	path, err := s.images.SaveUpload(up, image.KindUser, userID)
	if err != nil {
		return err
	}
	return s.notFound(s.repo.UpdateProfileImage(ctx, userID, path, s.now()), msgUserNotFound)
}

func (s *service) GetAllUsers(ctx context.Context) ([]*User, error) {
	return wrapList(s.repo.ListUsers(ctx))
}

func (s *service) GetUsersByRole(ctx context.Context, role access.Role) ([]*User, error) {
	return wrapList(s.repo.ListUsersByRole(ctx, role))
}

func (s *service) GetUsersByStore(ctx context.Context, storeID int64) ([]*User, error) {
	return wrapList(s.repo.ListUsersByStore(ctx, storeID))
}

func (s *service) GetUserByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withImage(u)
}

func (s *service) GetProfile(ctx context.Context, p access.Principal) (*User, error) {
	if !p.Authenticated() {
		return nil, apperr.Unauthorized(access.ReasonNotAllowed)
	}
	return s.GetUserByID(ctx, p.UserID)
}

func (s *service) GetProfileImage(ctx context.Context, p access.Principal, userID int64, path string) (string, error) {
	if err := access.Permit(p, access.OpReadProfileImage, access.Target{UserID: userID}).Err(); err != nil {
		return "", err
	}
	if !s.images.Owns(image.KindUser, path) {
		return "", apperr.Invalid(msgInvalidImagePath)
	}
	return s.images.Base64(path)
}

func (s *service) UpdateUserProfile(ctx context.Context, p access.Principal, req UpdateProfileRequest) error {
	old, err := s.get(ctx, req.ID)
	if err != nil {
		return err
	}
	if err := access.Permit(p, access.OpUpdateUserProfile, access.Target{UserID: req.ID, Role: old.RoleID}).Err(); err != nil {
		return err
	}

	email := auth.NormalizeEmail(req.Email)
	if email == "" {
		return apperr.Invalid(msgEmailRequired)
	}
	if email != old.Email {
		inUse, err := s.repo.CheckUserByEmail(ctx, email, false)
		if err != nil {
			return apperr.Unexpected(err)
		}
		if inUse {
			return apperr.Duplicate(msgEmailInUse)
		}
	}

	// only a system admin may change roles
	role := old.RoleID
	if p.Role == access.RoleSystemAdmin && req.RoleID.Valid() {
		role = req.RoleID
	}

	now := s.now()
	u := *old
	u.Name = strings.TrimSpace(req.Name)
	u.Email = email
	u.RoleID = role
	u.LastUpdate = &now

	err = s.repo.UpdateUser(ctx, &u)
	if errors.Is(err, ErrEmailInUse) {
		return apperr.Duplicate(msgEmailInUse)
	}
	return s.notFound(err, msgUserNotFound)
}

func (s *service) UpdateUserPassword(ctx context.Context, p access.Principal, forceReset bool, userID int64, password string) error {
	if password == "" {
		return apperr.Invalid(msgPasswordRequired)
	}
	if _, err := s.get(ctx, userID); err != nil {
		return err
	}
	if !forceReset {
		if err := access.Permit(p, access.OpUpdateUserPassword, access.Target{UserID: userID}).Err(); err != nil {
			return err
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return apperr.Unexpectedf(err, "hash password")
	}
	if err := s.notFound(s.repo.UpdatePassword(ctx, userID, hash, s.now()), msgUserNotFound); err != nil {
		return err
	}
	logger.From(ctx).Info("password changed", zap.Int64("user_id", userID), zap.Bool("force_reset", forceReset))
	return nil
}

func (s *service) SendRecoveryEmail(ctx context.Context, email string) (bool, error) {
	return s.recovery.SendRecoveryEmail(ctx, email)
}

func (s *service) CheckRecoveryToken(ctx context.Context, token string) (bool, error) {
	return s.recovery.CheckRecoveryToken(ctx, token)
}

func (s *service) RecoverPassword(ctx context.Context, password, token string) error {
	return s.recovery.ConsumeRecoveryToken(ctx, token, password)
}

func (s *service) DeleteUserProfile(ctx context.Context, p access.Principal, id int64) error {
	return s.DeleteUsers(ctx, p, []int64{id})
}

func (s *service) DeleteUsers(ctx context.Context, p access.Principal, ids []int64) error {
	for _, id := range ids {
		if err := access.Permit(p, access.OpDeleteUser, access.Target{UserID: id}).Err(); err != nil {
			return err
		}
		if _, err := s.get(ctx, id); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteUsers(ctx, ids, s.now()); err != nil {
		return apperr.Unexpected(err)
	}
	logger.From(ctx).Info("users deleted", zap.Int64s("user_ids", ids))
	return nil
}

// ── Address ───────────────────────────────────────────────────────────────────

func (s *service) CreateAddress(ctx context.Context, p access.Principal, userID int64, a Address) (*Address, error) {
	if err := s.ownAddresses(ctx, p, userID); err != nil {
		return nil, err
	}
	if err := validateAddress(&a); err != nil {
		return nil, err
	}
	a.ID = 0
	a.UserID = userID
	a.Active = true
	a.CreationDate = s.now()
	a.LastUpdate = nil
	if err := s.repo.CreateAddress(ctx, &a); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return &a, nil
}

func (s *service) GetAddresses(ctx context.Context, p access.Principal, userID int64) ([]*Address, error) {
	if err := s.ownAddresses(ctx, p, userID); err != nil {
		return nil, err
	}
	addrs, err := s.repo.ListAddresses(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return addrs, nil
}

func (s *service) UpdateAddress(ctx context.Context, p access.Principal, userID int64, a Address) error {
	old, err := s.address(ctx, p, userID, a.ID)
	if err != nil {
		return err
	}
	if err := validateAddress(&a); err != nil {
		return err
	}
	now := s.now()
	a.UserID = old.UserID
	a.Active = old.Active
	a.CreationDate = old.CreationDate
	a.LastUpdate = &now
	return s.notFound(s.repo.UpdateAddress(ctx, &a), msgAddressNotFound)
}

func (s *service) DeleteAddress(ctx context.Context, p access.Principal, userID, addressID int64) error {
	if _, err := s.address(ctx, p, userID, addressID); err != nil {
		return err
	}
	return s.notFound(s.repo.DeleteAddress(ctx, addressID, s.now()), msgAddressNotFound)
}

func (s *service) ownAddresses(ctx context.Context, p access.Principal, userID int64) error {
	if err := access.Permit(p, access.OpManageAddress, access.Target{UserID: userID}).Err(); err != nil {
		return err
	}
	_, err := s.get(ctx, userID)
	return err
}

// address loads addressID and checks it belongs to userID.
func (s *service) address(ctx context.Context, p access.Principal, userID, addressID int64) (*Address, error) {
	if err := s.ownAddresses(ctx, p, userID); err != nil {
		return nil, err
	}
	a, err := s.repo.GetAddress(ctx, addressID)
	if errors.Is(err, ErrNotFound) || (err == nil && a.UserID != userID) {
		return nil, apperr.NotFound(msgAddressNotFound)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return a, nil
}

func validateAddress(a *Address) error {
	a.Country = strings.TrimSpace(a.Country)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Address = strings.TrimSpace(a.Address)
	a.StateCode = strings.ToUpper(strings.TrimSpace(a.StateCode))
	a.City = strings.TrimSpace(a.City)
	a.District = strings.TrimSpace(a.District)
	a.Complement = strings.TrimSpace(a.Complement)

	fields := []struct {
		name     string
		value    string
		min, max int
	}{
		{"country", a.Country, 2, 200},
		{"postalCode", a.PostalCode, 8, 8},
		{"address", a.Address, 2, 500},
		{"stateCode", a.StateCode, 2, 2},
		{"city", a.City, 2, 200},
		{"district", a.District, 2, 200},
		{"complement", a.Complement, 2, 200},
	}
	for _, f := range fields {
		n := utf8.RuneCountInString(f.value)
		if n < f.min || n > f.max {
			return apperr.Invalid("Campo inválido: " + f.name + ".")
		}
	}
	if a.Number <= 0 {
		return apperr.Invalid("Campo inválido: number.")
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *service) get(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, id, false)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return u, nil
}

func (s *service) withImage(u *User) (*User, error) {
	img, err := s.images.Base64(u.ProfileImagePath)
	if err != nil {
		return nil, err
	}
	u.ProfileImage = img
	return u, nil
}

func (s *service) notFound(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Unexpected(err)
}

func wrapList(users []*User, err error) ([]*User, error) {
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return users, nil
}

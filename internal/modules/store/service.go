package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/modules/image"
	"github.com/georgemunganga/marketplace-api/internal/platform/logger"
)

const (
	msgStoreNotFound = "Loja não encontrada!"
	msgUserNotFound  = "Usuário não encontrado!"
	msgNameRequired  = "O nome da loja é obrigatório."
)

// Service defines store lifecycle and membership logic.
type Service interface {
	// CreateStore creates a store owned by userID, who must be the principal.
	CreateStore(ctx context.Context, p access.Principal, userID int64, req CreateStoreRequest) (*Store, error)
	CreateProfileImage(ctx context.Context, p access.Principal, storeID int64, up *image.Upload) error
	LinkUser(ctx context.Context, p access.Principal, storeID, userID int64) error

	GetAllStores(ctx context.Context) ([]*Store, error)
	GetStoresByUser(ctx context.Context, userID int64) ([]*Store, error)
	GetStoreByID(ctx context.Context, id int64) (*Store, error)
	GetStoreByProduct(ctx context.Context, productID int64) (*Store, error)

	UpdateStore(ctx context.Context, p access.Principal, req UpdateStoreRequest) error
	// DeleteStore soft-deletes the store once all of its orders are finished.
	DeleteStore(ctx context.Context, p access.Principal, id int64) error

	// Members returns the active members of storeID.
	Members(ctx context.Context, storeID int64) ([]access.Member, error)
}

// ImageStore is the part of the image storage stores need.
type ImageStore interface {
	SaveUpload(up *image.Upload, kind image.Kind, ownerID int64) (string, error)
	Base64(path string) (string, error)
	StoreDefault() string
}

// OrderGuard reports whether a store may be deactivated.
type OrderGuard interface {
	Store(ctx context.Context, storeID int64) error
}

type service struct {
	repo   Repository
	images ImageStore
	guard  OrderGuard
	now    func() time.Time
}

// NewService creates a new store service.
func NewService(repo Repository, images ImageStore, guard OrderGuard) Service {
	return &service{repo: repo, images: images, guard: guard, now: time.Now}
}

func (s *service) CreateStore(ctx context.Context, p access.Principal, userID int64, req CreateStoreRequest) (*Store, error) {
	if !p.Is(userID) {
		return nil, apperr.Unauthorized(access.ReasonNotAllowed)
	}
	if err := access.Permit(p, access.OpCreateStore, access.Target{UserID: userID}).Err(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Invalid(msgNameRequired)
	}

	st := &Store{
		Name:             name,
		ProfileImagePath: s.images.StoreDefault(),
		Active:           true,
		CreationDate:     s.now(),
	}
	err := s.repo.CreateStore(ctx, st, userID)
	if errors.Is(err, ErrUnknownUser) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	logger.From(ctx).Info("store created", zap.Int64("store_id", st.ID), zap.Int64("owner_id", userID))
	return st, nil
}

func (s *service) CreateProfileImage(ctx context.Context, p access.Principal, storeID int64, up *image.Upload) error {
	defer up.Body.Close()
	if _, err := s.get(ctx, storeID); err != nil {
		return err
	}
	if err := s.permit(ctx, p, access.OpUpdateStoreImage, storeID); err != nil {
		return err
	}
	path, err := s.images.SaveUpload(up, image.KindStore, storeID)
	if err != nil {
		return err
	}
	return s.notFound(s.repo.UpdateProfileImage(ctx, storeID, path, s.now()))
}

func (s *service) LinkUser(ctx context.Context, p access.Principal, storeID, userID int64) error {
	if _, err := s.get(ctx, storeID); err != nil {
		return err
	}
	if err := s.permit(ctx, p, access.OpLinkStoreUser, storeID); err != nil {
		return err
	}
	err := s.repo.RelateUser(ctx, storeID, userID)
	if errors.Is(err, ErrUnknownUser) {
		return apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return apperr.Unexpected(err)
	}
	logger.From(ctx).Info("store member linked", zap.Int64("store_id", storeID), zap.Int64("user_id", userID))
	return nil
}

func (s *service) GetAllStores(ctx context.Context) ([]*Store, error) {
	return s.withImages(s.repo.ListStores(ctx))
}

func (s *service) GetStoresByUser(ctx context.Context, userID int64) ([]*Store, error) {
	return s.withImages(s.repo.ListStoresByUser(ctx, userID))
}

func (s *service) GetStoreByID(ctx context.Context, id int64) (*Store, error) {
	st, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.withImage(st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *service) GetStoreByProduct(ctx context.Context, productID int64) (*Store, error) {
	st, err := s.repo.GetStoreByProduct(ctx, productID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(msgStoreNotFound)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if err := s.withImage(st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *service) UpdateStore(ctx context.Context, p access.Principal, req UpdateStoreRequest) error {
	old, err := s.get(ctx, req.ID)
	if err != nil {
		return err
	}
	if err := s.permit(ctx, p, access.OpUpdateStore, req.ID); err != nil {
		return err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperr.Invalid(msgNameRequired)
	}

	now := s.now()
	st := *old
	st.Name = name
	st.LastUpdate = &now
	return s.notFound(s.repo.UpdateStore(ctx, &st))
}

func (s *service) DeleteStore(ctx context.Context, p access.Principal, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.permit(ctx, p, access.OpDeleteStore, id); err != nil {
		return err
	}
	if err := s.guard.Store(ctx, id); err != nil {
		return err
	}
	if err := s.notFound(s.repo.DeleteStore(ctx, id, s.now())); err != nil {
		return err
	}
	logger.From(ctx).Info("store deleted", zap.Int64("store_id", id))
	return nil
}

func (s *service) Members(ctx context.Context, storeID int64) ([]access.Member, error) {
	members, err := s.repo.GetMembers(ctx, storeID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return members, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *service) permit(ctx context.Context, p access.Principal, op access.Operation, storeID int64) error {
	members, err := s.Members(ctx, storeID)
	if err != nil {
		return err
	}
	return access.Permit(p, op, access.Target{Members: members}).Err()
}

func (s *service) get(ctx context.Context, id int64) (*Store, error) {
	st, err := s.repo.GetStoreByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(msgStoreNotFound)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return st, nil
}

func (s *service) withImage(st *Store) error {
	img, err := s.images.Base64(st.ProfileImagePath)
	if err != nil {
		return err
	}
	st.ProfileImage = img
	return nil
}

func (s *service) withImages(stores []*Store, err error) ([]*Store, error) {
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	for _, st := range stores {
		if err := s.withImage(st); err != nil {
			return nil, err
		}
	}
	return stores, nil
}

func (s *service) notFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(msgStoreNotFound)
	}
	return apperr.Unexpected(err)
}

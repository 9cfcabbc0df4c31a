package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/platform/logger"
)

const (
	msgTypeNotFound      = "Tipo de produto não encontrado!"
	msgTypeNameRequired  = "O nome do tipo de produto é obrigatório."
	msgTypeHasSubtypes   = "Não é possível remover um tipo de produto com subtipos ativos."
	msgSubtypeHasProduct = "Não é possível remover um subtipo com produtos ativos."

	typesKey      = "types"
	subtypePrefix = "subtypes:"
)

// TaxonomyService manages product types and subtypes. Reads are served from
// an in-process cache that every mutation flushes.
type TaxonomyService interface {
	ListTypes(ctx context.Context) ([]*ProductType, error)
	ListSubtypes(ctx context.Context, typeID int64) ([]*ProductSubtype, error)

	CreateType(ctx context.Context, p access.Principal, t ProductType) (*ProductType, error)
	UpdateType(ctx context.Context, p access.Principal, t ProductType) error
	DeleteType(ctx context.Context, p access.Principal, id int64) error

	CreateSubtype(ctx context.Context, p access.Principal, st ProductSubtype) (*ProductSubtype, error)
	UpdateSubtype(ctx context.Context, p access.Principal, st ProductSubtype) error
	DeleteSubtype(ctx context.Context, p access.Principal, id int64) error
}

type taxonomyService struct {
	repo  TaxonomyRepository
	cache *gocache.Cache
	sf    singleflight.Group
	now   func() time.Time

	// gen counts flushes; a load started under an older generation is not cached.
	mu  sync.Mutex
	gen uint64
}

// NewTaxonomyService creates the taxonomy service; cached reads live for ttl.
func NewTaxonomyService(repo TaxonomyRepository, ttl time.Duration) TaxonomyService {
	return &taxonomyService{
		repo:  repo,
		cache: gocache.New(ttl, time.Minute),
		now:   time.Now,
	}
}

func (s *taxonomyService) ListTypes(ctx context.Context) ([]*ProductType, error) {
	v, err := s.cached(typesKey, func() (any, error) { return s.repo.ListTypes(ctx) })
	if err != nil {
		return nil, err
	}
	return v.([]*ProductType), nil
}

func (s *taxonomyService) ListSubtypes(ctx context.Context, typeID int64) ([]*ProductSubtype, error) {
	key := subtypePrefix + strconv.FormatInt(typeID, 10)
	v, err := s.cached(key, func() (any, error) { return s.repo.ListSubtypes(ctx, typeID) })
	if err != nil {
		return nil, err
	}
	return v.([]*ProductSubtype), nil
}

// cached returns the value under key, loading it once across concurrent
// callers on a miss.
func (s *taxonomyService) cached(key string, load func() (any, error)) (any, error) {
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}
	gen := s.generation()
	v, err, _ := s.sf.Do(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, apperr.Unexpected(err)
		}
		s.mu.Lock()
		if s.gen == gen {
			s.cache.SetDefault(key, v)
		}
		s.mu.Unlock()
		return v, nil
	})
	return v, err
}

func (s *taxonomyService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// flush drops every cached read and any load still in flight.
func (s *taxonomyService) flush() {
	s.mu.Lock()
	s.gen++
	s.cache.Flush()
	s.mu.Unlock()
}

func (s *taxonomyService) CreateType(ctx context.Context, p access.Principal, t ProductType) (*ProductType, error) {
	if err := access.Permit(p, access.OpManageTaxonomy, access.Target{}).Err(); err != nil {
		return nil, err
	}
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return nil, apperr.Invalid(msgTypeNameRequired)
	}
	t.ID = 0
	t.Active = true
	t.CreationDate = s.now()
	t.LastUpdate = nil
	if err := s.repo.CreateType(ctx, &t); err != nil {
		return nil, apperr.Unexpected(err)
	}
	s.flush()
	return &t, nil
}

func (s *taxonomyService) UpdateType(ctx context.Context, p access.Principal, t ProductType) error {
	if err := access.Permit(p, access.OpManageTaxonomy, access.Target{}).Err(); err != nil {
		return err
	}
	old, err := s.getType(ctx, t.ID)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return apperr.Invalid(msgTypeNameRequired)
	}
	now := s.now()
	old.Name = name
	old.LastUpdate = &now
	if err := s.repo.UpdateType(ctx, old); err != nil {
		return missing(err, msgTypeNotFound)
	}
	s.flush()
	return nil
}

func (s *taxonomyService) DeleteType(ctx context.Context, p access.Principal, id int64) error {
	if err := access.Permit(p, access.OpManageTaxonomy, access.Target{}).Err(); err != nil {
		return err
	}
	if _, err := s.getType(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountActiveSubtypes(ctx, id)
	if err != nil {
		return apperr.Unexpected(err)
	}
	if n > 0 {
		return apperr.Invalid(msgTypeHasSubtypes)
	}
	if err := s.repo.DeleteType(ctx, id, s.now()); err != nil {
		return missing(err, msgTypeNotFound)
	}
	s.flush()
	logger.From(ctx).Info("product type deleted", zap.Int64("product_type_id", id))
	return nil
}

func (s *taxonomyService) CreateSubtype(ctx context.Context, p access.Principal, st ProductSubtype) (*ProductSubtype, error) {
	if err := access.Permit(p, access.OpManageTaxonomy, access.Target{}).Err(); err != nil {
		return nil, err
	}
	st.Name = strings.TrimSpace(st.Name)
	if st.Name == "" {
		return nil, apperr.Invalid(msgTypeNameRequired)
	}
	if _, err := s.getType(ctx, st.TypeID); err != nil {
		return nil, err
	}
	st.ID = 0
	st.Active = true
	st.CreationDate = s.now()
	st.LastUpdate = nil
	if err := s.repo.CreateSubtype(ctx, &st); err != nil {
		return nil, missing(err, msgTypeNotFound)
	}
	s.flush()
	return &st, nil
}

func (s *taxonomyService) UpdateSubtype(ctx context.Context, p access.Principal, st ProductSubtype) error {
	if err := access.Permit(p, access.OpManageTaxonomy, access.Target{}).Err(); err != nil {
		return err
	}
	old, err := s.getSubtype(ctx, st.ID)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(st.Name)
	if name == "" {
		return apperr.Invalid(msgTypeNameRequired)
	}
	if st.TypeID != 0 && st.TypeID != old.TypeID {
		if _, err := s.getType(ctx, st.TypeID); err != nil {
			return err
		}
		old.TypeID = st.TypeID
	}
	now := s.now()
	old.Name = name
	old.LastUpdate = &now
	if err := s.repo.UpdateSubtype(ctx, old); err != nil {
		return missing(err, msgSubtypeNotFound)
	}
	s.flush()
	return nil
}

func (s *taxonomyService) DeleteSubtype(ctx context.Context, p access.Principal, id int64) error {
	if err := access.Permit(p, access.OpManageTaxonomy, access.Target{}).Err(); err != nil {
		return err
	}
	if _, err := s.getSubtype(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountActiveProducts(ctx, id)
	if err != nil {
		return apperr.Unexpected(err)
	}
	if n > 0 {
		return apperr.Invalid(msgSubtypeHasProduct)
	}
	if err := s.repo.DeleteSubtype(ctx, id, s.now()); err != nil {
		return missing(err, msgSubtypeNotFound)
	}
	s.flush()
	logger.From(ctx).Info("product subtype deleted", zap.Int64("product_subtype_id", id))
	return nil
}

func (s *taxonomyService) getType(ctx context.Context, id int64) (*ProductType, error) {
	t, err := s.repo.GetType(ctx, id)
	if err != nil {
		return nil, missing(err, msgTypeNotFound)
	}
	return t, nil
}

func (s *taxonomyService) getSubtype(ctx context.Context, id int64) (*ProductSubtype, error) {
	st, err := s.repo.GetSubtype(ctx, id)
	if err != nil {
		return nil, missing(err, msgSubtypeNotFound)
	}
	return st, nil
}

func missing(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Unexpected(err)
}

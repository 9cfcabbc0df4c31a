package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/access"
)

type memTaxonomy struct {
	mu        sync.Mutex
	types     map[int64]*ProductType
	subtypes  map[int64]*ProductSubtype
	products  map[int64]int
	nextID    int64
	typeLists int
}

func newMemTaxonomy() *memTaxonomy {
	return &memTaxonomy{
		types:    map[int64]*ProductType{},
		subtypes: map[int64]*ProductSubtype{},
		products: map[int64]int{},
		nextID:   100,
	}
}

func (m *memTaxonomy) CreateType(_ context.Context, t *ProductType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	cp := *t
	m.types[t.ID] = &cp
	return nil
}

func (m *memTaxonomy) GetType(_ context.Context, id int64) (*ProductType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.types[id]
	if !ok || !t.Active {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTaxonomy) ListTypes(context.Context) ([]*ProductType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typeLists++
	var out []*ProductType
	for _, t := range m.types {
		if t.Active {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTaxonomy) UpdateType(_ context.Context, t *ProductType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[t.ID]; !ok {
		return ErrNotFound
	}
	cp := *t
	m.types[t.ID] = &cp
	return nil
}

func (m *memTaxonomy) DeleteType(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.types[id]
	if !ok {
		return ErrNotFound
	}
	t.Active = false
	t.LastUpdate = &at
	return nil
}

func (m *memTaxonomy) CreateSubtype(_ context.Context, st *ProductSubtype) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	st.ID = m.nextID
	cp := *st
	m.subtypes[st.ID] = &cp
	return nil
}

func (m *memTaxonomy) GetSubtype(_ context.Context, id int64) (*ProductSubtype, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subtypes[id]
	if !ok || !st.Active {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (m *memTaxonomy) ListSubtypes(_ context.Context, typeID int64) ([]*ProductSubtype, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ProductSubtype
	for _, st := range m.subtypes {
		if st.Active && st.TypeID == typeID {
			cp := *st
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTaxonomy) UpdateSubtype(_ context.Context, st *ProductSubtype) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subtypes[st.ID]; !ok {
		return ErrNotFound
	}
	cp := *st
	m.subtypes[st.ID] = &cp
	return nil
}

func (m *memTaxonomy) DeleteSubtype(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subtypes[id]
	if !ok {
		return ErrNotFound
	}
	st.Active = false
	st.LastUpdate = &at
	return nil
}

func (m *memTaxonomy) CountActiveSubtypes(_ context.Context, typeID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, st := range m.subtypes {
		if st.Active && st.TypeID == typeID {
			n++
		}
	}
	return n, nil
}

func (m *memTaxonomy) CountActiveProducts(_ context.Context, subtypeID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[subtypeID], nil
}

var sysAdmin = access.Principal{UserID: 1, Role: access.RoleSystemAdmin}

func newTaxonomy() (*taxonomyService, *memTaxonomy) {
	repo := newMemTaxonomy()
	return NewTaxonomyService(repo, time.Minute).(*taxonomyService), repo
}

func TestTaxonomyRequiresSystemAdmin(t *testing.T) {
	s, _ := newTaxonomy()
	ctx := context.Background()
	storeAdmin := access.Principal{UserID: 2, Role: access.RoleStoreAdmin}

	_, err := s.CreateType(ctx, storeAdmin, ProductType{Name: "Roupas"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = s.CreateType(ctx, access.Anonymous, ProductType{Name: "Roupas"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	typ, err := s.CreateType(ctx, sysAdmin, ProductType{Name: " Roupas "})
	require.NoError(t, err)
	assert.Equal(t, "Roupas", typ.Name)
	assert.True(t, typ.Active)
}

func TestTaxonomyReadsAreCachedUntilMutation(t *testing.T) {
	s, repo := newTaxonomy()
	ctx := context.Background()

	_, err := s.CreateType(ctx, sysAdmin, ProductType{Name: "Roupas"})
	require.NoError(t, err)

	first, err := s.ListTypes(ctx)
	require.NoError(t, err)
	_, err = s.ListTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Equal(t, 1, repo.typeLists)

	_, err = s.CreateType(ctx, sysAdmin, ProductType{Name: "Calçados"})
	require.NoError(t, err)
	after, err := s.ListTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, after, 2)
	assert.Equal(t, 2, repo.typeLists)
}

// gatedTypes holds its first ListTypes call open after reading the rows, so
// a mutation can land while the stale result is in flight.
type gatedTypes struct {
	*memTaxonomy
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedTypes) ListTypes(ctx context.Context) ([]*ProductType, error) {
	out, err := g.memTaxonomy.ListTypes(ctx)
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return out, err
}

func TestTaxonomyLoadOverlappingMutationIsNotCached(t *testing.T) {
	repo := &gatedTypes{memTaxonomy: newMemTaxonomy(), started: make(chan struct{}), release: make(chan struct{})}
	s := NewTaxonomyService(repo, time.Minute)
	ctx := context.Background()

	done := make(chan []*ProductType)
	go func() {
		stale, _ := s.ListTypes(ctx)
		done <- stale
	}()
	<-repo.started

	_, err := s.CreateType(ctx, sysAdmin, ProductType{Name: "Roupas"})
	require.NoError(t, err)
	close(repo.release)
	assert.Empty(t, <-done)

	fresh, err := s.ListTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
	assert.Equal(t, 2, repo.typeLists)
}

func TestUpdateTaxonomy(t *testing.T) {
	s, repo := newTaxonomy()
	ctx := context.Background()
	a, err := s.CreateType(ctx, sysAdmin, ProductType{Name: "A"})
	require.NoError(t, err)
	b, err := s.CreateType(ctx, sysAdmin, ProductType{Name: "B"})
	require.NoError(t, err)
	st, err := s.CreateSubtype(ctx, sysAdmin, ProductSubtype{TypeID: a.ID, Name: "a1"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateType(ctx, sysAdmin, ProductType{ID: a.ID, Name: "A2"}))
	assert.Equal(t, "A2", repo.types[a.ID].Name)
	assert.NotNil(t, repo.types[a.ID].LastUpdate)

	require.NoError(t, s.UpdateSubtype(ctx, sysAdmin, ProductSubtype{ID: st.ID, TypeID: b.ID, Name: "b1"}))
	assert.Equal(t, b.ID, repo.subtypes[st.ID].TypeID)

	err = s.UpdateSubtype(ctx, sysAdmin, ProductSubtype{ID: st.ID, TypeID: 999, Name: "x"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = s.CreateSubtype(ctx, sysAdmin, ProductSubtype{TypeID: 999, Name: "orphan"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteTaxonomyRejectsActiveChildren(t *testing.T) {
	s, repo := newTaxonomy()
	ctx := context.Background()
	typ, err := s.CreateType(ctx, sysAdmin, ProductType{Name: "T"})
	require.NoError(t, err)
	st, err := s.CreateSubtype(ctx, sysAdmin, ProductSubtype{TypeID: typ.ID, Name: "S"})
	require.NoError(t, err)

	err = s.DeleteType(ctx, sysAdmin, typ.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))

	repo.products[st.ID] = 2
	err = s.DeleteSubtype(ctx, sysAdmin, st.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))

	repo.products[st.ID] = 0
	require.NoError(t, s.DeleteSubtype(ctx, sysAdmin, st.ID))
	require.NoError(t, s.DeleteType(ctx, sysAdmin, typ.ID))

	types, err := s.ListTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, types)
}

package store

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/modules/image"
)

type memRepo struct {
	stores   map[int64]*Store
	members  map[int64][]access.Member
	users    map[int64]access.Role
	products map[int64]int64
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		stores:   map[int64]*Store{},
		members:  map[int64][]access.Member{},
		products: map[int64]int64{},
		users: map[int64]access.Role{
			1: access.RoleSystemAdmin,
			2: access.RoleStoreAdmin,
			3: access.RoleStoreEmployee,
		},
	}
}

func (m *memRepo) CreateStore(ctx context.Context, s *Store, ownerID int64) error {
	if _, ok := m.users[ownerID]; !ok {
		return ErrUnknownUser
	}
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.stores[s.ID] = &cp
	return m.RelateUser(ctx, s.ID, ownerID)
}

func (m *memRepo) GetStoreByID(_ context.Context, id int64) (*Store, error) {
	s, ok := m.stores[id]
	if !ok || !s.Active {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) GetStoreByProduct(ctx context.Context, productID int64) (*Store, error) {
	storeID, ok := m.products[productID]
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetStoreByID(ctx, storeID)
}

func (m *memRepo) ListStores(context.Context) ([]*Store, error) {
	var out []*Store
	for id := int64(1); id <= m.nextID; id++ {
		if s, ok := m.stores[id]; ok && s.Active {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) ListStoresByUser(_ context.Context, userID int64) ([]*Store, error) {
	var out []*Store
	for id := int64(1); id <= m.nextID; id++ {
		for _, mem := range m.members[id] {
			if mem.UserID == userID && m.stores[id].Active {
				cp := *m.stores[id]
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (m *memRepo) UpdateStore(_ context.Context, s *Store) error {
	if _, ok := m.stores[s.ID]; !ok {
		return ErrNotFound
	}
	cp := *s
	m.stores[s.ID] = &cp
	return nil
}

func (m *memRepo) UpdateProfileImage(_ context.Context, id int64, path string, at time.Time) error {
	s, ok := m.stores[id]
	if !ok {
		return ErrNotFound
	}
	s.ProfileImagePath = path
	s.LastUpdate = &at
	return nil
}

func (m *memRepo) DeleteStore(_ context.Context, id int64, at time.Time) error {
	s, ok := m.stores[id]
	if !ok || !s.Active {
		return ErrNotFound
	}
	s.Active = false
	s.LastUpdate = &at
	return nil
}

func (m *memRepo) RelateUser(_ context.Context, storeID, userID int64) error {
	role, ok := m.users[userID]
	if !ok {
		return ErrUnknownUser
	}
	for _, mem := range m.members[storeID] {
		if mem.UserID == userID {
			return nil
		}
	}
	m.members[storeID] = append(m.members[storeID], access.Member{UserID: userID, Role: role})
	return nil
}

func (m *memRepo) GetMembers(_ context.Context, storeID int64) ([]access.Member, error) {
	return m.members[storeID], nil
}

type fakeImages struct{}

const storeDefault = "/img/stores/default.png"

func (fakeImages) SaveUpload(up *image.Upload, _ image.Kind, _ int64) (string, error) {
	up.Body.Close()
	return "/img/stores/1_new.png", nil
}

func (fakeImages) Base64(path string) (string, error) { return "b64(" + path + ")", nil }

func (fakeImages) StoreDefault() string { return storeDefault }

type fakeGuard struct{ open map[int64]bool }

func (g fakeGuard) Store(_ context.Context, storeID int64) error {
	if g.open[storeID] {
		return apperr.Invalid("open orders")
	}
	return nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*service, *memRepo, fakeGuard) {
	repo := newMemRepo()
	g := fakeGuard{open: map[int64]bool{}}
	s := NewService(repo, fakeImages{}, g).(*service)
	s.now = func() time.Time { return fixedNow }
	return s, repo, g
}

func principal(id int64, role access.Role) access.Principal {
	return access.Principal{UserID: id, Role: role}
}

func TestCreateStore(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newTestService()
	owner := principal(2, access.RoleStoreAdmin)

	st, err := s.CreateStore(ctx, owner, 2, CreateStoreRequest{Name: " Padaria "})
	require.NoError(t, err)
	assert.Equal(t, "Padaria", st.Name)
	assert.Equal(t, storeDefault, repo.stores[st.ID].ProfileImagePath)
	assert.True(t, st.Active)
	assert.Equal(t, []access.Member{{UserID: 2, Role: access.RoleStoreAdmin}}, repo.members[st.ID])

	_, err = s.CreateStore(ctx, owner, 3, CreateStoreRequest{Name: "Other"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = s.CreateStore(ctx, owner, 2, CreateStoreRequest{Name: "  "})
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
}

func TestStoreReadsCarryImages(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newTestService()
	st, err := s.CreateStore(ctx, principal(2, access.RoleStoreAdmin), 2, CreateStoreRequest{Name: "A"})
	require.NoError(t, err)
	repo.products[77] = st.ID

	got, err := s.GetStoreByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "b64("+storeDefault+")", got.ProfileImage)

	byProduct, err := s.GetStoreByProduct(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, st.ID, byProduct.ID)

	all, err := s.GetAllStores(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotEmpty(t, all[0].ProfileImage)

	mine, err := s.GetStoresByUser(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = s.GetStoreByID(ctx, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, msgStoreNotFound, apperr.MessageOf(err))
}

func TestUpdateStoreRequiresEveryMemberToBeTheCallingAdmin(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newTestService()
	adminP := principal(1, access.RoleSystemAdmin)

	st, err := s.CreateStore(ctx, adminP, 1, CreateStoreRequest{Name: "Solo"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateStore(ctx, adminP, UpdateStoreRequest{ID: st.ID, Name: "Renamed"}))
	got := repo.stores[st.ID]
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, storeDefault, got.ProfileImagePath)
	assert.True(t, got.Active)
	require.NotNil(t, got.LastUpdate)

	// a second member makes the store unmodifiable
	require.NoError(t, repo.RelateUser(ctx, st.ID, 3))
	err = s.UpdateStore(ctx, adminP, UpdateStoreRequest{ID: st.ID, Name: "Again"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestDeleteStore(t *testing.T) {
	ctx := context.Background()
	s, repo, g := newTestService()
	adminP := principal(1, access.RoleSystemAdmin)
	st, err := s.CreateStore(ctx, adminP, 1, CreateStoreRequest{Name: "Closing"})
	require.NoError(t, err)

	g.open[st.ID] = true
	err = s.DeleteStore(ctx, adminP, st.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
	assert.True(t, repo.stores[st.ID].Active)

	g.open[st.ID] = false
	require.NoError(t, s.DeleteStore(ctx, adminP, st.ID))
	assert.False(t, repo.stores[st.ID].Active)

	_, err = s.GetStoreByID(ctx, st.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = s.DeleteStore(ctx, principal(2, access.RoleStoreAdmin), 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestLinkUserAndImage(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newTestService()
	owner := principal(2, access.RoleStoreAdmin)
	st, err := s.CreateStore(ctx, owner, 2, CreateStoreRequest{Name: "Team"})
	require.NoError(t, err)

	err = s.LinkUser(ctx, principal(3, access.RoleStoreEmployee), st.ID, 3)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	require.NoError(t, s.LinkUser(ctx, owner, st.ID, 3))
	members, err := s.Members(ctx, st.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	err = s.LinkUser(ctx, owner, st.ID, 404)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	up := &image.Upload{ContentType: "image/png", Body: io.NopCloser(strings.NewReader("png"))}
	require.NoError(t, s.CreateProfileImage(ctx, principal(3, access.RoleStoreEmployee), st.ID, up))
	assert.Equal(t, "/img/stores/1_new.png", repo.stores[st.ID].ProfileImagePath)
}

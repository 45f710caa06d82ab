package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petdex/petdex/internal/entity"
	"github.com/petdex/petdex/internal/log"
	"github.com/petdex/petdex/internal/search"
	"github.com/petdex/petdex/internal/semantic"
	"github.com/petdex/petdex/internal/storage"
)

// mockStore implements Store with overridable functions; unset methods fail
// the test if called.
type mockStore struct {
	t *testing.T

	createPet           func(ctx context.Context, params storage.CreatePetParams) (entity.Pet, error)
	getPet              func(ctx context.Context, petID uuid.UUID) (entity.Pet, error)
	getUserPets         func(ctx context.Context, wallet string) ([]entity.Pet, error)
	getPetInstances     func(ctx context.Context, petID uuid.UUID, limit, offset int) ([]entity.DataInstance, error)
	getPetKnowledge     func(ctx context.Context, petID uuid.UUID, limit int) ([]entity.Knowledge, error)
	exportPetData       func(ctx context.Context, petID uuid.UUID) (storage.Export, error)
	getUserStatistics   func(ctx context.Context, wallet string) (storage.Statistics, error)
	createInstance      func(ctx context.Context, params storage.CreateInstanceParams) (entity.DataInstance, error)
	getInstance         func(ctx context.Context, instanceID uuid.UUID) (entity.DataInstance, error)
	getInstanceKnow     func(ctx context.Context, instanceID uuid.UUID) ([]entity.Knowledge, error)
	getInstanceImages   func(ctx context.Context, instanceID uuid.UUID) ([]entity.Image, error)
	bulkAddKnowledge    func(ctx context.Context, instanceID uuid.UUID, items []storage.KnowledgeParams) ([]entity.Knowledge, error)
	bulkAddImages       func(ctx context.Context, instanceID uuid.UUID, items []storage.ImageParams) ([]entity.Image, error)
}

func (m *mockStore) fail(name string) {
	m.t.Helper()
	m.t.Fatalf("unexpected call to %s", name)
}

func (m *mockStore) CreatePet(ctx context.Context, p storage.CreatePetParams) (entity.Pet, error) {
	if m.createPet == nil {
		m.fail("CreatePet")
	}
	return m.createPet(ctx, p)
}

func (m *mockStore) GetPet(ctx context.Context, id uuid.UUID) (entity.Pet, error) {
	if m.getPet == nil {
		m.fail("GetPet")
	}
	return m.getPet(ctx, id)
}

func (m *mockStore) GetUserPets(ctx context.Context, w string) ([]entity.Pet, error) {
	if m.getUserPets == nil {
		m.fail("GetUserPets")
	}
	return m.getUserPets(ctx, w)
}

func (m *mockStore) GetPetInstances(ctx context.Context, id uuid.UUID, limit, offset int) ([]entity.DataInstance, error) {
	if m.getPetInstances == nil {
		m.fail("GetPetInstances")
	}
	return m.getPetInstances(ctx, id, limit, offset)
}

func (m *mockStore) GetPetKnowledge(ctx context.Context, id uuid.UUID, limit int) ([]entity.Knowledge, error) {
	if m.getPetKnowledge == nil {
		m.fail("GetPetKnowledge")
	}
	return m.getPetKnowledge(ctx, id, limit)
}

func (m *mockStore) ExportPetData(ctx context.Context, id uuid.UUID) (storage.Export, error) {
	if m.exportPetData == nil {
		m.fail("ExportPetData")
	}
	return m.exportPetData(ctx, id)
}

func (m *mockStore) GetUserStatistics(ctx context.Context, w string) (storage.Statistics, error) {
	if m.getUserStatistics == nil {
		m.fail("GetUserStatistics")
	}
	return m.getUserStatistics(ctx, w)
}

func (m *mockStore) CreateCompleteDataInstance(ctx context.Context, p storage.CreateInstanceParams) (entity.DataInstance, error) {
	if m.createInstance == nil {
		m.fail("CreateCompleteDataInstance")
	}
	return m.createInstance(ctx, p)
}

func (m *mockStore) GetDataInstanceWithContent(ctx context.Context, id uuid.UUID) (entity.DataInstance, error) {
	if m.getInstance == nil {
		m.fail("GetDataInstanceWithContent")
	}
	return m.getInstance(ctx, id)
}

func (m *mockStore) GetInstanceKnowledge(ctx context.Context, id uuid.UUID) ([]entity.Knowledge, error) {
	if m.getInstanceKnow == nil {
		m.fail("GetInstanceKnowledge")
	}
	return m.getInstanceKnow(ctx, id)
}

func (m *mockStore) GetInstanceImages(ctx context.Context, id uuid.UUID) ([]entity.Image, error) {
	if m.getInstanceImages == nil {
		m.fail("GetInstanceImages")
	}
	return m.getInstanceImages(ctx, id)
}

func (m *mockStore) BulkAddKnowledge(ctx context.Context, id uuid.UUID, items []storage.KnowledgeParams) ([]entity.Knowledge, error) {
	if m.bulkAddKnowledge == nil {
		m.fail("BulkAddKnowledge")
	}
	return m.bulkAddKnowledge(ctx, id, items)
}

func (m *mockStore) BulkAddImages(ctx context.Context, id uuid.UUID, items []storage.ImageParams) ([]entity.Image, error) {
	if m.bulkAddImages == nil {
		m.fail("BulkAddImages")
	}
	return m.bulkAddImages(ctx, id, items)
}

type mockSearcher struct {
	searchPet  func(ctx context.Context, petID uuid.UUID, query string, limit int) (search.Results, error)
	searchUser func(ctx context.Context, wallet, query string, limit int) (search.Results, error)
}

func (m *mockSearcher) SearchPetContent(ctx context.Context, petID uuid.UUID, query string, limit int) (search.Results, error) {
	return m.searchPet(ctx, petID, query, limit)
}

func (m *mockSearcher) SearchUserContent(ctx context.Context, wallet, query string, limit int) (search.Results, error) {
	return m.searchUser(ctx, wallet, query, limit)
}

type mockSemantic struct {
	all  func(ctx context.Context, query string, params semantic.Params) ([]semantic.Result, error)
	pet  func(ctx context.Context, petID uuid.UUID, query string, params semantic.Params) ([]semantic.Result, error)
	user func(ctx context.Context, wallet, query string, params semantic.Params) ([]semantic.Result, error)
}

func (m *mockSemantic) SearchKnowledge(ctx context.Context, q string, p semantic.Params) ([]semantic.Result, error) {
	return m.all(ctx, q, p)
}

func (m *mockSemantic) SearchPetKnowledge(ctx context.Context, id uuid.UUID, q string, p semantic.Params) ([]semantic.Result, error) {
	return m.pet(ctx, id, q, p)
}

func (m *mockSemantic) SearchUserKnowledge(ctx context.Context, w, q string, p semantic.Params) ([]semantic.Result, error) {
	return m.user(ctx, w, q, p)
}

func newTestServer(store Store, searcher ContentSearcher, sem SemanticSearcher) http.Handler {
	return NewServer(nil, store, searcher, sem, log.NewNop()).Handler()
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGetPet(t *testing.T) {
	petID := uuid.New()
	store := &mockStore{t: t, getPet: func(_ context.Context, id uuid.UUID) (entity.Pet, error) {
		assert.Equal(t, petID, id)
		return entity.Pet{ID: id, Name: "Pixel", OwnerWallet: "0xabc"}, nil
	}}
	handler := newTestServer(store, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/pets/"+petID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pixel")
}

func TestGetPet_InvalidUUID(t *testing.T) {
	handler := newTestServer(&mockStore{t: t}, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/pets/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPet_NotFound(t *testing.T) {
	store := &mockStore{t: t, getPet: func(context.Context, uuid.UUID) (entity.Pet, error) {
		return entity.Pet{}, fmt.Errorf("pet: %w", storage.ErrNotFound)
	}}
	handler := newTestServer(store, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/pets/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestCreatePet(t *testing.T) {
	store := &mockStore{t: t, createPet: func(_ context.Context, p storage.CreatePetParams) (entity.Pet, error) {
		assert.Equal(t, "0xabc", p.OwnerWallet)
		assert.Equal(t, "Pixel", p.Name)
		return entity.Pet{ID: uuid.New(), OwnerWallet: p.OwnerWallet, Name: p.Name}, nil
	}}
	handler := newTestServer(store, nil, nil)

	rec := doRequest(t, handler, http.MethodPost, "/api/users/0xabc/pets", `{"name":"Pixel"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreatePet_MissingName(t *testing.T) {
	handler := newTestServer(&mockStore{t: t}, nil, nil)

	rec := doRequest(t, handler, http.MethodPost, "/api/users/0xabc/pets", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateInstance(t *testing.T) {
	petID := uuid.New()
	store := &mockStore{t: t, createInstance: func(_ context.Context, p storage.CreateInstanceParams) (entity.DataInstance, error) {
		assert.Equal(t, petID, p.PetID)
		assert.Equal(t, "hello", p.Content)
		assert.Len(t, p.Knowledge, 1)
		return entity.DataInstance{ID: uuid.New(), PetID: p.PetID, Content: p.Content}, nil
	}}
	handler := newTestServer(store, nil, nil)

	body := `{"content":"hello","knowledge":[{"url":"https://example.com"}]}`
	rec := doRequest(t, handler, http.MethodPost, "/api/pets/"+petID.String()+"/instances", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateInstance_ValidationErrorMapsTo400(t *testing.T) {
	store := &mockStore{t: t, createInstance: func(context.Context, storage.CreateInstanceParams) (entity.DataInstance, error) {
		return entity.DataInstance{}, entity.ErrInvalidKnowledge
	}}
	handler := newTestServer(store, nil, nil)

	body := `{"content":"hello","knowledge":[{}]}`
	rec := doRequest(t, handler, http.MethodPost, "/api/pets/"+uuid.NewString()+"/instances", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestAddKnowledge_EmptyList(t *testing.T) {
	handler := newTestServer(&mockStore{t: t}, nil, nil)

	rec := doRequest(t, handler, http.MethodPost,
		"/api/datainstances/"+uuid.NewString()+"/knowledge", `{"knowledge":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPet_MissingQuery(t *testing.T) {
	handler := newTestServer(&mockStore{t: t}, &mockSearcher{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/pets/"+uuid.NewString()+"/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPet(t *testing.T) {
	searcher := &mockSearcher{searchPet: func(_ context.Context, _ uuid.UUID, query string, limit int) (search.Results, error) {
		assert.Equal(t, "fox", query)
		assert.Equal(t, 5, limit)
		return search.Results{
			Instances: []entity.DataInstance{{Content: "fox content"}},
			Knowledge: []entity.Knowledge{},
		}, nil
	}}
	handler := newTestServer(&mockStore{t: t}, searcher, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/pets/"+uuid.NewString()+"/search?q=fox&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fox content")
}

func TestSemanticSearch_NotConfiguredMapsTo503(t *testing.T) {
	sem := &mockSemantic{all: func(context.Context, string, semantic.Params) ([]semantic.Result, error) {
		return nil, semantic.ErrNotConfigured
	}}
	handler := newTestServer(&mockStore{t: t}, nil, sem)

	rec := doRequest(t, handler, http.MethodGet, "/api/semantic/search?q=query", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_configured")
}

func TestSemanticSearch_InvalidThresholdMapsTo400(t *testing.T) {
	sem := &mockSemantic{all: func(_ context.Context, _ string, _ semantic.Params) ([]semantic.Result, error) {
		return nil, fmt.Errorf("%w: got 5", semantic.ErrInvalidThreshold)
	}}
	handler := newTestServer(&mockStore{t: t}, nil, sem)

	rec := doRequest(t, handler, http.MethodGet, "/api/semantic/search?q=query&threshold=5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSemanticSearch_ThresholdPassedThrough(t *testing.T) {
	called := false
	sem := &mockSemantic{pet: func(_ context.Context, _ uuid.UUID, _ string, p semantic.Params) ([]semantic.Result, error) {
		called = true
		assert.Equal(t, 3, p.Limit)
		return []semantic.Result{}, nil
	}}
	handler := newTestServer(&mockStore{t: t}, nil, sem)

	rec := doRequest(t, handler, http.MethodGet,
		"/api/pets/"+uuid.NewString()+"/semantic/search?q=query&limit=3&threshold=0.5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestHealth(t *testing.T) {
	handler := newTestServer(&mockStore{t: t}, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Readiness without a pool reports unavailable.
	rec = doRequest(t, handler, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := chain(panicking, recoveryMiddleware(log.NewNop()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

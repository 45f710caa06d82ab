package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/petdex/petdex/internal/entity"
	"github.com/petdex/petdex/internal/search"
	"github.com/petdex/petdex/internal/semantic"
	"github.com/petdex/petdex/internal/storage"
)

// Store is the slice of the persistence gateway the handlers need.
// *storage.Store satisfies it; tests substitute mocks.
type Store interface {
	CreatePet(ctx context.Context, params storage.CreatePetParams) (entity.Pet, error)
	GetPet(ctx context.Context, petID uuid.UUID) (entity.Pet, error)
	GetUserPets(ctx context.Context, ownerWallet string) ([]entity.Pet, error)
	GetPetInstances(ctx context.Context, petID uuid.UUID, limit, offset int) ([]entity.DataInstance, error)
	GetPetKnowledge(ctx context.Context, petID uuid.UUID, limit int) ([]entity.Knowledge, error)
	ExportPetData(ctx context.Context, petID uuid.UUID) (storage.Export, error)
	GetUserStatistics(ctx context.Context, ownerWallet string) (storage.Statistics, error)

	CreateCompleteDataInstance(ctx context.Context, params storage.CreateInstanceParams) (entity.DataInstance, error)
	GetDataInstanceWithContent(ctx context.Context, instanceID uuid.UUID) (entity.DataInstance, error)
	GetInstanceKnowledge(ctx context.Context, instanceID uuid.UUID) ([]entity.Knowledge, error)
	GetInstanceImages(ctx context.Context, instanceID uuid.UUID) ([]entity.Image, error)
	BulkAddKnowledge(ctx context.Context, instanceID uuid.UUID, items []storage.KnowledgeParams) ([]entity.Knowledge, error)
	BulkAddImages(ctx context.Context, instanceID uuid.UUID, items []storage.ImageParams) ([]entity.Image, error)
}

// ContentSearcher runs lexical full-text queries. *search.Engine satisfies
// it.
type ContentSearcher interface {
	SearchPetContent(ctx context.Context, petID uuid.UUID, query string, limit int) (search.Results, error)
	SearchUserContent(ctx context.Context, ownerWallet, query string, limit int) (search.Results, error)
}

// SemanticSearcher runs embedding-based queries. *semantic.Searcher
// satisfies it.
type SemanticSearcher interface {
	SearchKnowledge(ctx context.Context, query string, params semantic.Params) ([]semantic.Result, error)
	SearchPetKnowledge(ctx context.Context, petID uuid.UUID, query string, params semantic.Params) ([]semantic.Result, error)
	SearchUserKnowledge(ctx context.Context, ownerWallet, query string, params semantic.Params) ([]semantic.Result, error)
}

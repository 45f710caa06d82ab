//go:build integration

package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petdex/petdex/internal/log"
	"github.com/petdex/petdex/internal/search"
	"github.com/petdex/petdex/internal/storage"
	"github.com/petdex/petdex/internal/testutil"
)

func setup(t *testing.T) (*search.Engine, *storage.Store) {
	t.Helper()
	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	return search.New(db.Pool, log.NewNop()), storage.New(db.Pool, nil, log.NewNop())
}

func TestSearchPetContent(t *testing.T) {
	engine, store := setup(t)
	ctx := context.Background()

	pet, err := store.CreatePet(ctx, storage.CreatePetParams{OwnerWallet: "0xabc", Name: "Pixel"})
	require.NoError(t, err)

	_, err = store.CreateCompleteDataInstance(ctx, storage.CreateInstanceParams{
		PetID:   pet.ID,
		Content: "the quick brown fox jumps over the lazy dog",
		Knowledge: []storage.KnowledgeParams{
			{Content: "foxes are omnivorous mammals"},
			{URL: "https://example.com/no-content"},
		},
	})
	require.NoError(t, err)

	_, err = store.CreateCompleteDataInstance(ctx, storage.CreateInstanceParams{
		PetID:   pet.ID,
		Content: "completely unrelated gardening notes",
	})
	require.NoError(t, err)

	results, err := engine.SearchPetContent(ctx, pet.ID, "fox", 0)
	require.NoError(t, err)
	require.Len(t, results.Instances, 1)
	assert.Contains(t, results.Instances[0].Content, "quick brown fox")
	require.Len(t, results.Knowledge, 1)
	assert.Contains(t, results.Knowledge[0].Content, "omnivorous")
}

func TestSearchPetContent_NoMatches(t *testing.T) {
	engine, store := setup(t)
	ctx := context.Background()

	pet, err := store.CreatePet(ctx, storage.CreatePetParams{OwnerWallet: "0xabc", Name: "Pixel"})
	require.NoError(t, err)

	results, err := engine.SearchPetContent(ctx, pet.ID, "nonexistent", 10)
	require.NoError(t, err)
	assert.Empty(t, results.Instances)
	assert.Empty(t, results.Knowledge)
	assert.NotNil(t, results.Instances, "empty, not nil")
}

func TestSearchUserContent_ScopedToOwner(t *testing.T) {
	engine, store := setup(t)
	ctx := context.Background()

	mine, err := store.CreatePet(ctx, storage.CreatePetParams{OwnerWallet: "0xme", Name: "Mine"})
	require.NoError(t, err)
	theirs, err := store.CreatePet(ctx, storage.CreatePetParams{OwnerWallet: "0xthem", Name: "Theirs"})
	require.NoError(t, err)

	_, err = store.CreateCompleteDataInstance(ctx, storage.CreateInstanceParams{
		PetID: mine.ID, Content: "shared keyword telescope",
	})
	require.NoError(t, err)
	_, err = store.CreateCompleteDataInstance(ctx, storage.CreateInstanceParams{
		PetID: theirs.ID, Content: "shared keyword telescope",
	})
	require.NoError(t, err)

	results, err := engine.SearchUserContent(ctx, "0xme", "telescope", 0)
	require.NoError(t, err)
	require.Len(t, results.Instances, 1)
	assert.Equal(t, mine.ID, results.Instances[0].PetID)
}

package testutils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mooncrowned/storyed/internal/adapters/memory"
	"github.com/mooncrowned/storyed/internal/logging"
	"github.com/mooncrowned/storyed/pkg/domain"
	"github.com/mooncrowned/storyed/pkg/story"
)

// Meta returns a minimal valid story metadata with one character.
func Meta() *domain.StoryMeta {
	return &domain.StoryMeta{
		Characters: []domain.Character{
			{ID: "anna", Name: "Anna"},
		},
	}
}

// SetupStory creates an in-memory storage with an initialized story in it.
// It returns the storage and a repository bound to it.
// It fails the test immediately on error.
func SetupStory(t *testing.T) (*memory.Store, *story.Repository) {
	t.Helper()

	storage := memory.NewStore()
	repo := story.NewRepository(storage, logging.NewNop())
	require.NoError(t, repo.Init(context.Background(), Meta()), "Failed to init story")

	return storage, repo
}

// SeedNodes persists the given nodes into the repository.
func SeedNodes(t *testing.T, repo *story.Repository, nodes ...*domain.Node) {
	t.Helper()

	ctx := context.Background()
	for _, n := range nodes {
		require.NoError(t, repo.SaveNode(ctx, n), "Failed to seed node %d", n.ID)
	}
}

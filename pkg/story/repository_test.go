package story

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mooncrowned/storyed/internal/adapters/memory"
	"github.com/mooncrowned/storyed/pkg/domain"
)

func testMeta() *domain.StoryMeta {
	return &domain.StoryMeta{Characters: []domain.Character{{ID: "anna", Name: "Anna"}}}
}

func TestRepositoryInit(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStore()
	repo := NewRepository(storage, nil)

	require.NoError(t, repo.Init(ctx, testMeta()))

	meta, err := repo.ReadMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, "anna", meta.Characters[0].ID)

	nodes, err := repo.LoadNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 0, nodes[0].ID)
	assert.NotNil(t, nodes[0].Messages, "initial node serializes empty slices, not null")

	// The content directories exist even while still empty.
	for _, dir := range []string{PhotosDir, VideosDir} {
		_, err := storage.List(ctx, dir)
		assert.NoError(t, err, dir)
	}
}

func TestRepositoryInitRequiresCharacters(t *testing.T) {
	repo := NewRepository(memory.NewStore(), nil)
	assert.ErrorIs(t, repo.Init(context.Background(), nil), domain.ErrNoCharacters)
	assert.ErrorIs(t, repo.Init(context.Background(), &domain.StoryMeta{}), domain.ErrNoCharacters)
}

func TestRepositoryNodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStore()
	repo := NewRepository(storage, nil)
	require.NoError(t, repo.Init(ctx, testMeta()))

	target := 2
	n := &domain.Node{
		ID:       7,
		Messages: []domain.Message{domain.NewPhotoMessage("anna", "a red bike")},
		Answers:  []domain.Answer{{ID: "a_7_1", Message: "go", Delay: 1.5, NextNode: &target}},
	}
	require.NoError(t, repo.SaveNode(ctx, n))

	nodes, err := repo.LoadNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, []int{0, 7}, []int{nodes[0].ID, nodes[1].ID}, "load is sorted by id")

	got := nodes[1]
	assert.Equal(t, "a red bike", got.Messages[0].PhotoDescription)
	require.NotNil(t, got.Answers[0].NextNode)
	assert.Equal(t, 2, *got.Answers[0].NextNode)
	assert.Equal(t, 1.5, got.Answers[0].Delay)
}

func TestRepositoryNodeFileShape(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStore()
	repo := NewRepository(storage, nil)
	require.NoError(t, repo.Init(ctx, testMeta()))

	require.NoError(t, repo.SaveNode(ctx, &domain.Node{ID: 7}))

	data, err := storage.ReadFile(ctx, "Nodes/007.json")
	require.NoError(t, err, "file names are zero-padded to three digits")

	// Unwired answers keep an explicit "next_node": null on disk.
	require.NoError(t, repo.SaveNode(ctx, &domain.Node{
		ID:      1,
		Answers: []domain.Answer{{ID: "a_1_1"}},
	}))
	data, err = storage.ReadFile(ctx, "Nodes/001.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"next_node": null`)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "messages")
}

func TestRepositoryLoadSkipsBadFiles(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStore()
	repo := NewRepository(storage, nil)
	require.NoError(t, repo.Init(ctx, testMeta()))

	require.NoError(t, storage.WriteFile(ctx, "Nodes/garbage.json", []byte("{not json")))
	require.NoError(t, storage.WriteFile(ctx, "Nodes/noid.json", []byte(`{"messages": []}`)))
	require.NoError(t, storage.WriteFile(ctx, "Nodes/readme.txt", []byte("notes")))
	require.NoError(t, repo.SaveNode(ctx, &domain.Node{ID: 2}))

	nodes, err := repo.LoadNodes(ctx)
	require.NoError(t, err, "bad files are skipped, not fatal")
	require.Len(t, nodes, 2)
	assert.Equal(t, 0, nodes[0].ID)
	assert.Equal(t, 2, nodes[1].ID)
}

func TestNodeFileName(t *testing.T) {
	assert.Equal(t, "000.json", NodeFileName(0))
	assert.Equal(t, "042.json", NodeFileName(42))
	assert.Equal(t, "1234.json", NodeFileName(1234), "wide ids widen past the padding")
}

func TestRepositoryWritePhoto(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStore()
	repo := NewRepository(storage, nil)
	require.NoError(t, repo.Init(ctx, testMeta()))

	require.NoError(t, repo.WritePhoto(ctx, "abc.png", []byte{0x89, 0x50}))
	data, err := storage.ReadFile(ctx, "Photos/abc.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50}, data)
}

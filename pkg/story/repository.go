package story

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/mooncrowned/storyed/internal/logging"
	"github.com/mooncrowned/storyed/pkg/domain"
	"github.com/mooncrowned/storyed/pkg/ports"
)

// On-disk story layout.
const (
	MetaFile  = "StoryMeta.json"
	NodesDir  = "Nodes"
	PhotosDir = "Photos"
	VideosDir = "Videos"
)

// Repository maps the domain model onto the persisted story layout through
// the storage collaborator. All file naming and JSON shaping lives here.
type Repository struct {
	storage ports.Storage
	logger  *slog.Logger
}

// NewRepository creates a repository over the given storage backend.
func NewRepository(storage ports.Storage, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Repository{storage: storage, logger: logger}
}

// NodeFileName returns the zero-padded file name for a node id, e.g.
// "007.json". IDs beyond three digits widen naturally.
func NodeFileName(id int) string {
	return fmt.Sprintf("%03d.json", id)
}

// Init lays out a fresh story: metadata, the content directories, and the
// initial empty node 0. Fails if the metadata has no characters.
func (r *Repository) Init(ctx context.Context, meta *domain.StoryMeta) error {
	if meta == nil || len(meta.Characters) == 0 {
		return domain.ErrNoCharacters
	}
	for _, dir := range []string{NodesDir, PhotosDir, VideosDir} {
		if err := r.storage.EnsureDir(ctx, dir); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	if err := r.WriteMeta(ctx, meta); err != nil {
		return err
	}
	return r.SaveNode(ctx, &domain.Node{ID: 0, Messages: []domain.Message{}, Answers: []domain.Answer{}})
}

// ReadMeta loads StoryMeta.json.
func (r *Repository) ReadMeta(ctx context.Context) (*domain.StoryMeta, error) {
	data, err := r.storage.ReadFile(ctx, MetaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read story metadata: %w", err)
	}
	var meta domain.StoryMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse story metadata: %w", err)
	}
	return &meta, nil
}

// WriteMeta atomically replaces StoryMeta.json.
func (r *Repository) WriteMeta(ctx context.Context, meta *domain.StoryMeta) error {
	data, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal story metadata: %w", err)
	}
	if err := r.storage.WriteFile(ctx, MetaFile, data); err != nil {
		return fmt.Errorf("failed to write story metadata: %w", err)
	}
	return nil
}

// LoadNodes reads every node file under Nodes/. Files that fail to parse or
// carry an invalid id are skipped with a warning; the rest of the graph
// loads normally. The result is sorted by id.
func (r *Repository) LoadNodes(ctx context.Context) ([]*domain.Node, error) {
	entries, err := r.storage.List(ctx, NodesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s directory: %w", NodesDir, err)
	}

	var nodes []*domain.Node
	for _, e := range entries {
		if e.IsDir || !strings.EqualFold(path.Ext(e.Name), ".json") {
			continue
		}
		p := path.Join(NodesDir, e.Name)
		data, err := r.storage.ReadFile(ctx, p)
		if err != nil {
			r.logger.Warn("skipping unreadable node file", "file", e.Name, "err", err)
			continue
		}
		var n domain.Node
		n.ID = -1 // detect files without a numeric id
		if err := json.Unmarshal(data, &n); err != nil {
			r.logger.Warn("skipping unparseable node file", "file", e.Name, "err", err)
			continue
		}
		if n.ID < 0 {
			r.logger.Warn("skipping node file without a valid id", "file", e.Name)
			continue
		}
		nodes = append(nodes, &n)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes, nil
}

// SaveNode atomically replaces the node's backing file with its current
// state, serialized as indented JSON.
func (r *Repository) SaveNode(ctx context.Context, n *domain.Node) error {
	if n.Messages == nil {
		n.Messages = []domain.Message{}
	}
	if n.Answers == nil {
		n.Answers = []domain.Answer{}
	}
	data, err := json.MarshalIndent(n, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal node %d: %w", n.ID, err)
	}
	p := path.Join(NodesDir, NodeFileName(n.ID))
	if err := r.storage.WriteFile(ctx, p, data); err != nil {
		return fmt.Errorf("failed to write node %d: %w", n.ID, err)
	}
	return nil
}

// WritePhoto stores generated image bytes under Photos/.
func (r *Repository) WritePhoto(ctx context.Context, name string, data []byte) error {
	if err := r.storage.EnsureDir(ctx, PhotosDir); err != nil {
		return fmt.Errorf("failed to ensure %s directory: %w", PhotosDir, err)
	}
	if err := r.storage.WriteFile(ctx, path.Join(PhotosDir, name), data); err != nil {
		return fmt.Errorf("failed to write photo %s: %w", name, err)
	}
	return nil
}

// Package storyed is the entry point for the story editor library. It
// wires the file-backed storage adapter to an editor session so that
// consumers can open a story directory with one call. Applications that
// need custom storage or locking can use pkg/editor directly.
package storyed

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mooncrowned/storyed/internal/adapters/file"
	"github.com/mooncrowned/storyed/internal/metrics"
	"github.com/mooncrowned/storyed/pkg/domain"
	"github.com/mooncrowned/storyed/pkg/editor"
	"github.com/mooncrowned/storyed/pkg/layout"
	"github.com/mooncrowned/storyed/pkg/ports"
	"github.com/mooncrowned/storyed/pkg/session"
	"github.com/mooncrowned/storyed/pkg/story"
)

// Version is the library version, set at build time for releases.
var Version = "dev"

type config struct {
	logger   *slog.Logger
	debounce time.Duration
	layout   layout.Options
	measure  layout.Measure
	stats    *metrics.Collector
	locks    *session.Manager
	storage  ports.Storage
}

// Option configures Open.
type Option func(*config)

// WithLogger sets a structured logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithDebounce overrides the persistence debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *config) { c.debounce = d }
}

// WithLayout overrides the layout geometry.
func WithLayout(opts layout.Options) Option {
	return func(c *config) { c.layout = opts }
}

// WithMeasure injects a node height callback, typically backed by the
// rendering front end.
func WithMeasure(m layout.Measure) Option {
	return func(c *config) { c.measure = m }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(stats *metrics.Collector) Option {
	return func(c *config) { c.stats = stats }
}

// WithLockManager guards the story against concurrent sessions.
func WithLockManager(locks *session.Manager) Option {
	return func(c *config) { c.locks = locks }
}

// WithStorage injects a custom storage backend, bypassing the default
// file adapter. The path argument to Open is then only a lock key.
func WithStorage(storage ports.Storage) Option {
	return func(c *config) { c.storage = storage }
}

// Open starts an editing session for the story at path.
func Open(ctx context.Context, path string, opts ...Option) (*editor.Session, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	storage := cfg.storage
	key := path
	if storage == nil {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		storage = file.New(abs)
		key = abs
	}

	return editor.Open(ctx, storage, editor.Options{
		Logger:   cfg.logger,
		Debounce: cfg.debounce,
		Layout:   cfg.layout,
		Measure:  cfg.measure,
		Metrics:  cfg.stats,
		Locks:    cfg.locks,
		StoryKey: key,
	})
}

// Init creates a new story at path with the given metadata, including
// the initial node. It fails if meta has no characters.
func Init(ctx context.Context, path string, meta *domain.StoryMeta, logger *slog.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	repo := story.NewRepository(file.New(abs), logger)
	return repo.Init(ctx, meta)
}

package ports

import "context"

// ImageProvider is the external image generation capability. Implementations
// may answer synchronously or poll an asynchronous backend internally, but
// must bound the total wait (the editor passes a deadline via ctx as well).
type ImageProvider interface {
	// Generate produces raw image bytes for the description. aspect is a
	// "W:H" hint; providers normalize it to whatever their backend accepts.
	Generate(ctx context.Context, description, aspect string) ([]byte, error)

	// Name identifies the provider in logs and progress output.
	Name() string
}

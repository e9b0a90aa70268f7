package editor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mooncrowned/storyed/pkg/domain"
	"github.com/mooncrowned/storyed/pkg/ports"
)

// FillProgress is invoked once per image-fill candidate, before the
// provider call, so hosts can show progress.
type FillProgress func(nodeID, messageIndex int, description string)

// PhotoFileName derives the stored file name from the generation inputs:
// the first 16 bytes of sha256("prompt|aspect") in hex, plus ".png". The
// same prompt and aspect always map to the same file.
func PhotoFileName(prompt, aspect string) string {
	sum := sha256.Sum256([]byte(prompt + "|" + aspect))
	return hex.EncodeToString(sum[:16]) + ".png"
}

// FillImages scans the whole story for photo messages that have a
// description but no file yet and generates them one at a time, in
// ascending node id then message index order. One provider call is
// outstanding at any moment so the external API load stays bounded.
//
// A failure on one candidate is logged and does not abort the scan; the
// number of successfully generated images is returned. Concurrent edits
// are not locked out: photo_file is set through the store, so persistence
// coalesces with any user-driven mutation of the same node.
func (s *Session) FillImages(ctx context.Context, provider ports.ImageProvider, aspect string, progress FillProgress) (int, error) {
	if aspect == "" {
		aspect = domain.DefaultAspect
	}

	generated := 0
	for _, id := range s.store.IDs() {
		n, ok := s.store.Get(id)
		if !ok {
			continue
		}
		for idx, msg := range n.Messages {
			if !msg.NeedsPhoto() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return generated, err
			}

			desc := strings.TrimSpace(msg.PhotoDescription)
			if progress != nil {
				progress(id, idx, desc)
			}

			callCtx, cancel := context.WithTimeout(ctx, domain.ProviderMaxWait)
			data, err := provider.Generate(callCtx, desc, aspect)
			cancel()
			if err != nil {
				s.stats.CountProviderError()
				s.logger.Error("image generation failed",
					"provider", provider.Name(), "node", id, "message", idx, "err", err)
				continue
			}

			name := PhotoFileName(desc, aspect)
			if err := s.repo.WritePhoto(ctx, name, data); err != nil {
				s.logger.Error("failed to store generated image",
					"node", id, "message", idx, "err", err)
				continue
			}

			idx := idx
			err = s.store.Put(id, func(n *domain.Node) {
				if idx < len(n.Messages) && n.Messages[idx].IsPhoto() {
					n.Messages[idx].PhotoFile = name
				}
			})
			if err != nil {
				s.logger.Error("failed to record generated image", "node", id, "err", err)
				continue
			}

			generated++
			s.stats.CountImage()
			s.logger.Info("image generated",
				"provider", provider.Name(), "node", id, "message", idx, "file", name)
		}
	}
	return generated, nil
}

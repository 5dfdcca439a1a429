package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/mailsync/internal/model"
)

// extractAll runs the pattern tables and the model extraction for one
// message concurrently and merges the results. Pattern matching scans
// subject, body, and sender info as one text, mirroring what the model
// is shown.
func (p *Pipeline) extractAll(ctx context.Context, subject, body, senderInfo string) model.Extraction {
	fullText := subject + " " + body + " " + senderInfo

	var (
		phones, positions, categories []string
		mr                            ModelResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		phones = p.patterns.ExtractPhones(fullText)
		positions = p.patterns.ExtractPositions(fullText)
		categories = p.patterns.ExtractCategories(fullText)
		return nil
	})
	g.Go(func() error {
		mr = p.extractor.Extract(gctx, subject, body, senderInfo)
		return nil
	})
	// Neither branch returns an error; extraction always degrades.
	_ = g.Wait()

	return Merge(phones, positions, categories, mr)
}

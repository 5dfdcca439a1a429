// Package pipeline implements the batch email ingestion flow: decode,
// extract, reconcile, summarize, persist.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/mailsync/internal/model"
	"github.com/sells-group/mailsync/internal/store"
	"github.com/sells-group/mailsync/pkg/anthropic"
	"github.com/sells-group/mailsync/pkg/gmail"
)

// DefaultBatchLimit is used when no valid limit is configured.
const DefaultBatchLimit = 10

// Stats tallies one batch run. Processed + Failed equals the number of
// fetched messages.
type Stats struct {
	Processed int
	Failed    int
}

// Pipeline wires the mail transport, the extraction stages, and the
// store into one batch processor.
type Pipeline struct {
	gmail      gmail.Client
	store      store.Store
	patterns   *PatternExtractor
	extractor  *ModelExtractor
	summarizer *Summarizer
}

// New builds a Pipeline. It only errors when the embedded pattern
// tables fail to compile.
func New(gc gmail.Client, ac anthropic.Client, st store.Store, modelName string) (*Pipeline, error) {
	patterns, err := NewPatternExtractor()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		gmail:      gc,
		store:      st,
		patterns:   patterns,
		extractor:  NewModelExtractor(ac, modelName),
		summarizer: NewSummarizer(ac, modelName),
	}, nil
}

// ProcessBatch lists up to limit messages matching query and processes
// them sequentially. Per-message failures are logged and counted; they
// never abort the batch. The returned error covers only work that must
// precede the loop (listing, profile lookup).
func (p *Pipeline) ProcessBatch(ctx context.Context, query string, limit int) (Stats, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	receiver, err := p.gmail.Profile(ctx)
	if err != nil {
		return Stats{}, err
	}

	ids, err := p.gmail.ListMessageIDs(ctx, query, int64(limit))
	if err != nil {
		return Stats{}, err
	}
	zap.L().Info("starting batch",
		zap.String("query", query),
		zap.Int("limit", limit),
		zap.Int("messages", len(ids)),
	)

	var stats Stats
	for _, id := range ids {
		if err := p.processMessage(ctx, id, receiver); err != nil {
			stats.Failed++
			zap.L().Error("message failed", zap.String("message_id", id), zap.Error(err))
			continue
		}
		stats.Processed++
	}

	zap.L().Info("batch complete",
		zap.Int("processed", stats.Processed),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// processMessage runs the full flow for one message id.
func (p *Pipeline) processMessage(ctx context.Context, id, receiver string) error {
	raw, err := p.gmail.GetMessage(ctx, id)
	if err != nil {
		return err
	}

	already, err := p.store.MailRecordExists(ctx, id)
	if err != nil {
		return err
	}
	if already {
		zap.L().Info("message already processed", zap.String("message_id", id))
		return nil
	}

	decoded := DecodeMessage(raw)

	sender, err := model.ParseSender(decoded.From)
	if err != nil {
		return err
	}

	entityID, err := p.reconcile(ctx, sender, decoded.Subject, decoded.Body)
	if err != nil {
		return err
	}

	summary := p.summarizer.Summarize(ctx, decoded.Subject, decoded.Body)

	rec := &model.MailRecord{
		ID:                uuid.New().String(),
		MessageID:         id,
		Title:             decoded.Subject,
		OriginalContent:   fmt.Sprintf("From: %s\nSubject: %s\n\n%s", decoded.From, decoded.Subject, decoded.Body),
		SummarizedContent: summary,
		ReceivedDate:      model.ParseReceivedDate(decoded.Date),
		EntityID:          entityID,
		ReceiverMail:      receiver,
		CreatedAt:         time.Now().UTC(),
	}
	if err := p.store.InsertMailRecord(ctx, rec); err != nil {
		return err
	}

	zap.L().Info("processed message",
		zap.String("message_id", id),
		zap.String("entity_id", entityID),
		zap.String("title", decoded.Subject),
	)
	return nil
}

package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mailsync/internal/model"
	"github.com/sells-group/mailsync/internal/store"
)

// reconcile maps a sender onto a company_entity row, creating or
// enriching it, and returns the entity id. Phone, position, and category
// only ever go from absent to present; existing values are kept.
func (p *Pipeline) reconcile(ctx context.Context, sender model.Sender, subject, body string) (string, error) {
	entity, err := p.store.GetEntityByEmail(ctx, sender.Email)
	if err != nil {
		return "", err
	}
	if entity != nil {
		return entity.ID, p.fillMissingFields(ctx, entity, subject, body, sender)
	}

	ex := p.extractAll(ctx, subject, body, sender.String())

	fresh := model.NewEntity(sender)
	fresh.ID = uuid.New().String()
	fresh.Phone = ex.Phone()
	fresh.Position = ex.Position
	fresh.Category = ex.Category()
	fresh.CreatedAt = time.Now().UTC()

	err = p.store.InsertEntity(ctx, &fresh)
	if errors.Is(err, store.ErrDuplicateEmail) {
		// Another writer created the entity between lookup and insert.
		existing, ferr := p.store.GetEntityByEmail(ctx, sender.Email)
		if ferr != nil {
			return "", ferr
		}
		if existing == nil {
			return "", eris.Errorf("pipeline: entity for %s vanished after duplicate insert", sender.Email)
		}
		return existing.ID, p.applyPatch(ctx, existing, ex)
	}
	if err != nil {
		return "", err
	}

	zap.L().Info("created entity",
		zap.String("entity_id", fresh.ID),
		zap.String("email", fresh.Email),
		zap.String("company", fresh.Company),
	)
	return fresh.ID, nil
}

// fillMissingFields enriches an existing entity. Extraction only runs
// when at least one of the three fields is still empty and there is text
// to look at.
func (p *Pipeline) fillMissingFields(ctx context.Context, entity *model.Entity, subject, body string, sender model.Sender) error {
	if entity.Phone != "" && entity.Position != "" && entity.Category != "" {
		return nil
	}
	if subject == "" && body == "" {
		return nil
	}

	ex := p.extractAll(ctx, subject, body, sender.String())
	return p.applyPatch(ctx, entity, ex)
}

// applyPatch writes extracted values into fields that are still empty.
// A row that disappeared underneath us is logged, not fatal.
func (p *Pipeline) applyPatch(ctx context.Context, entity *model.Entity, ex model.Extraction) error {
	var patch store.EntityPatch
	if entity.Phone == "" {
		patch.Phone = ex.Phone()
	}
	if entity.Position == "" {
		patch.Position = ex.Position
	}
	if entity.Category == "" {
		patch.Category = ex.Category()
	}
	if patch.IsZero() {
		return nil
	}

	err := p.store.UpdateEntityFields(ctx, entity.ID, patch)
	if errors.Is(err, store.ErrEntityNotFound) {
		zap.L().Warn("entity update matched no row",
			zap.String("entity_id", entity.ID),
			zap.String("email", entity.Email),
		)
		return nil
	}
	if err != nil {
		return err
	}

	zap.L().Info("enriched entity",
		zap.String("entity_id", entity.ID),
		zap.String("email", entity.Email),
		zap.Bool("phone_filled", patch.Phone != ""),
		zap.Bool("position_filled", patch.Position != ""),
		zap.Bool("category_filled", patch.Category != ""),
	)
	return nil
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/textsearch"
)

// AuditPipeline stamps audit metadata and derives search keys on every
// pending change right before it is stored.
type AuditPipeline struct {
	now     func() time.Time
	metrics MetricsRecorder
	logger  zerolog.Logger
}

// NewAuditPipeline creates a new AuditPipeline.
func NewAuditPipeline(logger zerolog.Logger) *AuditPipeline {
	return &AuditPipeline{
		now:     time.Now,
		metrics: noopMetrics{},
		logger:  logger,
	}
}

// WithMetrics sets the metrics recorder.
func (p *AuditPipeline) WithMetrics(m MetricsRecorder) *AuditPipeline {
	p.metrics = m
	return p
}

// WithClock overrides the time source.
func (p *AuditPipeline) WithClock(now func() time.Time) *AuditPipeline {
	p.now = now
	return p
}

// Process mutates each entity of cs in place and records the derived fields
// in its change. It performs no I/O.
func (p *AuditPipeline) Process(ctx context.Context, cs domain.ChangeSet) error {
	actor := ActorFromContext(ctx)
	now := p.now().UTC()

	for _, change := range cs {
		if change == nil || change.Entity == nil {
			return fmt.Errorf("audit pipeline: empty change")
		}
		if change.Fields == nil {
			change.Fields = make(map[string]domain.FieldChange)
		}

		switch change.Kind {
		case domain.ChangeAdded:
			p.processAdded(change, actor, now)
		case domain.ChangeModified:
			p.processModified(change, actor, now)
		case domain.ChangeDeleted:
			p.logger.Debug().
				Str("entity", change.Entity.EntityName()).
				Str("id", change.Entity.EntityID()).
				Str("actor", actor).
				Msg("record deleted")
			p.metrics.RecordAuditChange(change.Entity.EntityName(), ClassificationDeleted)
		default:
			return fmt.Errorf("audit pipeline: unsupported change kind %s for %s %s",
				change.Kind, change.Entity.EntityName(), change.Entity.EntityID())
		}
	}

	return nil
}

func (p *AuditPipeline) processAdded(change *domain.Change, actor string, now time.Time) {
	if a, ok := change.Entity.(domain.Auditable); ok {
		audit := a.AuditInfo()
		audit.CreatedAt = now
		audit.CreatedBy = actor
		audit.UpdatedAt = nil
		audit.UpdatedBy = nil
	}

	if s, ok := change.Entity.(domain.Searchable); ok {
		for _, key := range s.SearchKeys() {
			*key.Key = textsearch.Normalize(*key.Source)
		}
	}

	for name, v := range change.Entity.Fields() {
		change.Fields[name] = domain.FieldChange{New: v}
	}

	p.metrics.RecordAuditChange(change.Entity.EntityName(), ClassificationCreated)
}

func (p *AuditPipeline) processModified(change *domain.Change, actor string, now time.Time) {
	entity := change.Entity

	var audit *domain.Audit
	if a, ok := entity.(domain.Auditable); ok {
		audit = a.AuditInfo()
		restoreAuditFields(audit, change)
	}
	for name := range change.Fields {
		if domain.IsAuditField(name) {
			delete(change.Fields, name)
		}
	}

	var keys []domain.SearchKey
	if s, ok := entity.(domain.Searchable); ok {
		keys = s.SearchKeys()
	}

	classification := classify(change, keys)

	for _, key := range keys {
		prev, keyTouched := change.Fields[key.KeyField]
		if !keyTouched && !change.Has(key.SourceField) {
			continue
		}

		oldKey := *key.Key
		if keyTouched {
			oldKey, _ = prev.Old.(string)
		}

		*key.Key = textsearch.Normalize(*key.Source)
		change.Set(key.KeyField, oldKey, *key.Key)
	}

	if classification == ClassificationSubstantive && audit != nil {
		oldAt, oldBy := audit.UpdatedAt, audit.UpdatedBy
		stampedAt, stampedBy := now, actor
		audit.UpdatedAt = &stampedAt
		audit.UpdatedBy = &stampedBy
		change.Fields[domain.FieldUpdatedAt] = domain.FieldChange{Old: oldAt, New: audit.UpdatedAt}
		change.Fields[domain.FieldUpdatedBy] = domain.FieldChange{Old: oldBy, New: audit.UpdatedBy}
	}

	if classification == ClassificationTechnical {
		p.logger.Debug().
			Str("entity", entity.EntityName()).
			Str("id", entity.EntityID()).
			Strs("fields", change.FieldNames()).
			Msg("technical-only change, audit stamp skipped")
	}

	p.metrics.RecordAuditChange(entity.EntityName(), classification)
}

// classify inspects the non-audit fields of a modified change.
func classify(change *domain.Change, keys []domain.SearchKey) string {
	if len(change.Fields) == 0 {
		return ClassificationEmpty
	}

	keyFields := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		keyFields[key.KeyField] = struct{}{}
	}

	for name := range change.Fields {
		if _, ok := keyFields[name]; !ok {
			return ClassificationSubstantive
		}
	}

	return ClassificationTechnical
}

// restoreAuditFields puts back stored audit values that business code touched.
func restoreAuditFields(audit *domain.Audit, change *domain.Change) {
	if fc, ok := change.Fields[domain.FieldCreatedAt]; ok {
		if v, ok := fc.Old.(time.Time); ok {
			audit.CreatedAt = v
		}
	}
	if fc, ok := change.Fields[domain.FieldCreatedBy]; ok {
		if v, ok := fc.Old.(string); ok {
			audit.CreatedBy = v
		}
	}
	if fc, ok := change.Fields[domain.FieldUpdatedAt]; ok {
		if v, ok := fc.Old.(*time.Time); ok {
			audit.UpdatedAt = v
		}
	}
	if fc, ok := change.Fields[domain.FieldUpdatedBy]; ok {
		if v, ok := fc.Old.(*string); ok {
			audit.UpdatedBy = v
		}
	}
}

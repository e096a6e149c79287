package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
	"go.uber.org/zap"
)

// submissionBatchUpdater is implemented by stores that can apply several
// data rewrites atomically.
type submissionBatchUpdater interface {
	UpdateSubmissionsData(ctx context.Context, updates []SubmissionDataUpdate) error
}

type formManager struct {
	store   formview.Store
	config  *formview.Config
	cache   *schemaCache
	nowFunc func() time.Time
}

// NewManager creates a Manager over store. A nil config uses DefaultConfig.
func NewManager(store formview.Store, config *formview.Config) formview.Manager {
	return newFormManager(store, config)
}

func newFormManager(store formview.Store, config *formview.Config) *formManager {
	if config == nil {
		config = formview.DefaultConfig()
	}
	m := &formManager{
		store:   store,
		config:  config,
		nowFunc: time.Now,
	}
	if config.Cache.Enabled {
		m.cache = newSchemaCache(store, config.Cache.TTL)
	}
	return m
}

func (m *formManager) getForm(ctx context.Context, id uuid.UUID) (*formview.Form, error) {
	if m.cache != nil {
		return m.cache.getForm(ctx, id)
	}
	return m.store.GetForm(ctx, id)
}

func (m *formManager) getForms(ctx context.Context, ids []uuid.UUID) ([]*formview.Form, error) {
	if m.cache != nil {
		return m.cache.getForms(ctx, ids)
	}
	return m.store.GetForms(ctx, ids)
}

func (m *formManager) referenceLookup(ctx context.Context, schema []formview.FieldDefinition, data map[string]any) (SubmissionLookup, error) {
	candidates := ReferenceCandidates(schema, data)
	if len(candidates) == 0 {
		return LookupFromSlice(nil), nil
	}
	loader := ReferenceLoaderFromContext(ctx)
	if loader == nil {
		loader = NewReferenceLoader(m.store)
	}
	refs, err := loader.LoadMany(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to load referenced submissions: %w", err)
	}
	return func(id uuid.UUID) (*formview.Submission, bool) {
		s, ok := refs[id]
		return s, ok
	}, nil
}

// PrepareSubmission normalizes and validates data for formID.
func (m *formManager) PrepareSubmission(ctx context.Context, formID uuid.UUID, data map[string]any) (map[string]any, error) {
	start := m.nowFunc()
	form, err := m.getForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	lookup, err := m.referenceLookup(ctx, form.Schema, data)
	if err != nil {
		return nil, err
	}

	normalized, refErrs := NormalizeRelationFields(form.Schema, data, lookup)
	if refErrs.HasErrors() {
		EmitValidationFailure(ctx, string(formview.ErrorTypeReference))
		zap.S().Warnw("submission rejected", "formID", formID, "phase", "references", "errors", len(refErrs))
		return nil, refErrs.Err(formview.ErrorTypeReference)
	}

	if reqErrs := ValidateRequired(form.Schema, normalized); reqErrs.HasErrors() {
		EmitValidationFailure(ctx, string(formview.ErrorTypeValidation))
		zap.S().Warnw("submission rejected", "formID", formID, "phase", "required", "errors", len(reqErrs))
		return nil, reqErrs.Err(formview.ErrorTypeValidation)
	}

	EmitLatency(ctx, "validate", m.nowFunc().Sub(start).Milliseconds())
	return normalized, nil
}

func (m *formManager) CreateSubmission(ctx context.Context, formID uuid.UUID, data map[string]any) (*formview.Submission, error) {
	normalized, err := m.PrepareSubmission(ctx, formID, data)
	if err != nil {
		return nil, err
	}
	sub := &formview.Submission{
		ID:        uuid.New(),
		FormID:    formID,
		Data:      normalized,
		CreatedAt: m.nowFunc().UTC(),
	}
	if err := m.store.InsertSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to insert submission: %w", err)
	}
	zap.S().Debugw("created submission", "formID", formID, "submissionID", sub.ID)
	return sub, nil
}

func (m *formManager) UpdateSubmission(ctx context.Context, formID, submissionID uuid.UUID, data map[string]any) (*formview.Submission, error) {
	existing, err := m.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if existing.FormID != formID {
		return nil, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeSubmissionMismatch, formview.MsgSubmissionFormMismatch).
			WithDetail("submissionId", submissionID.String()).
			WithDetail("formId", formID.String())
	}

	normalized, err := m.PrepareSubmission(ctx, formID, data)
	if err != nil {
		return nil, err
	}
	if err := m.store.UpdateSubmissionData(ctx, submissionID, normalized); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}
	existing.Data = normalized
	return existing, nil
}

func (m *formManager) ListSubmissions(ctx context.Context, formID uuid.UUID, filter formview.SubmissionFilter) ([]*formview.Submission, error) {
	form, err := m.getForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	subs, err := m.store.ListSubmissions(ctx, []uuid.UUID{formID})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return FilterSubmissions(form.Schema, subs, filter), nil
}

func (m *formManager) FieldValues(ctx context.Context, formID uuid.UUID, fieldKey string) ([]string, error) {
	form, err := m.getForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	subs, err := m.store.ListSubmissions(ctx, []uuid.UUID{formID})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return DistinctFieldValues(form.Schema, subs, fieldKey), nil
}

func (m *formManager) SubmissionOptions(ctx context.Context, formID uuid.UUID, fieldKey string) ([]formview.SubmissionOption, error) {
	if _, err := m.getForm(ctx, formID); err != nil {
		return nil, err
	}
	subs, err := m.store.ListSubmissions(ctx, []uuid.UUID{formID})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return SubmissionOptionsFor(subs, fieldKey), nil
}

func (m *formManager) ViewRows(ctx context.Context, viewID uuid.UUID) ([]formview.Row, error) {
	view, err := m.store.GetView(ctx, viewID)
	if err != nil {
		return nil, err
	}
	return m.MaterializeView(ctx, view.Config)
}

// MaterializeView loads the forms and submissions the columns name and joins
// them. Unknown form ids contribute no schema and no submissions.
func (m *formManager) MaterializeView(ctx context.Context, cfg formview.ViewConfig) ([]formview.Row, error) {
	start := m.nowFunc()
	formIDs := NewOrderedSet[uuid.UUID]()
	for _, c := range cfg.Columns {
		if id, err := uuid.Parse(c.FormID); err == nil {
			formIDs.Add(id)
		}
	}
	if formIDs.Size() == 0 {
		return []formview.Row{}, nil
	}

	forms, err := m.getForms(ctx, formIDs.Items())
	if err != nil {
		return nil, fmt.Errorf("failed to load view forms: %w", err)
	}
	subs, err := m.store.ListSubmissions(ctx, formIDs.Items())
	if err != nil {
		return nil, fmt.Errorf("failed to load view submissions: %w", err)
	}

	requested := cfg.MaxRows
	cfg.MaxRows = m.config.EffectiveMaxRows(requested)
	result := Materialize(cfg, forms, subs)
	result.RequestedMaxRows = requested
	if result.Clamped() {
		zap.S().Infow("view row cap clamped to ceiling",
			"requestedMaxRows", requested,
			"maxRows", result.MaxRows,
		)
	}

	EmitRowCount(ctx, result.Anchored, int64(len(result.Rows)))
	if result.Truncated {
		EmitTruncation(ctx, result.MaxRows, result.Clamped())
	}
	EmitLatency(ctx, "materialize", m.nowFunc().Sub(start).Milliseconds())
	return result.Rows, nil
}

func (m *formManager) applyUpdates(ctx context.Context, updates []SubmissionDataUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	if batch, ok := m.store.(submissionBatchUpdater); ok {
		return batch.UpdateSubmissionsData(ctx, updates)
	}
	for _, u := range updates {
		if err := m.store.UpdateSubmissionData(ctx, u.ID, u.Data); err != nil {
			return err
		}
	}
	return nil
}

// BackfillReferences rewrites relation values stored under legacy keys. It is
// idempotent and does not check reference targets.
func (m *formManager) BackfillReferences(ctx context.Context, dryRun bool) (*formview.BackfillReport, error) {
	start := m.nowFunc()
	report := &formview.BackfillReport{DryRun: dryRun}

	forms, err := m.store.ListForms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}

	var updates []SubmissionDataUpdate
	for _, form := range forms {
		if len(form.Schema) == 0 {
			continue
		}
		subs, err := m.store.ListSubmissions(ctx, []uuid.UUID{form.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to list submissions of form %s: %w", form.ID, err)
		}
		for _, sub := range subs {
			report.Scanned++
			data, changed := backfillRelationKeys(form.Schema, sub.Data)
			if !changed {
				report.Skipped++
				continue
			}
			report.Updated++
			updates = append(updates, SubmissionDataUpdate{ID: sub.ID, Data: data})
		}
	}

	if !dryRun {
		if err := m.applyUpdates(ctx, updates); err != nil {
			return nil, fmt.Errorf("failed to write backfilled submissions: %w", err)
		}
	}

	zap.S().Infow("backfill finished",
		"scanned", report.Scanned,
		"updated", report.Updated,
		"dryRun", dryRun,
	)
	EmitLatency(ctx, "backfill", m.nowFunc().Sub(start).Milliseconds())
	return report, nil
}

// MigrateFieldKey moves values of formID's submissions from oldKey to the id
// of the field whose key is now newKey.
func (m *formManager) MigrateFieldKey(ctx context.Context, formID uuid.UUID, oldKey, newKey string, dryRun bool) (*formview.BackfillReport, error) {
	form, err := m.store.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	field, ok := fieldByKey(form.Schema, newKey)
	if !ok {
		return nil, formview.NewConfigurationError(formview.ErrCodeSchemaInvalid,
			fmt.Sprintf("no field found in schema with key %q", newKey))
	}
	if field.ID == "" {
		return nil, formview.NewConfigurationError(formview.ErrCodeSchemaInvalid,
			"target field has no id; cannot migrate safely").WithField(newKey)
	}

	subs, err := m.store.ListSubmissions(ctx, []uuid.UUID{formID})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	report := &formview.BackfillReport{DryRun: dryRun}
	var updates []SubmissionDataUpdate
	for _, sub := range subs {
		report.Scanned++
		data, outcome := migrateRenamedKey(sub.Data, oldKey, field.ID)
		if outcome == keyMigrationSkipped {
			report.Skipped++
			continue
		}
		report.Updated++
		updates = append(updates, SubmissionDataUpdate{ID: sub.ID, Data: data})
	}

	if !dryRun {
		if err := m.applyUpdates(ctx, updates); err != nil {
			return nil, fmt.Errorf("failed to write migrated submissions: %w", err)
		}
		if m.cache != nil {
			m.cache.invalidate(formID)
		}
	}

	zap.S().Infow("field key migration finished",
		"formID", formID,
		"oldKey", oldKey,
		"canonicalKey", field.ID,
		"scanned", report.Scanned,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"dryRun", dryRun,
	)
	return report, nil
}

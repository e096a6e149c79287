// Package snapshot loads a project's forms, submissions and views from a
// YAML or JSON document so views can be materialized without a database.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Snapshot is a self-contained export of one project.
type Snapshot struct {
	Forms       []*formview.Form
	Submissions []*formview.Submission
	Views       []*formview.View
}

type rawForm struct {
	formview.Form
	Schema json.RawMessage `json:"schema_"`
}

type rawView struct {
	formview.View
	Config json.RawMessage `json:"config"`
}

type rawDocument struct {
	Forms       []rawForm              `json:"forms"`
	Submissions []*formview.Submission `json:"submissions"`
	Views       []rawView              `json:"views"`
}

// Parse decodes a snapshot document. YAML and JSON are both accepted; values
// are normalized through JSON so numbers decode the same way either way.
func Parse(data []byte) (*Snapshot, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeInvalidJSON, "snapshot is not valid YAML or JSON").WithCause(err)
	}
	if generic == nil {
		return &Snapshot{}, nil
	}
	normalized, err := json.Marshal(generic)
	if err != nil {
		return nil, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeInvalidJSON, "snapshot cannot be represented as JSON").WithCause(err)
	}

	var doc rawDocument
	dec := json.NewDecoder(bytes.NewReader(normalized))
	if err := dec.Decode(&doc); err != nil {
		return nil, formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeInvalidJSON, "snapshot has an unexpected shape").WithCause(err)
	}

	snap := &Snapshot{Submissions: doc.Submissions}
	for i := range doc.Forms {
		form := doc.Forms[i].Form
		if raw := doc.Forms[i].Schema; len(raw) > 0 && string(raw) != "null" {
			fields, err := internal.DecodeFormSchema(raw)
			if err != nil {
				return nil, fmt.Errorf("form %s: %w", form.ID, err)
			}
			form.Schema = fields
		}
		snap.Forms = append(snap.Forms, &form)
	}
	for i := range doc.Views {
		view := doc.Views[i].View
		if raw := doc.Views[i].Config; len(raw) > 0 && string(raw) != "null" {
			cfg, err := internal.DecodeViewConfig(raw)
			if err != nil {
				return nil, fmt.Errorf("view %s: %w", view.ID, err)
			}
			view.Config = cfg
		}
		snap.Views = append(snap.Views, &view)
	}
	return snap, nil
}

// Store returns an in-memory store seeded with the snapshot.
func (s *Snapshot) Store() *internal.MemoryStore {
	return internal.NewMemoryStore(s.Forms, s.Submissions, s.Views)
}

// Load reads a snapshot from a local path or an s3://bucket/key URI.
func Load(ctx context.Context, source string, cfg formview.SnapshotConfig) (*Snapshot, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "s3://") {
		bucket, key, perr := ParseS3URI(source)
		if perr != nil {
			return nil, perr
		}
		src, serr := NewS3Source(ctx, cfg)
		if serr != nil {
			return nil, serr
		}
		data, err = src.Fetch(ctx, bucket, key)
	} else {
		data, err = os.ReadFile(source)
		if os.IsNotExist(err) {
			err = formview.NewNotFoundError(formview.ErrCodeObjectNotFound, "Snapshot", source).WithCause(err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", source, err)
	}

	snap, err := Parse(data)
	if err != nil {
		return nil, err
	}
	zap.S().Debugw("loaded snapshot",
		"source", source,
		"forms", len(snap.Forms),
		"submissions", len(snap.Submissions),
		"views", len(snap.Views),
	)
	return snap, nil
}

package internal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
)

type cachedForm struct {
	form     *formview.Form
	loadedAt time.Time
}

// schemaCache keeps recently loaded forms so repeated validation and view
// requests do not reload the same schema.
type schemaCache struct {
	reader  formview.SchemaReader
	ttl     time.Duration
	cacheMu sync.RWMutex
	forms   map[uuid.UUID]cachedForm
	nowFunc func() time.Time
}

func newSchemaCache(reader formview.SchemaReader, ttl time.Duration) *schemaCache {
	return &schemaCache{
		reader:  reader,
		ttl:     ttl,
		forms:   make(map[uuid.UUID]cachedForm),
		nowFunc: time.Now,
	}
}

func (c *schemaCache) lookup(id uuid.UUID) (*formview.Form, bool) {
	c.cacheMu.RLock()
	entry, ok := c.forms[id]
	c.cacheMu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.nowFunc().Sub(entry.loadedAt) > c.ttl {
		return nil, false
	}
	return entry.form, true
}

func (c *schemaCache) store(forms ...*formview.Form) {
	now := c.nowFunc()
	c.cacheMu.Lock()
	for _, f := range forms {
		if f != nil {
			c.forms[f.ID] = cachedForm{form: f, loadedAt: now}
		}
	}
	c.cacheMu.Unlock()
}

func (c *schemaCache) getForm(ctx context.Context, id uuid.UUID) (*formview.Form, error) {
	if form, ok := c.lookup(id); ok {
		return form, nil
	}
	form, err := c.reader.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(form)
	return form, nil
}

// getForms returns the cached forms and loads the rest in one call.
func (c *schemaCache) getForms(ctx context.Context, ids []uuid.UUID) ([]*formview.Form, error) {
	out := make([]*formview.Form, 0, len(ids))
	var missing []uuid.UUID
	for _, id := range ids {
		if form, ok := c.lookup(id); ok {
			out = append(out, form)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	loaded, err := c.reader.GetForms(ctx, missing)
	if err != nil {
		return nil, err
	}
	c.store(loaded...)
	return append(out, loaded...), nil
}

func (c *schemaCache) invalidate(id uuid.UUID) {
	c.cacheMu.Lock()
	delete(c.forms, id)
	c.cacheMu.Unlock()
}

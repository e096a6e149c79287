package internal

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
	"github.com/lychee-technology/formview"
)

// ReferenceLoader batches referenced-submission lookups made while one
// request validates payloads.
type ReferenceLoader struct {
	Loader *dataloader.Loader
}

// NewReferenceLoader builds a loader over reader.GetSubmissionsByIDs.
func NewReferenceLoader(reader formview.SubmissionReader) *ReferenceLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]uuid.UUID, 0, len(keys))
		for _, k := range keys {
			if id, err := uuid.Parse(k.String()); err == nil {
				ids = append(ids, id)
			}
		}

		subs, err := reader.GetSubmissionsByIDs(ctx, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byID := make(map[string]*formview.Submission, len(subs))
		for _, s := range subs {
			byID[s.ID.String()] = s
		}

		results := make([]*dataloader.Result, len(keys))
		for i, k := range keys {
			if s, ok := byID[k.String()]; ok {
				results[i] = &dataloader.Result{Data: s}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))
	return &ReferenceLoader{Loader: loader}
}

// LoadMany resolves ids to submissions. Ids with no submission are absent
// from the result.
func (l *ReferenceLoader) LoadMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*formview.Submission, error) {
	out := make(map[uuid.UUID]*formview.Submission, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(id.String())
	}

	data, errs := l.Loader.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for _, item := range data {
		if s, ok := item.(*formview.Submission); ok && s != nil {
			out[s.ID] = s
		}
	}
	return out, nil
}

type referenceLoaderKey struct{}

// ContextWithReferenceLoader attaches loader to ctx.
func ContextWithReferenceLoader(ctx context.Context, loader *ReferenceLoader) context.Context {
	return context.WithValue(ctx, referenceLoaderKey{}, loader)
}

// ReferenceLoaderFromContext returns the loader attached to ctx, or nil.
func ReferenceLoaderFromContext(ctx context.Context) *ReferenceLoader {
	if l, ok := ctx.Value(referenceLoaderKey{}).(*ReferenceLoader); ok {
		return l
	}
	return nil
}

// ReferenceLoaderMiddleware gives every request its own loader so cached
// lookups never outlive the request.
func ReferenceLoaderMiddleware(reader formview.SubmissionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ContextWithReferenceLoader(r.Context(), NewReferenceLoader(reader))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

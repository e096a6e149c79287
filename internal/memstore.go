package internal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/formview"
)

// MemoryStore is an in-process Store used for snapshots and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	forms       map[uuid.UUID]*formview.Form
	submissions map[uuid.UUID]*formview.Submission
	views       map[uuid.UUID]*formview.View
	nowFunc     func() time.Time
}

// NewMemoryStore seeds a store with the given records.
func NewMemoryStore(forms []*formview.Form, submissions []*formview.Submission, views []*formview.View) *MemoryStore {
	s := &MemoryStore{
		forms:       make(map[uuid.UUID]*formview.Form, len(forms)),
		submissions: make(map[uuid.UUID]*formview.Submission, len(submissions)),
		views:       make(map[uuid.UUID]*formview.View, len(views)),
		nowFunc:     time.Now,
	}
	for _, f := range forms {
		if f != nil {
			s.forms[f.ID] = f
		}
	}
	for _, sub := range submissions {
		if sub != nil {
			s.submissions[sub.ID] = copySubmission(sub)
		}
	}
	for _, v := range views {
		if v != nil {
			s.views[v.ID] = v
		}
	}
	return s
}

func copySubmission(sub *formview.Submission) *formview.Submission {
	cp := *sub
	cp.Data = cloneData(sub.Data)
	if cp.Data == nil {
		cp.Data = map[string]any{}
	}
	return &cp
}

func (s *MemoryStore) GetForm(_ context.Context, id uuid.UUID) (*formview.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.forms[id]
	if !ok {
		return nil, formview.NewNotFoundError(formview.ErrCodeFormNotFound, "Form", id.String())
	}
	return f, nil
}

func (s *MemoryStore) GetForms(_ context.Context, ids []uuid.UUID) ([]*formview.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*formview.Form, 0, len(ids))
	for _, id := range ids {
		if f, ok := s.forms[id]; ok {
			out = append(out, f)
		}
	}
	sortForms(out)
	return out, nil
}

func (s *MemoryStore) ListForms(_ context.Context) ([]*formview.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*formview.Form, 0, len(s.forms))
	for _, f := range s.forms {
		out = append(out, f)
	}
	sortForms(out)
	return out, nil
}

func (s *MemoryStore) GetSubmission(_ context.Context, id uuid.UUID) (*formview.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, formview.NewNotFoundError(formview.ErrCodeSubmissionNotFound, "Submission", id.String())
	}
	return copySubmission(sub), nil
}

func (s *MemoryStore) GetSubmissionsByIDs(_ context.Context, ids []uuid.UUID) ([]*formview.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*formview.Submission, 0, len(ids))
	for _, id := range ids {
		if sub, ok := s.submissions[id]; ok {
			out = append(out, copySubmission(sub))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListSubmissions(_ context.Context, formIDs []uuid.UUID) ([]*formview.Submission, error) {
	wanted := make(map[uuid.UUID]struct{}, len(formIDs))
	for _, id := range formIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*formview.Submission, 0)
	for _, sub := range s.submissions {
		if _, ok := wanted[sub.FormID]; ok {
			out = append(out, copySubmission(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) InsertSubmission(_ context.Context, submission *formview.Submission) error {
	if submission == nil {
		return fmt.Errorf("submission cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = s.nowFunc().UTC()
	}
	if _, exists := s.submissions[submission.ID]; exists {
		return fmt.Errorf("submission %s already exists", submission.ID)
	}
	s.submissions[submission.ID] = copySubmission(submission)
	return nil
}

func (s *MemoryStore) UpdateSubmissionData(_ context.Context, id uuid.UUID, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return formview.NewNotFoundError(formview.ErrCodeSubmissionNotFound, "Submission", id.String())
	}
	sub.Data = cloneData(dataOrEmpty(data))
	return nil
}

// UpdateSubmissionsData applies every update or none.
func (s *MemoryStore) UpdateSubmissionsData(_ context.Context, updates []SubmissionDataUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		if _, ok := s.submissions[u.ID]; !ok {
			return formview.NewNotFoundError(formview.ErrCodeSubmissionNotFound, "Submission", u.ID.String())
		}
	}
	for _, u := range updates {
		s.submissions[u.ID].Data = cloneData(dataOrEmpty(u.Data))
	}
	return nil
}

func (s *MemoryStore) GetView(_ context.Context, id uuid.UUID) (*formview.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[id]
	if !ok {
		return nil, formview.NewNotFoundError(formview.ErrCodeViewNotFound, "View", id.String())
	}
	return v, nil
}

func sortForms(forms []*formview.Form) {
	sort.Slice(forms, func(i, j int) bool {
		if !forms[i].CreatedAt.Equal(forms[j].CreatedAt) {
			return forms[i].CreatedAt.Before(forms[j].CreatedAt)
		}
		return forms[i].ID.String() < forms[j].ID.String()
	})
}

// Package inmem provides an in-memory curriculum.Archive for testing and
// local development. Records live in process memory and are lost when the
// process exits; the mongo subpackage is the durable twin.
package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/emberloop/ember/curriculum"
	"github.com/emberloop/ember/domain"
)

// Archive implements curriculum.Archive using an in-process map. It is safe
// for concurrent use.
type Archive struct {
	mu   sync.RWMutex
	byID map[string]*curriculum.ResolvedCurriculum
}

// New returns an empty in-memory archive.
func New() *Archive {
	return &Archive{byID: make(map[string]*curriculum.ResolvedCurriculum)}
}

// Put stores cur keyed by its ID, overwriting any previous record.
func (a *Archive) Put(_ context.Context, cur *curriculum.ResolvedCurriculum) error {
	if cur == nil || cur.ID == "" {
		return domain.NewError(domain.KindValidation, "curriculum id is required")
	}
	cp := *cur
	a.mu.Lock()
	a.byID[cur.ID] = &cp
	a.mu.Unlock()
	return nil
}

// Get returns the curriculum with the given id.
func (a *Archive) Get(_ context.Context, id string) (*curriculum.ResolvedCurriculum, error) {
	a.mu.RLock()
	cur, ok := a.byID[id]
	a.mu.RUnlock()
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "curriculum %s not found", id)
	}
	cp := *cur
	return &cp, nil
}

// ListByUser returns the user's curricula, newest first.
func (a *Archive) ListByUser(_ context.Context, userID string) ([]*curriculum.ResolvedCurriculum, error) {
	a.mu.RLock()
	var out []*curriculum.ResolvedCurriculum
	for _, cur := range a.byID {
		if cur.UserID == userID {
			cp := *cur
			out = append(out, &cp)
		}
	}
	a.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

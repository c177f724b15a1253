package core

import (
	"context"
	"sync"

	"definecore/pkg/define"
)

// StandardLoader produces the terminology packages known to the service.
// terminology.Catalog implements it.
type StandardLoader interface {
	Load(ctx context.Context) (define.StandardLookup, error)
}

// Standards holds the standard lookup shared by the service and the
// extensibility rule. Replace swaps the whole lookup.
type Standards struct {
	mu     sync.RWMutex
	lookup define.StandardLookup
}

// NewStandards returns a holder seeded with lookup.
func NewStandards(lookup define.StandardLookup) *Standards {
	return &Standards{lookup: copyLookup(lookup)}
}

// Lookup returns a copy of the current lookup.
func (s *Standards) Lookup() define.StandardLookup {
	if s == nil {
		return define.StandardLookup{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyLookup(s.lookup)
}

// Replace installs lookup.
func (s *Standards) Replace(lookup define.StandardLookup) {
	s.mu.Lock()
	s.lookup = copyLookup(lookup)
	s.mu.Unlock()
}

// Resolve returns the standard codelist backing cl, if any.
func (s *Standards) Resolve(cl define.CodeList) (*define.StandardCodeList, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	std, ok := s.lookup.Resolve(cl)
	if !ok {
		return nil, false
	}
	return &std, true
}

func copyLookup(in define.StandardLookup) define.StandardLookup {
	out := make(define.StandardLookup, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Package oid allocates unique, prefixed identifiers for metadata entities.
package oid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"definecore/pkg/define"
)

// ErrUnknownEntityType is returned when no prefix is registered for an entity type.
var ErrUnknownEntityType = errors.New("unknown entity type")

var prefixes = map[define.EntityType]string{
	define.EntityItemGroup:      "IG.",
	define.EntityItemDef:        "IT.",
	define.EntityItemRef:        "IR.",
	define.EntityCodeList:       "CL.",
	define.EntityCodeListItem:   "CLI.",
	define.EntityLeaf:           "LF.",
	define.EntityAnalysisResult: "AR.",
	define.EntityResultDisplay:  "RD.",
}

// Prefix returns the identifier prefix of the entity type.
func Prefix(entity define.EntityType) (string, error) {
	prefix, ok := prefixes[entity]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, entity)
	}
	return prefix, nil
}

// Allocate returns an identifier for entity absent from existing. With a name
// hint the suffix is derived from the hint; otherwise it is numeric.
func Allocate(entity define.EntityType, existing []string, nameHint string) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		taken[id] = struct{}{}
	}
	return allocate(entity, taken, nameHint)
}

func allocate(entity define.EntityType, taken map[string]struct{}, nameHint string) (string, error) {
	prefix, err := Prefix(entity)
	if err != nil {
		return "", err
	}
	if base := sanitize(nameHint); base != "" {
		candidate := prefix + base
		if _, exists := taken[candidate]; !exists {
			return candidate, nil
		}
		for n := 2; ; n++ {
			candidate = prefix + base + "." + strconv.Itoa(n)
			if _, exists := taken[candidate]; !exists {
				return candidate, nil
			}
		}
	}
	for n := len(taken) + 1; ; n++ {
		candidate := prefix + strconv.Itoa(n)
		if _, exists := taken[candidate]; !exists {
			return candidate, nil
		}
	}
}

// sanitize keeps the characters allowed in an identifier suffix.
func sanitize(hint string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(hint) {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), ".")
}

// Pool allocates identifiers across a batch so successive allocations never repeat.
// A Pool is not safe for concurrent use.
type Pool struct {
	taken map[define.EntityType]map[string]struct{}
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{taken: map[define.EntityType]map[string]struct{}{}}
}

// Reserve marks existing identifiers of entity as taken.
func (p *Pool) Reserve(entity define.EntityType, ids ...string) {
	set, ok := p.taken[entity]
	if !ok {
		set = map[string]struct{}{}
		p.taken[entity] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
}

// Allocate returns a fresh identifier and reserves it.
func (p *Pool) Allocate(entity define.EntityType, nameHint string) (string, error) {
	p.Reserve(entity)
	id, err := allocate(entity, p.taken[entity], nameHint)
	if err != nil {
		return "", err
	}
	p.taken[entity][id] = struct{}{}
	return id, nil
}

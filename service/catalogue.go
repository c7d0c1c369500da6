// Package service defines the collaborator interfaces the engine consumes:
// the read-only terminology catalogue and the resolution cache. Interfaces
// are kept small (1-2 methods) so implementations compose freely.
package service

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a concept or translation has no catalogue
// entry. It is a lookup outcome, not a failure.
var ErrNotFound = errors.New("not found")

// ConceptStatus is the lifecycle status of a catalogue concept.
type ConceptStatus string

// Concept statuses.
const (
	StatusActive   ConceptStatus = "active"
	StatusInactive ConceptStatus = "inactive"
)

// ConceptRecord is one catalogued concept, owned by the externally
// maintained terminology catalogue and read-only to this engine.
type ConceptRecord struct {
	Code           string
	SystemOID      string
	Status         ConceptStatus
	DefaultDisplay string
}

// ConceptTranslation is a localized display for a concept.
type ConceptTranslation struct {
	Language string
	Country  string // optional refinement, empty for language-wide rows
	Display  string
}

// --- Small Interfaces ---

// ConceptFinder looks up a concept by its dual key.
type ConceptFinder interface {
	// FindConcept returns the active concept for (code, systemOID), or
	// ErrNotFound.
	FindConcept(ctx context.Context, code, systemOID string) (*ConceptRecord, error)
}

// TranslationFinder looks up a localized display for a concept.
type TranslationFinder interface {
	// FindTranslation returns the display for (concept, language) with an
	// optional country refinement, or ErrNotFound. Implementations prefer
	// an exact (language, country) row over a language-wide row.
	FindTranslation(ctx context.Context, concept *ConceptRecord, language, country string) (string, error)
}

// ValueSetFinder performs the secondary cross-reference lookup keyed by a
// value set's defining OID, used when the dual-key lookup misses.
type ValueSetFinder interface {
	// FindInValueSet returns the concept for code within the value set
	// identified by valueSetOID, or ErrNotFound.
	FindInValueSet(ctx context.Context, code, valueSetOID string) (*ConceptRecord, error)
}

// CatalogueStore combines the lookups the resolver needs.
type CatalogueStore interface {
	ConceptFinder
	TranslationFinder
	ValueSetFinder
}

// --- Cache ---

// CachedTerm is a resolved display held in a cache backend. The display
// and provenance are stored rather than the full term because the code and
// system are already part of the cache key.
type CachedTerm struct {
	Display    string `json:"display"`
	Provenance string `json:"provenance"`
}

// TermCache is a cache for resolved terms. Implementations must be safe
// for concurrent use. A backend that is down returns
// (zero, false) from Get and silently drops Set; it must never block
// resolution.
type TermCache interface {
	Get(ctx context.Context, key string) (CachedTerm, bool)
	Set(ctx context.Context, key string, term CachedTerm, ttl time.Duration)
}

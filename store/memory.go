// Package store provides CatalogueStore implementations: an in-memory
// store for tests and embedded deployments, and (in the postgres
// subpackage) a PostgreSQL-backed store for a shared catalogue.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/clindoc/normalizer/service"
)

// MemoryStore implements service.CatalogueStore using in-memory maps.
// It is safe for concurrent use and resettable for test isolation.
type MemoryStore struct {
	mu           sync.RWMutex
	concepts     map[string]*service.ConceptRecord      // systemOID|code
	translations map[string][]service.ConceptTranslation // systemOID|code
	valueSets    map[string]map[string]*service.ConceptRecord // valueSetOID -> code
}

// NewMemoryStore creates an empty in-memory catalogue store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.Reset()
	return s
}

// Reset clears everything. Intended for test isolation.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concepts = make(map[string]*service.ConceptRecord)
	s.translations = make(map[string][]service.ConceptTranslation)
	s.valueSets = make(map[string]map[string]*service.ConceptRecord)
}

func conceptKey(code, systemOID string) string {
	return systemOID + "|" + code
}

// AddConcept registers a concept. The zero status defaults to active.
func (s *MemoryStore) AddConcept(rec service.ConceptRecord) {
	if rec.Status == "" {
		rec.Status = service.StatusActive
	}
	s.mu.Lock()
	s.concepts[conceptKey(rec.Code, rec.SystemOID)] = &rec
	s.mu.Unlock()
}

// AddTranslation registers a localized display for a concept.
func (s *MemoryStore) AddTranslation(code, systemOID string, tr service.ConceptTranslation) {
	key := conceptKey(code, systemOID)
	s.mu.Lock()
	s.translations[key] = append(s.translations[key], tr)
	s.mu.Unlock()
}

// AddToValueSet registers a concept as a member of a value set, enabling
// the secondary cross-reference lookup.
func (s *MemoryStore) AddToValueSet(valueSetOID string, rec service.ConceptRecord) {
	if rec.Status == "" {
		rec.Status = service.StatusActive
	}
	s.mu.Lock()
	vs, ok := s.valueSets[valueSetOID]
	if !ok {
		vs = make(map[string]*service.ConceptRecord)
		s.valueSets[valueSetOID] = vs
	}
	vs[rec.Code] = &rec
	s.mu.Unlock()
}

// FindConcept returns the active concept for (code, systemOID).
// Inactive concepts are treated as absent.
func (s *MemoryStore) FindConcept(_ context.Context, code, systemOID string) (*service.ConceptRecord, error) {
	s.mu.RLock()
	rec, ok := s.concepts[conceptKey(code, systemOID)]
	s.mu.RUnlock()
	if !ok || rec.Status != service.StatusActive {
		return nil, service.ErrNotFound
	}
	return rec, nil
}

// FindTranslation returns the localized display for a concept, preferring
// an exact (language, country) row over a language-wide row.
func (s *MemoryStore) FindTranslation(_ context.Context, concept *service.ConceptRecord, language, country string) (string, error) {
	if concept == nil {
		return "", service.ErrNotFound
	}
	s.mu.RLock()
	rows := s.translations[conceptKey(concept.Code, concept.SystemOID)]
	s.mu.RUnlock()

	var languageWide string
	for _, tr := range rows {
		if !strings.EqualFold(tr.Language, language) {
			continue
		}
		if country != "" && strings.EqualFold(tr.Country, country) {
			return tr.Display, nil
		}
		if tr.Country == "" && languageWide == "" {
			languageWide = tr.Display
		}
	}
	if languageWide != "" {
		return languageWide, nil
	}
	return "", service.ErrNotFound
}

// FindInValueSet returns the concept for code within the given value set.
func (s *MemoryStore) FindInValueSet(_ context.Context, code, valueSetOID string) (*service.ConceptRecord, error) {
	s.mu.RLock()
	vs, ok := s.valueSets[valueSetOID]
	var rec *service.ConceptRecord
	if ok {
		rec = vs[code]
	}
	s.mu.RUnlock()
	if rec == nil || rec.Status != service.StatusActive {
		return nil, service.ErrNotFound
	}
	return rec, nil
}

// Counts returns the number of concepts and translations loaded.
func (s *MemoryStore) Counts() (concepts, translations int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	concepts = len(s.concepts)
	for _, rows := range s.translations {
		translations += len(rows)
	}
	return concepts, translations
}

// Verify interface compliance
var _ service.CatalogueStore = (*MemoryStore)(nil)

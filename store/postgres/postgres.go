// Package postgres implements a read-only CatalogueStore backed by a
// PostgreSQL terminology catalogue populated by an external import
// process. The engine never writes to it.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/clindoc/normalizer/service"
)

// Store implements service.CatalogueStore against the catalogue schema:
// concepts(code, code_system_oid, status, default_display),
// concept_translations(code, code_system_oid, language, country, display),
// value_set_members(value_set_oid, code, code_system_oid).
type Store struct {
	db *sql.DB
}

// Open connects to the catalogue database and verifies the connection.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open catalogue db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalogue db: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool, e.g. one shared with other
// read-only consumers.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindConcept returns the active concept for (code, systemOID).
func (s *Store) FindConcept(ctx context.Context, code, systemOID string) (*service.ConceptRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT code, code_system_oid, status, default_display
		   FROM concepts
		  WHERE code = $1 AND code_system_oid = $2 AND status = 'active'`,
		code, systemOID)

	var rec service.ConceptRecord
	var status string
	if err := row.Scan(&rec.Code, &rec.SystemOID, &status, &rec.DefaultDisplay); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("find concept %s|%s: %w", systemOID, code, err)
	}
	rec.Status = service.ConceptStatus(status)
	return &rec, nil
}

// FindTranslation returns the localized display for a concept, preferring
// an exact (language, country) row over a language-wide row.
func (s *Store) FindTranslation(ctx context.Context, concept *service.ConceptRecord, language, country string) (string, error) {
	if concept == nil {
		return "", service.ErrNotFound
	}
	// ORDER BY puts the country-refined row first when one exists.
	row := s.db.QueryRowContext(ctx,
		`SELECT display
		   FROM concept_translations
		  WHERE code = $1 AND code_system_oid = $2 AND lower(language) = lower($3)
		    AND (country = '' OR upper(country) = upper($4))
		  ORDER BY (upper(country) = upper($4)) DESC
		  LIMIT 1`,
		concept.Code, concept.SystemOID, language, country)

	var display string
	if err := row.Scan(&display); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", service.ErrNotFound
		}
		return "", fmt.Errorf("find translation %s|%s/%s: %w", concept.SystemOID, concept.Code, language, err)
	}
	return display, nil
}

// FindInValueSet returns the concept for code within the given value set.
func (s *Store) FindInValueSet(ctx context.Context, code, valueSetOID string) (*service.ConceptRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT c.code, c.code_system_oid, c.status, c.default_display
		   FROM value_set_members m
		   JOIN concepts c
		     ON c.code = m.code AND c.code_system_oid = m.code_system_oid
		  WHERE m.value_set_oid = $1 AND m.code = $2 AND c.status = 'active'
		  LIMIT 1`,
		valueSetOID, code)

	var rec service.ConceptRecord
	var status string
	if err := row.Scan(&rec.Code, &rec.SystemOID, &status, &rec.DefaultDisplay); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("find in value set %s: %w", valueSetOID, err)
	}
	rec.Status = service.ConceptStatus(status)
	return &rec, nil
}

// Verify interface compliance
var _ service.CatalogueStore = (*Store)(nil)

package service

import (
	"context"
	"errors"
)

// StoreChain implements CatalogueStore by trying multiple stores in order,
// e.g. a member-state catalogue first and a central fallback catalogue
// second. Chain of responsibility: the first store that finds the record
// wins; ErrNotFound moves on to the next store, any other error aborts.
type StoreChain struct {
	stores []CatalogueStore
}

// NewStoreChain creates a new catalogue store chain.
func NewStoreChain(stores ...CatalogueStore) *StoreChain {
	return &StoreChain{stores: stores}
}

// Add appends a store to the chain.
func (c *StoreChain) Add(store CatalogueStore) {
	c.stores = append(c.stores, store)
}

// FindConcept tries each store until one finds the concept.
func (c *StoreChain) FindConcept(ctx context.Context, code, systemOID string) (*ConceptRecord, error) {
	for _, store := range c.stores {
		rec, err := store.FindConcept(ctx, code, systemOID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// FindTranslation tries each store until one finds a translation.
func (c *StoreChain) FindTranslation(ctx context.Context, concept *ConceptRecord, language, country string) (string, error) {
	for _, store := range c.stores {
		display, err := store.FindTranslation(ctx, concept, language, country)
		if err == nil {
			return display, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", ErrNotFound
}

// FindInValueSet tries each store until one finds the code in the value set.
func (c *StoreChain) FindInValueSet(ctx context.Context, code, valueSetOID string) (*ConceptRecord, error) {
	for _, store := range c.stores {
		rec, err := store.FindInValueSet(ctx, code, valueSetOID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// Verify interface compliance
var _ CatalogueStore = (*StoreChain)(nil)

// Package terminology implements the dual-key terminology resolver: the
// component that turns a (code, code-system OID) pair into localized
// display text.
//
// The resolver is total: it never returns an error and never an empty
// display. Resolution walks a fixed chain (cache, registry check,
// catalogue concept lookup, translation lookup, value-set cross-reference)
// and degrades to a synthesized fallback string when everything misses.
// Every result carries a provenance tag for audit.
//
// Results are cached with separate TTLs for positive and negative
// outcomes, and concurrent lookups for the same key are collapsed into a
// single catalogue query via singleflight. The cache backend is an
// in-process sharded map by default; a Redis backend is available for
// sharing across processes, and a backend that is down is bypassed rather
// than trusted.
package terminology

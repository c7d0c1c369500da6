// Package normalizer provides clinical document normalization and
// terminology resolution for cross-border document exchange.
//
// The engine ingests raw clinical documents in two wire formats, CDA XML
// and FHIR R4 JSON Bundles, resolves every embedded medical code
// (SNOMED CT, LOINC, ICD-10, RxNorm, ATC, UCUM, ...) against a terminology
// catalogue using a dual key (code + code-system OID), and emits a single
// canonical, source-agnostic section structure that rendering layers can
// treat uniformly.
//
// # Quick Start
//
//	import (
//	    cn "github.com/clindoc/normalizer"
//	    "github.com/clindoc/normalizer/pipeline"
//	    "github.com/clindoc/normalizer/store"
//	    "github.com/clindoc/normalizer/terminology"
//	)
//
//	catalogue := store.NewMemoryStore()
//	resolver := terminology.NewResolver(catalogue,
//	    cn.WithTargetLanguage("en"),
//	    cn.WithLookupTimeout(2*time.Second),
//	)
//
//	mgr := pipeline.NewManager(resolver)
//	result, err := mgr.Process(ctx, raw, cn.SourceCDA)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, section := range result.Sections {
//	    fmt.Println(section.Title, section.TotalEntries())
//	}
//
// # Design
//
//   - Dual-key resolution: the same numeric code can mean different things
//     under different code systems, so every lookup carries both the code
//     and its governing OID.
//   - Totality: Resolve never fails and never returns an empty display;
//     unknown codes degrade to an audit-friendly fallback string.
//   - Schema parity: a CDA-sourced and a FHIR-sourced NormalizedSection for
//     an equivalent clinical fact expose the same field set, decoupling
//     rendering from input format.
//   - Partial failure: one broken extractor or one malformed entry never
//     aborts the rest of the document.
//
// # Architecture
//
//   - Small interfaces (1-2 methods each) for the catalogue collaborators
//   - Registry map from section identifier to extractor
//   - Sharded TTL cache with singleflight deduplication for lookups
//   - Bounded worker pool for parallel section extraction
//   - Context-based cancellation and timeout
package normalizer

// Package pipeline orchestrates section extraction for one clinical
// document: it parses the source once, fans the registered extractors
// out over a worker pool, isolates their failures from each other and
// assembles the surviving sections into a deterministic PipelineResult.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/cda"
	"github.com/clindoc/normalizer/fhir"
	"github.com/clindoc/normalizer/section"
	"github.com/clindoc/normalizer/terminology"
	"github.com/clindoc/normalizer/worker"
)

// Manager runs registered section extractors against parsed documents.
// It is safe for concurrent use once configured; Register is not meant
// to be called after processing starts.
type Manager struct {
	extractors map[cn.SectionID]section.Extractor
	resolver   *terminology.Resolver
	opts       *cn.Options
	log        *zap.Logger
}

// NewManager creates a pipeline manager with the default extractor set.
func NewManager(resolver *terminology.Resolver, opts ...cn.Option) *Manager {
	m := NewEmptyManager(resolver, opts...)
	for _, ex := range section.All(section.Config{Resolver: resolver, Logger: m.log}) {
		m.Register(ex)
	}
	return m
}

// NewEmptyManager creates a manager with no extractors registered, for
// callers that want full control over the extractor set.
func NewEmptyManager(resolver *terminology.Resolver, opts ...cn.Option) *Manager {
	o := resolver.Options()
	if len(opts) > 0 {
		o = cn.NewOptions(opts...)
	}
	return &Manager{
		extractors: make(map[cn.SectionID]section.Extractor),
		resolver:   resolver,
		opts:       o,
		log:        o.Logger,
	}
}

// Register adds or replaces the extractor for its section.
func (m *Manager) Register(ex section.Extractor) {
	m.extractors[ex.SectionID()] = ex
}

// Deregister removes the extractor for a section, if any.
func (m *Manager) Deregister(id cn.SectionID) {
	delete(m.extractors, id)
}

// Metrics returns the shared metrics collector.
func (m *Manager) Metrics() *cn.Metrics {
	return m.resolver.Metrics()
}

// Process parses a raw document of the given source format and runs the
// full extraction pipeline over it. An error is returned only when the
// document itself cannot be parsed; individual extractor failures are
// recorded and skipped.
func (m *Manager) Process(ctx context.Context, data []byte, source cn.SourceType) (*cn.PipelineResult, error) {
	switch source {
	case cn.SourceCDA:
		doc, err := cda.Parse(data)
		if err != nil {
			return nil, err
		}
		return m.ProcessCDA(ctx, doc), nil
	case cn.SourceFHIR:
		bundle, err := fhir.ParseBundle(data)
		if err != nil {
			return nil, err
		}
		return m.ProcessFHIR(ctx, bundle), nil
	default:
		return nil, fmt.Errorf("unsupported source type %q", source)
	}
}

// ProcessCDA runs every registered extractor against a parsed CDA
// document.
func (m *Manager) ProcessCDA(ctx context.Context, doc *cda.ClinicalDocument) *cn.PipelineResult {
	return m.run(ctx, cn.SourceCDA, func(ctx context.Context, ex section.Extractor) (*cn.NormalizedSection, error) {
		return ex.ExtractCDA(ctx, doc)
	})
}

// ProcessFHIR runs every registered extractor against a parsed FHIR
// bundle.
func (m *Manager) ProcessFHIR(ctx context.Context, bundle *fhir.Bundle) *cn.PipelineResult {
	return m.run(ctx, cn.SourceFHIR, func(ctx context.Context, ex section.Extractor) (*cn.NormalizedSection, error) {
		return ex.ExtractFHIR(ctx, bundle)
	})
}

type extractFunc func(ctx context.Context, ex section.Extractor) (*cn.NormalizedSection, error)

// run dispatches the extractors, serially or over the worker pool, and
// assembles the result. Failed extractors cost their own section and
// nothing else.
func (m *Manager) run(ctx context.Context, source cn.SourceType, extract extractFunc) *cn.PipelineResult {
	m.Metrics().RecordDocument()

	result := cn.AcquireResult()
	result.Source = source

	ordered := m.ordered()
	if m.opts.ParallelSections && len(ordered) > 1 {
		m.runParallel(ctx, ordered, extract, result)
	} else {
		m.runSerial(ctx, ordered, extract, result)
	}

	result.Finalize()
	return result
}

func (m *Manager) runParallel(ctx context.Context, ordered []section.Extractor, extract extractFunc, result *cn.PipelineResult) {
	jobs := make([]worker.Job, 0, len(ordered))
	for _, ex := range ordered {
		ex := ex
		jobs = append(jobs, worker.Job{
			ID: ex.SectionID().String(),
			Run: func(jctx context.Context) error {
				start := time.Now()
				sec, err := extract(jctx, ex)
				if err != nil {
					return err
				}
				if sec != nil {
					m.Metrics().RecordSection(sec.SectionID, time.Since(start), len(sec.Entries))
					result.AddSection(*sec)
				}
				return nil
			},
		})
	}

	for _, res := range worker.RunAll(ctx, m.opts.WorkerCount, jobs) {
		if res.Err != nil {
			m.recordFailure(cn.SectionID(res.ID), res.Err)
		}
	}
}

func (m *Manager) runSerial(ctx context.Context, ordered []section.Extractor, extract extractFunc, result *cn.PipelineResult) {
	for _, ex := range ordered {
		start := time.Now()
		sec, err := m.safeExtract(ctx, ex, extract)
		if err != nil {
			m.recordFailure(ex.SectionID(), err)
			continue
		}
		if sec != nil {
			m.Metrics().RecordSection(sec.SectionID, time.Since(start), len(sec.Entries))
			result.AddSection(*sec)
		}
	}
}

// safeExtract shields the pipeline from a panicking extractor.
func (m *Manager) safeExtract(ctx context.Context, ex section.Extractor, extract extractFunc) (sec *cn.NormalizedSection, err error) {
	defer func() {
		if v := recover(); v != nil {
			sec = nil
			err = fmt.Errorf("%w: %s: panic: %v", cn.ErrExtractorFailure, ex.SectionID(), v)
		}
	}()
	return extract(ctx, ex)
}

func (m *Manager) recordFailure(id cn.SectionID, err error) {
	m.Metrics().RecordSectionFailure()
	m.log.Error("section extraction failed",
		zap.String("section", id.String()),
		zap.Error(err))
}

// ordered returns the registered extractors in SectionID order so runs
// are deterministic regardless of registration or completion order.
func (m *Manager) ordered() []section.Extractor {
	out := make([]section.Extractor, 0, len(m.extractors))
	for _, ex := range m.extractors {
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SectionID() < out[j].SectionID()
	})
	return out
}

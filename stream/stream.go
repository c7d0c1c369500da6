// Package stream processes batches of clinical documents concurrently
// while emitting results in submission order, so callers can pipe many
// documents through the engine and still print deterministic output.
package stream

import (
	"context"
	"sync"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/pipeline"
)

// Document is one input document for batch processing. A loader that
// failed to produce the payload sets Err; the processor passes it
// through so the failure surfaces at the document's position in the
// output instead of being lost.
type Document struct {
	Name   string
	Data   []byte
	Source cn.SourceType
	Err    error
}

// DocumentResult is the outcome for one document. Exactly one of
// Result and Err is set. The consumer owns Result and must Release it.
type DocumentResult struct {
	Index  int
	Name   string
	Result *cn.PipelineResult
	Err    error
}

// Processor runs a pipeline manager over a stream of documents.
type Processor struct {
	manager    *pipeline.Manager
	bufferSize int
	workers    int
}

// NewProcessor creates a batch processor over the given manager.
func NewProcessor(manager *pipeline.Manager) *Processor {
	return &Processor{
		manager:    manager,
		bufferSize: 16,
		workers:    4,
	}
}

// WithBufferSize sets the channel buffer size.
func (p *Processor) WithBufferSize(size int) *Processor {
	if size > 0 {
		p.bufferSize = size
	}
	return p
}

// WithWorkers sets the number of documents processed concurrently.
func (p *Processor) WithWorkers(count int) *Processor {
	if count > 0 {
		p.workers = count
	}
	return p
}

// Run consumes documents and emits one result per document, in input
// order regardless of completion order. The returned channel is closed
// after the last result. Cancelling the context stops processing; the
// remaining documents are reported with the context error.
func (p *Processor) Run(ctx context.Context, docs <-chan Document) <-chan *DocumentResult {
	out := make(chan *DocumentResult, p.bufferSize)

	go func() {
		defer close(out)

		type indexed struct {
			doc   Document
			index int
		}
		jobs := make(chan indexed, p.bufferSize)
		results := make(chan *DocumentResult, p.bufferSize)

		var wg sync.WaitGroup
		wg.Add(p.workers)
		for i := 0; i < p.workers; i++ {
			go func() {
				defer wg.Done()
				for j := range jobs {
					results <- p.processOne(ctx, j.doc, j.index)
				}
			}()
		}

		go func() {
			index := 0
			for doc := range docs {
				jobs <- indexed{doc: doc, index: index}
				index++
			}
			close(jobs)
			wg.Wait()
			close(results)
		}()

		// Reorder completions back into submission order.
		pending := make(map[int]*DocumentResult)
		next := 0
		for r := range results {
			pending[r.Index] = r
			for {
				nr, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				out <- nr
				next++
			}
		}
	}()

	return out
}

func (p *Processor) processOne(ctx context.Context, doc Document, index int) *DocumentResult {
	r := &DocumentResult{Index: index, Name: doc.Name}

	if doc.Err != nil {
		r.Err = doc.Err
		return r
	}
	if err := ctx.Err(); err != nil {
		r.Err = err
		return r
	}

	result, err := p.manager.Process(ctx, doc.Data, doc.Source)
	if err != nil {
		r.Err = err
		return r
	}
	r.Result = result
	return r
}

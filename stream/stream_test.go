package stream

import (
	"context"
	"errors"
	"fmt"
	"testing"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/pipeline"
	"github.com/clindoc/normalizer/store"
	"github.com/clindoc/normalizer/terminology"
)

func newTestManager(t *testing.T) *pipeline.Manager {
	t.Helper()
	return pipeline.NewManager(terminology.NewResolver(store.NewMemoryStore()))
}

func cdaDoc(title string) []byte {
	return []byte(fmt.Sprintf(
		`<ClinicalDocument xmlns="urn:hl7-org:v3"><title>%s</title></ClinicalDocument>`, title))
}

func TestProcessor_OrderedResults(t *testing.T) {
	const n = 20
	docs := make(chan Document, n)
	for i := 0; i < n; i++ {
		docs <- Document{
			Name:   fmt.Sprintf("doc-%02d", i),
			Data:   cdaDoc(fmt.Sprintf("Document %d", i)),
			Source: cn.SourceCDA,
		}
	}
	close(docs)

	proc := NewProcessor(newTestManager(t)).WithWorkers(4)
	index := 0
	for r := range proc.Run(context.Background(), docs) {
		if r.Index != index {
			t.Fatalf("result %d arrived at position %d", r.Index, index)
		}
		if r.Err != nil {
			t.Errorf("%s: unexpected error %v", r.Name, r.Err)
		}
		if r.Result != nil {
			r.Result.Release()
		}
		index++
	}
	if index != n {
		t.Errorf("received %d results, want %d", index, n)
	}
}

func TestProcessor_MixedOutcomes(t *testing.T) {
	loadErr := errors.New("read failed")
	docs := make(chan Document, 3)
	docs <- Document{Name: "good", Data: cdaDoc("ok"), Source: cn.SourceCDA}
	docs <- Document{Name: "unreadable", Err: loadErr}
	docs <- Document{Name: "malformed", Data: []byte("<broken"), Source: cn.SourceCDA}
	close(docs)

	proc := NewProcessor(newTestManager(t)).WithWorkers(2)
	var results []*DocumentResult
	for r := range proc.Run(context.Background(), docs) {
		results = append(results, r)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Err != nil || results[0].Result == nil {
		t.Errorf("good: %+v", results[0])
	}
	results[0].Result.Release()
	if !errors.Is(results[1].Err, loadErr) {
		t.Errorf("unreadable: err = %v, want %v", results[1].Err, loadErr)
	}
	if results[2].Err == nil {
		t.Error("malformed document should fail")
	}
}

func TestProcessor_Empty(t *testing.T) {
	docs := make(chan Document)
	close(docs)

	count := 0
	for range NewProcessor(newTestManager(t)).Run(context.Background(), docs) {
		count++
	}
	if count != 0 {
		t.Errorf("results = %d, want 0", count)
	}
}

func TestProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := make(chan Document, 2)
	docs <- Document{Name: "a", Data: cdaDoc("a"), Source: cn.SourceCDA}
	docs <- Document{Name: "b", Data: cdaDoc("b"), Source: cn.SourceCDA}
	close(docs)

	for r := range NewProcessor(newTestManager(t)).Run(ctx, docs) {
		if r.Err == nil {
			if r.Result != nil {
				r.Result.Release()
			}
			t.Errorf("%s: expected context error", r.Name)
		}
	}
}

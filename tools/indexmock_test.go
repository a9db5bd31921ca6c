package tools

import (
	"errors"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
)

var errMockIndexClosed = errors.New("index closed")

// mockIndex satisfies Index without a bleve index on disk. Each instance
// carries a generation number so swap tests can tell old and new apart;
// DocCount reports one document per indexed chunk.
type mockIndex struct {
	generation int
	chunks     uint64
	closed     atomic.Bool
}

func newMockIndex(generation int) *mockIndex {
	return &mockIndex{
		generation: generation,
		chunks:     100,
	}
}

func (m *mockIndex) Search(req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	if m.closed.Load() {
		return nil, errMockIndexClosed
	}
	// No hits; concurrency tests only care that the call is safe.
	return &bleve.SearchResult{
		Request: req,
		Total:   m.chunks,
	}, nil
}

func (m *mockIndex) DocCount() (uint64, error) {
	if m.closed.Load() {
		return 0, errMockIndexClosed
	}
	return m.chunks, nil
}

func (m *mockIndex) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return errors.New("already closed")
	}
	return nil
}

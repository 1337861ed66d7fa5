package metadata

import (
	"context"
	"time"
)

// Metrics observes metadata store calls.
type Metrics interface {
	RecordOperation(operation string, duration time.Duration, err error)
}

// InstrumentedStore reports the duration and outcome of every call of the
// wrapped store.
type InstrumentedStore struct {
	Store
	metrics Metrics
}

// Instrument wraps store. A nil m returns store unchanged.
func Instrument(store Store, m Metrics) Store {
	if m == nil {
		return store
	}
	return &InstrumentedStore{Store: store, metrics: m}
}

func (s *InstrumentedStore) record(op string, start time.Time, err error) {
	s.metrics.RecordOperation(op, time.Since(start), err)
}

func (s *InstrumentedStore) ReadIndex(ctx context.Context, domain string) (*Index, error) {
	start := time.Now()
	index, err := s.Store.ReadIndex(ctx, domain)
	s.record("read_index", start, err)
	return index, err
}

func (s *InstrumentedStore) SaveIndex(ctx context.Context, domain string, index *Index) error {
	start := time.Now()
	err := s.Store.SaveIndex(ctx, domain, index)
	s.record("save_index", start, err)
	return err
}

func (s *InstrumentedStore) GetFile(ctx context.Context, domain, id string) (*FileRecord, error) {
	start := time.Now()
	record, err := s.Store.GetFile(ctx, domain, id)
	s.record("get_file", start, err)
	return record, err
}

func (s *InstrumentedStore) SaveFile(ctx context.Context, domain string, record *FileRecord) error {
	start := time.Now()
	err := s.Store.SaveFile(ctx, domain, record)
	s.record("save_file", start, err)
	return err
}

func (s *InstrumentedStore) DeleteFile(ctx context.Context, domain, id string) (bool, error) {
	start := time.Now()
	removed, err := s.Store.DeleteFile(ctx, domain, id)
	s.record("delete_file", start, err)
	return removed, err
}

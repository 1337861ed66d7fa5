package memory

import (
	"context"
	"sync"

	"github.com/marmos91/filewallet/pkg/store/metadata"
)

// MemoryMetadataStore implements metadata.Store in process memory.
//
// Values are kept in their serialized JSON form, so every read decodes a
// fresh copy and callers can never alias stored state. Data is lost on
// restart; use it for tests and single-process development.
//
// Thread Safety:
// All operations are protected by a single read-write mutex.
type MemoryMetadataStore struct {
	mu sync.RWMutex

	// indexes maps domain -> encoded Index
	indexes map[string][]byte

	// files maps domain -> id -> encoded FileRecord
	files map[string]map[string][]byte

	closed bool
}

// NewMemoryMetadataStore returns an empty store.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{
		indexes: make(map[string][]byte),
		files:   make(map[string]map[string][]byte),
	}
}

func (s *MemoryMetadataStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return metadata.NewError(metadata.ErrClosed, "", "memory store closed", nil)
	}
	return nil
}

func (s *MemoryMetadataStore) ReadIndex(ctx context.Context, domain string) (*metadata.Index, error) {
	if err := metadata.ValidateDomain(domain); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	data, ok := s.indexes[domain]
	if !ok {
		return metadata.NewIndex(), nil
	}
	return metadata.DecodeIndex(domain, data)
}

func (s *MemoryMetadataStore) SaveIndex(ctx context.Context, domain string, index *metadata.Index) error {
	if err := metadata.ValidateDomain(domain); err != nil {
		return err
	}
	data, err := metadata.EncodeIndex(index)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, domain, "failed to encode index", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	s.indexes[domain] = data
	return nil
}

func (s *MemoryMetadataStore) GetFile(ctx context.Context, domain, id string) (*metadata.FileRecord, error) {
	if err := metadata.ValidateKey(domain, id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	data, ok := s.files[domain][id]
	if !ok {
		return nil, nil
	}
	return metadata.DecodeFile(domain, data)
}

func (s *MemoryMetadataStore) SaveFile(ctx context.Context, domain string, record *metadata.FileRecord) error {
	if err := metadata.ValidateRecord(domain, record); err != nil {
		return err
	}
	data, err := metadata.EncodeFile(record)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, domain, "failed to encode file record", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	files, ok := s.files[domain]
	if !ok {
		files = make(map[string][]byte)
		s.files[domain] = files
	}
	files[record.ID] = data
	return nil
}

func (s *MemoryMetadataStore) DeleteFile(ctx context.Context, domain, id string) (bool, error) {
	if err := metadata.ValidateKey(domain, id); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}

	files := s.files[domain]
	if _, ok := files[id]; !ok {
		return false, nil
	}
	delete(files, id)
	if len(files) == 0 {
		delete(s.files, domain)
	}
	return true, nil
}

func (s *MemoryMetadataStore) Domains(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	domains := make([]string, 0, len(s.indexes))
	for domain := range s.indexes {
		domains = append(domains, domain)
	}
	return domains, nil
}

// Healthcheck always succeeds for an open store.
func (s *MemoryMetadataStore) Healthcheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx)
}

func (s *MemoryMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

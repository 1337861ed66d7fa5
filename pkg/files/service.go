// Package files implements the files service: folder creation and deletion,
// listing, upload, download and delete for one domain at a time.
//
// Every operation resolves the domain from the caller's hostname, consults
// the permission gate, then talks to the metadata store and the domain's
// storage backend. Validation and permission checks always run before the
// first side effect.
//
// Ordering:
//
//	upload: backend raw write, backend meta write, SaveFile, SaveIndex
//	delete: backend DeleteMany (failures logged), SaveIndex, DeleteFile
//
// so the Index never references a record that does not exist.
package files

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/filewallet/pkg/access"
	"github.com/marmos91/filewallet/pkg/store/content"
	"github.com/marmos91/filewallet/pkg/store/metadata"
)

// Backends resolves the storage backend serving a domain.
type Backends interface {
	Backend(ctx context.Context, domain string) (content.Backend, error)
}

// Config wires a Service.
type Config struct {
	// AgentID identifies this deployment to the ACL service and in /status.
	AgentID string

	// Version is reported by Status.
	Version string

	Backends Backends
	Store    metadata.Store
	Gate     access.Gate

	// Metrics is optional.
	Metrics Metrics
}

// Service is safe for concurrent use. It holds no per-request state.
type Service struct {
	agentID  string
	version  string
	backends Backends
	store    metadata.Store
	gate     access.Gate
	metrics  Metrics

	now   func() time.Time
	newID func() (string, error)
}

// New validates cfg and returns a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Backends == nil {
		return nil, errors.New("files: backends are required")
	}
	if cfg.Store == nil {
		return nil, errors.New("files: metadata store is required")
	}
	if cfg.Gate == nil {
		return nil, errors.New("files: permission gate is required")
	}

	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	return &Service{
		agentID:  cfg.AgentID,
		version:  cfg.Version,
		backends: cfg.Backends,
		store:    cfg.Store,
		gate:     cfg.Gate,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    NewID,
	}, nil
}

// Permissions returns what the caller may do on its domain.
func (s *Service) Permissions(ctx context.Context, c Caller) access.Permissions {
	return s.gate.Check(ctx, c.Identity, c.Domain())
}

func (s *Service) requireEdit(ctx context.Context, c Caller) (access.Permissions, error) {
	if !c.Authenticated() {
		return access.Permissions{}, errUnauthenticated()
	}
	perms := s.Permissions(ctx, c)
	if !perms.Edit {
		return perms, errForbidden("edit permission required")
	}
	return perms, nil
}

func (s *Service) requireAdmin(ctx context.Context, c Caller) (access.Permissions, error) {
	if !c.Authenticated() {
		return access.Permissions{}, errUnauthenticated()
	}
	perms := s.Permissions(ctx, c)
	if !perms.Admin {
		return perms, errForbidden("admin permission required")
	}
	return perms, nil
}

func (s *Service) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveOperation(op, time.Since(start), *err)
}

// Status is the diagnostic summary served at /status.
type Status struct {
	Agent       string `json:"agent"`
	Version     string `json:"version"`
	FileCount   int    `json:"fileCount"`
	FolderCount int    `json:"folderCount"`
	Storage     string `json:"storage"`
}

// Status summarises the caller's domain. An unavailable backend is
// reported in Storage rather than as an error.
func (s *Service) Status(ctx context.Context, c Caller) (*Status, error) {
	domain := c.Domain()

	index, err := s.store.ReadIndex(ctx, domain)
	if err != nil {
		return nil, errInternal("status", err)
	}

	folders := make([]string, 0, index.Len()+len(index.Folders))
	for _, e := range index.Files {
		folders = append(folders, e.Folder)
	}
	folders = append(folders, index.Folders...)

	storage := "unavailable"
	if b, err := s.backends.Backend(ctx, domain); err == nil {
		storage = b.Type()
	}

	return &Status{
		Agent:       s.agentID,
		Version:     s.version,
		FileCount:   index.Len(),
		FolderCount: len(allFolders(folders)),
		Storage:     storage,
	}, nil
}

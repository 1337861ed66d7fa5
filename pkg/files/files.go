package files

import (
	"context"
	"errors"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/code19m/errx"
	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/access"
	"github.com/marmos91/filewallet/pkg/store/content"
	"github.com/marmos91/filewallet/pkg/store/metadata"
	"github.com/samber/lo"
)

// DefaultMimeType is recorded when the uploader declares none.
const DefaultMimeType = "application/octet-stream"

// UploadInput is one buffered upload.
type UploadInput struct {
	Data     []byte
	Name     string
	MimeType string
	Folder   string
}

// Download is the result of Download: either the bytes or a URL the client
// should be redirected to.
type Download struct {
	Record      *metadata.FileRecord
	Data        []byte
	RedirectURL string
}

// Upload stores in.Data and records it in in.Folder.
//
// The raw bytes and the record blob are written to the backend first. If
// either write fails nothing is persisted in the metadata store; a raw
// object written before a failed meta write is left for the sweeper.
func (s *Service) Upload(ctx context.Context, c Caller, in UploadInput) (_ *metadata.FileRecord, err error) {
	defer s.observe("upload", time.Now(), &err)

	if _, err := s.requireEdit(ctx, c); err != nil {
		return nil, err
	}

	name := displayName(in.Name)
	if name == "" {
		return nil, errInvalidInput("file name is required", nil)
	}
	folder, err := CleanFolder(in.Folder)
	if err != nil {
		return nil, err
	}
	mimeType := strings.TrimSpace(in.MimeType)
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	domain := c.Domain()

	id, err := s.newID()
	if err != nil {
		return nil, errInternal("upload", err)
	}
	hash, err := ContentHash(in.Data)
	if err != nil {
		return nil, errInternal("upload", err)
	}

	backend, err := s.backends.Backend(ctx, domain)
	if err != nil {
		logger.Error("Upload of %q to %s failed resolving backend: %v", name, domain, err)
		return nil, errUpload(err, errx.D{"stage": "backend"})
	}

	keys := backend.Layout().FileKeys(domain, id, name)
	now := s.now()

	record := &metadata.FileRecord{
		ID:         id,
		Name:       name,
		MimeType:   mimeType,
		Size:       int64(len(in.Data)),
		Hash:       hash,
		CreatedAt:  now,
		ModifiedAt: now,
		CreatedBy:  c.Identity,
		ModifiedBy: c.Identity,
		Folder:     folder,
		Backend:    backend.Type(),
		BaseKey:    keys.Base,
	}

	record.StorageKey, err = backend.Write(ctx, keys.Raw, in.Data)
	if err != nil {
		logger.Error("Upload of %q to %s failed writing bytes: %v", name, domain, err)
		return nil, errUpload(err, errx.D{"stage": "raw"})
	}

	blob, err := metadata.EncodeFile(record)
	if err != nil {
		return nil, errInternal("upload", err)
	}
	record.MetaKey, err = backend.Write(ctx, keys.Meta, blob)
	if err != nil {
		logger.Error("Upload of %q to %s failed writing record blob, %s is orphaned: %v",
			name, domain, record.StorageKey, err)
		return nil, errUpload(err, errx.D{"stage": "meta"})
	}

	if err := s.store.SaveFile(ctx, domain, record); err != nil {
		return nil, errInternal("upload", err)
	}

	index, err := s.store.ReadIndex(ctx, domain)
	if err != nil {
		return nil, errInternal("upload", err)
	}
	index.Put(id, folder)
	if err := s.store.SaveIndex(ctx, domain, index); err != nil {
		return nil, errInternal("upload", err)
	}

	s.metrics.RecordBytes("upload", record.Size)
	logger.Info("Uploaded %s (%q, %d bytes) to %s/%s by %s", id, name, record.Size, domain, folder, c.Identity)

	return record, nil
}

// Download resolves file id for reading. Anyone may download.
func (s *Service) Download(ctx context.Context, c Caller, id string) (_ *Download, err error) {
	defer s.observe("download", time.Now(), &err)

	domain := c.Domain()

	record, err := s.lookup(ctx, domain, id, "download")
	if err != nil {
		return nil, err
	}

	locator := record.RawKey()
	if locator == "" {
		return nil, errNotFound("file content not found", errx.D{"id": id})
	}

	backend, err := s.backends.Backend(ctx, domain)
	if err != nil {
		return nil, errBackend("download", err)
	}

	if resolver, ok := backend.(content.URLResolver); ok {
		if url, ok := resolver.URL(locator); ok {
			return &Download{Record: record, RedirectURL: url}, nil
		}
	}

	data, err := backend.Read(ctx, locator)
	if errors.Is(err, content.ErrNotFound) {
		return nil, errNotFound("file content not found", errx.D{"id": id})
	}
	if err != nil {
		return nil, errBackend("download", err)
	}

	s.metrics.RecordBytes("download", int64(len(data)))
	return &Download{Record: record, Data: data}, nil
}

// Delete removes file id. The creator (compared case-insensitively) and
// admins may delete.
//
// Backend deletion is attempted first and its failure is only logged: the
// metadata store decides whether a file exists. On content-addressed media
// objects still referenced by another file are kept.
func (s *Service) Delete(ctx context.Context, c Caller, id string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	if !c.Authenticated() {
		return errUnauthenticated()
	}

	domain := c.Domain()

	record, err := s.lookup(ctx, domain, id, "delete")
	if err != nil {
		return err
	}

	if !access.SameIdentity(record.CreatedBy, c.Identity) && !s.Permissions(ctx, c).Admin {
		return errForbidden("only the owner or an admin can delete this file")
	}

	if backend, err := s.backends.Backend(ctx, domain); err != nil {
		logger.Warn("Backend for %s unavailable, %s objects left behind: %v", domain, id, err)
	} else {
		s.release(ctx, backend, domain, id, record.Locators())
	}

	index, err := s.store.ReadIndex(ctx, domain)
	if err != nil {
		return errInternal("delete", err)
	}
	if index.Remove(id) {
		if err := s.store.SaveIndex(ctx, domain, index); err != nil {
			return errInternal("delete", err)
		}
	}

	if _, err := s.store.DeleteFile(ctx, domain, id); err != nil {
		return errInternal("delete", err)
	}

	logger.Info("Deleted %s from %s by %s", id, domain, c.Identity)
	return nil
}

// release deletes locators from backend. Failures are logged only.
//
// On content-addressed media identical bytes share a locator in every
// domain, so a locator is kept while any other file (exceptID in domain
// aside) or recorded placeholder references it.
func (s *Service) release(ctx context.Context, backend content.Backend, domain, exceptID string, locators []string) {
	if content.ContentAddressed(backend.Layout()) {
		locators = s.unsharedLocators(ctx, domain, exceptID, locators)
	}
	if len(locators) == 0 {
		return
	}
	if err := backend.DeleteMany(ctx, locators); err != nil {
		logger.Warn("Deleting objects %v on %s failed: %v", locators, domain, err)
	}
}

// unsharedLocators returns the locators nothing else references. When the
// references cannot be established it returns none.
func (s *Service) unsharedLocators(ctx context.Context, domain, exceptID string, locators []string) []string {
	domains, err := s.store.Domains(ctx)
	if err != nil {
		logger.Warn("Listing domains failed, keeping %v: %v", locators, err)
		return nil
	}
	if !slices.Contains(domains, domain) {
		domains = append(domains, domain)
	}

	candidates := lo.SliceToMap(locators, func(l string) (string, struct{}) {
		return l, struct{}{}
	})

	for _, d := range domains {
		index, err := s.store.ReadIndex(ctx, d)
		if err != nil {
			logger.Warn("Reading index of %s failed, keeping %v: %v", d, locators, err)
			return nil
		}
		for _, loc := range index.FolderMarkers {
			delete(candidates, loc)
		}
		for id := range index.Files {
			if len(candidates) == 0 {
				return nil
			}
			if d == domain && id == exceptID {
				continue
			}
			record, err := s.store.GetFile(ctx, d, id)
			if err != nil {
				logger.Warn("Reading record %s of %s failed, keeping %v: %v", id, d, locators, err)
				return nil
			}
			if record == nil {
				continue
			}
			for _, loc := range record.Locators() {
				delete(candidates, loc)
			}
		}
	}

	return lo.Filter(locators, func(l string, _ int) bool {
		_, ok := candidates[l]
		return ok
	})
}

// lookup returns the record of id or a NOT_FOUND error. Ids that cannot be
// store keys are reported as not found.
func (s *Service) lookup(ctx context.Context, domain, id, op string) (*metadata.FileRecord, error) {
	if metadata.ValidateKey(domain, id) != nil {
		return nil, errNotFound("file not found", errx.D{"id": id})
	}

	record, err := s.store.GetFile(ctx, domain, id)
	if err != nil {
		return nil, errInternal(op, err)
	}
	if record == nil {
		return nil, errNotFound("file not found", errx.D{"id": id})
	}
	return record, nil
}

// displayName strips any client-side directory from an uploaded file name.
func displayName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

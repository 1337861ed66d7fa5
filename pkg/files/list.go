package files

import (
	"context"
	"sort"
	"time"

	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/store/content"
	"github.com/marmos91/filewallet/pkg/store/metadata"
)

// Listing is the content of one folder.
type Listing struct {
	Files   []*metadata.FileRecord `json:"files"`
	Folders []FolderEntry          `json:"folders"`
}

// List returns the files directly in folder and its immediate subfolders.
//
// Subfolders are derived from the folders of every indexed file at or below
// folder, from the Index folder list and from placeholder markers on
// listable backends. Index entries whose record is missing are skipped.
func (s *Service) List(ctx context.Context, c Caller, folder string) (_ *Listing, err error) {
	defer s.observe("list", time.Now(), &err)

	folder, err = CleanFolder(folder)
	if err != nil {
		return nil, err
	}

	domain := c.Domain()

	index, err := s.store.ReadIndex(ctx, domain)
	if err != nil {
		return nil, errInternal("list", err)
	}

	var ids []string
	paths := make([]string, 0, index.Len()+len(index.Folders))
	for id, e := range index.Files {
		paths = append(paths, e.Folder)
		if e.Folder == folder {
			ids = append(ids, id)
		}
	}
	paths = append(paths, index.Folders...)
	paths = append(paths, s.markerFolders(ctx, domain, folder)...)

	files := make([]*metadata.FileRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.store.GetFile(ctx, domain, id)
		if err != nil {
			return nil, errInternal("list", err)
		}
		if record == nil {
			logger.Warn("Index of %s references missing record %s, skipping", domain, id)
			continue
		}
		files = append(files, record)
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].CreatedAt.Before(files[j].CreatedAt)
		}
		return files[i].ID < files[j].ID
	})

	return &Listing{
		Files:   files,
		Folders: ChildFolders(folder, paths),
	}, nil
}

// markerFolders returns the folders anchored by placeholders at or below
// folder. Backend trouble only degrades the listing, so it is logged.
func (s *Service) markerFolders(ctx context.Context, domain, folder string) []string {
	backend, err := s.backends.Backend(ctx, domain)
	if err != nil {
		logger.Warn("Backend for %s unavailable while listing: %v", domain, err)
		return nil
	}

	lister, ok := backend.(content.Lister)
	if !ok {
		return nil
	}

	prefix := backend.Layout().DomainPrefix(domain)
	if prefix == "" {
		return nil
	}
	if folder != "" {
		prefix += folder + "/"
	}

	keys, err := lister.List(ctx, prefix)
	if err != nil {
		logger.Warn("Listing folder markers of %s failed: %v", domain, err)
		return nil
	}

	domainPrefix := backend.Layout().DomainPrefix(domain)
	var out []string
	for _, k := range keys {
		if f, ok := content.FolderFromMarker(domainPrefix, k); ok {
			out = append(out, f)
		}
	}
	return out
}

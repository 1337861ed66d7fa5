package files

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/code19m/errx"
	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/store/content"
	"github.com/marmos91/filewallet/pkg/store/metadata"
	"github.com/samber/lo"
)

// CreatedFolder is the result of CreateFolder.
type CreatedFolder struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	CreatedBy string `json:"createdBy"`
}

// CreateFolder creates folder name under parent.
//
// The folder is anchored by a placeholder object written through the
// backend. When the layout has addressable anchors the Index is not
// touched: folders also exist through the files placed in them. Otherwise
// the placeholder's locator is recorded in the Index folder list so the
// folder can be listed and later released.
func (s *Service) CreateFolder(ctx context.Context, c Caller, name, parent string) (_ *CreatedFolder, err error) {
	defer s.observe("create_folder", time.Now(), &err)

	if _, err := s.requireEdit(ctx, c); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errInvalidInput("folder name is required", nil)
	}
	if !ValidFolderName(name) {
		return nil, errInvalidInput("invalid folder name", errx.D{"name": name})
	}
	parent, err = CleanFolder(parent)
	if err != nil {
		return nil, err
	}

	domain := c.Domain()
	folderPath := JoinFolder(parent, name)

	backend, err := s.backends.Backend(ctx, domain)
	if err != nil {
		return nil, errBackend("create_folder", err)
	}

	payload, err := json.Marshal(folderMarker{
		Name:      name,
		Path:      folderPath,
		CreatedBy: c.Identity,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, errInternal("create_folder", err)
	}

	if key, ok := backend.Layout().FolderMarker(domain, folderPath); ok {
		if _, err := backend.Write(ctx, key, payload); err != nil {
			return nil, errBackend("create_folder", err)
		}
	} else {
		locator, err := backend.Write(ctx, content.FolderMarkerName, payload)
		if err != nil {
			return nil, errBackend("create_folder", err)
		}

		index, err := s.store.ReadIndex(ctx, domain)
		if err != nil {
			return nil, errInternal("create_folder", err)
		}
		if old, ok := index.FolderMarkers[folderPath]; ok && old != locator {
			s.release(ctx, backend, domain, "", []string{old})
		}
		index.AddFolder(folderPath, locator)
		if err := s.store.SaveIndex(ctx, domain, index); err != nil {
			return nil, errInternal("create_folder", err)
		}
	}

	logger.Info("Folder %q created on %s by %s", folderPath, domain, c.Identity)

	return &CreatedFolder{Name: name, Path: folderPath, CreatedBy: c.Identity}, nil
}

// DeleteFolder removes an empty folder and returns its path.
//
// A folder holding files directly or in any subfolder is not empty. The
// placeholder of the folder and of its subfolders is removed; removing an
// absent placeholder succeeds. Placeholders recorded in the Index are
// dropped from it first and then released on the backend.
func (s *Service) DeleteFolder(ctx context.Context, c Caller, folderPath string) (_ string, err error) {
	defer s.observe("delete_folder", time.Now(), &err)

	if _, err := s.requireAdmin(ctx, c); err != nil {
		return "", err
	}
	folderPath, err = CleanFolder(folderPath)
	if err != nil {
		return "", err
	}
	if folderPath == "" {
		return "", errInvalidInput("the root folder cannot be deleted", nil)
	}

	domain := c.Domain()

	index, err := s.store.ReadIndex(ctx, domain)
	if err != nil {
		return "", errInternal("delete_folder", err)
	}

	count := lo.CountBy(lo.Values(index.Files), func(e metadata.IndexEntry) bool {
		return InFolder(e.Folder, folderPath)
	})
	if count > 0 {
		return "", errFolderNotEmpty(folderPath, count)
	}

	backend, err := s.backends.Backend(ctx, domain)
	if err != nil {
		return "", errBackend("delete_folder", err)
	}

	if markers := s.folderMarkers(ctx, backend, domain, folderPath); len(markers) > 0 {
		if err := backend.DeleteMany(ctx, markers); err != nil && !errors.Is(err, content.ErrNotFound) {
			return "", errBackend("delete_folder", err)
		}
	}

	removed, released := index.RemoveFolders(func(f string) bool {
		return InFolder(strings.Trim(f, "/"), folderPath)
	})
	if removed {
		if err := s.store.SaveIndex(ctx, domain, index); err != nil {
			return "", errInternal("delete_folder", err)
		}
	}
	if len(released) > 0 {
		s.release(ctx, backend, domain, "", released)
	}

	logger.Info("Folder %q deleted on %s by %s", folderPath, domain, c.Identity)

	return folderPath, nil
}

// folderMarkers returns the placeholder keys of folderPath and, on listable
// backends, of every folder below it.
func (s *Service) folderMarkers(ctx context.Context, backend content.Backend, domain, folderPath string) []string {
	layout := backend.Layout()
	key, ok := layout.FolderMarker(domain, folderPath)
	if !ok {
		return nil
	}
	markers := []string{key}

	lister, ok := backend.(content.Lister)
	if !ok {
		return markers
	}

	prefix := layout.DomainPrefix(domain)
	keys, err := lister.List(ctx, prefix+folderPath+"/")
	if err != nil {
		logger.Warn("Listing folder markers under %q on %s failed: %v", folderPath, domain, err)
		return markers
	}
	for _, k := range keys {
		if f, ok := content.FolderFromMarker(prefix, k); ok && InFolder(f, folderPath) {
			markers = append(markers, k)
		}
	}
	return lo.Uniq(markers)
}

package metadata

import (
	"slices"
	"time"
)

// FileRecord is the provenance record ("data wallet") of one uploaded file.
//
// JSON field names are part of the persisted format and of the HTTP API.
type FileRecord struct {
	// ID is 32 lowercase hex characters, immutable once assigned.
	ID string `json:"id"`

	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`

	// Hash is a CIDv1 over the raw bytes. Informational only: two records
	// may carry the same hash.
	Hash string `json:"hash"`

	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
	CreatedBy  string    `json:"createdBy"`
	ModifiedBy string    `json:"modifiedBy"`

	// Folder is the "/"-segmented folder path without leading slash.
	// Empty means the domain root.
	Folder string `json:"folder"`

	// Backend is the type of the backend that wrote the bytes.
	Backend string `json:"backend,omitempty"`

	// StorageKey locates the raw bytes (a key or a CID).
	StorageKey string `json:"storageKey,omitempty"`

	// BaseKey is the common stem of the raw and meta objects on object
	// storage.
	BaseKey string `json:"baseKey,omitempty"`

	// MetaKey locates the record blob written next to the bytes.
	MetaKey string `json:"metaKey,omitempty"`

	// Key is the raw-bytes locator written by older releases. Read only as
	// a fallback when StorageKey is empty.
	Key string `json:"key,omitempty"`
}

// RawKey returns the locator of the raw bytes.
func (r *FileRecord) RawKey() string {
	if r.StorageKey != "" {
		return r.StorageKey
	}
	return r.Key
}

// Locators returns every backend locator the record owns, without
// duplicates or empty values.
func (r *FileRecord) Locators() []string {
	locs := make([]string, 0, 2)
	for _, loc := range []string{r.RawKey(), r.MetaKey} {
		if loc != "" && !slices.Contains(locs, loc) {
			locs = append(locs, loc)
		}
	}
	return locs
}

// Clone returns a copy of r.
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// IndexEntry is the Index view of one file.
type IndexEntry struct {
	ID     string `json:"id"`
	Folder string `json:"folder"`
}

// Index lists the files of one domain. It is the source of truth for which
// files exist; FileRecords describe what each file is.
type Index struct {
	Files map[string]IndexEntry `json:"files"`

	// Folders holds explicitly recorded folder paths. They are merged into
	// listings like placeholder markers.
	Folders []string `json:"folders"`

	// FolderMarkers maps recorded folder paths to the locator of their
	// placeholder blob, for media where placeholders are not addressable by
	// path.
	FolderMarkers map[string]string `json:"folderMarkers,omitempty"`
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		Files:   make(map[string]IndexEntry),
		Folders: []string{},
	}
}

// normalize replaces nil collections so decoded indexes behave like fresh
// ones.
func (ix *Index) normalize() *Index {
	if ix.Files == nil {
		ix.Files = make(map[string]IndexEntry)
	}
	if ix.Folders == nil {
		ix.Folders = []string{}
	}
	return ix
}

// Put records id in folder, replacing any previous entry.
func (ix *Index) Put(id, folder string) {
	ix.normalize()
	ix.Files[id] = IndexEntry{ID: id, Folder: folder}
}

// Remove drops id and reports whether it was present.
func (ix *Index) Remove(id string) bool {
	if _, ok := ix.Files[id]; !ok {
		return false
	}
	delete(ix.Files, id)
	return true
}

// AddFolder records folderPath once. A non-empty locator is remembered as
// the folder's placeholder blob.
func (ix *Index) AddFolder(folderPath, locator string) {
	ix.normalize()
	if !slices.Contains(ix.Folders, folderPath) {
		ix.Folders = append(ix.Folders, folderPath)
	}
	if locator == "" {
		return
	}
	if ix.FolderMarkers == nil {
		ix.FolderMarkers = make(map[string]string)
	}
	ix.FolderMarkers[folderPath] = locator
}

// RemoveFolders drops every recorded folder for which match is true and
// returns the placeholder locators they held.
func (ix *Index) RemoveFolders(match func(folderPath string) bool) (removed bool, locators []string) {
	kept := make([]string, 0, len(ix.Folders))
	for _, f := range ix.Folders {
		if match(f) {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	ix.Folders = kept

	for f, loc := range ix.FolderMarkers {
		if match(f) {
			removed = true
			locators = append(locators, loc)
			delete(ix.FolderMarkers, f)
		}
	}
	if len(ix.FolderMarkers) == 0 {
		ix.FolderMarkers = nil
	}
	slices.Sort(locators)
	return removed, locators
}

// Len returns the number of indexed files.
func (ix *Index) Len() int {
	return len(ix.Files)
}

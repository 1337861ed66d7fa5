package content

import (
	"path"
	"regexp"
	"strings"
)

const (
	// FolderMarkerName is the leaf name of folder anchor objects.
	FolderMarkerName = ".folder"

	// metaSuffix is appended to the object-storage base key for the
	// metadata blob.
	metaSuffix = "._i"

	defaultExt = "bin"
)

// FileKeys are the keys one uploaded file occupies on a backend.
type FileKeys struct {
	// Base is the common stem of Raw and Meta (object storage only).
	Base string

	// Raw holds the file bytes.
	Raw string

	// Meta holds the file record blob written next to the bytes.
	Meta string
}

// Layout derives backend keys. Derivation is kept apart from storage so key
// schemes are testable without a medium.
type Layout interface {
	// Name identifies the scheme ("object", "path", "content").
	Name() string

	// FileKeys returns the keys for file id named name in domain.
	FileKeys(domain, id, name string) FileKeys

	// FolderMarker returns the anchor key for folderPath, or false when the
	// medium cannot hold addressable anchors.
	FolderMarker(domain, folderPath string) (string, bool)

	// DomainPrefix is the prefix every key of domain starts with, or ""
	// when keys are not domain scoped on the medium.
	DomainPrefix(domain string) string
}

// ObjectLayout is used by object stores: base "<domain>/<id>", raw bytes at
// "<base>.<ext>", metadata at "<base>._i".
type ObjectLayout struct{}

func (ObjectLayout) Name() string { return "object" }

func (ObjectLayout) FileKeys(domain, id, name string) FileKeys {
	base := domain + "/" + id
	return FileKeys{
		Base: base,
		Raw:  base + "." + Ext(name),
		Meta: base + metaSuffix,
	}
}

func (ObjectLayout) FolderMarker(domain, folderPath string) (string, bool) {
	return folderMarker(domain, folderPath), true
}

func (ObjectLayout) DomainPrefix(domain string) string { return domain + "/" }

// PathLayout is used by media with real directories: bytes at
// "<domain>/<id>/<name>", metadata at "<domain>/<id>/_i.json".
type PathLayout struct{}

func (PathLayout) Name() string { return "path" }

func (PathLayout) FileKeys(domain, id, name string) FileKeys {
	dir := domain + "/" + id
	return FileKeys{
		Raw:  dir + "/" + SanitizeName(name),
		Meta: dir + "/_i.json",
	}
}

func (PathLayout) FolderMarker(domain, folderPath string) (string, bool) {
	return folderMarker(domain, folderPath), true
}

func (PathLayout) DomainPrefix(domain string) string { return domain + "/" }

// ContentLayout is used by content-addressed media. Keys are only upload
// names; the medium assigns the real locator and nothing is addressable by
// path, so folders cannot be anchored.
type ContentLayout struct{}

func (ContentLayout) Name() string { return "content" }

func (ContentLayout) FileKeys(_, id, name string) FileKeys {
	return FileKeys{
		Raw:  SanitizeName(name),
		Meta: id + metaSuffix,
	}
}

func (ContentLayout) FolderMarker(string, string) (string, bool) { return "", false }

func (ContentLayout) DomainPrefix(string) string { return "" }

// ContentAddressed reports whether l belongs to a medium that derives
// locators from the stored bytes, so identical objects share one locator
// across every domain.
func ContentAddressed(l Layout) bool {
	_, ok := l.(ContentLayout)
	return ok
}

func folderMarker(domain, folderPath string) string {
	return domain + "/" + strings.Trim(folderPath, "/") + "/" + FolderMarkerName
}

// IsFolderMarker reports whether key names a folder anchor.
func IsFolderMarker(key string) bool {
	return path.Base(key) == FolderMarkerName
}

// FolderFromMarker returns the folder path anchored by key, relative to the
// domain prefix. ok is false when key is not a marker of that domain.
func FolderFromMarker(domainPrefix, key string) (folder string, ok bool) {
	if !IsFolderMarker(key) || !strings.HasPrefix(key, domainPrefix) {
		return "", false
	}
	folder = strings.TrimSuffix(strings.TrimPrefix(key, domainPrefix), "/"+FolderMarkerName)
	if folder == "" || folder == FolderMarkerName {
		return "", false
	}
	return folder, true
}

var (
	extPattern  = regexp.MustCompile(`^[a-z0-9]{1,16}$`)
	nameReplace = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// Ext returns the lower-cased extension of name without the dot, or "bin"
// when name has none or it is unusable as a key suffix.
func Ext(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if !extPattern.MatchString(ext) {
		return defaultExt
	}
	return ext
}

// SanitizeName reduces name to a single safe path segment.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = nameReplace.ReplaceAllString(name, "_")
	name = strings.Trim(name, ".")
	if name == "" || name == "_" {
		return "file"
	}
	return name
}

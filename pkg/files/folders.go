package files

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/code19m/errx"
	"github.com/samber/lo"
)

var folderNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FolderEntry is one folder as shown in listings.
type FolderEntry struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Parent string `json:"parent,omitempty"`
}

// folderMarker is the placeholder payload written at a folder anchor.
type folderMarker struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidFolderName reports whether name is a usable folder segment.
func ValidFolderName(name string) bool {
	return folderNamePattern.MatchString(name)
}

// CleanFolder trims surrounding slashes and checks every segment of p.
// The empty string is the root and is always valid.
func CleanFolder(p string) (string, error) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "", nil
	}
	for _, seg := range strings.Split(p, "/") {
		if !ValidFolderName(seg) {
			return "", errInvalidInput("invalid folder path", errx.D{"folder": p})
		}
	}
	return p, nil
}

// JoinFolder appends name to parent.
func JoinFolder(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// InFolder reports whether folder is root or lies below it.
func InFolder(folder, root string) bool {
	if root == "" {
		return true
	}
	return folder == root || strings.HasPrefix(folder, root+"/")
}

// ChildFolder returns the segment of folder immediately below root.
func ChildFolder(root, folder string) (string, bool) {
	var rest string
	switch {
	case folder == root:
		return "", false
	case root == "":
		rest = folder
	case strings.HasPrefix(folder, root+"/"):
		rest = folder[len(root)+1:]
	default:
		return "", false
	}

	name, _, _ := strings.Cut(rest, "/")
	return name, name != ""
}

// ChildFolders derives the sorted immediate children of root from any set
// of folder paths. Paths outside root are ignored.
func ChildFolders(root string, folders []string) []FolderEntry {
	names := lo.Uniq(lo.FilterMap(folders, func(f string, _ int) (string, bool) {
		return ChildFolder(root, strings.Trim(f, "/"))
	}))
	sort.Strings(names)

	return lo.Map(names, func(name string, _ int) FolderEntry {
		return FolderEntry{Name: name, Path: JoinFolder(root, name), Parent: root}
	})
}

// allFolders expands every path into itself and its ancestors, so that a
// file in "a/b/c" makes "a", "a/b" and "a/b/c" count as folders.
func allFolders(paths []string) []string {
	var out []string
	for _, p := range paths {
		p = strings.Trim(p, "/")
		for p != "" {
			out = append(out, p)
			i := strings.LastIndex(p, "/")
			if i < 0 {
				break
			}
			p = p[:i]
		}
	}
	return lo.Uniq(out)
}

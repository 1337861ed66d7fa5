// Package access resolves what a caller may do on a domain.
//
// Two strategies exist and are selected by configuration, never merged:
//
//   - LevelGate asks an ACL service for a numeric level (graded roles):
//     edit from level 2, admin from level 3.
//   - ListGate checks membership of two named whitelists: "upload" grants
//     edit, "manage" grants admin.
//
// Both fail closed for writes and open for reads: an anonymous caller or an
// unreachable collaborator yields read-only permissions.
package access

import (
	"context"
	"strings"
)

// Levels of the graded ACL.
const (
	LevelEdit  = 2
	LevelAdmin = 3
)

// Whitelist names checked by ListGate.
const (
	ListUpload = "upload"
	ListManage = "manage"
)

// Permissions is the outcome of a permission check.
type Permissions struct {
	Admin bool `json:"admin"`
	Edit  bool `json:"edit"`
	Read  bool `json:"read"`
}

// Default is granted to anonymous callers and whenever the collaborator
// fails: read only.
func Default() Permissions {
	return Permissions{Read: true}
}

// Gate computes the permissions of identity on hostname.
//
// Check never fails: collaborator errors are logged and degrade to
// Default().
type Gate interface {
	Check(ctx context.Context, identity, hostname string) Permissions
}

// NormalizeIdentity trims and lower-cases an identity address. Identities
// compare case-insensitively everywhere.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// SameIdentity reports whether a and b name the same identity.
func SameIdentity(a, b string) bool {
	na := NormalizeIdentity(a)
	return na != "" && na == NormalizeIdentity(b)
}

// OpenGate grants edit to every authenticated identity and admin to nobody.
// Meant for development and single-user deployments.
type OpenGate struct{}

func (OpenGate) Check(_ context.Context, identity, _ string) Permissions {
	if NormalizeIdentity(identity) == "" {
		return Default()
	}
	return Permissions{Read: true, Edit: true}
}

package access

import (
	"context"

	"github.com/marmos91/filewallet/internal/logger"
)

// LevelProvider returns the numeric access level of identity on hostname
// for the agent agentID.
type LevelProvider interface {
	CheckAccess(ctx context.Context, agentID, identity, hostname string) (int, error)
}

// LevelGate maps ACL levels to permissions.
type LevelGate struct {
	provider LevelProvider
	agentID  string
}

// NewLevelGate returns a gate asking provider on behalf of agentID.
func NewLevelGate(provider LevelProvider, agentID string) *LevelGate {
	return &LevelGate{provider: provider, agentID: agentID}
}

func (g *LevelGate) Check(ctx context.Context, identity, hostname string) Permissions {
	identity = NormalizeIdentity(identity)
	if identity == "" {
		return Default()
	}

	level, err := g.provider.CheckAccess(ctx, g.agentID, identity, hostname)
	if err != nil {
		logger.Warn("ACL check failed for %s on %s, falling back to read-only: %v", identity, hostname, err)
		return Default()
	}

	return Permissions{
		Read:  true,
		Edit:  level >= LevelEdit,
		Admin: level >= LevelAdmin,
	}
}

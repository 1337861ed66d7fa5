package access

import (
	"context"

	"github.com/marmos91/filewallet/internal/logger"
	"github.com/redis/go-redis/v9"
)

// ListProvider answers whitelist membership.
type ListProvider interface {
	IsListed(ctx context.Context, identity, list string) (bool, error)
}

// ListGate grants edit to members of the "upload" list and admin (plus
// edit) to members of the "manage" list. Membership is not scoped by
// hostname.
type ListGate struct {
	provider ListProvider
}

func NewListGate(provider ListProvider) *ListGate {
	return &ListGate{provider: provider}
}

func (g *ListGate) Check(ctx context.Context, identity, hostname string) Permissions {
	identity = NormalizeIdentity(identity)
	if identity == "" {
		return Default()
	}

	manager, err := g.provider.IsListed(ctx, identity, ListManage)
	if err != nil {
		logger.Warn("Whitelist %q check failed for %s on %s: %v", ListManage, identity, hostname, err)
		return Default()
	}
	if manager {
		return Permissions{Read: true, Edit: true, Admin: true}
	}

	uploader, err := g.provider.IsListed(ctx, identity, ListUpload)
	if err != nil {
		logger.Warn("Whitelist %q check failed for %s on %s: %v", ListUpload, identity, hostname, err)
		return Default()
	}
	return Permissions{Read: true, Edit: uploader}
}

// StaticLists is a ListProvider backed by configuration.
type StaticLists struct {
	lists map[string]map[string]struct{}
}

// NewStaticLists builds the provider from list name -> identities.
func NewStaticLists(lists map[string][]string) *StaticLists {
	s := &StaticLists{lists: make(map[string]map[string]struct{}, len(lists))}
	for name, members := range lists {
		set := make(map[string]struct{}, len(members))
		for _, m := range members {
			if m = NormalizeIdentity(m); m != "" {
				set[m] = struct{}{}
			}
		}
		s.lists[name] = set
	}
	return s
}

func (s *StaticLists) IsListed(_ context.Context, identity, list string) (bool, error) {
	_, ok := s.lists[list][NormalizeIdentity(identity)]
	return ok, nil
}

// RedisLists is a ListProvider backed by Redis sets named
// "<prefix><list>" holding lower-cased identities.
type RedisLists struct {
	client redis.Cmdable
	prefix string
}

func NewRedisLists(client redis.Cmdable, prefix string) *RedisLists {
	return &RedisLists{client: client, prefix: prefix}
}

func (r *RedisLists) IsListed(ctx context.Context, identity, list string) (bool, error) {
	return r.client.SIsMember(ctx, r.prefix+list, NormalizeIdentity(identity)).Result()
}

package access

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ACLClientConfig configures the HTTP ACL client.
type ACLClientConfig struct {
	// Endpoint is the ACL service base URL (e.g. "https://acl.internal").
	Endpoint string `mapstructure:"endpoint"`

	// Path is appended to Endpoint (default "/acl/check").
	Path string `mapstructure:"path"`

	// Token, when set, is sent as a bearer token.
	Token string `mapstructure:"token"`

	// Timeout bounds each check (default 5s).
	Timeout time.Duration `mapstructure:"timeout"`
}

// ACLClient implements LevelProvider against an HTTP ACL service:
//
//	GET <endpoint><path>?agent=<agentID>&address=<identity>&host=<hostname>
//	200 {"level": 3}
type ACLClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

type aclResponse struct {
	Level *int `json:"level"`
}

// NewACLClient validates cfg and returns a client.
func NewACLClient(cfg ACLClientConfig) (*ACLClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("acl client: endpoint is required")
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("acl client: invalid endpoint: %w", err)
	}

	path := cfg.Path
	if path == "" {
		path = "/acl/check"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &ACLClient{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/") + "/" + strings.TrimLeft(path, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *ACLClient) CheckAccess(ctx context.Context, agentID, identity, hostname string) (int, error) {
	query := url.Values{}
	query.Set("agent", agentID)
	query.Set("address", identity)
	query.Set("host", hostname)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("acl request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("acl service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out aclResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode acl response: %w", err)
	}
	if out.Level == nil {
		return 0, fmt.Errorf("acl response has no level")
	}
	return *out.Level, nil
}

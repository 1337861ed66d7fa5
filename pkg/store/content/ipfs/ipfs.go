// Package ipfs implements content.Backend on an IPFS node through its HTTP
// RPC API (/api/v0).
//
// IPFS is content addressed: Write returns the CID the node assigned and
// that CID is the only locator. Keys passed to Write are used as upload file
// names. Objects are pinned on add and unpinned on delete; the node garbage
// collects unpinned blocks on its own schedule, so deleted content may
// remain retrievable for a while.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/store/content"
)

const defaultTimeout = 60 * time.Second

// Config configures an IPFS backend.
type Config struct {
	// APIURL is the node RPC address (e.g. "http://127.0.0.1:5001").
	// When empty every operation fails with content.ErrUnavailable.
	APIURL string `mapstructure:"api_url"`

	// GatewayURL, when set, makes downloads redirect to
	// "<gateway>/ipfs/<cid>" instead of proxying bytes.
	GatewayURL string `mapstructure:"gateway_url"`

	// Timeout bounds each RPC call (default 60s).
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxObjectBytes rejects larger uploads before contacting the node
	// (0 = no limit).
	MaxObjectBytes int64 `mapstructure:"max_object_bytes"`
}

// IPFSBackend talks to a single IPFS node.
type IPFSBackend struct {
	apiURL         string
	gatewayURL     string
	maxObjectBytes int64
	httpClient     *http.Client
}

// NewIPFSBackend returns a backend for cfg. It does not contact the node.
func NewIPFSBackend(cfg Config) *IPFSBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &IPFSBackend{
		apiURL:         strings.TrimRight(cfg.APIURL, "/"),
		gatewayURL:     strings.TrimRight(cfg.GatewayURL, "/"),
		maxObjectBytes: cfg.MaxObjectBytes,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

func (b *IPFSBackend) Type() string { return "ipfs" }

func (b *IPFSBackend) Layout() content.Layout { return content.ContentLayout{} }

// addResponse is the JSON line returned by /api/v0/add.
type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// rpcError is the error body of the RPC API.
type rpcError struct {
	Message string `json:"Message"`
	Code    int    `json:"Code"`
	Type    string `json:"Type"`
}

func (b *IPFSBackend) Write(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if b.apiURL == "" {
		return "", fmt.Errorf("ipfs: no API URL configured: %w", content.ErrUnavailable)
	}
	if b.maxObjectBytes > 0 && int64(len(data)) > b.maxObjectBytes {
		return "", fmt.Errorf("write %s (%d bytes): %w", key, len(data), content.ErrTooLarge)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", path.Base(key))
	if err != nil {
		return "", content.TransferError("write", key, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", content.TransferError("write", key, err)
	}
	if err := mw.Close(); err != nil {
		return "", content.TransferError("write", key, err)
	}

	query := url.Values{}
	query.Set("pin", "true")
	query.Set("cid-version", "1")
	query.Set("raw-leaves", "true")

	resp, err := b.call(ctx, "add", query, &body, mw.FormDataContentType())
	if err != nil {
		return "", content.TransferError("write", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return "", fmt.Errorf("write %s: %w", key, content.ErrTooLarge)
	}
	if resp.StatusCode != http.StatusOK {
		return "", content.TransferError("write", key, responseError(resp))
	}

	var added addResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return "", content.TransferError("write", key, fmt.Errorf("decode add response: %w", err))
	}

	c, err := cid.Decode(added.Hash)
	if err != nil {
		return "", content.TransferError("write", key, fmt.Errorf("node returned invalid CID %q: %w", added.Hash, err))
	}

	logger.Debug("IPFS add: name=%s cid=%s size=%d", key, c, len(data))
	return c.String(), nil
}

func (b *IPFSBackend) Read(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.apiURL == "" {
		return nil, fmt.Errorf("ipfs: no API URL configured: %w", content.ErrUnavailable)
	}

	c, err := cid.Decode(locator)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", locator, content.ErrNotFound)
	}

	query := url.Values{}
	query.Set("arg", c.String())

	resp, err := b.call(ctx, "cat", query, nil, "")
	if err != nil {
		return nil, content.TransferError("read", locator, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		rerr := responseError(resp)
		if resp.StatusCode == http.StatusNotFound || strings.Contains(strings.ToLower(rerr.Error()), "not found") {
			return nil, fmt.Errorf("read %s: %w", locator, content.ErrNotFound)
		}
		return nil, content.TransferError("read", locator, rerr)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, content.TransferError("read", locator, err)
	}
	return data, nil
}

// Delete unpins locator. A locator that is not a CID, or a CID that is not
// pinned, is treated as already deleted.
func (b *IPFSBackend) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.apiURL == "" {
		return fmt.Errorf("ipfs: no API URL configured: %w", content.ErrUnavailable)
	}

	c, err := cid.Decode(locator)
	if err != nil {
		return nil
	}

	query := url.Values{}
	query.Set("arg", c.String())

	resp, err := b.call(ctx, "pin/rm", query, nil, "")
	if err != nil {
		return content.TransferError("delete", locator, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	rerr := responseError(resp)
	if strings.Contains(rerr.Error(), "not pinned") {
		return nil
	}
	return content.TransferError("delete", locator, rerr)
}

func (b *IPFSBackend) DeleteMany(ctx context.Context, locators []string) error {
	return content.DeleteEach(ctx, b, locators)
}

// URL returns the gateway address of locator when a gateway is configured.
func (b *IPFSBackend) URL(locator string) (string, bool) {
	if b.gatewayURL == "" {
		return "", false
	}
	c, err := cid.Decode(locator)
	if err != nil {
		return "", false
	}
	return b.gatewayURL + "/ipfs/" + c.String(), true
}

// call issues a POST to /api/v0/<command>. The RPC API accepts POST only.
func (b *IPFSBackend) call(ctx context.Context, command string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	endpoint := b.apiURL + "/api/v0/" + command + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return b.httpClient.Do(req)
}

// responseError turns a non-200 RPC response into an error carrying the
// node's message.
func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var rerr rpcError
	if err := json.Unmarshal(raw, &rerr); err == nil && rerr.Message != "" {
		return fmt.Errorf("ipfs: %s (HTTP %d)", rerr.Message, resp.StatusCode)
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return errors.New("ipfs: " + msg)
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buger/jsonparser"
)

// DefaultTimeout bounds each call to the IPFS node.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of an API response is read.
const maxResponseBytes = 256 << 20

// IPFS is a ContentStore backed by the HTTP RPC API of an IPFS node
// (/api/v0). Added content is pinned. Reads fall back to a public gateway
// when the node cannot serve them.
type IPFS struct {
	apiURL     string
	gatewayURL string
	client     *http.Client
	logger     *slog.Logger
}

// IPFSOption configures an IPFS store.
type IPFSOption func(*IPFS)

// WithGateway sets the gateway used as a read fallback.
func WithGateway(u string) IPFSOption {
	return func(s *IPFS) { s.gatewayURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) IPFSOption {
	return func(s *IPFS) { s.client = c }
}

// WithLogger sets the logger for fallback warnings.
func WithLogger(l *slog.Logger) IPFSOption {
	return func(s *IPFS) { s.logger = l }
}

// NewIPFS returns a store for the node whose API listens at apiURL, e.g.
// http://127.0.0.1:5001.
func NewIPFS(apiURL string, timeout time.Duration, opts ...IPFSOption) *IPFS {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &IPFS{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: timeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put adds content to the node and pins it. It returns the CID.
func (s *IPFS) Put(ctx context.Context, name string, content []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("content store: build request: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("content store: build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("content store: build request: %w", err)
	}

	q := url.Values{"pin": {"true"}, "cid-version": {"1"}}
	resp, err := s.call(ctx, "add", q, &body, mw.FormDataContentType())
	if err != nil {
		return "", err
	}

	// add streams one JSON object per file; a single file yields one line.
	line := bytes.TrimSpace(resp)
	if i := bytes.LastIndexByte(line, '\n'); i >= 0 {
		line = line[i+1:]
	}
	cid, err := jsonparser.GetString(line, "Hash")
	if err != nil {
		return "", fmt.Errorf("content store: unexpected add response: %w", err)
	}
	return cid, nil
}

// Get reads content by CID from the node, then from the gateway if one is
// configured.
func (s *IPFS) Get(ctx context.Context, cid string) ([]byte, error) {
	b, err := s.call(ctx, "cat", url.Values{"arg": {cid}}, nil, "")
	if err == nil {
		return b, nil
	}
	if s.gatewayURL == "" || ctx.Err() != nil {
		return nil, err
	}
	s.logger.Warn("ipfs node read failed, trying gateway", "cid", cid, "error", err)
	return s.fromGateway(ctx, cid)
}

// Ping asks the node for its version.
func (s *IPFS) Ping(ctx context.Context) error {
	b, err := s.call(ctx, "version", nil, nil, "")
	if err != nil {
		return err
	}
	if _, err := jsonparser.GetString(b, "Version"); err != nil {
		return fmt.Errorf("content store: unexpected version response: %w", err)
	}
	return nil
}

// call POSTs to /api/v0/<cmd>. The RPC API only accepts POST.
func (s *IPFS) call(ctx context.Context, cmd string, q url.Values, body io.Reader, contentType string) ([]byte, error) {
	u := s.apiURL + "/api/v0/" + cmd
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, fmt.Errorf("content store: %s: %w", cmd, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content store: %s: %w", cmd, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("content store: %s: read response: %w", cmd, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content store: %s: %s", cmd, apiError(resp.StatusCode, b))
	}
	return b, nil
}

func (s *IPFS) fromGateway(ctx context.Context, cid string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.gatewayURL+"/ipfs/"+url.PathEscape(cid), nil)
	if err != nil {
		return nil, fmt.Errorf("content store: gateway: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content store: gateway: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("content store: gateway: status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("content store: gateway: %w", err)
	}
	return b, nil
}

// apiError extracts the Message field of an RPC error body.
func apiError(status int, body []byte) error {
	if msg, err := jsonparser.GetString(body, "Message"); err == nil && msg != "" {
		return fmt.Errorf("status %d: %s", status, msg)
	}
	return errors.New("status " + http.StatusText(status))
}

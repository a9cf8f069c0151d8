package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/typerace/internal/model"
)

const maxTextBytes = 64 << 10

// HTTP fetches texts from a room server's /api/text endpoint.
type HTTP struct {
	base   string
	client *http.Client
}

// NewHTTP creates an HTTP provider. base is the server root, e.g.
// http://localhost:8080. ws:// and wss:// roots are accepted and mapped to
// http:// and https://.
func NewHTTP(base string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTP{base: HTTPBase(base), client: client}
}

// HTTPBase normalizes a server address to an http(s) root without a
// trailing slash.
func HTTPBase(addr string) string {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	switch {
	case strings.HasPrefix(addr, "ws://"):
		addr = "http://" + strings.TrimPrefix(addr, "ws://")
	case strings.HasPrefix(addr, "wss://"):
		addr = "https://" + strings.TrimPrefix(addr, "wss://")
	case !strings.Contains(addr, "://"):
		addr = "http://" + addr
	}
	return addr
}

// FetchTarget implements Provider.
func (h *HTTP) FetchTarget(ctx context.Context, mode model.Mode, length int) (string, error) {
	q := url.Values{}
	q.Set("mode", string(mode))
	if length > 0 {
		q.Set("count", strconv.Itoa(length))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+"/api/text?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build text request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch text: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch text: status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTextBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

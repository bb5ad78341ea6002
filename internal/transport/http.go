package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/sips-gateway/internal/protocol"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPTransport posts form-encoded arguments to <baseURL>/<operation> and
// returns the response body, which carries the same payload the binaries print.
type HTTPTransport struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPTransport creates a transport for baseURL. A nil client gets a default
// one with a bounded timeout.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPTransport{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (t *HTTPTransport) Name() string { return KindHTTP }

func (t *HTTPTransport) Call(ctx context.Context, op Operation, args protocol.Arguments) (string, error) {
	if t.baseURL == "" {
		return "", fmt.Errorf("%w: http transport has no base URL", protocol.ErrInvalidConfiguration)
	}
	values, err := args.Values()
	if err != nil {
		return "", err
	}

	endpoint := t.baseURL + "/" + string(op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: building request for %s: %v", protocol.ErrInvalidConfiguration, endpoint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &protocol.ExecutionError{Op: string(op), Target: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &protocol.ExecutionError{Op: string(op), Target: endpoint, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &protocol.ExecutionError{
			Op:     string(op),
			Target: endpoint,
			Detail: strings.TrimSpace(string(body)),
			Err:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}
	return string(body), nil
}

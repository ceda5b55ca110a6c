package payu

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport performs a single HTTP exchange with the gateway.
type Transport interface {
	Send(ctx context.Context, method, url string, header http.Header, body []byte) (int, []byte, error)
}

type httpTransport struct {
	httpClient *http.Client
}

// NewHTTPTransport returns a Transport backed by client. A nil client gets
// a default one with a 15 second timeout.
func NewHTTPTransport(client *http.Client) Transport {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &httpTransport{httpClient: client}
}

func (t *httpTransport) Send(ctx context.Context, method, url string, header http.Header, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

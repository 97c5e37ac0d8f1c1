package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

// DefaultTimeout bounds an outbound call when no client is supplied.
const DefaultTimeout = 60 * time.Second

// Call describes a single outbound JSON POST.
type Call struct {
	Provider string
	URL      string
	Header   http.Header
	Body     any
}

// PostJSON sends c with client and decodes a 2xx body into out. Non-2xx
// answers become *ProviderError, transport failures *TransportError and
// undecodable bodies *MalformedResponseError.
func PostJSON(ctx context.Context, client *http.Client, c Call, out any) error {
	payload, err := json.Marshal(c.Body)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.Provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.Provider, err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	res, err := client.Do(req)
	if err != nil {
		return NewTransportError(c.Provider, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &ProviderError{Provider: c.Provider, StatusCode: res.StatusCode, Body: string(buf)}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return NewTransportError(c.Provider, fmt.Errorf("read response body: %w", err))
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return &MalformedResponseError{Provider: c.Provider, Path: "body", Err: err}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

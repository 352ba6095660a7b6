// ABOUTME: HTTP plumbing shared by every service: request building, auth
// ABOUTME: headers, JSON decoding, API error mapping, and stream opening.

package dust

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Version is the client library version reported in the User-Agent header.
const Version = "0.1.0"

const userAgentBase = "dust-go/" + Version

// workspacePath prefixes rel with the versioned workspace API root.
func (c *Client) workspacePath(rel string) string {
	return "/api/v1/w/" + url.PathEscape(c.config.WorkspaceID) + rel
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := c.config.baseURL() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.config.token())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
}

// request performs a unary JSON call against the workspace API. A non-nil
// body is marshaled as JSON; a non-nil out receives the decoded 2xx
// response. Passing out as nil skips decoding, which is how callers probe
// endpoints without caring about the payload.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("dust: encode %s %s body: %w", method, path, err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), payload)
	if err != nil {
		return fmt.Errorf("dust: build %s %s: %w", method, path, err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.DebugContext(ctx, "api request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dust: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("dust: read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp.StatusCode, data)
		c.logger.DebugContext(ctx, "api error",
			"method", method, "path", path,
			"status", resp.StatusCode, "code", apiErr.Code)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ParseError{
			Message: fmt.Sprintf("decode %s %s response: %v", method, path, err),
			Raw:     json.RawMessage(data),
		}
	}
	return nil
}

// stream opens a long-lived GET and hands back the raw body for event
// decoding. It uses the stream transport, which carries no client-wide
// timeout; callers bound the stream through ctx.
func (c *Client) stream(ctx context.Context, path string, query url.Values) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("dust: build stream %s: %w", path, err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	c.logger.DebugContext(ctx, "stream open", "path", path)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, &StreamError{Err: fmt.Errorf("open %s: %w", path, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &StreamError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp.Body, nil
}

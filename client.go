// ABOUTME: Client construction and lifecycle: validates configuration, wires
// ABOUTME: the service handles, and owns the unary and streaming transports.

package dust

import (
	"context"
	"log/slog"
	"net/http"
)

// Client is the entry point to the Dust API. Construct one with NewClient
// and reach the API surface through the service fields. A Client is safe
// for concurrent use.
type Client struct {
	config       Config
	httpClient   *http.Client
	streamClient *http.Client
	logger       *slog.Logger
	userAgent    string

	// Agents operates on agent configurations.
	Agents *AgentsService
	// Conversations operates on conversations, messages, and event streams.
	Conversations *ConversationsService
	// Chat is the high-level send-and-wait flow built on the other two.
	Chat *ChatService
}

// NewClient validates cfg and returns a ready Client. No network traffic
// happens here; use Validate to probe the credentials.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ua := userAgentBase
	if cfg.UserAgentSuffix != "" {
		ua += " " + cfg.UserAgentSuffix
	}

	unary := cfg.HTTPClient
	if unary == nil {
		unary = &http.Client{Timeout: cfg.timeout()}
	}

	// Streams outlive the per-call timeout, so they get their own client
	// with no Timeout; each stream is bounded by its request context. A
	// caller-supplied transport still applies to both.
	streaming := &http.Client{}
	if cfg.HTTPClient != nil {
		streaming.Transport = cfg.HTTPClient.Transport
	}

	c := &Client{
		config:       cfg,
		httpClient:   unary,
		streamClient: streaming,
		logger:       cfg.logger().With("component", "dust"),
		userAgent:    ua,
	}
	c.Agents = &AgentsService{client: c}
	c.Conversations = &ConversationsService{client: c}
	c.Chat = &ChatService{client: c}
	return c, nil
}

// Validate issues a lightweight authenticated request to confirm the
// credentials and workspace are accepted by the API.
func (c *Client) Validate(ctx context.Context) error {
	return c.request(ctx, http.MethodGet, c.workspacePath("/assistant/agent_configurations"), nil, nil, nil)
}

// Close releases idle connections held by both transports. The Client must
// not be used after Close.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
	c.streamClient.CloseIdleConnections()
}

// Bool returns a pointer to v, for optional request fields.
func Bool(v bool) *bool { return &v }

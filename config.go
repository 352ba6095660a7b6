// ABOUTME: Client configuration with explicit fields and DUST_* env loading.
// ABOUTME: Validates workspace and credential presence before any network use.

package dust

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public Dust API host.
const DefaultBaseURL = "https://dust.tt"

// DefaultTimeout bounds individual requests and the chat wait when the
// caller does not override it.
const DefaultTimeout = 60 * time.Second

// Config holds everything needed to construct a Client.
//
// WorkspaceID is always required. Exactly one credential is enough: APIKey
// is preferred when both are set, AccessToken is the OAuth alternative.
type Config struct {
	// BaseURL of the Dust API. Defaults to DefaultBaseURL when empty.
	BaseURL string

	// WorkspaceID scopes every request (the wId path segment). Required.
	WorkspaceID string

	// APIKey is a workspace API key used as a bearer token.
	APIKey string

	// AccessToken is an OAuth access token, an alternative to APIKey.
	AccessToken string

	// Timeout applies to unary requests and is the default chat deadline.
	// Defaults to DefaultTimeout when zero.
	Timeout time.Duration

	// UserAgentSuffix is appended to the dust-go User-Agent when set.
	UserAgentSuffix string

	// HTTPClient overrides the transport for unary requests. Streaming
	// requests reuse its Transport but never its Timeout.
	HTTPClient *http.Client

	// Logger receives debug-level request and protocol logging. Defaults to
	// a discard logger.
	Logger *slog.Logger
}

// Validate checks that the configuration is usable.
// Returns an error wrapping ErrConfiguration describing the first problem.
func (c *Config) Validate() error {
	if c.WorkspaceID == "" {
		return fmt.Errorf("%w: workspace id is required (env: DUST_WORKSPACE_ID)", ErrConfiguration)
	}
	if c.APIKey == "" && c.AccessToken == "" {
		return fmt.Errorf("%w: either an API key or an access token is required", ErrConfiguration)
	}
	return nil
}

// token returns the credential to present as a bearer token.
func (c *Config) token() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return c.AccessToken
}

// ConfigFromEnv builds a Config from environment variables:
//
//	DUST_BASE_URL      optional, default https://dust.tt
//	DUST_WORKSPACE_ID  required
//	DUST_API_KEY       one of these two
//	DUST_ACCESS_TOKEN  is required
//	DUST_TIMEOUT       optional, "30s" or bare seconds, default 60s
//
// The returned Config has already been validated.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{
		BaseURL:     os.Getenv("DUST_BASE_URL"),
		WorkspaceID: os.Getenv("DUST_WORKSPACE_ID"),
		APIKey:      os.Getenv("DUST_API_KEY"),
		AccessToken: os.Getenv("DUST_ACCESS_TOKEN"),
	}

	if raw := os.Getenv("DUST_TIMEOUT"); raw != "" {
		timeout, err := parseTimeout(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid DUST_TIMEOUT %q: %v", ErrConfiguration, raw, err)
		}
		cfg.Timeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseTimeout accepts a Go duration string ("45s", "2m") or a bare number
// of seconds ("60", "7.5").
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseDuration(raw); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("timeout must be positive")
		}
		return d, nil
	}

	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not a duration or a number of seconds")
	}
	if secs <= 0 {
		return 0, fmt.Errorf("timeout must be positive")
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// baseURL returns the configured base URL without a trailing slash.
func (c *Config) baseURL() string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}

// timeout returns the effective request timeout.
func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// logger returns the configured logger or a discard logger.
func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ABOUTME: Agent configuration surface: list, fetch, search, and favorite
// ABOUTME: toggling, plus the typed models the API returns for agents.

package dust

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// FlexID is an identifier the API serializes as either a JSON string or a
// JSON number. It always reads back as a string.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// AgentModel describes the model backing an agent configuration.
type AgentModel struct {
	ProviderID  string   `json:"providerId,omitempty"`
	ModelID     string   `json:"modelId,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Extra preserves response keys not declared above.
	Extra Extra `json:"-"`
}

func (m *AgentModel) UnmarshalJSON(data []byte) error {
	type alias AgentModel
	var a alias
	extra, err := unmarshalOpen(data, &a)
	if err != nil {
		return err
	}
	*m = AgentModel(a)
	m.Extra = extra
	return nil
}

// AgentConfiguration is a published agent in the workspace. SID is the
// stable identifier used everywhere else in the API; ID is a numeric
// display id and not useful for addressing.
type AgentConfiguration struct {
	ID               int64             `json:"id,omitempty"`
	SID              string            `json:"sId"`
	Version          int               `json:"version,omitempty"`
	VersionCreatedAt string            `json:"versionCreatedAt,omitempty"`
	VersionAuthorID  FlexID            `json:"versionAuthorId,omitempty"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Instructions     string            `json:"instructions,omitempty"`
	PictureURL       string            `json:"pictureUrl,omitempty"`
	Status           string            `json:"status,omitempty"`
	Scope            string            `json:"scope,omitempty"`
	UserFavorite     *bool             `json:"userFavorite,omitempty"`
	UserListStatus   string            `json:"userListStatus,omitempty"`
	Model            *AgentModel       `json:"model,omitempty"`
	Actions          []json.RawMessage `json:"actions,omitempty"`
	MaxStepsPerRun   *int              `json:"maxStepsPerRun,omitempty"`
	TemplateID       string            `json:"templateId,omitempty"`

	// Extra preserves response keys not declared above.
	Extra Extra `json:"-"`
}

func (a *AgentConfiguration) UnmarshalJSON(data []byte) error {
	type alias AgentConfiguration
	var tmp alias
	extra, err := unmarshalOpen(data, &tmp)
	if err != nil {
		return err
	}
	*a = AgentConfiguration(tmp)
	a.Extra = extra
	return nil
}

// Agent variants for AgentsService.Get.
const (
	// AgentVariantLight omits heavyweight fields such as instructions.
	AgentVariantLight = "light"
	// AgentVariantFull returns the complete configuration.
	AgentVariantFull = "full"
)

// GetAgentOptions tunes AgentsService.Get.
type GetAgentOptions struct {
	// Variant selects the representation, AgentVariantLight by default.
	Variant string
}

// UpdateAgentRequest carries the mutable per-user agent settings.
type UpdateAgentRequest struct {
	UserFavorite *bool `json:"userFavorite,omitempty"`
}

// AgentsService provides access to agent configurations.
type AgentsService struct {
	client *Client
}

// List returns the agent configurations visible to the caller.
func (s *AgentsService) List(ctx context.Context) ([]AgentConfiguration, error) {
	var raw json.RawMessage
	path := s.client.workspacePath("/assistant/agent_configurations")
	if err := s.client.request(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeAgentList(raw)
}

// Search returns agent configurations matching the free-text query.
func (s *AgentsService) Search(ctx context.Context, query string) ([]AgentConfiguration, error) {
	q := url.Values{}
	q.Set("q", query)
	var raw json.RawMessage
	path := s.client.workspacePath("/assistant/agent_configurations/search")
	if err := s.client.request(ctx, http.MethodGet, path, q, nil, &raw); err != nil {
		return nil, err
	}
	return decodeAgentList(raw)
}

// Get fetches a single agent configuration by sId.
func (s *AgentsService) Get(ctx context.Context, sID string, opts *GetAgentOptions) (*AgentConfiguration, error) {
	variant := AgentVariantLight
	if opts != nil && opts.Variant != "" {
		variant = opts.Variant
	}
	q := url.Values{}
	q.Set("variant", variant)

	var out struct {
		AgentConfiguration *AgentConfiguration `json:"agentConfiguration"`
	}
	path := s.client.workspacePath("/assistant/agent_configurations/" + url.PathEscape(sID))
	if err := s.client.request(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	if out.AgentConfiguration == nil {
		return nil, &ParseError{Message: "agent response is missing the agentConfiguration key"}
	}
	return out.AgentConfiguration, nil
}

// Update patches the per-user settings of an agent, currently the favorite
// flag, and returns the updated configuration.
func (s *AgentsService) Update(ctx context.Context, sID string, req UpdateAgentRequest) (*AgentConfiguration, error) {
	var out struct {
		AgentConfiguration *AgentConfiguration `json:"agentConfiguration"`
	}
	path := s.client.workspacePath("/assistant/agent_configurations/" + url.PathEscape(sID))
	if err := s.client.request(ctx, http.MethodPatch, path, nil, req, &out); err != nil {
		return nil, err
	}
	if out.AgentConfiguration == nil {
		return nil, &ParseError{Message: "agent response is missing the agentConfiguration key"}
	}
	return out.AgentConfiguration, nil
}

// Create is not exposed by the public API; agents are authored in the Dust
// console. It always fails with ErrUnsupported.
func (s *AgentsService) Create(ctx context.Context) (*AgentConfiguration, error) {
	return nil, fmt.Errorf("dust: creating agents is not supported by the public API: %w", ErrUnsupported)
}

// Delete is not exposed by the public API. It always fails with
// ErrUnsupported.
func (s *AgentsService) Delete(ctx context.Context, sID string) error {
	return fmt.Errorf("dust: deleting agents is not supported by the public API: %w", ErrUnsupported)
}

// decodeAgentList copes with the handful of envelope shapes the API has
// used for agent listings: the documented agentConfigurations key, a bare
// array, and a few legacy key spellings.
func decodeAgentList(raw json.RawMessage) ([]AgentConfiguration, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var agents []AgentConfiguration
		if err := json.Unmarshal(trimmed, &agents); err != nil {
			return nil, &ParseError{
				Message: fmt.Sprintf("decode agent array: %v", err),
				Raw:     raw,
			}
		}
		return agents, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, &ParseError{
			Message: fmt.Sprintf("decode agent list envelope: %v", err),
			Raw:     raw,
		}
	}
	for _, key := range []string{"agentConfigurations", "agents", "agent_configurations", "data"} {
		payload, ok := envelope[key]
		if !ok {
			continue
		}
		var agents []AgentConfiguration
		if err := json.Unmarshal(payload, &agents); err != nil {
			return nil, &ParseError{
				Message: fmt.Sprintf("decode agent list under %q: %v", key, err),
				Raw:     raw,
			}
		}
		return agents, nil
	}
	return nil, &ParseError{
		Message: "agent list response has no recognized payload key",
		Raw:     raw,
	}
}

// ABOUTME: Conversation surface: create and fetch conversations, post, edit
// ABOUTME: and cancel messages, plus the typed models for both directions.

package dust

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Entry types found in Conversation.Content slots.
const (
	EntryTypeUserMessage  = "user_message"
	EntryTypeAgentMessage = "agent_message"
)

// Conversation is a thread of user and agent messages. Content is a list
// of slots, one per message, each holding the revisions of that message in
// chronological order; the last revision of a slot is the live one.
type Conversation struct {
	SID       string                `json:"sId"`
	Title     string                `json:"title,omitempty"`
	CreatedAt int64                 `json:"created_at,omitempty"`
	Content   [][]ConversationEntry `json:"content,omitempty"`

	// Extra preserves response keys not declared above.
	Extra Extra `json:"-"`
}

func (c *Conversation) UnmarshalJSON(data []byte) error {
	type alias Conversation
	var a alias
	extra, err := unmarshalOpen(data, &a)
	if err != nil {
		return err
	}
	*c = Conversation(a)
	c.Extra = extra
	return nil
}

// LiveEntries returns the newest revision of every message slot, in
// conversation order. Empty slots are skipped.
func (c *Conversation) LiveEntries() []ConversationEntry {
	entries := make([]ConversationEntry, 0, len(c.Content))
	for _, slot := range c.Content {
		if len(slot) == 0 {
			continue
		}
		entries = append(entries, slot[len(slot)-1])
	}
	return entries
}

// ConversationEntry is one revision of a message inside a conversation's
// content grid.
type ConversationEntry struct {
	ID      int64  `json:"id,omitempty"`
	SID     string `json:"sId"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content,omitempty"`

	// Extra preserves response keys not declared above.
	Extra Extra `json:"-"`
}

func (e *ConversationEntry) UnmarshalJSON(data []byte) error {
	type alias ConversationEntry
	var a alias
	extra, err := unmarshalOpen(data, &a)
	if err != nil {
		return err
	}
	*e = ConversationEntry(a)
	e.Extra = extra
	return nil
}

// Message is a message as returned by the message endpoints.
type Message struct {
	SID             string `json:"sId"`
	ConversationSID string `json:"conversation_sId,omitempty"`
	ParentMessageID string `json:"parentMessageId,omitempty"`
	Content         string `json:"content,omitempty"`
	AuthorName      string `json:"author_name,omitempty"`
	AuthorType      string `json:"author_type,omitempty"`
	CreatedAt       int64  `json:"created_at,omitempty"`

	// Extra preserves response keys not declared above.
	Extra Extra `json:"-"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var a alias
	extra, err := unmarshalOpen(data, &a)
	if err != nil {
		return err
	}
	*m = Message(a)
	m.Extra = extra
	return nil
}

// MentionContext rides along with a mention, typically carrying the caller
// timezone and model preferences.
type MentionContext struct {
	Timezone      string         `json:"timezone,omitempty"`
	ModelSettings map[string]any `json:"modelSettings,omitempty"`
}

// Mention routes a message to an agent configuration.
type Mention struct {
	ConfigurationID string          `json:"configurationId"`
	Context         *MentionContext `json:"context,omitempty"`
}

// MessageContext identifies the human behind a message. Most workspaces
// require Username to be set.
type MessageContext struct {
	Username  string `json:"username,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	QueryType string `json:"queryType,omitempty"`
}

// CancelResult reports the outcome of a cancel call.
type CancelResult struct {
	Success bool `json:"success"`

	// Extra preserves response keys not declared above.
	Extra Extra `json:"-"`
}

func (r *CancelResult) UnmarshalJSON(data []byte) error {
	type alias CancelResult
	var a alias
	extra, err := unmarshalOpen(data, &a)
	if err != nil {
		return err
	}
	*r = CancelResult(a)
	r.Extra = extra
	return nil
}

// CreateConversationRequest parameterizes ConversationsService.Create.
// The zero value creates an untitled blocking conversation.
type CreateConversationRequest struct {
	// Title names the conversation. Empty means untitled.
	Title string
	// Blocking controls whether the API waits for agent processing when an
	// initial message is part of the payload. Nil means true.
	Blocking *bool
	// Extra is merged into the request body verbatim, for fields this
	// client does not model yet.
	Extra map[string]any
}

// CreateMessageRequest parameterizes ConversationsService.CreateMessage.
type CreateMessageRequest struct {
	// Content is the message text.
	Content string
	// Mentions routes the message to one or more agents.
	Mentions []Mention
	// Context identifies the sending user.
	Context *MessageContext
	// Extra is merged into the request body verbatim.
	Extra map[string]any
}

// EditMessageRequest parameterizes ConversationsService.EditMessage.
type EditMessageRequest struct {
	// Content replaces the message text when non-nil.
	Content *string
	// Mentions replaces the routed agents. The API expects the full list.
	Mentions []Mention
	// Extra is merged into the request body verbatim.
	Extra map[string]any
}

// ConversationsService provides access to conversations and their
// messages.
type ConversationsService struct {
	client *Client
}

// Create starts a new conversation.
func (s *ConversationsService) Create(ctx context.Context, req *CreateConversationRequest) (*Conversation, error) {
	if req == nil {
		req = &CreateConversationRequest{}
	}
	body := map[string]any{}
	if req.Title != "" {
		body["title"] = req.Title
	}
	blocking := true
	if req.Blocking != nil {
		blocking = *req.Blocking
	}
	body["blocking"] = blocking
	for k, v := range req.Extra {
		body[k] = v
	}

	var out struct {
		Conversation *Conversation `json:"conversation"`
	}
	path := s.client.workspacePath("/assistant/conversations")
	if err := s.client.request(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	if out.Conversation == nil {
		return nil, &ParseError{Message: "conversation response is missing the conversation key"}
	}
	return out.Conversation, nil
}

// Get fetches a conversation, including its content grid.
func (s *ConversationsService) Get(ctx context.Context, conversationID string) (*Conversation, error) {
	var raw json.RawMessage
	path := s.client.workspacePath("/assistant/conversations/" + url.PathEscape(conversationID))
	if err := s.client.request(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}

	var envelope struct {
		Conversation *Conversation `json:"conversation"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Conversation != nil {
		return envelope.Conversation, nil
	}

	// Some deployments return the conversation bare.
	var conv Conversation
	if err := json.Unmarshal(raw, &conv); err != nil || conv.SID == "" {
		return nil, &ParseError{Message: "unrecognized conversation response shape", Raw: raw}
	}
	return &conv, nil
}

// CreateMessage posts a user message to a conversation and returns the
// created message.
func (s *ConversationsService) CreateMessage(ctx context.Context, conversationID string, req *CreateMessageRequest) (*Message, error) {
	if req == nil {
		return nil, fmt.Errorf("dust: create message: request is required")
	}
	body := map[string]any{
		"content":  req.Content,
		"mentions": req.Mentions,
	}
	if req.Mentions == nil {
		body["mentions"] = []Mention{}
	}
	if req.Context != nil {
		body["context"] = req.Context
	}
	for k, v := range req.Extra {
		body[k] = v
	}

	var out struct {
		Message *Message `json:"message"`
	}
	path := s.client.workspacePath("/assistant/conversations/" + url.PathEscape(conversationID) + "/messages")
	if err := s.client.request(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	if out.Message == nil {
		return nil, &ParseError{Message: "message response is missing the message key"}
	}
	return out.Message, nil
}

// EditMessage rewrites an existing message and re-runs the mentioned
// agents.
func (s *ConversationsService) EditMessage(ctx context.Context, conversationID, messageID string, req *EditMessageRequest) (*Message, error) {
	if req == nil {
		return nil, fmt.Errorf("dust: edit message: request is required")
	}
	body := map[string]any{
		"mentions": req.Mentions,
	}
	if req.Mentions == nil {
		body["mentions"] = []Mention{}
	}
	if req.Content != nil {
		body["content"] = *req.Content
	}
	for k, v := range req.Extra {
		body[k] = v
	}

	var raw json.RawMessage
	path := s.client.workspacePath("/assistant/conversations/" + url.PathEscape(conversationID) +
		"/messages/" + url.PathEscape(messageID) + "/edit")
	if err := s.client.request(ctx, http.MethodPost, path, nil, body, &raw); err != nil {
		return nil, err
	}

	var envelope struct {
		Message *Message `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != nil {
		return envelope.Message, nil
	}

	// Fall back to a bare message object.
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil || msg.SID == "" {
		return nil, &ParseError{Message: "unrecognized edited message response shape", Raw: raw}
	}
	return &msg, nil
}

// CancelMessages stops generation for the given message sIds.
func (s *ConversationsService) CancelMessages(ctx context.Context, conversationID string, messageIDs []string) (*CancelResult, error) {
	body := map[string]any{"messageIds": messageIDs}
	if messageIDs == nil {
		body["messageIds"] = []string{}
	}

	var result CancelResult
	path := s.client.workspacePath("/assistant/conversations/" + url.PathEscape(conversationID) + "/cancel")
	if err := s.client.request(ctx, http.MethodPost, path, nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

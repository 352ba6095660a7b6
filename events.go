// ABOUTME: Conversation event streaming: typed event kinds, the SSE
// ABOUTME: envelope, and pull-based streams over the events endpoints.

package dust

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/url"

	"github.com/2389/dust-go/internal/sse"
)

// EventType names a conversation event kind. The set is open; unrecognized
// kinds pass through untouched.
type EventType string

const (
	EventUserMessageNew       EventType = "user_message_new"
	EventUserMessageEdit      EventType = "user_message_edit"
	EventAgentMessageNew      EventType = "agent_message_new"
	EventAgentMessageProgress EventType = "agent_message_progress"
	EventAgentMessageDone     EventType = "agent_message_done"
	EventAgentError           EventType = "agent_error"
	EventGenerationTokens     EventType = "generation_tokens"
)

// ConversationEvent is one event from a conversation stream.
type ConversationEvent struct {
	Type      EventType `json:"type"`
	Created   int64     `json:"created,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Message   *Message  `json:"message,omitempty"`

	// Extra preserves event keys not declared above.
	Extra Extra `json:"-"`
}

func (e *ConversationEvent) UnmarshalJSON(data []byte) error {
	type alias ConversationEvent
	var a alias
	extra, err := unmarshalOpen(data, &a)
	if err != nil {
		return err
	}
	*e = ConversationEvent(a)
	e.Extra = extra
	return nil
}

// eventEnvelope is the frame Dust wraps conversation events in.
type eventEnvelope struct {
	EventID string          `json:"eventId"`
	Data    json.RawMessage `json:"data"`
}

// EventStream delivers typed conversation events. It is not safe for
// concurrent use; one goroutine should own it and Close it when done.
type EventStream struct {
	body   io.ReadCloser
	dec    *sse.Decoder
	logger *slog.Logger
}

// Next returns the next decodable event. Frames that do not decode to an
// event are skipped. Next returns io.EOF when the server ends the stream
// and a *StreamError when reading fails mid-stream.
func (s *EventStream) Next() (*ConversationEvent, error) {
	for {
		raw, err := s.dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, &StreamError{Err: err}
		}

		event, ok := decodeEvent(raw)
		if !ok {
			s.logger.Debug("skipping undecodable event", "raw", string(raw))
			continue
		}
		return event, nil
	}
}

// Close releases the underlying connection. Safe to call more than once.
func (s *EventStream) Close() error {
	return s.body.Close()
}

// decodeEvent unwraps the eventId envelope when present and decodes the
// event, reporting ok=false for frames without a usable type.
func decodeEvent(raw json.RawMessage) (*ConversationEvent, bool) {
	payload := raw
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		payload = env.Data
	}

	var event ConversationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, false
	}
	if event.Type == "" {
		return nil, false
	}
	return &event, true
}

// RawEventStream delivers message events as raw JSON objects. The message
// events endpoint carries token-level payloads whose schema moves often,
// so they are not typed here.
type RawEventStream struct {
	body io.ReadCloser
	dec  *sse.Decoder
}

// Next returns the next JSON object from the stream, io.EOF at the end,
// or a *StreamError when reading fails mid-stream.
func (s *RawEventStream) Next() (json.RawMessage, error) {
	raw, err := s.dec.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &StreamError{Err: err}
	}
	return raw, nil
}

// Close releases the underlying connection. Safe to call more than once.
func (s *RawEventStream) Close() error {
	return s.body.Close()
}

// StreamEvents opens the conversation event stream. The stream stays open
// until ctx is done, the server closes it, or Close is called.
func (s *ConversationsService) StreamEvents(ctx context.Context, conversationID string) (*EventStream, error) {
	path := s.client.workspacePath("/assistant/conversations/" + url.PathEscape(conversationID) + "/events")
	body, err := s.client.stream(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return &EventStream{
		body:   body,
		dec:    sse.NewDecoder(body),
		logger: s.client.logger.With("component", "events"),
	}, nil
}

// StreamMessageEvents opens the per-message event stream, which includes
// generation token events for that message.
func (s *ConversationsService) StreamMessageEvents(ctx context.Context, conversationID, messageID string) (*RawEventStream, error) {
	path := s.client.workspacePath("/assistant/conversations/" + url.PathEscape(conversationID) +
		"/messages/" + url.PathEscape(messageID) + "/events")
	body, err := s.client.stream(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return &RawEventStream{body: body, dec: sse.NewDecoder(body)}, nil
}

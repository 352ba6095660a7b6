// ABOUTME: High-level chat flow: send a message, follow the event stream,
// ABOUTME: and aggregate the agent's reply into a simple response.

package dust

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/qmuntal/stateless"
)

// Role labels the author of a ChatMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is the role-plus-text view of a message, with the underlying
// identifiers kept around for debugging.
type ChatMessage struct {
	Role           Role
	Text           string
	MessageID      string
	ConversationID string
}

// ChatRequest describes one send-and-wait exchange.
type ChatRequest struct {
	// Agent is the agent configuration sId that should answer.
	Agent string
	// Text is the user message.
	Text string
	// Username identifies the human sender. Required by most workspaces.
	Username string
	// Timezone is an optional IANA timezone for the sender.
	Timezone string
	// ConversationID continues an existing conversation. Empty starts a
	// new one.
	ConversationID string
	// Title names the conversation when one is created.
	Title string
	// Timeout bounds the wait for the agent reply. Zero means the
	// configured client timeout.
	Timeout time.Duration
}

// ChatResponse is the outcome of a send-and-wait exchange. A nil
// AssistantMessage means the agent did not reply within the timeout; that
// is an absence, not an error.
type ChatResponse struct {
	ConversationID   string
	UserMessage      ChatMessage
	AssistantMessage *ChatMessage
}

// ChatService is the high-level conversational flow on top of the
// Conversations and Agents services.
type ChatService struct {
	client *Client
}

// States of the reply state machine. One machine tracks one exchange.
type replyState stateless.State

var (
	stateAwaitingMatch replyState = "awaiting_match"
	stateAwaitingDone  replyState = "awaiting_done"
	stateReplied       replyState = "replied"
	stateFailed        replyState = "failed"
	stateNoReply       replyState = "no_reply"
)

type replyTrigger stateless.Trigger

var (
	triggerMatched   replyTrigger = "reply_matched"
	triggerDone      replyTrigger = "reply_done"
	triggerFailed    replyTrigger = "reply_failed"
	triggerExhausted replyTrigger = "stream_exhausted"
)

// replyWait tracks the agent reply for one user message. The event loop
// fires triggers; entry actions record the facts the terminal states need.
type replyWait struct {
	fsm    *stateless.StateMachine
	logger *slog.Logger

	// targetID is the agent message latched by the first match. Only
	// events for this message influence the outcome afterwards.
	targetID string
	// failure is the agent error text recorded on the failed transition.
	failure string
}

func newReplyWait(logger *slog.Logger) *replyWait {
	w := &replyWait{logger: logger}

	m := stateless.NewStateMachine(stateAwaitingMatch)
	m.Configure(stateAwaitingMatch).
		Permit(triggerMatched, stateAwaitingDone).
		Permit(triggerExhausted, stateNoReply)
	m.Configure(stateAwaitingDone).
		OnEntryFrom(triggerMatched, func(_ context.Context, args ...any) error {
			w.targetID = args[0].(string)
			w.logger.Debug("agent message latched", "messageId", w.targetID)
			return nil
		}).
		Permit(triggerDone, stateReplied).
		Permit(triggerFailed, stateFailed).
		Permit(triggerExhausted, stateNoReply)
	m.Configure(stateFailed).
		OnEntryFrom(triggerFailed, func(_ context.Context, args ...any) error {
			w.failure = args[0].(string)
			return nil
		})

	w.fsm = m
	return w
}

func (w *replyWait) fire(ctx context.Context, trigger replyTrigger, args ...any) {
	// The event loop only fires triggers the current state permits, so a
	// rejection here is a bug, not a protocol condition.
	if err := w.fsm.FireCtx(ctx, trigger, args...); err != nil {
		w.logger.Warn("reply state machine rejected trigger", "trigger", trigger, "error", err)
	}
}

func (w *replyWait) state() replyState {
	return replyState(w.fsm.MustState())
}

func (w *replyWait) terminal() bool {
	switch w.state() {
	case stateReplied, stateFailed, stateNoReply:
		return true
	}
	return false
}

// Send posts one user message and waits for the mentioned agent to finish
// replying. See ChatResponse for how a missing reply is reported.
func (s *ChatService) Send(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: chat request is required", ErrConfiguration)
	}
	if req.Username == "" {
		return nil, fmt.Errorf("%w: chat requires a username", ErrConfiguration)
	}
	if req.Agent == "" {
		return nil, fmt.Errorf("%w: chat requires an agent sId", ErrConfiguration)
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conv, err := s.client.Conversations.Create(ctx, &CreateConversationRequest{Title: req.Title})
		if err != nil {
			return nil, err
		}
		conversationID = conv.SID
	}

	mention := Mention{ConfigurationID: req.Agent}
	if req.Timezone != "" {
		mention.Context = &MentionContext{Timezone: req.Timezone}
	}
	userMsg, err := s.client.Conversations.CreateMessage(ctx, conversationID, &CreateMessageRequest{
		Content:  req.Text,
		Mentions: []Mention{mention},
		Context: &MessageContext{
			Username: req.Username,
			Timezone: req.Timezone,
		},
	})
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.client.config.timeout()
	}
	assistant, err := s.awaitReply(ctx, conversationID, userMsg.SID, timeout)
	if err != nil {
		return nil, err
	}

	return &ChatResponse{
		ConversationID: conversationID,
		UserMessage: ChatMessage{
			Role:           RoleUser,
			Text:           userMsg.Content,
			MessageID:      userMsg.SID,
			ConversationID: conversationID,
		},
		AssistantMessage: assistant,
	}, nil
}

// awaitReply follows the conversation event stream until the agent reply
// spawned by userMessageID completes, fails, or the timeout lapses.
//
// Correlation happens in two steps. First, the reply is latched from the
// earliest agent_message_new whose message has parentMessageId equal to
// userMessageID. From then on only events carrying that message's sId
// move the state machine; everything else on the stream is ignored.
func (s *ChatService) awaitReply(ctx context.Context, conversationID, userMessageID string, timeout time.Duration) (*ChatMessage, error) {
	logger := s.client.logger.With("component", "chat")
	deadline := time.Now().Add(timeout)

	streamCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	stream, err := s.client.Conversations.StreamEvents(streamCtx, conversationID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}
		return nil, err
	}
	defer stream.Close()

	w := newReplyWait(logger)
	for !w.terminal() {
		if !time.Now().Before(deadline) {
			w.fire(ctx, triggerExhausted)
			break
		}

		event, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				w.fire(ctx, triggerExhausted)
				break
			}
			// The deadline tearing the stream down is the timeout case,
			// unless the caller's own context is what expired.
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				w.fire(ctx, triggerExhausted)
				break
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		switch state := w.state(); {
		case event.Type == EventAgentMessageNew && state == stateAwaitingMatch:
			if m := event.Message; m != nil && m.ParentMessageID == userMessageID {
				w.fire(ctx, triggerMatched, m.SID)
			}
		case event.Type == EventAgentMessageDone && state == stateAwaitingDone && event.MessageID == w.targetID:
			w.fire(ctx, triggerDone)
		case event.Type == EventAgentError && state == stateAwaitingDone && event.MessageID == w.targetID:
			w.fire(ctx, triggerFailed, agentErrorText(event))
		}
	}

	switch w.state() {
	case stateReplied:
		// Done events do not carry the text; the finished message is read
		// back from the conversation itself.
		stream.Close()
		cancel()
		conv, err := s.client.Conversations.Get(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		text, found := agentReplyText(conv, w.targetID)
		if !found || text == "" {
			logger.Debug("reply finished but conversation holds no text", "messageId", w.targetID)
			return nil, nil
		}
		return &ChatMessage{
			Role:           RoleAssistant,
			Text:           text,
			MessageID:      w.targetID,
			ConversationID: conversationID,
		}, nil
	case stateFailed:
		return nil, &AgentError{Message: w.failure}
	default:
		logger.Debug("no agent reply before timeout", "conversationId", conversationID, "userMessageId", userMessageID)
		return nil, nil
	}
}

// agentErrorText pulls a readable description out of an agent_error event.
func agentErrorText(event *ConversationEvent) string {
	if raw, ok := event.Extra["error"]; ok {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &e); err == nil && e.Message != "" {
			if e.Code != "" {
				return e.Code + ": " + e.Message
			}
			return e.Message
		}
	}
	return "agent failed to produce a reply"
}

// agentReplyText finds the live text of the agent message inside the
// conversation content grid. Revisions share the message sId; the latest
// one wins.
func agentReplyText(conv *Conversation, messageID string) (string, bool) {
	text, found := "", false
	for _, slot := range conv.Content {
		for _, entry := range slot {
			if entry.SID == messageID && entry.Type == EntryTypeAgentMessage {
				text, found = entry.Content, true
			}
		}
	}
	return text, found
}

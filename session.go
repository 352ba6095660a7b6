// ABOUTME: Stateful chat sessions: one conversation, one agent, one user
// ABOUTME: identity, reused across sends.

package dust

import (
	"context"
	"fmt"
)

// SessionOptions configures ChatService.Session.
type SessionOptions struct {
	// Agent is the agent configuration sId that answers in this session.
	Agent string
	// Username identifies the human sender. Required.
	Username string
	// Timezone is an optional IANA timezone for the sender.
	Timezone string
	// Title names the conversation when one is created.
	Title string
	// ConversationID binds the session to an existing conversation. Empty
	// creates a new one.
	ConversationID string
}

// ChatSession is a chat bound to a fixed conversation, agent, and user.
// Sessions are immutable after creation and safe for concurrent use.
type ChatSession struct {
	chat           *ChatService
	conversationID string
	agent          string
	username       string
	timezone       string
	title          string
}

// Session creates a ChatSession, starting a conversation unless opts pins
// an existing one.
func (s *ChatService) Session(ctx context.Context, opts SessionOptions) (*ChatSession, error) {
	if opts.Username == "" {
		return nil, fmt.Errorf("%w: chat session requires a username", ErrConfiguration)
	}
	if opts.Agent == "" {
		return nil, fmt.Errorf("%w: chat session requires an agent sId", ErrConfiguration)
	}

	conversationID := opts.ConversationID
	if conversationID == "" {
		conv, err := s.client.Conversations.Create(ctx, &CreateConversationRequest{Title: opts.Title})
		if err != nil {
			return nil, err
		}
		conversationID = conv.SID
	}

	return &ChatSession{
		chat:           s,
		conversationID: conversationID,
		agent:          opts.Agent,
		username:       opts.Username,
		timezone:       opts.Timezone,
		title:          opts.Title,
	}, nil
}

// Send posts text in the session's conversation and waits for the agent
// reply, like ChatService.Send.
func (s *ChatSession) Send(ctx context.Context, text string) (*ChatResponse, error) {
	return s.chat.Send(ctx, &ChatRequest{
		Agent:          s.agent,
		Text:           text,
		Username:       s.username,
		Timezone:       s.timezone,
		ConversationID: s.conversationID,
		Title:          s.title,
	})
}

// ConversationID returns the conversation this session writes to.
func (s *ChatSession) ConversationID() string { return s.conversationID }

// Agent returns the agent configuration sId answering in this session.
func (s *ChatSession) Agent() string { return s.agent }

// Username returns the sender identity attached to each message.
func (s *ChatSession) Username() string { return s.username }

// Timezone returns the sender timezone, empty when unset.
func (s *ChatSession) Timezone() string { return s.timezone }

// Title returns the title used when the conversation was created.
func (s *ChatSession) Title() string { return s.title }

// Package dust is a typed client for the Dust conversational-agent API.
//
// # Overview
//
// The client authenticates against one workspace and exposes three services:
//
//   - Agents: list, search, and fetch agent configurations
//   - Conversations: create conversations, post and edit messages, cancel
//     generation, and stream lifecycle events
//   - Chat: a synchronous request/response layer that sends a message and
//     waits for the mentioned agent's reply
//
// # Getting started
//
// Build a Config explicitly or from DUST_* environment variables, then
// create a client:
//
//	cfg, err := dust.ConfigFromEnv()
//	if err != nil {
//	    return err
//	}
//	client, err := dust.NewClient(*cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	resp, err := client.Chat.Send(ctx, &dust.ChatRequest{
//	    Agent:    "dust",
//	    Text:     "Hello!",
//	    Username: "leo",
//	})
//
// # Chat aggregation
//
// Chat.Send posts the user message with a mention of the target agent, then
// consumes the conversation's event stream until a terminal outcome:
//
//  1. The first agent_message_new event whose parentMessageId matches the
//     just-sent user message identifies the reply; its id becomes the target.
//  2. Only events for the target are inspected afterwards.
//  3. agent_message_done ends the wait and the reply text is recovered from
//     a fresh conversation fetch.
//  4. agent_error ends the wait with an *AgentError.
//  5. The deadline is re-checked on every event; expiry (or the server
//     closing the stream) yields a response with a nil AssistantMessage.
//
// A nil AssistantMessage is an expected outcome, not a failure: a slow or
// silent agent is normal operation.
//
// # Errors
//
// Non-2xx responses surface as *APIError. Subkinds are matched with
// errors.Is against the exported sentinels:
//
//	_, err := client.Conversations.Get(ctx, "conv123")
//	if errors.Is(err, dust.ErrNotFound) {
//	    ...
//	}
//
// Local configuration problems wrap ErrConfiguration. Streaming failures are
// *StreamError, malformed response shapes are *ParseError, and an explicit
// agent failure during chat is *AgentError.
//
// # Concurrency
//
// A Client issues blocking, sequential requests. Use one Client per
// goroutine, or serialize access externally; the client keeps no
// conversation state between calls.
package dust

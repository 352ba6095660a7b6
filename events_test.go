// ABOUTME: Tests for conversation event streaming: envelope unwrapping,
// ABOUTME: tolerant frame handling, stream end, and failed stream opens.

package dust

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseHandler writes each frame as one SSE data line and flushes between
// frames, then ends the stream.
func sseHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			io.WriteString(w, "data: "+frame+"\n\n")
			flusher.Flush()
		}
	}
}

func TestStreamEvents(t *testing.T) {
	var gotPath, gotAccept string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		sseHandler(
			`{"eventId":"1724668800-0","data":{"type":"user_message_new","created":1724668800000,"messageId":"um_1"}}`,
			`{"eventId":"1724668800-1","data":{"type":"agent_message_new","created":1724668801000,"messageId":"am_1","message":{"sId":"am_1","parentMessageId":"um_1"}}}`,
		)(w, r)
	}))

	stream, err := client.Conversations.StreamEvents(context.Background(), "conv_1")
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "/api/v1/w/"+testWorkspace+"/assistant/conversations/conv_1/events", gotPath)
	assert.Equal(t, "text/event-stream", gotAccept)

	first, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, EventUserMessageNew, first.Type)
	assert.Equal(t, "um_1", first.MessageID)
	assert.Equal(t, int64(1724668800000), first.Created)

	second, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, EventAgentMessageNew, second.Type)
	require.NotNil(t, second.Message)
	assert.Equal(t, "am_1", second.Message.SID)
	assert.Equal(t, "um_1", second.Message.ParentMessageID)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamEventsBareFrames(t *testing.T) {
	// Events without the eventId envelope decode the same way.
	client := newTestClient(t, sseHandler(
		`{"type":"generation_tokens","messageId":"am_1","text":"Hel"}`,
	))

	stream, err := client.Conversations.StreamEvents(context.Background(), "conv_1")
	require.NoError(t, err)
	defer stream.Close()

	event, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, EventGenerationTokens, event.Type)
	assert.Equal(t, "am_1", event.MessageID)
	assert.JSONEq(t, `"Hel"`, string(event.Extra["text"]))
}

func TestStreamEventsSkipsUndecodable(t *testing.T) {
	client := newTestClient(t, sseHandler(
		`{"eventId":"x"}`,
		`{"no":"type"}`,
		`{"type":"agent_message_done","messageId":"am_1"}`,
	))

	stream, err := client.Conversations.StreamEvents(context.Background(), "conv_1")
	require.NoError(t, err)
	defer stream.Close()

	event, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, EventAgentMessageDone, event.Type)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamEventsUnknownTypePassesThrough(t *testing.T) {
	client := newTestClient(t, sseHandler(
		`{"type":"conversation_title","title":"Renamed"}`,
	))

	stream, err := client.Conversations.StreamEvents(context.Background(), "conv_1")
	require.NoError(t, err)
	defer stream.Close()

	event, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, EventType("conversation_title"), event.Type)
	assert.JSONEq(t, `"Renamed"`, string(event.Extra["title"]))
}

func TestStreamEventsOpenFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":"workspace_auth_error","message":"not allowed"}}`)
	}))

	_, err := client.Conversations.StreamEvents(context.Background(), "conv_1")
	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, http.StatusForbidden, streamErr.StatusCode)
	assert.Contains(t, streamErr.Body, "workspace_auth_error")
}

func TestStreamMessageEvents(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		sseHandler(
			`{"eventId":"1","data":{"type":"generation_tokens","text":"Hi"}}`,
			`{"type":"agent_message_done","messageId":"am_1"}`,
		)(w, r)
	}))

	stream, err := client.Conversations.StreamMessageEvents(context.Background(), "conv_1", "am_1")
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "/api/v1/w/"+testWorkspace+"/assistant/conversations/conv_1/messages/am_1/events", gotPath)

	// The per-message stream is raw: frames come back verbatim, envelope
	// included, for the caller to interpret.
	first, err := stream.Next()
	require.NoError(t, err)
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(first, &envelope))
	assert.Contains(t, envelope, "eventId")
	assert.Contains(t, envelope, "data")

	second, err := stream.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"agent_message_done","messageId":"am_1"}`, string(second))

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamEventsContextCancel(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.Conversations.StreamEvents(ctx, "conv_1")
	require.NoError(t, err)
	defer stream.Close()

	cancel()

	_, err = stream.Next()
	require.Error(t, err)
	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.ErrorIs(t, err, context.Canceled)
}

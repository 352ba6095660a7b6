// Package sse decodes Dust streaming response bodies into JSON object
// payloads, tolerating both SSE "data:" framing and bare NDJSON lines.
package sse

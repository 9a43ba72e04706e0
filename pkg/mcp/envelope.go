package mcp

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// DecodeEnvelope normalizes the two transport framings the tool endpoint
// responds with: plain JSON, or a server-sent-event stream whose "data:"
// line carries the JSON payload. Callers parse the returned bytes as
// JSON-RPC regardless of which framing arrived.
func DecodeEnvelope(contentType string, body []byte) ([]byte, error) {
	if !strings.Contains(contentType, "text/event-stream") {
		return body, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "" || data == "[DONE]" {
			continue
		}
		return []byte(data), nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan event stream: %w", err)
	}
	return nil, fmt.Errorf("event stream contained no data payload")
}

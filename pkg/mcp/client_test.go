package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
		wantErr     bool
	}{
		{
			name:        "plain json passthrough",
			contentType: "application/json",
			body:        `{"jsonrpc":"2.0"}`,
			want:        `{"jsonrpc":"2.0"}`,
		},
		{
			name:        "sse data line",
			contentType: "text/event-stream",
			body:        "event: message\ndata: {\"jsonrpc\":\"2.0\"}\n\n",
			want:        `{"jsonrpc":"2.0"}`,
		},
		{
			name:        "sse skips done markers",
			contentType: "text/event-stream; charset=utf-8",
			body:        "data: [DONE]\ndata: {\"ok\":1}\n",
			want:        `{"ok":1}`,
		},
		{
			name:        "sse with no payload",
			contentType: "text/event-stream",
			body:        "event: ping\n\n",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEnvelope(tt.contentType, []byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestListTools(t *testing.T) {
	var gotSession, gotAuth, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.URL.Query().Get("sessionId")
		gotAuth = r.Header.Get("Authorization")

		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		gotMethod, _ = req["method"].(string)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"tools":[
			{"name":"pivot_table","description":"Build a pivot table","inputSchema":{"type":"object"}}
		]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123", "sess-9")
	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "tools/list", gotMethod)
	assert.Equal(t, "sess-9", gotSession)
	assert.Equal(t, "Bearer key-123", gotAuth)

	require.Len(t, tools, 1)
	assert.Equal(t, "pivot_table", tools[0].Name)
	assert.Equal(t, "object", tools[0].InputSchema["type"])
}

func TestCallToolJoinsContentBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{\"content\":[{\"type\":\"text\",\"text\":\"first\"},{\"type\":\"text\",\"text\":\"second\"}]}}\n\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	out, err := c.CallTool(context.Background(), "pivot_table", map[string]interface{}{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", out)
}

func TestCallToolIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[{"type":"text","text":"remote blew up"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	_, err := c.CallTool(context.Background(), "pivot_table", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote blew up")
}

func TestCallRpcError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	_, err := c.ListTools(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

func TestCallHttpError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	_, err := c.ListTools(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "502"))
}

func TestRequestIdsIncrement(t *testing.T) {
	var ids []float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		ids = append(ids, req["id"].(float64))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	c.ListTools(context.Background())
	c.ListTools(context.Background())

	require.Len(t, ids, 2)
	assert.Equal(t, ids[0]+1, ids[1])
}

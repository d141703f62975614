package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solobuilderhub/memegen-ai/pkg/client"
)

type chatBody struct {
	Model    string          `json:"model"`
	Stream   *bool           `json:"stream"`
	Format   json.RawMessage `json:"format"`
	Options  map[string]any  `json:"options"`
	Messages []struct {
		Role    string   `json:"role"`
		Content string   `json:"content"`
		Images  []string `json:"images"`
	} `json:"messages"`
}

func newTestServer(t *testing.T, reply string, got *chatBody) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, got); err != nil {
			t.Errorf("bad request body %s: %v", data, err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":   got.Model,
			"message": map[string]string{"role": "assistant", "content": reply},
			"done":    true,
		})
	}))
}

func TestComplete(t *testing.T) {
	var got chatBody
	srv := newTestServer(t, `{"annotations": []}`, &got)
	defer srv.Close()

	// the path is dropped, only scheme and host are kept
	c, err := NewClient(srv.URL + "/api/chat")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	reply, err := c.Complete(context.Background(), client.Request{
		Model:       "minicpm-v",
		System:      "be funny",
		Prompt:      "caption this",
		ImageB64:    "aW1hZ2U=",
		JSON:        true,
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != `{"annotations": []}` {
		t.Errorf("reply = %q", reply)
	}

	if got.Model != "minicpm-v" {
		t.Errorf("model = %q", got.Model)
	}
	if got.Stream == nil || *got.Stream {
		t.Error("stream should be false")
	}
	if string(got.Format) != `"json"` {
		t.Errorf("format = %s, want \"json\"", got.Format)
	}
	if got.Options["temperature"] != 0.3 {
		t.Errorf("temperature = %v", got.Options["temperature"])
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if got.Messages[1].Content != "caption this" || len(got.Messages[1].Images) != 1 || got.Messages[1].Images[0] != "aW1hZ2U=" {
		t.Errorf("user message = %+v", got.Messages[1])
	}
}

func TestSimpleQuery(t *testing.T) {
	var got chatBody
	srv := newTestServer(t, "a cat on a keyboard", &got)
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	reply, err := c.SimpleQuery(context.Background(), "llava", "what is this?", "")
	if err != nil {
		t.Fatalf("SimpleQuery failed: %v", err)
	}
	if reply != "a cat on a keyboard" {
		t.Errorf("reply = %q", reply)
	}
	if len(got.Messages) != 1 || len(got.Format) != 0 {
		t.Errorf("simple query should send one message without format: %+v", got)
	}
}

func TestCompleteEmptyReply(t *testing.T) {
	var got chatBody
	srv := newTestServer(t, "", &got)
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	if _, err := c.Complete(context.Background(), client.Request{Model: "m", Prompt: "p"}); err == nil {
		t.Error("empty reply should fail")
	}
}

func TestCompleteInvalidImage(t *testing.T) {
	c, _ := NewClient("http://localhost:1")
	if _, err := c.Complete(context.Background(), client.Request{Model: "m", ImageB64: "%%%"}); err == nil {
		t.Error("invalid base64 should fail before any request")
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost", "://bad"} {
		if _, err := NewClient(u); err == nil {
			t.Errorf("NewClient(%q) should fail", u)
		}
	}
}

package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/solobuilderhub/memegen-ai/pkg/client"
)

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
}

var _ client.VisionClient = (*Client)(nil)

// NewClient creates a new Ollama client
func NewClient(ollamaURL string) (*Client, error) {
	return NewClientWithHTTP(ollamaURL, http.DefaultClient)
}

// NewClientWithHTTP creates an Ollama client that sends requests through hc.
func NewClientWithHTTP(ollamaURL string, hc *http.Client) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs a scheme and host", ollamaURL)
	}

	// keep only scheme and host; callers often pass .../api/chat
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}
	return &Client{client: api.NewClient(baseURL, hc)}, nil
}

// SimpleQuery performs a simple query with an image without expecting JSON
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return c.Complete(ctx, client.Request{Model: model, Prompt: prompt, ImageB64: imgB64})
}

// Complete sends one chat turn and returns the reply text.
func (c *Client) Complete(ctx context.Context, req client.Request) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	user := api.Message{Role: "user", Content: req.Prompt}
	if req.ImageB64 != "" {
		imgBytes, err := base64.StdEncoding.DecodeString(req.ImageB64)
		if err != nil {
			return "", fmt.Errorf("failed to decode base64 image: %w", err)
		}
		user.Images = []api.ImageData{api.ImageData(imgBytes)}
	}

	messages := make([]api.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, user)

	streamFalse := false
	chat := &api.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &streamFalse,
		Options:  map[string]any{},
	}
	if req.Temperature > 0 {
		chat.Options["temperature"] = req.Temperature
	}
	if req.JSON {
		chat.Format = json.RawMessage(`"json"`)
	}

	var responseContent string
	err := c.client.Chat(ctx, chat, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	if responseContent == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return responseContent, nil
}

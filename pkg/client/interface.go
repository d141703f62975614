package client

import "context"

// Request is a single vision-model chat turn: an optional system prompt, a
// user prompt and an optional base64 image.
type Request struct {
	Model       string
	System      string
	Prompt      string
	ImageB64    string
	JSON        bool
	Temperature float64
}

// VisionClient is the boundary to the external image analysis model. Both
// methods return the model's raw text reply.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	Complete(ctx context.Context, req Request) (string, error)
}

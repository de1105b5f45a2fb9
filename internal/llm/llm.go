package llm

import (
	"context"
	"fmt"
)

// Request is one chat-completion exchange: a fixed system message, the
// user message, and sampling controls.
type Request struct {
	System      string
	User        string
	Temperature float64
	JSONOnly    bool
}

// Client produces a single text completion for a request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// UpstreamError carries the completion service's HTTP status and a
// body excerpt so the API layer can surface transport failures
// distinctly from planning failures.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion service returned status %d: %s", e.StatusCode, e.Body)
}

// Package llm provides the normalized completion protocol and the two
// provider backends: the Anthropic Messages API over HTTP, and the claude
// CLI driven as a subprocess with tool-call recovery.
package llm

import "context"

// AuthStatus is the outcome of a credential probe. It is produced fresh on
// every CheckAuth call and never cached.
type AuthStatus struct {
	Valid  bool
	Reason string // set when Valid is false
}

// Provider is the contract every backend satisfies. Complete is stateless:
// calling it twice with the same request is safe. Conversation state lives
// with the caller, never the provider, so one Provider instance may be
// shared across concurrent runs.
type Provider interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	CheckAuth(ctx context.Context) (AuthStatus, error)
	Name() string
	Model() string
}

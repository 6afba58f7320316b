package provider

import "context"

type ChatPayload struct {
	System     string
	User       string
	ExpectJSON bool
	MaxTokens  int
	Purpose    string
}

type ModelProvider interface {
	ID() string
	Enabled() bool

	Call(ctx context.Context, payload ChatPayload) (string, error)
}

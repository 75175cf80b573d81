package aisdk

import (
	"context"
)

// Provider hands out clients bound to a specific model.
type Provider interface {
	Model(ctx context.Context, modelName string) (ModelClient, error)
}

// ModelClient sends prepared message lists to a single model.
type ModelClient interface {
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
	ModelName() string
}

package service

import (
	"context"

	"github.com/dokupintar/dokubot-be/types"
)

// AIService is the chat backend behind the assistant surfaces. Both the
// OpenAI-compatible and the Gemini implementations satisfy it.
type AIService interface {
	Chat(ctx context.Context, messages []types.Message) (*types.Message, error)
	ChatStream(ctx context.Context, messages []types.Message, handler types.StreamHandler) error
}

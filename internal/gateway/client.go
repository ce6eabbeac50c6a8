// internal/gateway/client.go
package gateway

import (
	"context"

	"github.com/evoflow/backend/internal/model"
)

// Client is the messaging gateway the automation core sends through. All
// calls may fail; failures are opaque and never inspected for retries.
type Client interface {
	SendText(ctx context.Context, instance, number, text string) error
	SendMedia(ctx context.Context, instance, number string, att *model.Attachment, caption string) error
	GetConversations(ctx context.Context, instance string) ([]model.Conversation, error)
	// GetLatestMessage returns nil, nil when the conversation has no messages.
	GetLatestMessage(ctx context.Context, instance, conversationID string) (*model.ChatMessage, error)
}

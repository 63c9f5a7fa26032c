package console

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"food-console/models"
	"food-console/remote"
	"food-console/retry"
)

const (
	chatsLimit        = 50
	chatMessagesLimit = 200
)

func (c *Client) Chats(ctx context.Context, p ListParams) ([]models.Chat, error) {
	chats, err := list[models.Chat](ctx, c, remote.From("chats").
		Where(c.branchFilter(p.Branch)...).
		OrderBy("created_at", false).
		WithLimit(limitOr(p.Limit, chatsLimit)))
	if err != nil {
		return nil, fmt.Errorf("chats: %w", err)
	}
	return chats, nil
}

// ChatMessages returns the conversation oldest first.
func (c *Client) ChatMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	if chatID == "" {
		return nil, ErrInvalidInput
	}
	msgs, err := list[models.ChatMessage](ctx, c, remote.From("chat_messages").
		Eq("chat_id", chatID).
		OrderBy("created_at", true).
		WithLimit(chatMessagesLimit))
	if err != nil {
		return nil, fmt.Errorf("chat messages %s: %w", chatID, err)
	}
	return msgs, nil
}

type ChatMessageInput struct {
	ChatID   string
	SenderID string
	Message  string
}

// SendResult reports whether the message needed the chat's branch attached
// before the row policy accepted it.
type SendResult struct {
	Message  models.ChatMessage `json:"message"`
	Enriched bool               `json:"enriched"`
}

// SendChatMessage inserts a message. If a row policy rejects it, the chat's
// branch_id is looked up and the insert is retried once with it.
func (c *Client) SendChatMessage(ctx context.Context, in ChatMessageInput) (SendResult, error) {
	if in.ChatID == "" || in.Message == "" {
		return SendResult{}, ErrInvalidInput
	}
	payload := remote.Row{"chat_id": in.ChatID, "message": in.Message}
	if in.SenderID != "" {
		payload["sender_id"] = in.SenderID
	}
	attempt := func(ctx context.Context, p remote.Row) (remote.Row, error) {
		return c.svc.Insert(ctx, "chat_messages", p)
	}
	out, err := retry.Once(ctx, payload, attempt, retry.EnrichOnDenied("branch_id", c.chatBranch))
	if err != nil {
		return SendResult{}, fmt.Errorf("send chat message: %w", err)
	}
	if out.Retried {
		c.log.Info("chat message sent with branch attached",
			zap.String("chat_id", in.ChatID), zap.Any("branch_id", out.Payload["branch_id"]))
	}
	msg, err := decode[models.ChatMessage](out.Value)
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{Message: msg, Enriched: out.Retried}, nil
}

func (c *Client) chatBranch(ctx context.Context, payload remote.Row) (any, bool, error) {
	row, err := c.one(ctx, remote.From("chats").Select("branch_id").Eq("id", payload["chat_id"]))
	if err != nil {
		c.log.Warn("chat branch lookup", zap.Any("chat_id", payload["chat_id"]), zap.Error(err))
		return nil, false, err
	}
	if row == nil || row["branch_id"] == nil {
		return nil, false, nil
	}
	return row["branch_id"], true, nil
}

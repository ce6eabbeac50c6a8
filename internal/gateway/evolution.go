// internal/gateway/evolution.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	appErrors "github.com/evoflow/backend/internal/errors"
	"github.com/evoflow/backend/internal/model"
)

// EvolutionClient talks to an Evolution API server. Instance sessions are
// managed by the server; we only address them by name.
type EvolutionClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewEvolutionClient reads EVOLUTION_API_URL and EVOLUTION_API_KEY from the
// environment.
func NewEvolutionClient() *EvolutionClient {
	return &EvolutionClient{
		BaseURL: os.Getenv("EVOLUTION_API_URL"),
		APIKey:  os.Getenv("EVOLUTION_API_KEY"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *EvolutionClient) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *EvolutionClient) SendText(ctx context.Context, instance, number, text string) error {
	payload := map[string]any{
		"number":      number,
		"text":        text,
		"delay":       1200,
		"linkPreview": true,
	}
	if err := c.do(ctx, http.MethodPost, "/message/sendText/"+instance, payload, nil); err != nil {
		return appErrors.NewGatewayError("sendText", err)
	}
	return nil
}

func (c *EvolutionClient) SendMedia(ctx context.Context, instance, number string, att *model.Attachment, caption string) error {
	payload := map[string]any{
		"number":    number,
		"media":     att.Media,
		"mediatype": att.MediaType(),
		"fileName":  att.FileName,
		"caption":   caption,
	}
	if err := c.do(ctx, http.MethodPost, "/message/sendMedia/"+instance, payload, nil); err != nil {
		return appErrors.NewGatewayError("sendMedia", err)
	}
	return nil
}

// chat/findChats rows, as Evolution returns them
type chatRecord struct {
	ID   string `json:"id"`
	Date int64  `json:"date"`
}

func (c *EvolutionClient) GetConversations(ctx context.Context, instance string) ([]model.Conversation, error) {
	var raw []chatRecord
	if err := c.do(ctx, http.MethodGet, "/chat/findChats/"+instance, nil, &raw); err != nil {
		return nil, appErrors.NewGatewayError("getConversations", err)
	}

	chats := make([]model.Conversation, 0, len(raw))
	for _, r := range raw {
		chats = append(chats, model.Conversation{
			ID:        r.ID,
			UpdatedAt: time.Unix(r.Date, 0),
		})
	}
	return chats, nil
}

// chat/findMessages rows
type messageRecord struct {
	Key struct {
		ID     string `json:"id"`
		FromMe bool   `json:"fromMe"`
	} `json:"key"`
	Message struct {
		Conversation        string `json:"conversation"`
		ExtendedTextMessage struct {
			Text string `json:"text"`
		} `json:"extendedTextMessage"`
	} `json:"message"`
	MessageTimestamp int64 `json:"messageTimestamp"`
}

func (c *EvolutionClient) GetLatestMessage(ctx context.Context, instance, conversationID string) (*model.ChatMessage, error) {
	payload := map[string]any{
		"where": map[string]any{
			"key": map[string]any{"remoteJid": conversationID},
		},
		"limit": 1,
	}

	var raw []messageRecord
	if err := c.do(ctx, http.MethodPost, "/chat/findMessages/"+instance, payload, &raw); err != nil {
		return nil, appErrors.NewGatewayError("getLatestMessage", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	r := raw[0]
	text := r.Message.Conversation
	if text == "" {
		text = r.Message.ExtendedTextMessage.Text
	}

	return &model.ChatMessage{
		ID:        r.Key.ID,
		FromMe:    r.Key.FromMe,
		Text:      text,
		Timestamp: time.Unix(r.MessageTimestamp, 0),
	}, nil
}

var _ Client = (*EvolutionClient)(nil)

package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ChatModel adapts an eino chat model to TextProvider and VisionProvider.
type ChatModel struct {
	name  string
	model model.BaseChatModel
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewChatModel compiles the prompt chain around m.
func NewChatModel(ctx context.Context, name string, m model.BaseChatModel) (*ChatModel, error) {
	if m == nil {
		return nil, fmt.Errorf("%s: chat model is nil", name)
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(m)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to compile chat chain: %w", name, err)
	}

	return &ChatModel{name: name, model: m, chain: runnable}, nil
}

// Name returns the provider name.
func (c *ChatModel) Name() string { return c.name }

// Generate runs one chat completion.
func (c *ChatModel) Generate(ctx context.Context, req TextRequest) (string, error) {
	resp, err := c.chain.Invoke(ctx, map[string]any{
		"system":  req.System,
		"history": historyMessages(req.History),
		"query":   req.Prompt,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrMalformedResponse
	}
	return resp.Content, nil
}

// Describe sends the image inline as a data URL next to the instruction.
func (c *ChatModel) Describe(ctx context.Context, req VisionRequest) (string, error) {
	if len(req.Image) == 0 {
		return "", fmt.Errorf("%s: empty image", c.name)
	}

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(req.Image)
	}

	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:      DataURL(mimeType, req.Image),
					MIMEType: mimeType,
					Detail:   schema.ImageURLDetailAuto,
				},
			},
			{
				Type: schema.ChatMessagePartTypeText,
				Text: req.Instruction,
			},
		},
	}

	resp, err := c.model.Generate(ctx, []*schema.Message{msg})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrMalformedResponse
	}
	return resp.Content, nil
}

// DataURL encodes data as an RFC 2397 base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func historyMessages(turns []Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}
	history := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		if t.FromUser {
			history = append(history, schema.UserMessage(t.Text))
			continue
		}
		history = append(history, schema.AssistantMessage(t.Text, nil))
	}
	return history
}

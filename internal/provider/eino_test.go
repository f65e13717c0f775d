package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	reply *schema.Message
	err   error
	input []*schema.Message
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	return f.reply, f.err
}

func (f *fakeModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestChatModelGenerateBuildsMessages(t *testing.T) {
	fake := &fakeModel{reply: schema.AssistantMessage("Noot noot", nil)}
	cm, err := NewChatModel(context.Background(), "ark", fake)
	require.NoError(t, err)
	assert.Equal(t, "ark", cm.Name())

	reply, err := cm.Generate(context.Background(), TextRequest{
		System: "You are Cowalsky.",
		History: []Turn{
			{FromUser: true, Text: "earlier question"},
			{Text: "earlier answer"},
		},
		Prompt: "what is {ice}?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Noot noot", reply)

	require.Len(t, fake.input, 4)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Equal(t, "You are Cowalsky.", fake.input[0].Content)
	assert.Equal(t, schema.User, fake.input[1].Role)
	assert.Equal(t, schema.Assistant, fake.input[2].Role)
	assert.Equal(t, "what is {ice}?", fake.input[3].Content)
}

func TestChatModelGenerateKeepsEmptyContent(t *testing.T) {
	cm, err := NewChatModel(context.Background(), "openai", &fakeModel{reply: schema.AssistantMessage("", nil)})
	require.NoError(t, err)

	reply, err := cm.Generate(context.Background(), TextRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestChatModelGeneratePropagatesError(t *testing.T) {
	boom := errors.New("quota")
	cm, err := NewChatModel(context.Background(), "openai", &fakeModel{err: boom})
	require.NoError(t, err)

	_, err = cm.Generate(context.Background(), TextRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, boom)
}

func TestChatModelDescribeSendsInlineImage(t *testing.T) {
	fake := &fakeModel{reply: schema.AssistantMessage("A suspicious fish.", nil)}
	cm, err := NewChatModel(context.Background(), "openai", fake)
	require.NoError(t, err)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	reply, err := cm.Describe(context.Background(), VisionRequest{Image: png, Instruction: "Describe this image like a penguin detective."})
	require.NoError(t, err)
	assert.Equal(t, "A suspicious fish.", reply)

	require.Len(t, fake.input, 1)
	parts := fake.input[0].MultiContent
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].ImageURL)
	assert.True(t, strings.HasPrefix(parts[0].ImageURL.URL, "data:image/png;base64,"))
	assert.Equal(t, "Describe this image like a penguin detective.", parts[1].Text)
}

func TestChatModelDescribeRejectsEmptyImage(t *testing.T) {
	cm, err := NewChatModel(context.Background(), "openai", &fakeModel{})
	require.NoError(t, err)

	_, err = cm.Describe(context.Background(), VisionRequest{})
	assert.Error(t, err)
}

func TestChatModelNilResponseIsMalformed(t *testing.T) {
	cm, err := NewChatModel(context.Background(), "openai", &fakeModel{})
	require.NoError(t, err)

	_, err = cm.Describe(context.Background(), VisionRequest{Image: []byte("gif"), MIMEType: "image/gif"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,AQID", DataURL("image/jpeg", []byte{1, 2, 3}))
}

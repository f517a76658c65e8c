// Package ai wraps the OpenAI API behind the two narrow capabilities the
// pipeline consumes: prompt completion and text embedding.
package ai

import (
	"context"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
}

func NewClient(apiKey string) Client {
	return Client{
		client: openai.NewClient(apiKey),
	}
}

const (
	completionModel = openai.GPT4oMini
	embeddingModel  = openai.SmallEmbedding3
	maxTokens       = 4096
)

// Complete sends a single-prompt chat completion and returns the assistant's
// text. The prompt wording is owned by the caller; this client only carries it.
func (c Client) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     completionModel,
			MaxTokens: maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for the given text.
func (c Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(
		ctx,
		openai.EmbeddingRequest{ //nolint:exhaustruct // this is better for readability
			Model: embeddingModel,
			Input: []string{text},
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "create embedding")
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding returned no data")
	}
	return resp.Data[0].Embedding, nil
}

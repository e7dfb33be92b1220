package llmservice

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

// Client is the model provider: embeddings, image descriptions and chat
// completions. It is built once per process and shared.
type Client struct {
	provider        string
	chat            llms.Model
	vision          llms.Model
	embedder        embeddings.Embedder
	visionMaxTokens int
}

// NewClient builds the provider handles for cfg.Provider (openai, azure or
// ollama).
func NewClient(cfg *config.LLMConfig, visionMaxTokens int) (*Client, error) {
	log.Debug().Str("provider", cfg.Provider).Str("base_url", cfg.BaseURL).
		Str("chat_model", cfg.ChatModel).Str("embedding_model", cfg.EmbeddingModel).Msg("Creating LLM client")

	chat, err := newModel(cfg, cfg.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %v", err)
	}
	vision := chat
	if cfg.VisionModel != "" && cfg.VisionModel != cfg.ChatModel {
		if vision, err = newModel(cfg, cfg.VisionModel); err != nil {
			return nil, fmt.Errorf("failed to create vision model: %v", err)
		}
	}

	embedModel, err := newEmbeddingModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding model: %v", err)
	}
	embedder, err := embeddings.NewEmbedder(embedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %v", err)
	}

	return &Client{
		provider:        cfg.Provider,
		chat:            chat,
		vision:          vision,
		embedder:        embedder,
		visionMaxTokens: visionMaxTokens,
	}, nil
}

func newModel(cfg *config.LLMConfig, model string) (llms.Model, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(model),
		)
	case "openai", "azure", "":
		return openai.New(openAIOptions(cfg, openai.WithModel(model))...)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

func newEmbeddingModel(cfg *config.LLMConfig) (embeddings.EmbedderClient, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.EmbeddingModel),
		)
	case "openai", "azure", "":
		return openai.New(openAIOptions(cfg, openai.WithEmbeddingModel(cfg.EmbeddingModel))...)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

func openAIOptions(cfg *config.LLMConfig, extra ...openai.Option) []openai.Option {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Provider == "azure" {
		opts = append(opts, openai.WithAPIType(openai.APITypeAzure), openai.WithAPIVersion(cfg.APIVersion))
	}
	return append(opts, extra...)
}

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.embedder.EmbedQuery(ctx, text)
}

// DescribeImage asks the vision model for a detailed description of image.
func (c *Client) DescribeImage(ctx context.Context, image []byte, mimeType, detail string) (string, error) {
	mimeType = imageMIME(mimeType)

	var imagePart llms.ContentPart
	if c.provider == "ollama" {
		imagePart = llms.BinaryPart(mimeType, image)
	} else {
		imagePart = llms.ImageURLWithDetailPart(DataURL(image, mimeType), detail)
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: models.ImageSystemPrompt}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: models.ImageUserPrompt}, imagePart},
		},
	}
	return generate(ctx, c.vision, messages, llms.WithMaxTokens(c.visionMaxTokens))
}

// Complete runs a single-turn chat completion.
func (c *Client) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, req.UserPrompt),
	}
	return generate(ctx, c.chat, messages,
		llms.WithTemperature(req.Temperature),
		llms.WithMaxTokens(req.MaxTokens),
	)
}

func generate(ctx context.Context, model llms.Model, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	resp, err := model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// DataURL encodes data as a base64 data URL.
func DataURL(data []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", imageMIME(mimeType), base64.StdEncoding.EncodeToString(data))
}

// imageMIME accepts either a full MIME type or a bare extension like "png".
func imageMIME(mimeType string) string {
	if mimeType == "" {
		return "image/png"
	}
	if strings.Contains(mimeType, "/") {
		return mimeType
	}
	return "image/" + mimeType
}

package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

// number of top chunks used for highlights and the confidence fallback
const highlightCount = 3

// Completer runs a chat completion.
type Completer interface {
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
}

type Synthesizer struct {
	model       Completer
	temperature float64
	maxTokens   int
}

func NewSynthesizer(model Completer, temperature float64, maxTokens int) *Synthesizer {
	return &Synthesizer{model: model, temperature: temperature, maxTokens: maxTokens}
}

// Synthesize answers question from chunks, which must be ordered by
// descending similarity. No model call is made when chunks is empty.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []models.RetrievedChunk) models.Answer {
	if len(chunks) == 0 {
		return noInformation()
	}

	text, err := s.model.Complete(ctx, models.CompletionRequest{
		SystemPrompt: models.AnswerSystemPrompt,
		UserPrompt:   BuildPrompt(question, chunks),
		Temperature:  s.temperature,
		MaxTokens:    s.maxTokens,
	})
	if err != nil {
		log.Error().Err(fmt.Errorf("%w: completion: %v", models.ErrRetrievalUnavailable, err)).Msg("Answer generation failed")
		return noInformation()
	}

	confidence, refs := ParseAnswerText(text)
	top := chunks[:min(highlightCount, len(chunks))]
	if confidence == 0 {
		var sum float64
		for _, c := range top {
			sum += c.Similarity
		}
		confidence = sum / float64(len(top))
	}

	details := make([]models.HighlightDetail, len(top))
	citations := make([]string, len(top))
	for i, c := range top {
		details[i] = models.HighlightDetail{
			Page:           c.Highlight.Page,
			ParagraphIndex: c.Highlight.ParagraphIndex,
			Position:       c.Highlight.Position,
			Preview:        c.Metadata[models.MetaPreview],
			Similarity:     c.Similarity,
		}
		citations[i] = fmt.Sprintf("Page %d", c.Highlight.Page)
	}

	return models.Answer{
		Text:          text,
		Confidence:    clamp01(confidence),
		Citations:     citations,
		HighlightInfo: details,
		References:    refs,
	}
}

// BuildPrompt labels each chunk with its page, and half when the chunk came
// from a two-column page, in input order.
func BuildPrompt(question string, chunks []models.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		page, ok := c.Metadata[models.MetaPageNum]
		if !ok {
			page = "unknown"
		}
		label := "--- Content from page " + page
		if half, ok := c.Metadata[models.MetaHalf]; ok {
			label += ", " + half + " half"
		}
		parts[i] = label + " ---\n" + c.Content
	}
	return fmt.Sprintf(models.AnswerPromptTemplate, question, strings.Join(parts, "\n\n"))
}

func noInformation() models.Answer {
	return models.Answer{
		Text:          models.NoInformationAnswer,
		Confidence:    0,
		Citations:     []string{},
		HighlightInfo: []models.HighlightDetail{},
	}
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

package rag

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"pdf-rag/internal/models"
)

func retrieved(page int, similarity float64, content string) models.RetrievedChunk {
	return models.RetrievedChunk{
		ID:         "doc_" + content,
		Content:    content,
		Similarity: similarity,
		Metadata: map[string]string{
			models.MetaPageNum: strconv.Itoa(page),
			models.MetaPreview: content,
		},
		Highlight: models.HighlightInfo{Page: page, ParagraphIndex: page * 10},
	}
}

func TestSynthesizeEmptyMakesNoModelCall(t *testing.T) {
	m := &fakeModel{completion: "should not be used"}
	a := NewSynthesizer(m, 0.3, 800).Synthesize(context.Background(), "anything?", nil)

	if len(m.completions) != 0 {
		t.Errorf("made %d completion calls, want 0", len(m.completions))
	}
	if a.Text != models.NoInformationAnswer || a.Confidence != 0 {
		t.Errorf("answer = %+v", a)
	}
	if a.Citations == nil || len(a.Citations) != 0 {
		t.Errorf("citations = %#v, want empty non-nil", a.Citations)
	}
}

func TestSynthesizeParsesConfidence(t *testing.T) {
	m := &fakeModel{completion: "Revenue grew.\n\nConfidence: 85\n\nReferences: Page 2"}
	chunks := []models.RetrievedChunk{retrieved(2, 0.9, "revenue grew"), retrieved(5, 0.5, "other")}

	a := NewSynthesizer(m, 0.3, 800).Synthesize(context.Background(), "How did revenue change?", chunks)
	if !almostEqual(a.Confidence, 0.85) {
		t.Errorf("confidence = %v, want 0.85", a.Confidence)
	}
	if len(a.References) != 1 || a.References[0].Page != "2" {
		t.Errorf("references = %+v", a.References)
	}
	if len(m.completions) != 1 {
		t.Fatalf("made %d completion calls, want 1", len(m.completions))
	}
	req := m.completions[0]
	if req.Temperature != 0.3 || req.MaxTokens != 800 || req.SystemPrompt != models.AnswerSystemPrompt {
		t.Errorf("request = %+v", req)
	}
}

func TestSynthesizeConfidenceFallback(t *testing.T) {
	m := &fakeModel{completion: "An answer without a score."}
	chunks := []models.RetrievedChunk{
		retrieved(1, 0.9, "a"),
		retrieved(2, 0.8, "b"),
		retrieved(3, 0.7, "c"),
		retrieved(4, 0.1, "d"),
	}
	a := NewSynthesizer(m, 0.3, 800).Synthesize(context.Background(), "q", chunks)
	if !almostEqual(a.Confidence, 0.8) {
		t.Errorf("confidence = %v, want 0.8", a.Confidence)
	}

	a = NewSynthesizer(m, 0.3, 800).Synthesize(context.Background(), "q", chunks[:1])
	if !almostEqual(a.Confidence, 0.9) {
		t.Errorf("confidence with one chunk = %v, want 0.9", a.Confidence)
	}
}

func TestSynthesizeHighlightsTopThree(t *testing.T) {
	m := &fakeModel{completion: "Answer.\nConfidence: 0.9\nReferences: page 9"}
	chunks := []models.RetrievedChunk{
		retrieved(4, 0.9, "a"),
		retrieved(1, 0.8, "b"),
		retrieved(4, 0.7, "c"),
		retrieved(2, 0.6, "d"),
	}
	a := NewSynthesizer(m, 0.3, 800).Synthesize(context.Background(), "q", chunks)

	wantCitations := []string{"Page 4", "Page 1", "Page 4"}
	if strings.Join(a.Citations, ",") != strings.Join(wantCitations, ",") {
		t.Errorf("citations = %v, want %v", a.Citations, wantCitations)
	}
	if len(a.HighlightInfo) != 3 {
		t.Fatalf("highlight_info has %d entries, want 3", len(a.HighlightInfo))
	}
	h := a.HighlightInfo[1]
	if h.Page != 1 || h.ParagraphIndex != 10 || h.Preview != "b" || h.Similarity != 0.8 {
		t.Errorf("highlight = %+v", h)
	}
}

func TestSynthesizeCompletionFailure(t *testing.T) {
	m := &fakeModel{completeErr: errors.New("timeout")}
	a := NewSynthesizer(m, 0.3, 800).Synthesize(context.Background(), "q", []models.RetrievedChunk{retrieved(1, 0.9, "a")})
	if a.Text != models.NoInformationAnswer || a.Confidence != 0 || len(a.Citations) != 0 {
		t.Errorf("answer = %+v", a)
	}
}

func TestSynthesizeClampsConfidence(t *testing.T) {
	m := &fakeModel{completion: "Confidence: 150"}
	a := NewSynthesizer(m, 0.3, 800).Synthesize(context.Background(), "q", []models.RetrievedChunk{retrieved(1, 0.9, "a")})
	if a.Confidence != 1 {
		t.Errorf("confidence = %v, want 1", a.Confidence)
	}
}

func TestBuildPrompt(t *testing.T) {
	left := retrieved(3, 0.9, "left column text")
	left.Metadata[models.MetaHalf] = "left"
	prompt := BuildPrompt("What is shown?", []models.RetrievedChunk{left, retrieved(5, 0.8, "full page text")})

	for _, want := range []string{
		"Query: What is shown?",
		"--- Content from page 3, left half ---\nleft column text",
		"--- Content from page 5 ---\nfull page text",
		"Confidence: [score between 0 and 1]",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Index(prompt, "page 3") > strings.Index(prompt, "page 5") {
		t.Error("chunks not in input order")
	}
}

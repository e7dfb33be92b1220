package llmservice

import (
	"strings"
	"testing"

	"pdf-rag/internal/config"
)

func TestDataURL(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"png", "data:image/png;base64,AQID"},
		{"jpeg", "data:image/jpeg;base64,AQID"},
		{"image/webp", "data:image/webp;base64,AQID"},
		{"", "data:image/png;base64,AQID"},
	}
	for _, tt := range tests {
		if got := DataURL([]byte{1, 2, 3}, tt.mime); got != tt.want {
			t.Errorf("DataURL(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	_, err := NewClient(&config.LLMConfig{Provider: "bedrock", ChatModel: "m"}, 300)
	if err == nil || !strings.Contains(err.Error(), "unsupported provider") {
		t.Errorf("err = %v, want unsupported provider", err)
	}
}

func TestNewClientOllama(t *testing.T) {
	c, err := NewClient(&config.LLMConfig{
		Provider:       "ollama",
		BaseURL:        "http://localhost:11434",
		ChatModel:      "llava",
		EmbeddingModel: "nomic-embed-text",
	}, 300)
	if err != nil {
		t.Fatal(err)
	}
	if c.provider != "ollama" || c.visionMaxTokens != 300 {
		t.Errorf("client = %+v", c)
	}
}

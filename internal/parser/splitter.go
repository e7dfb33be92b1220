package parser

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pdf-rag/internal/models"
)

func init() {
	// pdfcpu would otherwise create a config dir under the user's home.
	api.DisableConfigDir()
}

// Splitter breaks a document into standalone single-page documents.
type Splitter struct {
	conf *model.Configuration
}

func NewSplitter() *Splitter {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Splitter{conf: conf}
}

// Split returns one complete PDF per physical page, in page order.
func (s *Splitter) Split(data []byte) ([][]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", models.ErrMalformedDocument)
	}

	type part struct {
		from int
		data []byte
	}
	var parts []part

	err := safely(func() error {
		spans, err := api.SplitRaw(bytes.NewReader(data), 1, s.conf)
		if err != nil {
			return err
		}
		for _, span := range spans {
			b, err := io.ReadAll(span.Reader)
			if err != nil {
				return fmt.Errorf("failed to read page %d: %w", span.From, err)
			}
			parts = append(parts, part{from: span.From, data: b})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedDocument, err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no pages", models.ErrMalformedDocument)
	}

	sort.SliceStable(parts, func(i, j int) bool { return parts[i].from < parts[j].from })
	pages := make([][]byte, len(parts))
	for i, p := range parts {
		pages[i] = p.data
	}
	return pages, nil
}

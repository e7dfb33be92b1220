package parser

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

// US Letter, used when a page carries no readable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Extractor turns a single-page PDF into positioned content blocks.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the image blocks of the page followed by its text blocks.
// Only a page that cannot be opened at all is an error; every other failure
// is logged and replaced by a fallback.
func (e *Extractor) Extract(pageBytes []byte, pageNumber int) ([]models.ContentBlock, error) {
	page, err := openPage(pageBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", models.ErrMalformedDocument, pageNumber, err)
	}
	width, height := pageSize(page)

	placements, err := scanPlacements(page, width, height)
	if err != nil {
		log.Warn().Err(err).Int("page", pageNumber).Msg("failed to scan image placements")
	}

	var blocks []models.ContentBlock
	listed, err := directoryImages(pageBytes, pageNumber, placements, width, height)
	if err != nil {
		log.Warn().Err(err).Int("page", pageNumber).Msg("image directory lookup failed")
	}
	blocks = append(blocks, listed...)
	blocks = append(blocks, drawnImages(page, pageNumber, placements)...)

	src := &pageText{page: page, width: width, height: height}
	blocks = append(blocks, layoutText(src, pageNumber)...)

	log.Debug().Int("page", pageNumber).Int("blocks", len(blocks)).Msg("page extracted")
	return blocks, nil
}

func openPage(pageBytes []byte) (pdf.Page, error) {
	var page pdf.Page
	err := safely(func() error {
		r, err := pdf.NewReader(bytes.NewReader(pageBytes), int64(len(pageBytes)))
		if err != nil {
			return err
		}
		if r.NumPage() < 1 {
			return fmt.Errorf("document has no pages")
		}
		page = r.Page(1)
		if page.V.IsNull() {
			return fmt.Errorf("page object missing")
		}
		return nil
	})
	return page, err
}

// pageSize reads the MediaBox, walking up the page tree for inherited values.
func pageSize(page pdf.Page) (float64, float64) {
	var width, height float64
	err := safely(func() error {
		for v := page.V; !v.IsNull(); v = v.Key("Parent") {
			box := v.Key("MediaBox")
			if box.Len() == 4 {
				width = box.Index(2).Float64() - box.Index(0).Float64()
				height = box.Index(3).Float64() - box.Index(1).Float64()
				return nil
			}
		}
		return fmt.Errorf("no MediaBox")
	})
	if err != nil || width <= 0 || height <= 0 {
		return defaultPageWidth, defaultPageHeight
	}
	return width, height
}

// pageText adapts a ledongthuc page to the layout heuristic. Words are
// decoded once and shared by column detection and rectangle extraction.
type pageText struct {
	page          pdf.Page
	width, height float64

	words    []word
	wordsErr error
	decoded  bool
}

func (p *pageText) Size() (float64, float64) {
	return p.width, p.height
}

func (p *pageText) Words() ([]word, error) {
	if !p.decoded {
		p.decoded = true
		p.wordsErr = safely(func() error {
			p.words = wordsFromTexts(p.page.Content().Text, p.height)
			return nil
		})
	}
	return p.words, p.wordsErr
}

func (p *pageText) BlockXs() ([]float64, error) {
	words, err := p.Words()
	if err != nil {
		return nil, err
	}
	return blockLefts(words), nil
}

func (p *pageText) PlainText() (string, error) {
	var text string
	err := safely(func() error {
		var err error
		text, err = p.page.GetPlainText(nil)
		return err
	})
	return text, err
}

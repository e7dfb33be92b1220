package parser

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

const (
	// left-x histogram bucket width used by the column heuristic
	columnBucketWidth = 100.0
	// more distinct buckets than this means the page is read as one block
	fullPageBuckets = 2
	// tokens within this vertical distance of the current line join it
	lineThreshold = 5.0
	// horizontal gap that splits a line into separate text blocks
	blockGapFactor = 2.0
)

// word is a positioned token in top-left page coordinates.
type word struct {
	box  models.BoundingBox
	text string
}

// textSource is the page text as seen by the layout heuristic. Every method
// may fail independently; the heuristic degrades instead of aborting.
type textSource interface {
	Size() (width, height float64)
	BlockXs() ([]float64, error)
	Words() ([]word, error)
	PlainText() (string, error)
}

// isFullPage classifies a page from the left-x coordinates of its text
// blocks. More than two distinct coarse buckets means single-column.
func isFullPage(blockXs []float64) bool {
	buckets := make(map[int]struct{})
	for _, x := range blockXs {
		buckets[int(x/columnBucketWidth)] = struct{}{}
	}
	return len(buckets) > fullPageBuckets
}

// layoutText produces the text blocks of one page.
func layoutText(src textSource, pageNumber int) []models.ContentBlock {
	width, height := src.Size()

	fullPage := true
	if xs, err := src.BlockXs(); err != nil {
		log.Warn().Err(err).Int("page", pageNumber).Msg("column detection failed, assuming full page")
	} else {
		fullPage = isFullPage(xs)
	}

	if !fullPage {
		blocks, err := halfPageBlocks(src, width, height, pageNumber)
		if err == nil {
			return blocks
		}
		log.Warn().Err(err).Int("page", pageNumber).Msg("half-page extraction failed, using whole page text")
	}

	text, err := src.PlainText()
	if err != nil {
		log.Warn().Err(err).Int("page", pageNumber).Msg("page text extraction failed")
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []models.ContentBlock{{
		Kind:       models.BlockText,
		PageNumber: pageNumber,
		BBox:       models.FullPageBox(width, height),
		Layout:     models.LayoutFullPage,
		Text:       text,
	}}
}

func halfPageBlocks(src textSource, width, height float64, pageNumber int) ([]models.ContentBlock, error) {
	words, err := src.Words()
	if err != nil {
		return nil, err
	}

	half := width / 2
	regions := []struct {
		tag  models.LayoutTag
		rect models.BoundingBox
	}{
		{models.LayoutLeftHalf, models.BoundingBox{X0: 0, Y0: 0, X1: half, Y1: height}},
		{models.LayoutRightHalf, models.BoundingBox{X0: half, Y0: 0, X1: width, Y1: height}},
	}

	var blocks []models.ContentBlock
	for _, r := range regions {
		text := textInRect(words, r.rect)
		if strings.TrimSpace(text) == "" {
			continue
		}
		blocks = append(blocks, models.ContentBlock{
			Kind:       models.BlockText,
			PageNumber: pageNumber,
			BBox:       r.rect,
			Layout:     r.tag,
			Text:       text,
		})
	}
	return blocks, nil
}

// textInRect joins the words lying fully inside rect into lines, top to
// bottom and left to right.
func textInRect(words []word, rect models.BoundingBox) string {
	var inside []word
	for _, w := range words {
		if rect.Contains(w.box) {
			inside = append(inside, w)
		}
	}

	lines := groupLines(inside)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		parts := make([]string, len(line))
		for i, w := range line {
			parts[i] = w.text
		}
		out = append(out, strings.Join(parts, " "))
	}
	return strings.Join(out, "\n")
}

// groupLines sorts words by bottom edge then left edge and starts a new line
// whenever a word's top is more than lineThreshold away from the current
// line's top.
func groupLines(words []word) [][]word {
	sorted := append([]word(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].box.Y1 != sorted[j].box.Y1 {
			return sorted[i].box.Y1 < sorted[j].box.Y1
		}
		return sorted[i].box.X0 < sorted[j].box.X0
	})

	var (
		lines    [][]word
		current  []word
		currentY float64
	)
	for _, w := range sorted {
		if current == nil || abs(w.box.Y0-currentY) > lineThreshold {
			if current != nil {
				lines = append(lines, current)
			}
			current = []word{w}
			currentY = w.box.Y0
			continue
		}
		current = append(current, w)
	}
	if current != nil {
		lines = append(lines, current)
	}

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].box.X0 < line[j].box.X0 })
	}
	return lines
}

// blockLefts splits every line at wide horizontal gaps and returns the left
// edge of each resulting segment. These stand in for the page's text blocks.
func blockLefts(words []word) []float64 {
	var xs []float64
	for _, line := range groupLines(words) {
		start := line[0].box.X0
		xs = append(xs, start)
		for i := 1; i < len(line); i++ {
			prev, cur := line[i-1].box, line[i].box
			gap := cur.X0 - prev.X1
			if gap > blockGapFactor*(prev.Y1-prev.Y0) {
				xs = append(xs, cur.X0)
			}
		}
	}
	return xs
}

// wordsFromTexts assembles glyph runs from the PDF content stream into words.
// Text coordinates use the PDF bottom-left origin; words are returned in
// top-left coordinates on a page of the given height.
func wordsFromTexts(texts []pdf.Text, height float64) []word {
	var (
		words    []word
		cur      strings.Builder
		box      models.BoundingBox
		baseline float64
		size     float64
		open     bool
	)

	flush := func() {
		if open && strings.TrimSpace(cur.String()) != "" {
			words = append(words, word{box: box, text: cur.String()})
		}
		cur.Reset()
		open = false
	}

	for _, t := range texts {
		runes := []rune(t.S)
		if len(runes) == 0 {
			continue
		}
		step := t.W / float64(len(runes))
		fontSize := t.FontSize
		if fontSize <= 0 {
			fontSize = 1
		}
		for i, r := range runes {
			x := t.X + float64(i)*step
			if unicode.IsSpace(r) {
				flush()
				continue
			}
			if open {
				sameLine := abs(t.Y-baseline) <= size/2
				adjacent := x-box.X1 <= size/5 && x >= box.X0-0.5
				if !sameLine || !adjacent {
					flush()
				}
			}
			top := height - (t.Y + fontSize)
			bottom := height - t.Y
			if !open {
				open = true
				baseline = t.Y
				size = fontSize
				box = models.BoundingBox{X0: x, Y0: top, X1: x + step, Y1: bottom}
			} else {
				box.X1 = max(box.X1, x+step)
				box.Y0 = min(box.Y0, top)
				box.Y1 = max(box.Y1, bottom)
			}
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

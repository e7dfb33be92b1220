package models

// BlockKind is the kind of an extracted content block.
type BlockKind string

const (
	BlockText  BlockKind = "text"
	BlockImage BlockKind = "image"
)

// LayoutTag records how the layout heuristic classified the region a block
// was read from.
type LayoutTag string

const (
	LayoutFullPage  LayoutTag = "full"
	LayoutLeftHalf  LayoutTag = "left"
	LayoutRightHalf LayoutTag = "right"
)

// Half returns "left" or "right" for half-page tags and "" otherwise.
func (t LayoutTag) Half() string {
	switch t {
	case LayoutLeftHalf, LayoutRightHalf:
		return string(t)
	}
	return ""
}

// BoundingBox is a rectangle in page space with the origin at the top-left
// corner.
type BoundingBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// FullPageBox spans the whole page.
func FullPageBox(width, height float64) BoundingBox {
	return BoundingBox{X1: width, Y1: height}
}

// Clamp orders the corners and limits the box to a width x height page.
func (b BoundingBox) Clamp(width, height float64) BoundingBox {
	if b.X0 > b.X1 {
		b.X0, b.X1 = b.X1, b.X0
	}
	if b.Y0 > b.Y1 {
		b.Y0, b.Y1 = b.Y1, b.Y0
	}
	b.X0 = clamp(b.X0, 0, width)
	b.X1 = clamp(b.X1, 0, width)
	b.Y0 = clamp(b.Y0, 0, height)
	b.Y1 = clamp(b.Y1, 0, height)
	return b
}

// Contains reports whether o lies fully inside b.
func (b BoundingBox) Contains(o BoundingBox) bool {
	return o.X0 >= b.X0 && o.X1 <= b.X1 && o.Y0 >= b.Y0 && o.Y1 <= b.Y1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ContentBlock is a positioned unit of extracted content. Text is set for
// text blocks, Image and MimeType for image blocks.
type ContentBlock struct {
	Kind       BlockKind   `json:"type"`
	PageNumber int         `json:"page_num"`
	BBox       BoundingBox `json:"position"`
	Layout     LayoutTag   `json:"layout,omitempty"`
	Text       string      `json:"content,omitempty"`
	Image      []byte      `json:"-"`
	MimeType   string      `json:"mime_type,omitempty"`
}

// Ref returns the provenance reference for chunks derived from b.
func (b ContentBlock) Ref() BlockRef {
	return BlockRef{PageNumber: b.PageNumber, Layout: b.Layout, BBox: b.BBox}
}

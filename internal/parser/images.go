package parser

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

var errNoPlacement = errors.New("no image placement found")

// placement is one image XObject drawn by the page content stream.
type placement struct {
	name string
	box  models.BoundingBox
}

// boxStrategy is one attempt at locating an image on the page.
type boxStrategy struct {
	name    string
	resolve func() (models.BoundingBox, error)
}

// resolveBox runs the strategies in order and returns the first success. A
// failing or panicking strategy is logged and skipped; fallback is returned
// when all of them fail.
func resolveBox(pageNumber int, fallback models.BoundingBox, strategies ...boxStrategy) models.BoundingBox {
	for _, s := range strategies {
		var box models.BoundingBox
		err := safely(func() error {
			var err error
			box, err = s.resolve()
			return err
		})
		if err == nil {
			return box
		}
		log.Warn().Err(err).Int("page", pageNumber).Str("strategy", s.name).Msg("image position lookup failed")
	}
	return fallback
}

// matrix is a PDF affine transform [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m x n, applying m first.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// unitSquareBox maps the image unit square through ctm and converts the
// result to top-left coordinates on a page of the given size.
func unitSquareBox(ctm matrix, width, height float64) models.BoundingBox {
	xs := make([]float64, 0, 4)
	ys := make([]float64, 0, 4)
	for _, p := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := ctm.apply(p[0], p[1])
		xs = append(xs, x)
		ys = append(ys, y)
	}
	sort.Float64s(xs)
	sort.Float64s(ys)
	return models.BoundingBox{
		X0: xs[0],
		Y0: height - ys[3],
		X1: xs[3],
		Y1: height - ys[0],
	}.Clamp(width, height)
}

// scanPlacements interprets the page content stream, tracking the current
// transformation matrix, and records where each image XObject is drawn.
func scanPlacements(page pdf.Page, width, height float64) ([]placement, error) {
	var out []placement
	err := safely(func() error {
		xobjects := page.Resources().Key("XObject")
		ctm := identity
		var saved []matrix

		do := func(stk *pdf.Stack, op string) {
			n := stk.Len()
			args := make([]pdf.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = stk.Pop()
			}
			switch op {
			case "q":
				saved = append(saved, ctm)
			case "Q":
				if len(saved) > 0 {
					ctm = saved[len(saved)-1]
					saved = saved[:len(saved)-1]
				}
			case "cm":
				if len(args) != 6 {
					return
				}
				var m matrix
				for i := range m {
					m[i] = args[i].Float64()
				}
				ctm = m.mul(ctm)
			case "Do":
				if len(args) != 1 {
					return
				}
				name := args[0].Name()
				if xobjects.Key(name).Key("Subtype").Name() != "Image" {
					return
				}
				out = append(out, placement{name: name, box: unitSquareBox(ctm, width, height)})
			}
		}

		contents := page.V.Key("Contents")
		if contents.Kind() == pdf.Array {
			for i := 0; i < contents.Len(); i++ {
				pdf.Interpret(contents.Index(i), do)
			}
		} else {
			pdf.Interpret(contents, do)
		}
		return nil
	})
	return out, err
}

// placementByName finds where the named XObject is drawn.
func placementByName(placements []placement, name string) (models.BoundingBox, error) {
	for _, p := range placements {
		if p.name == name {
			return p.box, nil
		}
	}
	return models.BoundingBox{}, fmt.Errorf("%w for %q", errNoPlacement, name)
}

// firstPlacement returns the first image drawn on the page.
func firstPlacement(placements []placement) (models.BoundingBox, error) {
	if len(placements) == 0 {
		return models.BoundingBox{}, errNoPlacement
	}
	return placements[0].box, nil
}

// directoryImages lists the page's image resources through pdfcpu and
// resolves a placement for each one.
func directoryImages(pageBytes []byte, pageNumber int, placements []placement, width, height float64) ([]models.ContentBlock, error) {
	var pages []map[int]model.Image
	err := safely(func() error {
		var err error
		pages, err = api.ExtractImagesRaw(bytes.NewReader(pageBytes), nil, model.NewDefaultConfiguration())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list page images: %w", err)
	}

	var blocks []models.ContentBlock
	for _, imgs := range pages {
		objNrs := make([]int, 0, len(imgs))
		for nr := range imgs {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)

		for _, nr := range objNrs {
			img := imgs[nr]
			if img.Reader == nil {
				continue
			}
			data, err := io.ReadAll(img.Reader)
			if err != nil || len(data) == 0 {
				log.Warn().Err(err).Int("page", pageNumber).Int("obj", nr).Msg("failed to read image")
				continue
			}
			name := img.Name
			box := resolveBox(pageNumber, models.FullPageBox(width, height),
				boxStrategy{"placement by name", func() (models.BoundingBox, error) { return placementByName(placements, name) }},
				boxStrategy{"first placement", func() (models.BoundingBox, error) { return firstPlacement(placements) }},
			)
			blocks = append(blocks, models.ContentBlock{
				Kind:       models.BlockImage,
				PageNumber: pageNumber,
				BBox:       box,
				Image:      data,
				MimeType:   mimeType(img.FileType),
			})
		}
	}
	return blocks, nil
}

// drawnImages decodes the image XObjects found while interpreting the
// content stream. The same image may also have been found by directoryImages;
// both are kept.
func drawnImages(page pdf.Page, pageNumber int, placements []placement) []models.ContentBlock {
	xobjects := page.Resources().Key("XObject")

	var blocks []models.ContentBlock
	for _, p := range placements {
		var data []byte
		err := safely(func() error {
			var err error
			data, err = encodeXObject(xobjects.Key(p.name))
			return err
		})
		if err != nil {
			log.Warn().Err(err).Int("page", pageNumber).Str("xobject", p.name).Msg("failed to decode drawn image")
			continue
		}
		blocks = append(blocks, models.ContentBlock{
			Kind:       models.BlockImage,
			PageNumber: pageNumber,
			BBox:       p.box,
			Image:      data,
			MimeType:   "png",
		})
	}
	return blocks
}

// encodeXObject turns a decoded 8-bit Gray or RGB image XObject into PNG.
func encodeXObject(xobj pdf.Value) ([]byte, error) {
	if filterNames(xobj.Key("Filter"))["DCTDecode"] {
		return nil, errors.New("DCTDecode streams are not decoded")
	}
	w := int(xobj.Key("Width").Int64())
	h := int(xobj.Key("Height").Int64())
	bpc := int(xobj.Key("BitsPerComponent").Int64())
	cs := xobj.Key("ColorSpace").Name()

	rc := xobj.Reader()
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read image stream: %w", err)
	}
	return encodePNG(raw, w, h, bpc, cs)
}

func encodePNG(raw []byte, w, h, bpc int, colorSpace string) ([]byte, error) {
	if w <= 0 || h <= 0 || bpc != 8 {
		return nil, fmt.Errorf("unsupported image %dx%d with %d bits per component", w, h, bpc)
	}

	var img image.Image
	switch colorSpace {
	case "DeviceGray":
		if len(raw) < w*h {
			return nil, fmt.Errorf("short gray image data: %d bytes", len(raw))
		}
		gray := image.NewGray(image.Rect(0, 0, w, h))
		copy(gray.Pix, raw[:w*h])
		img = gray
	case "DeviceRGB":
		if len(raw) < w*h*3 {
			return nil, fmt.Errorf("short rgb image data: %d bytes", len(raw))
		}
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < w*h; i++ {
			rgba.Set(i%w, i/w, color.RGBA{R: raw[3*i], G: raw[3*i+1], B: raw[3*i+2], A: 0xff})
		}
		img = rgba
	default:
		return nil, fmt.Errorf("unsupported color space %q", colorSpace)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func filterNames(v pdf.Value) map[string]bool {
	names := make(map[string]bool)
	switch v.Kind() {
	case pdf.Name:
		names[v.Name()] = true
	case pdf.Array:
		for i := 0; i < v.Len(); i++ {
			names[v.Index(i).Name()] = true
		}
	}
	return names
}

func mimeType(fileType string) string {
	switch ft := strings.ToLower(fileType); ft {
	case "jpg", "jpeg":
		return "jpeg"
	case "":
		return "png"
	default:
		return ft
	}
}

// safely runs fn and converts a panic from the PDF libraries into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered: %v", r)
		}
	}()
	return fn()
}

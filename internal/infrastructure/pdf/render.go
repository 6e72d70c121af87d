package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/resper/paperless-onS/internal/core/domain"
)

const defaultMaxDimension = 2048

// minPageCoverage is the share of the MediaBox an image placement must cover
// to count as the page itself.
const minPageCoverage = 0.8

// ErrNoRasterContent means the first page is not a scanned image.
var ErrNoRasterContent = errors.New("first page has no full-page raster image")

// PageRenderer returns the first page of a scanned PDF as PNG. A scan places
// one image over the whole page; born-digital pages with only logos or
// figures yield ErrNoRasterContent and are analysed from their text layer.
type PageRenderer struct {
	maxDimension int
}

func NewPageRenderer(maxDimension int) *PageRenderer {
	if maxDimension <= 0 {
		maxDimension = defaultMaxDimension
	}
	return &PageRenderer{maxDimension: maxDimension}
}

func (r *PageRenderer) RenderFirstPage(ctx context.Context, data []byte) (*domain.ImageInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sizes, err := pageScanSizes(data)
	if err != nil {
		return nil, err
	}
	if len(sizes) == 0 {
		return nil, ErrNoRasterContent
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), []string{"1"}, conf)
	if err != nil {
		return nil, fmt.Errorf("extract first page images: %w", err)
	}

	var best image.Image
	bestArea := 0
	for _, images := range pages {
		for _, raw := range images {
			img, err := imaging.Decode(raw, imaging.AutoOrientation(true))
			if err != nil {
				// unsupported filters such as JBIG2 are skipped
				continue
			}
			w, h := img.Bounds().Dx(), img.Bounds().Dy()
			if !sizes[pixelSize{w, h}] && !sizes[pixelSize{h, w}] {
				continue
			}
			if area := w * h; area > bestArea {
				best, bestArea = img, area
			}
		}
	}
	if best == nil {
		return nil, ErrNoRasterContent
	}

	encoded, err := r.encodePNG(best)
	if err != nil {
		return nil, err
	}
	return &domain.ImageInput{MimeType: "image/png", Data: encoded}, nil
}

// encodePNG downsizes img to fit maxDimension and encodes it as PNG.
func (r *PageRenderer) encodePNG(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() > r.maxDimension || bounds.Dy() > r.maxDimension {
		img = imaging.Fit(img, r.maxDimension, r.maxDimension, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}
	return buf.Bytes(), nil
}

type pixelSize struct {
	width, height int
}

// pageScanSizes walks the first page's content stream and returns the pixel
// sizes of the image XObjects drawn over most of the MediaBox.
func pageScanSizes(data []byte) (sizes map[pixelSize]bool, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			sizes, err = nil, fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return nil, errors.New("pdf has no pages")
	}
	box, ok := mediaBox(page.V)
	if !ok {
		return nil, errors.New("first page has no media box")
	}

	xobjects := page.Resources().Key("XObject")
	sizes = make(map[pixelSize]bool)
	ctm := identityMatrix
	var saved []matrix

	pdf.Interpret(page.V.Key("Contents"), func(stk *pdf.Stack, op string) {
		switch op {
		case "q":
			saved = append(saved, ctm)
		case "Q":
			if n := len(saved); n > 0 {
				ctm, saved = saved[n-1], saved[:n-1]
			}
		case "cm":
			if stk.Len() >= 6 {
				var m matrix
				for i := 5; i >= 0; i-- {
					m[i] = stk.Pop().Float64()
				}
				ctm = m.multiply(ctm)
			}
		case "Do":
			xobj := xobjects.Key(stk.Pop().Name())
			if xobj.Key("Subtype").Name() != "Image" {
				break
			}
			if box.coverage(ctm.unitSquareBounds()) >= minPageCoverage {
				sizes[pixelSize{int(xobj.Key("Width").Int64()), int(xobj.Key("Height").Int64())}] = true
			}
		}
		for stk.Len() > 0 {
			stk.Pop()
		}
	})
	return sizes, nil
}

// mediaBox follows the page tree upwards until a MediaBox is found.
func mediaBox(v pdf.Value) (rect, bool) {
	for depth := 0; !v.IsNull() && depth < 32; depth++ {
		if box := v.Key("MediaBox"); box.Len() == 4 {
			return normalizedRect(box.Index(0).Float64(), box.Index(1).Float64(), box.Index(2).Float64(), box.Index(3).Float64()), true
		}
		v = v.Key("Parent")
	}
	return rect{}, false
}

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identityMatrix = matrix{1, 0, 0, 1, 0, 0}

// multiply returns m × n, the order `cm` concatenates with the current matrix.
func (m matrix) multiply(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// unitSquareBounds is the bounding box of the image space unit square, which
// is where an image XObject is painted.
func (m matrix) unitSquareBounds() rect {
	out := rect{x0: m[4], y0: m[5], x1: m[4], y1: m[5]}
	for _, p := range [][2]float64{{1, 0}, {0, 1}, {1, 1}} {
		x := m[0]*p[0] + m[2]*p[1] + m[4]
		y := m[1]*p[0] + m[3]*p[1] + m[5]
		out.x0, out.x1 = min(out.x0, x), max(out.x1, x)
		out.y0, out.y1 = min(out.y0, y), max(out.y1, y)
	}
	return out
}

type rect struct {
	x0, y0, x1, y1 float64
}

func normalizedRect(x0, y0, x1, y1 float64) rect {
	return rect{x0: min(x0, x1), y0: min(y0, y1), x1: max(x0, x1), y1: max(y0, y1)}
}

func (r rect) area() float64 {
	return max(r.x1-r.x0, 0) * max(r.y1-r.y0, 0)
}

// coverage is the share of r covered by other.
func (r rect) coverage(other rect) float64 {
	total := r.area()
	if total == 0 {
		return 0
	}
	overlap := rect{
		x0: max(r.x0, other.x0),
		y0: max(r.y0, other.y0),
		x1: min(r.x1, other.x1),
		y1: min(r.y1, other.y1),
	}
	return overlap.area() / total
}

package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/solobuilderhub/memegen-ai/pkg/types"
)

// Format is an output encoding.
type Format string

const (
	JPEG Format = "jpg"
	PNG  Format = "png"
	WebP Format = "webp"
)

// DefaultQuality is the JPEG/WebP quality used for rendered output.
const DefaultQuality = 95

// ParseFormat maps a file extension or format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// Processor handles image decoding, encoding and transfer.
type Processor struct {
	client *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchImage downloads an image and returns its encoded bytes.
func (p *Processor) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "memegen-ai/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// ReadImage returns the encoded bytes behind a file path or http(s) URL.
func (p *Processor) ReadImage(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.FetchImage(ctx, source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// DecodeImage decodes JPEG, PNG, GIF or WebP bytes, applying EXIF
// orientation. Undecodable data is an input error.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &types.InputError{Index: -1, Reason: "empty image data"}
	}
	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, &types.InputError{Index: -1, Reason: "image: unknown or unsupported format"}
}

// NewSurface copies img into a fresh NRGBA buffer owned by the caller. The
// second result reports whether the source carries any transparency.
func NewSurface(img image.Image) (*image.NRGBA, bool) {
	surface := imaging.Clone(img)
	return surface, !surface.Opaque()
}

// Flatten drops the alpha channel in place, keeping colour values.
func Flatten(img *image.NRGBA) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for i := 3; i < len(row); i += 4 {
			row[i] = 0xff
		}
	}
}

// EncodeImage serialises img in the given format. Quality applies to JPEG
// and lossy WebP.
func EncodeImage(img image.Image, format Format, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	var err error
	switch format {
	case WebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)})
	case PNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case JPEG, "":
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// PrepareImageForModel resizes img to the reference frame and base64-encodes
// it for a vision model.
func PrepareImageForModel(img image.Image, frame types.Dims, format Format, quality int) (string, error) {
	if frame.Valid() {
		img = imaging.Resize(img, frame.Width, frame.Height, imaging.Lanczos)
	}
	if format != PNG {
		format = JPEG
	}
	data, err := EncodeImage(img, format, quality)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// CreateDebugOverlay returns a copy of img with every annotation box and its
// padded text area outlined.
func CreateDebugOverlay(img image.Image, anns []types.Annotation) *image.NRGBA {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	green := color.NRGBA{0, 255, 0, 255}  // box
	gold := color.NRGBA{255, 204, 0, 255} // text area
	stroke := max(2, min(w, h)/250)

	for _, a := range anns {
		x0, y0 := a.Left(), a.Y
		drawBox(nrgba, image.Rect(x0, y0, x0+a.Width, y0+a.Height), green, stroke)
		if a.EffectiveWidth() > 0 && a.EffectiveHeight() > 0 {
			inner := image.Rect(x0+a.Padding, y0+a.Padding, x0+a.Width-a.Padding, y0+a.Height-a.Padding)
			drawBox(nrgba, inner, gold, 1)
		}
	}
	return nrgba
}

func drawBox(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}

package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/go-pdf/fpdf"
)

// JPEG qualities, as fractions, for each export target.
const (
	DownloadQuality  = 0.95
	ThumbnailQuality = 0.92
	PDFQuality       = 0.98
)

// Capture scales, relative to the preview width, for snapshot downloads
// and cart thumbnails.
const (
	DownloadScale  = 4.0
	ThumbnailScale = 1.0
)

// EncodeJPEG writes img as JPEG. quality is a fraction in (0, 1].
func EncodeJPEG(w io.Writer, img image.Image, quality float64) error {
	if img == nil {
		return errors.New("no image to encode")
	}
	q := int(math.Round(quality * 100))
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: q}); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if img == nil {
		return errors.New("no image to encode")
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// EncodePDF writes a single-page PDF sized widthMM × heightMM with the
// JPEG placed full-bleed at the origin.
func EncodePDF(w io.Writer, jpegData []byte, widthMM, heightMM float64) error {
	if len(jpegData) == 0 {
		return errors.New("no jpeg data for pdf")
	}
	if widthMM <= 0 || heightMM <= 0 {
		return fmt.Errorf("invalid page size %.2fx%.2fmm", widthMM, heightMM)
	}

	// fpdf takes the page size in portrait terms and swaps it for "L"
	orientation := "P"
	size := fpdf.SizeType{Wd: widthMM, Ht: heightMM}
	if widthMM >= heightMM {
		orientation = "L"
		size = fpdf.SizeType{Wd: heightMM, Ht: widthMM}
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "mm",
		Size:           size,
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("photoclock", true)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("disc", opts, bytes.NewReader(jpegData))
	pdf.ImageOptions("disc", 0, 0, widthMM, heightMM, false, opts, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// jpegQuality is used when an upload has to be re-encoded
const jpegQuality = 90

// preparedImage is an image in a format every analysis backend accepts
type preparedImage struct {
	data     []byte
	mimeType string
}

// format returns the MIME subtype (e.g. "jpeg"), which is what genai.ImageData expects
func (p preparedImage) format() string {
	_, sub, _ := strings.Cut(p.mimeType, "/")
	return sub
}

// pdfToImage renders the first page of a PDF as an image
func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// encodeJPEG re-encodes a decoded image as JPEG
func encodeJPEG(img image.Image) (preparedImage, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return preparedImage{}, fmt.Errorf("encoding JPEG: %w", err)
	}
	return preparedImage{data: buf.Bytes(), mimeType: "image/jpeg"}, nil
}

// isHEICFormat checks if the image data is in HEIC/HEIF format
// HEIC files carry an ftyp box with brand 'heic', 'heif', 'mif1' or 'msf1'
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

func isPDF(data []byte, mimeType string) bool {
	return mimeType == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF-"))
}

// prepareImage validates an upload and normalizes it to JPEG or PNG.
// JPEG and PNG pass through untouched; everything else is decoded and
// re-encoded as JPEG.
func prepareImage(imageData []byte, contentType string) (preparedImage, error) {
	if len(imageData) == 0 {
		return preparedImage{}, fmt.Errorf("%w: empty upload", ErrUnsupportedImage)
	}

	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	var (
		img image.Image
		err error
	)
	switch {
	case isPDF(imageData, mimeType):
		img, err = pdfToImage(imageData)
	case isHEICFormat(imageData) || isHEICMimeType(mimeType):
		img, err = heic.Decode(bytes.NewReader(imageData))
	default:
		var format string
		_, format, err = image.DecodeConfig(bytes.NewReader(imageData))
		if err == nil && (format == "jpeg" || format == "png") {
			return preparedImage{data: imageData, mimeType: "image/" + format}, nil
		}
		if err == nil {
			img, _, err = image.Decode(bytes.NewReader(imageData))
		}
	}
	if err != nil {
		return preparedImage{}, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}

	return encodeJPEG(img)
}

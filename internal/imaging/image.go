// Package imaging holds uploaded screenshots and their transport encoding.
package imaging

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	apperrors "go-attack-planner/internal/errors"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes is used when a Decoder is built with a non-positive limit.
const DefaultMaxBytes int64 = 10 * 1024 * 1024

// acceptedTypes are the common image formats the model accepts inline.
var acceptedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/heic": true,
	"image/heif": true,
}

// Image is an uploaded screenshot with a sniffed MIME type.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Size returns the number of bytes held.
func (i Image) Size() int64 { return int64(len(i.Data)) }

// IsZero reports whether no image was provided.
func (i Image) IsZero() bool { return len(i.Data) == 0 }

// EncodedImage is the transport-safe form sent to the model. Values built by
// Encode also keep the raw bytes, so adapters that upload binary parts do not
// decode the payload again.
type EncodedImage struct {
	MIMEType string
	Base64   string

	raw []byte
}

// Bytes returns the raw image, decoding Base64 only when the value was built
// by hand.
func (e EncodedImage) Bytes() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	return base64.StdEncoding.DecodeString(e.Base64)
}

// Encode converts an image to its transport encoding.
func Encode(img Image) (EncodedImage, error) {
	if img.IsZero() {
		return EncodedImage{}, fmt.Errorf("image %q is empty", img.Name)
	}
	return EncodedImage{
		MIMEType: img.MIMEType,
		Base64:   base64.StdEncoding.EncodeToString(img.Data),
		raw:      img.Data,
	}, nil
}

// Decoder builds Images from raw uploads, enforcing a size limit and an
// image content type determined from the bytes themselves.
type Decoder struct {
	maxBytes int64
}

// NewDecoder creates a decoder with the given per-image byte limit
func NewDecoder(maxBytes int64) *Decoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Decoder{maxBytes: maxBytes}
}

// MaxBytes returns the configured per-image limit
func (d *Decoder) MaxBytes() int64 { return d.maxBytes }

// FromBytes validates data and returns an Image.
func (d *Decoder) FromBytes(name string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, apperrors.NewInputError(fmt.Sprintf("%s image is empty", name), nil)
	}
	if int64(len(data)) > d.maxBytes {
		return Image{}, apperrors.NewInputError(
			fmt.Sprintf("%s image exceeds %d bytes", name, d.maxBytes), nil)
	}

	mime := mimetype.Detect(data)
	mimeType := strings.ToLower(mime.String())
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !acceptedTypes[mimeType] {
		return Image{}, apperrors.NewInputError(
			fmt.Sprintf("%s file is not a supported image (detected %s)", name, mimeType), nil).
			WithReason("unsupported_type")
	}

	return Image{Name: name, MIMEType: mimeType, Data: data}, nil
}

// FromReader reads at most the configured limit from r.
func (d *Decoder) FromReader(name string, r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, d.maxBytes+1))
	if err != nil {
		return Image{}, apperrors.NewInputError(fmt.Sprintf("failed to read %s image", name), err)
	}
	return d.FromBytes(name, data)
}

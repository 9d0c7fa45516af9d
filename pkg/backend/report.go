package backend

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/dxblostfound/lostfound/pkg/matching"
)

// MaxImageSize is the largest photo the backend accepts.
const MaxImageSize = 10 * 1024 * 1024

// AllowedImageExtensions lists the photo formats the backend accepts.
var AllowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Image is the photo attached to a report.
type Image struct {
	Filename string
	Data     []byte
}

// ContentType sniffs the image bytes.
func (img Image) ContentType() string {
	return http.DetectContentType(img.Data)
}

// ValidateImage checks the photo against the backend's upload limits.
func ValidateImage(img Image) error {
	if len(img.Data) == 0 {
		return ErrEmptyImage
	}
	ext := strings.ToLower(filepath.Ext(img.Filename))
	if !AllowedImageExtensions[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
	}
	if len(img.Data) > MaxImageSize {
		return fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(img.Data))
	}
	return nil
}

// Report is a new lost or found item report.
type Report struct {
	Kind           matching.Kind
	Title          string
	Description    string
	LocationType   string
	LocationDetail string
	TimeFrame      string
	Image          Image
	// IdempotencyKey is sent as a header and stays the same across retries.
	IdempotencyKey string
}

// Path is the endpoint the report is posted to.
func (r Report) Path() string {
	return "/api/" + string(r.Kind)
}

// Encode builds the multipart body. The boundary is derived from the content,
// so encoding the same report twice yields the same bytes.
func (r Report) Encode() ([]byte, string, error) {
	if !r.Kind.Valid() {
		return nil, "", fmt.Errorf("%w: %q", matching.ErrInvalidKind, r.Kind)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(r.boundary()); err != nil {
		return nil, "", err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(r.Image.Filename)))
	header.Set("Content-Type", r.Image.ContentType())
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(r.Image.Data); err != nil {
		return nil, "", err
	}

	fields := []struct {
		name, value string
		optional    bool
	}{
		{"title", r.Title, false},
		{"description", r.Description, true},
		{"location_type", r.LocationType, false},
		{"location_detail", r.LocationDetail, true},
		{"time_frame", r.TimeFrame, false},
	}
	for _, f := range fields {
		if f.optional && f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func (r Report) boundary() string {
	h := sha256.New()
	for _, v := range []string{string(r.Kind), r.Title, r.Description, r.LocationType, r.LocationDetail, r.TimeFrame, r.Image.Filename} {
		h.Write([]byte(v))
		h.Write([]byte{0})
	}
	h.Write(r.Image.Data)
	return "lostfound-" + hex.EncodeToString(h.Sum(nil))[:40]
}

package submission

import (
	"fmt"
	"strings"

	"github.com/dxblostfound/lostfound/pkg/backend"
	"github.com/dxblostfound/lostfound/pkg/matching"
)

// Form is what the reporter fills in before submitting.
type Form struct {
	Image         *backend.Image
	Where         string
	SpecificPlace string
	When          string
	Description   string
}

// clone copies the form together with its photo bytes.
func (f Form) clone() Form {
	if f.Image != nil {
		img := cloneImage(*f.Image)
		f.Image = &img
	}
	return f
}

func cloneImage(img backend.Image) backend.Image {
	if img.Data != nil {
		img.Data = append([]byte(nil), img.Data...)
	}
	return img
}

// IsZero reports whether nothing has been filled in.
func (f Form) IsZero() bool {
	return f.Image == nil && f.Where == "" && f.SpecificPlace == "" && f.When == "" && f.Description == ""
}

// Validate checks the required fields and the photo limits.
func (f Form) Validate() error {
	if f.Image == nil {
		return ErrMissingImage
	}
	if strings.TrimSpace(f.Where) == "" {
		return ErrMissingWhere
	}
	if strings.TrimSpace(f.When) == "" {
		return ErrMissingWhen
	}
	return backend.ValidateImage(*f.Image)
}

// Title is the description when given, else "<Kind> item at <where>".
func (f Form) Title(kind matching.Kind) string {
	if d := strings.TrimSpace(f.Description); d != "" {
		return d
	}
	return fmt.Sprintf("%s item at %s", kind.Title(), strings.TrimSpace(f.Where))
}

// Report prepares the request for kind. The caller supplies the idempotency
// key so a retry can reuse it. The report owns a copy of the photo bytes.
func (f Form) Report(kind matching.Kind, key string) backend.Report {
	r := backend.Report{
		Kind:           kind,
		Title:          f.Title(kind),
		Description:    strings.TrimSpace(f.Description),
		LocationType:   strings.TrimSpace(f.Where),
		LocationDetail: strings.TrimSpace(f.SpecificPlace),
		TimeFrame:      strings.TrimSpace(f.When),
		IdempotencyKey: key,
	}
	if f.Image != nil {
		r.Image = cloneImage(*f.Image)
	}
	return r
}

package image

import "context"

// SourceImage is an input photo used as conditioning for regeneration.
type SourceImage struct {
	Data []byte
	MIME string
}

// Rendering is the single canonical image produced for a valuation record.
type Rendering struct {
	Data []byte
	MIME string
}

// Regenerator produces one clean studio rendering of the appraised item from
// the submitted photos. Failure here is non-fatal to the pipeline; callers
// fall back to the first input image.
type Regenerator interface {
	Regenerate(ctx context.Context, sources []SourceImage, itemName string) (*Rendering, error)
}

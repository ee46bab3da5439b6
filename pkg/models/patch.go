package models

// PatchKind distinguishes what a recorded field patch substitutes
type PatchKind string

const (
	PatchUnset         PatchKind = ""               // Zero value = unset/unknown
	PatchFragment      PatchKind = "fragment"       // Anchor-augmented HTML replaces the field output
	PatchHeadingMarker PatchKind = "heading_marker" // Field was consumed as a pure heading
)

// String implements fmt.Stringer for logging
func (k PatchKind) String() string {
	if k == "" {
		return "unset"
	}
	return string(k)
}

// IsValid returns true if the kind is a known operational value
func (k PatchKind) IsValid() bool {
	switch k {
	case PatchFragment, PatchHeadingMarker:
		return true
	}
	return false
}

// FieldPatch is the replacement content recorded for one field item
type FieldPatch struct {
	Kind     PatchKind `json:"kind"`
	Fragment string    `json:"fragment,omitempty"` // PatchFragment only
	AnchorID string    `json:"anchor_id,omitempty"`
}

// NewFragmentPatch builds a fragment replacement patch
func NewFragmentPatch(fragment string) FieldPatch {
	return FieldPatch{Kind: PatchFragment, Fragment: fragment}
}

// NewHeadingMarkerPatch builds a heading marker patch
func NewHeadingMarkerPatch(anchorID string) FieldPatch {
	return FieldPatch{Kind: PatchHeadingMarker, AnchorID: anchorID}
}

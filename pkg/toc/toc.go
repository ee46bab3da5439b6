package toc

import (
	"fmt"
	"html"

	"github.com/Sriram-PR/doc-toc/pkg/extract"
	"github.com/Sriram-PR/doc-toc/pkg/models"
)

// MarkerPolicy decides how a field consumed as a pure heading renders
type MarkerPolicy string

const (
	MarkerAnchor     MarkerPolicy = "anchor"     // Prefix the field output with an anchor element
	MarkerUnmodified MarkerPolicy = "unmodified" // Leave the field output as-is
	MarkerHidden     MarkerPolicy = "hidden"     // Hide the field slot
)

// IsValid returns true if the policy is a known value
func (p MarkerPolicy) IsValid() bool {
	switch p {
	case MarkerAnchor, MarkerUnmodified, MarkerHidden:
		return true
	}
	return false
}

// RenderStructure is the presentation payload of a table of contents
type RenderStructure struct {
	Headings []*models.ToCNode `json:"headings"`
}

// Slot is the rendered output of one field item
type Slot struct {
	Markup string
	Hidden bool
}

// RenderOutput is a host render structure for one entity: per field name, one slot per delta
type RenderOutput struct {
	Fields map[string][]Slot
}

// NewRenderOutput creates an empty render structure
func NewRenderOutput() *RenderOutput {
	return &RenderOutput{Fields: make(map[string][]Slot)}
}

// ToC is a finished table of contents and the field patches produced while building it
type ToC struct {
	entity       models.EntityRef
	isRelative   bool
	policy       MarkerPolicy
	headings     []*models.ToCNode
	entries      []models.HeadingEntry
	placeholders int
	patches      *PatchStore
}

// New wraps a finished builder and patch store into a ToC
func New(entity models.EntityRef, isRelative bool, policy MarkerPolicy, b *Builder, patches *PatchStore) *ToC {
	if !policy.IsValid() {
		policy = MarkerAnchor
	}
	if patches == nil {
		patches = NewPatchStore()
	}
	return &ToC{
		entity:       entity,
		isRelative:   isRelative,
		policy:       policy,
		headings:     b.ToTree(),
		entries:      b.Entries(),
		placeholders: b.Placeholders(),
		patches:      patches,
	}
}

// Entity returns the top-level entity this ToC was generated for
func (t *ToC) Entity() models.EntityRef { return t.entity }

// IsRelative reports whether links are fragment-only
func (t *ToC) IsRelative() bool { return t.isRelative }

// Headings returns the root sequence of the ToC forest
func (t *ToC) Headings() []*models.ToCNode { return t.headings }

// Entries returns the flat heading stream in document order
func (t *ToC) Entries() []models.HeadingEntry { return t.entries }

// Placeholders returns the number of gap-filling nodes in the forest
func (t *ToC) Placeholders() int { return t.placeholders }

// Patches returns the field patch store owned by this ToC
func (t *ToC) Patches() *PatchStore { return t.patches }

// Empty reports whether no heading was found
func (t *ToC) Empty() bool { return len(t.entries) == 0 }

// ToRenderStructure returns the payload for final presentation
func (t *ToC) ToRenderStructure() RenderStructure {
	return RenderStructure{Headings: t.headings}
}

// ApplyPatches substitutes patched slots in out, the render structure of the
// entity identified by ref. Slots without a patch, and patches without a
// matching slot, are left alone. Returns the number of slots changed.
func (t *ToC) ApplyPatches(out *RenderOutput, ref models.EntityRef) int {
	if out == nil {
		return 0
	}
	applied := 0
	for _, key := range t.patches.ForEntity(ref) {
		slots := out.Fields[key.FieldName]
		if key.Delta < 0 || key.Delta >= len(slots) {
			continue
		}
		patch, _ := t.patches.Get(key)
		slot := &slots[key.Delta]

		switch patch.Kind {
		case models.PatchFragment:
			slot.Markup = patch.Fragment
		case models.PatchHeadingMarker:
			switch t.policy {
			case MarkerAnchor:
				slot.Markup = AnchorMarkup(patch.AnchorID) + slot.Markup
			case MarkerHidden:
				slot.Hidden = true
			default:
				continue
			}
		default:
			continue
		}
		applied++
	}
	return applied
}

// AnchorMarkup returns the zero-width anchor element used as a link target
func AnchorMarkup(id string) string {
	return fmt.Sprintf(`<a id="%s" %s=""></a>`, html.EscapeString(id), extract.MarkerAttr)
}

package generate

import (
	"github.com/Sriram-PR/doc-toc/pkg/entity"
)

// fieldKind is the role a field instance plays in a walk
type fieldKind int

const (
	kindIgnored fieldKind = iota
	kindSubEntity
	kindHeading
	kindScannable
)

func (k fieldKind) String() string {
	switch k {
	case kindSubEntity:
		return "sub_entity"
	case kindHeading:
		return "heading"
	case kindScannable:
		return "scannable"
	}
	return "ignored"
}

// classify resolves the role of f on e. Earlier rules win.
func (s Settings) classify(e *entity.Entity, f entity.Field) fieldKind {
	if f.Type == entity.TypeTableOfContents {
		return kindIgnored
	}
	if s.RecurseIntoSubEntities && s.referencesSubEntity(f) {
		return kindSubEntity
	}
	return s.itemFallback(e, f)
}

func (s Settings) referencesSubEntity(f entity.Field) bool {
	for _, it := range f.Items {
		if it.Target != nil && s.isSubEntityType(it.Target.Type) {
			return true
		}
	}
	return false
}

// itemFallback is the role of an item in a sub-entity field that is not
// itself a resolvable sub-entity reference.
func (s Settings) itemFallback(e *entity.Entity, f entity.Field) fieldKind {
	if s.isHeadingField(e, f) {
		return kindHeading
	}
	if s.isScannable(f.Type) {
		return kindScannable
	}
	return kindIgnored
}

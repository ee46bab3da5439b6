package entity

import (
	"github.com/Sriram-PR/doc-toc/pkg/models"
)

// Field types the store knows how to render
const (
	TypeTextLong        = "text_long"
	TypeTextWithSummary = "text_with_summary"
	TypeText            = "text"
	TypeRichText        = "rich_text"
	TypeMarkdown        = "markdown"
	TypeString          = "string"
	TypeReference       = "entity_reference_revisions"
	TypeTableOfContents = "table_of_contents"
)

// ToCValue is the stored value of one table_of_contents field item
type ToCValue struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Target  string `yaml:"target,omitempty" json:"target,omitempty"` // Entity id the ToC is built for; empty means the host entity
	Title   string `yaml:"title,omitempty" json:"title,omitempty"`
}

// Item is one value (delta) of a field
type Item struct {
	Value   string            `yaml:"value,omitempty" json:"value,omitempty"`
	Summary string            `yaml:"summary,omitempty" json:"summary,omitempty"`
	Target  *models.EntityRef `yaml:"target,omitempty" json:"target,omitempty"`
	ToC     *ToCValue         `yaml:"toc,omitempty" json:"toc,omitempty"`
}

// Field is a named, typed, multi-valued field instance
type Field struct {
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type" json:"type"`
	Items []Item `yaml:"items" json:"items"`
}

// IsReference reports whether any item points at another entity
func (f Field) IsReference() bool {
	for _, it := range f.Items {
		if it.Target != nil {
			return true
		}
	}
	return false
}

// Entity is a content entity with fields in declaration order
type Entity struct {
	Type   string  `yaml:"type" json:"type"`
	ID     string  `yaml:"id" json:"id"`
	Bundle string  `yaml:"bundle" json:"bundle"`
	Title  string  `yaml:"title,omitempty" json:"title,omitempty"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Ref returns the entity's identity
func (e *Entity) Ref() models.EntityRef {
	return models.EntityRef{Type: e.Type, ID: e.ID}
}

// Field returns the named field, if present
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// DisplayComponent places one field in a view display
type DisplayComponent struct {
	Field  string `yaml:"field"`
	Weight int    `yaml:"weight"`
	Hidden bool   `yaml:"hidden,omitempty"`
}

// DisplayKey returns the "type.bundle" key displays are registered under
func DisplayKey(entityType, bundle string) string {
	return entityType + "." + bundle
}

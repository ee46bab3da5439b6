package models

import (
	"fmt"
	"strings"
)

// EntityRef identifies a content entity by type and id
type EntityRef struct {
	Type string `yaml:"type" json:"type"`
	ID   string `yaml:"id" json:"id"`
}

// String implements fmt.Stringer for logging
func (r EntityRef) String() string {
	return r.Type + "/" + r.ID
}

// FieldRef names a field on a specific entity type and bundle
type FieldRef struct {
	EntityType string
	Bundle     string
	FieldName  string
}

// String renders the ref in its "type:bundle:field" settings form
func (r FieldRef) String() string {
	return r.EntityType + ":" + r.Bundle + ":" + r.FieldName
}

// ParseFieldRef parses a "type:bundle:field" settings string
func ParseFieldRef(s string) (FieldRef, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return FieldRef{}, fmt.Errorf("field ref %q: expected entityType:bundle:fieldName", s)
	}
	for _, p := range parts {
		if p == "" {
			return FieldRef{}, fmt.Errorf("field ref %q: empty component", s)
		}
	}
	return FieldRef{EntityType: parts[0], Bundle: parts[1], FieldName: parts[2]}, nil
}

// FieldKey addresses one field item (delta) on one entity
type FieldKey struct {
	EntityType string
	EntityID   string
	FieldName  string
	Delta      int
}

// Entity returns the ref of the entity owning the field item
func (k FieldKey) Entity() EntityRef {
	return EntityRef{Type: k.EntityType, ID: k.EntityID}
}

// HeadingEntry is a single heading discovered in document order
type HeadingEntry struct {
	Label    string `json:"label"`
	AnchorID string `json:"anchor_id"`
	Level    int    `json:"level"` // 0-based nesting level
}

// LinkDescriptor points at a heading anchor.
// An empty Target means the current document (relative mode).
type LinkDescriptor struct {
	Target   string `json:"target,omitempty"`
	Fragment string `json:"fragment"`
}

// IsRelative reports whether the link resolves against the hosting page
func (l LinkDescriptor) IsRelative() bool {
	return l.Target == ""
}

// Href renders the link as an href attribute value
func (l LinkDescriptor) Href() string {
	return l.Target + "#" + l.Fragment
}

// ToCNode is one node of the table of contents forest
type ToCNode struct {
	AnchorID    string          `json:"anchor_id,omitempty"`
	Label       string          `json:"label"`
	AnchorLink  *LinkDescriptor `json:"anchor_link,omitempty"` // nil for placeholders
	Level       int             `json:"level"`
	Placeholder bool            `json:"placeholder,omitempty"`
	Children    []*ToCNode      `json:"children"`
}

// Walk visits n and its descendants depth-first in document order
func (n *ToCNode) Walk(fn func(*ToCNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

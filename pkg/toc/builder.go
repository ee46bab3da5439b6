package toc

import "github.com/Sriram-PR/doc-toc/pkg/models"

// Linker computes the link descriptor for an anchor id
type Linker func(anchorID string) models.LinkDescriptor

// RelativeLinker links to fragments on whatever page hosts the render
func RelativeLinker(anchorID string) models.LinkDescriptor {
	return models.LinkDescriptor{Fragment: anchorID}
}

// AbsoluteLinker links to fragments on a fixed document reference
func AbsoluteLinker(target string) Linker {
	return func(anchorID string) models.LinkDescriptor {
		return models.LinkDescriptor{Target: target, Fragment: anchorID}
	}
}

// Builder assembles a heading stream into a nested forest.
// path[d] is the most recently inserted node at depth d on the current path;
// the bucket for depth d is the root list (d == 0) or path[d-1].Children.
type Builder struct {
	roots        []*models.ToCNode
	path         []*models.ToCNode
	link         Linker
	entries      []models.HeadingEntry
	placeholders int
}

// NewBuilder creates a Builder; a nil linker defaults to relative links
func NewBuilder(link Linker) *Builder {
	if link == nil {
		link = RelativeLinker
	}
	return &Builder{link: link}
}

// AddHeading appends a heading at level in document order.
// Missing intermediate depths are bridged with label-less placeholder nodes.
func (b *Builder) AddHeading(label, anchorID string, level int) {
	if level < 0 {
		level = 0
	}
	b.entries = append(b.entries, models.HeadingEntry{Label: label, AnchorID: anchorID, Level: level})

	for d := len(b.path); d < level; d++ {
		b.attach(d, &models.ToCNode{
			Level:       d,
			Placeholder: true,
			Children:    []*models.ToCNode{},
		})
		b.placeholders++
	}

	link := b.link(anchorID)
	b.attach(level, &models.ToCNode{
		AnchorID:   anchorID,
		Label:      label,
		AnchorLink: &link,
		Level:      level,
		Children:   []*models.ToCNode{},
	})
}

// Add appends a previously extracted entry
func (b *Builder) Add(e models.HeadingEntry) {
	b.AddHeading(e.Label, e.AnchorID, e.Level)
}

// attach appends node to the bucket at depth d and makes it the path tip.
// Requires len(b.path) >= d.
func (b *Builder) attach(d int, node *models.ToCNode) {
	if d == 0 {
		b.roots = append(b.roots, node)
	} else {
		parent := b.path[d-1]
		parent.Children = append(parent.Children, node)
	}
	b.path = append(b.path[:d], node)
}

// ToTree returns the root sequence of the forest
func (b *Builder) ToTree() []*models.ToCNode {
	if b.roots == nil {
		return []*models.ToCNode{}
	}
	return b.roots
}

// Entries returns the flat heading stream in insertion order
func (b *Builder) Entries() []models.HeadingEntry {
	return b.entries
}

// Placeholders returns how many gap-filling nodes were synthesized
func (b *Builder) Placeholders() int {
	return b.placeholders
}

// Len returns the number of headings added (placeholders excluded)
func (b *Builder) Len() int {
	return len(b.entries)
}

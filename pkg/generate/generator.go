package generate

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/toc"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

// Host supplies entity fields, rendered field output and links
type Host interface {
	// DisplayOrder returns the visible fields of e in display order
	DisplayOrder(e *entity.Entity) []entity.Field
	// RenderField returns the HTML of one field item
	RenderField(e *entity.Entity, f entity.Field, delta int, viewMode string) (string, error)
	// ResolveSubEntity returns the entity referenced by one field item
	ResolveSubEntity(f entity.Field, delta int) (*entity.Entity, bool)
	// EntityLink returns the absolute link of an entity
	EntityLink(ref models.EntityRef) string
}

// Generator builds tables of contents and memoizes them per top-level entity id.
// One Generator belongs to one processing run; it is not safe for concurrent use.
type Generator struct {
	host  Host
	log   *logrus.Entry
	cache map[string]*toc.ToC
}

// NewGenerator creates a Generator with an empty cache
func NewGenerator(host Host, log *logrus.Entry) *Generator {
	return &Generator{
		host:  host,
		log:   log,
		cache: make(map[string]*toc.ToC),
	}
}

// Generate returns the ToC for e. With useCache, a ToC already generated for
// e's id is returned as-is, whatever settings it was built with.
func (g *Generator) Generate(e *entity.Entity, s Settings, useCache bool) (*toc.ToC, error) {
	if e == nil || e.Type == "" || e.ID == "" {
		return nil, fmt.Errorf("%w: top-level entity has no identity", utils.ErrInvalidEntity)
	}
	if useCache {
		if cached, ok := g.cache[e.ID]; ok {
			return cached, nil
		}
	}
	if !s.Allows(e) {
		return nil, fmt.Errorf("%w: '%s' (bundle '%s')", utils.ErrUnsupportedEntity, e.Ref(), e.Bundle)
	}

	log := g.log.WithFields(logrus.Fields{"entity_type": e.Type, "entity_id": e.ID})

	var link toc.Linker = toc.RelativeLinker
	if !s.IsRelative {
		link = toc.AbsoluteLinker(g.host.EntityLink(e.Ref()))
	}

	w := newWalker(g.host, s, link, log)
	if err := w.walk(e); err != nil {
		return nil, err
	}

	result := toc.New(e.Ref(), s.IsRelative, s.HeadingMarker, w.builder, w.patches)
	g.cache[e.ID] = result

	log.Infof("Generated table of contents: %d headings, %d placeholders, %d patches (%d fields scanned, %d sub-entities)",
		len(result.Entries()), result.Placeholders(), result.Patches().Len(), w.fieldsScanned, w.subEntities)
	return result, nil
}

// Lookup returns the cached ToC for a top-level entity id without generating
func (g *Generator) Lookup(entityID string) (*toc.ToC, bool) {
	t, ok := g.cache[entityID]
	return t, ok
}

// Len returns the number of cached tables of contents
func (g *Generator) Len() int {
	return len(g.cache)
}

package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/generate"
	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/toc"
)

// Source is the entity host pages are rendered from
type Source interface {
	generate.Host
	Get(ref models.EntityRef) (*entity.Entity, error)
}

// PageRenderer renders full entity pages, formatting table_of_contents fields
// and substituting the field patches of the page's own ToC.
type PageRenderer struct {
	src      Source
	gen      *generate.Generator
	settings generate.Settings
	log      *logrus.Entry
}

// NewPageRenderer creates a renderer sharing gen's generation cache
func NewPageRenderer(src Source, gen *generate.Generator, settings generate.Settings, log *logrus.Entry) *PageRenderer {
	return &PageRenderer{src: src, gen: gen, settings: settings, log: log}
}

// Render returns the HTML page of a top-level entity
func (r *PageRenderer) Render(page *entity.Entity) (string, error) {
	r.prepare(page)
	applied, _ := r.gen.Lookup(page.ID)

	body, err := r.renderEntity(page, page, applied)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<article class="%s %s--%s" data-entity="%s">`,
		page.Type, page.Type, page.Bundle, html.EscapeString(page.Ref().String()))
	if page.Title != "" {
		fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(page.Title))
	}
	b.WriteString(body)
	b.WriteString("</article>")
	return b.String(), nil
}

// RenderMarkdown returns the page as Markdown
func (r *PageRenderer) RenderMarkdown(page *entity.Entity) (string, error) {
	markup, err := r.Render(page)
	if err != nil {
		return "", err
	}
	return ToMarkdown(markup)
}

// prepare generates the ToC of every enabled ToC item on page that targets the
// page itself, so that its patches are available before the fields render.
func (r *PageRenderer) prepare(page *entity.Entity) {
	for _, f := range r.src.DisplayOrder(page) {
		if f.Type != entity.TypeTableOfContents {
			continue
		}
		for _, it := range f.Items {
			if it.ToC == nil || !it.ToC.Enabled || (it.ToC.Target != "" && it.ToC.Target != page.ID) {
				continue
			}
			if _, err := r.gen.Generate(page, r.settings, true); err != nil {
				r.log.WithField("entity_id", page.ID).Warnf("Table of contents unavailable: %v", err)
			}
			return
		}
	}
}

// renderEntity renders e's visible fields, recursing into sub-entities
func (r *PageRenderer) renderEntity(page, e *entity.Entity, applied *toc.ToC) (string, error) {
	fields := r.src.DisplayOrder(e)
	out := toc.NewRenderOutput()

	for _, f := range fields {
		slots := make([]toc.Slot, len(f.Items))
		for delta, it := range f.Items {
			markup, err := r.renderItem(page, e, f, delta, it, applied)
			if err != nil {
				return "", err
			}
			slots[delta].Markup = markup
		}
		out.Fields[f.Name] = slots
	}

	if applied != nil {
		if n := applied.ApplyPatches(out, e.Ref()); n > 0 {
			r.log.WithFields(logrus.Fields{"entity_type": e.Type, "entity_id": e.ID}).Debugf("Applied %d field patches", n)
		}
	}

	var b strings.Builder
	for _, f := range fields {
		var items strings.Builder
		for _, slot := range out.Fields[f.Name] {
			if slot.Hidden || slot.Markup == "" {
				continue
			}
			items.WriteString(slot.Markup)
		}
		if items.Len() == 0 {
			continue
		}
		fmt.Fprintf(&b, `<div class="field field--name-%s">%s</div>`, html.EscapeString(f.Name), items.String())
	}
	return b.String(), nil
}

func (r *PageRenderer) renderItem(page, e *entity.Entity, f entity.Field, delta int, it entity.Item, applied *toc.ToC) (string, error) {
	if f.Type == entity.TypeTableOfContents {
		return r.formatToC(page, it), nil
	}
	if it.Target != nil {
		sub, ok := r.src.ResolveSubEntity(f, delta)
		if !ok {
			return "", nil
		}
		markup, err := r.renderEntity(page, sub, applied)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<div class="%s %s--%s">%s</div>`, sub.Type, sub.Type, sub.Bundle, markup), nil
	}
	return r.src.RenderField(e, f, delta, r.settings.ViewMode)
}

// formatToC renders one table_of_contents item: empty when disabled, the
// error placeholder when the target cannot carry a ToC.
func (r *PageRenderer) formatToC(page *entity.Entity, it entity.Item) string {
	if it.ToC == nil || !it.ToC.Enabled {
		return ""
	}
	target := page
	if it.ToC.Target != "" && it.ToC.Target != page.ID {
		ref := models.EntityRef{Type: page.Type, ID: it.ToC.Target}
		var err error
		if target, err = r.src.Get(ref); err != nil {
			r.log.WithField("target", ref.String()).Warnf("Table of contents target unavailable: %v", err)
			return ErrorPlaceholder
		}
	}

	t, err := r.gen.Generate(target, r.settings, true)
	if err != nil {
		r.log.WithField("entity_id", target.ID).Warnf("Cannot render table of contents: %v", err)
		return ErrorPlaceholder
	}
	return ToCHTML(t.ToRenderStructure(), it.ToC.Title)
}

package entity

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

// documentsFile is the on-disk layout of a documents file
type documentsFile struct {
	Displays map[string][]DisplayComponent `yaml:"displays"`
	Entities []*Entity                     `yaml:"entities"`
}

// Store is an in-memory entity host: it owns loaded entities, their view
// displays and the field rendering used by table of contents generation.
// Read-only after Parse, safe for concurrent use.
type Store struct {
	entities []*Entity
	byRef    map[models.EntityRef]*Entity
	displays map[string][]DisplayComponent
	baseURL  string
	markdown goldmark.Markdown
}

// Load reads a YAML documents file
func Load(path, baseURL string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read documents '%s': %w", utils.ErrFilesystem, path, err)
	}
	s, err := Parse(data, baseURL)
	if err != nil {
		return nil, utils.WrapErrorf(err, "documents '%s'", path)
	}
	return s, nil
}

// Parse builds a store from YAML documents data and validates the reference graph
func Parse(data []byte, baseURL string) (*Store, error) {
	var doc documentsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: YAML documents: %w", utils.ErrParsing, err)
	}
	return New(doc.Entities, doc.Displays, baseURL)
}

// New builds a store from already materialized entities
func New(entities []*Entity, displays map[string][]DisplayComponent, baseURL string) (*Store, error) {
	s := &Store{
		entities: make([]*Entity, 0, len(entities)),
		byRef:    make(map[models.EntityRef]*Entity, len(entities)),
		displays: make(map[string][]DisplayComponent, len(displays)),
		baseURL:  strings.TrimRight(baseURL, "/"),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(ghtml.WithUnsafe()),
		),
	}

	for key, comps := range displays {
		ordered := append([]DisplayComponent(nil), comps...)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Weight < ordered[j].Weight })
		s.displays[key] = ordered
	}

	var errs error
	for i, e := range entities {
		if e == nil || e.Type == "" || e.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("%w: entity #%d has no type or id", utils.ErrInvalidEntity, i))
			continue
		}
		if _, dup := s.byRef[e.Ref()]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%w: duplicate entity '%s'", utils.ErrInvalidEntity, e.Ref()))
			continue
		}
		s.byRef[e.Ref()] = e
		s.entities = append(s.entities, e)
	}
	if errs != nil {
		return nil, errs
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that every reference resolves and that references form a DAG.
// All dangling references are reported together.
func (s *Store) Validate() error {
	var dangling error
	for _, e := range s.entities {
		for _, f := range e.Fields {
			for delta, it := range f.Items {
				if it.Target == nil {
					continue
				}
				if _, ok := s.byRef[*it.Target]; !ok {
					dangling = multierr.Append(dangling, fmt.Errorf("%w: '%s' field '%s' delta %d references '%s'",
						utils.ErrEntityNotFound, e.Ref(), f.Name, delta, *it.Target))
				}
			}
		}
	}
	if dangling != nil {
		return dangling
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[models.EntityRef]int, len(s.entities))

	var visit func(e *Entity, path []models.EntityRef) error
	visit = func(e *Entity, path []models.EntityRef) error {
		ref := e.Ref()
		switch state[ref] {
		case visiting:
			return fmt.Errorf("%w: %s", utils.ErrEntityCycle, formatPath(append(path, ref)))
		case done:
			return nil
		}
		state[ref] = visiting
		path = append(path, ref)
		for _, f := range e.Fields {
			for _, it := range f.Items {
				if it.Target == nil {
					continue
				}
				if err := visit(s.byRef[*it.Target], path); err != nil {
					return err
				}
			}
		}
		state[ref] = done
		return nil
	}

	for _, e := range s.entities {
		if err := visit(e, nil); err != nil {
			return err
		}
	}
	return nil
}

func formatPath(path []models.EntityRef) string {
	parts := make([]string, len(path))
	for i, r := range path {
		parts[i] = r.String()
	}
	return strings.Join(parts, " -> ")
}

// Get returns the entity identified by ref
func (s *Store) Get(ref models.EntityRef) (*Entity, error) {
	e, ok := s.byRef[ref]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", utils.ErrEntityNotFound, ref)
	}
	return e, nil
}

// Entities returns all entities in file order
func (s *Store) Entities() []*Entity {
	return s.entities
}

// OfType returns the entities of one type in file order
func (s *Store) OfType(entityType string) []*Entity {
	var out []*Entity
	for _, e := range s.entities {
		if e.Type == entityType {
			out = append(out, e)
		}
	}
	return out
}

// DisplayOrder returns e's fields ordered by its view display's component
// weights, hidden and unplaced fields excluded. Entities without a display
// fall back to field declaration order.
func (s *Store) DisplayOrder(e *Entity) []Field {
	comps, ok := s.displays[DisplayKey(e.Type, e.Bundle)]
	if !ok {
		return e.Fields
	}
	fields := make([]Field, 0, len(comps))
	for _, c := range comps {
		if c.Hidden {
			continue
		}
		if f, ok := e.Field(c.Field); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// RenderField returns the HTML output of one field item. Only string fields
// are plain text; every other non-reference type carries markup.
func (s *Store) RenderField(e *Entity, f Field, delta int, viewMode string) (string, error) {
	if delta < 0 || delta >= len(f.Items) {
		return "", fmt.Errorf("%w: '%s' field '%s' has no delta %d", utils.ErrFieldRender, e.Ref(), f.Name, delta)
	}
	it := f.Items[delta]

	switch f.Type {
	case TypeTextWithSummary:
		if viewMode == "teaser" && it.Summary != "" {
			return it.Summary, nil
		}
		return it.Value, nil
	case TypeTextLong, TypeText:
		return it.Value, nil
	case TypeMarkdown:
		var buf bytes.Buffer
		if err := s.markdown.Convert([]byte(it.Value), &buf); err != nil {
			return "", fmt.Errorf("%w: markdown '%s' field '%s': %w", utils.ErrFieldRender, e.Ref(), f.Name, err)
		}
		return buf.String(), nil
	case TypeTableOfContents:
		return "", nil
	case TypeString:
		return html.EscapeString(it.Value), nil
	}
	if it.Target != nil {
		return "", nil
	}
	// Any other type holds already rendered markup
	return it.Value, nil
}

// ResolveSubEntity returns the entity referenced by one field item
func (s *Store) ResolveSubEntity(f Field, delta int) (*Entity, bool) {
	if delta < 0 || delta >= len(f.Items) || f.Items[delta].Target == nil {
		return nil, false
	}
	e, ok := s.byRef[*f.Items[delta].Target]
	return e, ok
}

// EntityLink returns the canonical URL of an entity
func (s *Store) EntityLink(ref models.EntityRef) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, ref.Type, ref.ID)
}

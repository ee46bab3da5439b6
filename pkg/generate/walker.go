package generate

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/doc-toc/pkg/anchor"
	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/extract"
	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/toc"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

// walker accumulates headings and patches for one generation pass.
// Sub-entities share the same builder, patch store and anchor registry.
type walker struct {
	host      Host
	settings  Settings
	extractor *extract.Extractor
	registry  *anchor.Registry
	builder   *toc.Builder
	patches   *toc.PatchStore
	log       *logrus.Entry

	fieldsScanned int
	subEntities   int
}

func newWalker(host Host, s Settings, link toc.Linker, log *logrus.Entry) *walker {
	var registry *anchor.Registry
	if s.DeduplicateAnchors {
		registry = anchor.NewRegistry()
	}
	return &walker{
		host:     host,
		settings: s,
		extractor: extract.NewExtractor(extract.Options{
			MinLevel:    s.MinLevel,
			MaxLevel:    s.MaxLevel,
			AnchorStyle: s.AnchorStyle,
			Registry:    registry,
		}, log.WithField("component", "extractor")),
		registry: registry,
		builder:  toc.NewBuilder(link),
		patches:  toc.NewPatchStore(),
		log:      log,
	}
}

// walk visits e's fields in display order
func (w *walker) walk(e *entity.Entity) error {
	entityLog := w.log.WithFields(logrus.Fields{"entity_type": e.Type, "entity_id": e.ID})

	for _, f := range w.host.DisplayOrder(e) {
		kind := w.settings.classify(e, f)
		fieldLog := entityLog.WithField("field", f.Name)
		fieldLog.Debugf("Field classified as %s", kind)

		switch kind {
		case kindSubEntity:
			if err := w.walkSubEntities(e, f, fieldLog); err != nil {
				return err
			}
		case kindHeading:
			w.addHeadingField(e, f, fieldLog)
		case kindScannable:
			if err := w.scanField(e, f, fieldLog); err != nil {
				return err
			}
		}
	}
	return nil
}

// walkSubEntities recurses into each resolvable sub-entity item of f.
// Any other item is handled by the heading or scannable rule for f.
func (w *walker) walkSubEntities(e *entity.Entity, f entity.Field, log *logrus.Entry) error {
	for delta, it := range f.Items {
		if it.Target != nil && w.settings.isSubEntityType(it.Target.Type) {
			sub, ok := w.host.ResolveSubEntity(f, delta)
			if ok {
				w.subEntities++
				if err := w.walk(sub); err != nil {
					return err
				}
				continue
			}
			log.WithField("delta", delta).Warnf("Referenced sub-entity '%s' not found", *it.Target)
		}

		switch w.settings.itemFallback(e, f) {
		case kindHeading:
			w.addHeadingItem(e, f, delta, log)
		case kindScannable:
			if err := w.scanItem(e, f, delta, log); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) addHeadingField(e *entity.Entity, f entity.Field, log *logrus.Entry) {
	for delta := range f.Items {
		w.addHeadingItem(e, f, delta, log)
	}
}

func (w *walker) addHeadingItem(e *entity.Entity, f entity.Field, delta int, log *logrus.Entry) {
	label := utils.HeadingText(f.Items[delta].Value)
	if label == "" {
		log.WithField("delta", delta).Debug("Empty heading field value, skipping")
		return
	}
	id := anchor.Synthesize(label, w.settings.AnchorStyle)
	if w.registry != nil {
		id = w.registry.Claim(id)
	}
	w.builder.AddHeading(label, id, 0)
	w.patches.Set(fieldKey(e, f, delta), models.NewHeadingMarkerPatch(id))
}

func (w *walker) scanField(e *entity.Entity, f entity.Field, log *logrus.Entry) error {
	for delta := range f.Items {
		if err := w.scanItem(e, f, delta, log); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) scanItem(e *entity.Entity, f entity.Field, delta int, log *logrus.Entry) error {
	markup, err := w.host.RenderField(e, f, delta, w.settings.ViewMode)
	if err != nil {
		return fmt.Errorf("%w: '%s' field '%s' delta %d: %w", utils.ErrFieldRender, e.Ref(), f.Name, delta, err)
	}
	w.fieldsScanned++

	res := w.extractor.Extract(markup)
	if len(res.Headings) == 0 {
		return nil
	}
	for _, h := range res.Headings {
		w.builder.Add(h)
	}
	w.patches.Set(fieldKey(e, f, delta), models.NewFragmentPatch(res.Fragment))
	log.WithField("delta", delta).Debugf("Found %d headings", len(res.Headings))
	return nil
}

func fieldKey(e *entity.Entity, f entity.Field, delta int) models.FieldKey {
	return models.FieldKey{EntityType: e.Type, EntityID: e.ID, FieldName: f.Name, Delta: delta}
}

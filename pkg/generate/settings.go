package generate

import (
	"slices"

	"github.com/Sriram-PR/doc-toc/pkg/anchor"
	"github.com/Sriram-PR/doc-toc/pkg/config"
	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/toc"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

// Settings controls one generation pass
type Settings struct {
	ScannableFieldTypes    []string
	HeadingFields          []models.FieldRef
	RecurseIntoSubEntities bool
	SubEntityTypes         []string
	IsRelative             bool

	TopLevelTypes []string
	NodeBundles   []string // Empty allows every bundle
	ViewMode      string

	AnchorStyle        anchor.Style
	DeduplicateAnchors bool
	HeadingMarker      toc.MarkerPolicy
	MinLevel           int
	MaxLevel           int
}

// DefaultSettings returns the settings a freshly placed ToC field starts with
func DefaultSettings() Settings {
	cfg := config.ToCConfig{}
	_, _ = cfg.Validate()
	s, _ := SettingsFromConfig(cfg, "full")
	return s
}

// SettingsFromConfig converts a validated ToC config into generation settings
func SettingsFromConfig(c config.ToCConfig, viewMode string) (Settings, error) {
	refs, err := config.ParseHeadingFields(c.HeadingFields)
	if err != nil {
		return Settings{}, utils.WrapErrorf(err, "heading_fields")
	}
	return Settings{
		ScannableFieldTypes:    c.FieldTypes,
		HeadingFields:          refs,
		RecurseIntoSubEntities: config.GetEffectiveScanParagraphs(c),
		SubEntityTypes:         c.SubEntityTypes,
		IsRelative:             c.IsRelative,
		TopLevelTypes:          c.TopLevelTypes,
		NodeBundles:            c.NodeBundles,
		ViewMode:               viewMode,
		AnchorStyle:            anchor.Style(c.AnchorStyle),
		DeduplicateAnchors:     config.GetEffectiveDeduplicateAnchors(c),
		HeadingMarker:          toc.MarkerPolicy(c.HeadingMarker),
		MinLevel:               c.MinHeadingLevel,
		MaxLevel:               c.MaxHeadingLevel,
	}, nil
}

func (s Settings) isHeadingField(e *entity.Entity, f entity.Field) bool {
	return slices.Contains(s.HeadingFields, models.FieldRef{EntityType: e.Type, Bundle: e.Bundle, FieldName: f.Name})
}

func (s Settings) isScannable(fieldType string) bool {
	return slices.Contains(s.ScannableFieldTypes, fieldType)
}

func (s Settings) isSubEntityType(entityType string) bool {
	return slices.Contains(s.SubEntityTypes, entityType)
}

// TopLevelType returns the entity type documents are looked up by
func (s Settings) TopLevelType() string {
	if len(s.TopLevelTypes) > 0 {
		return s.TopLevelTypes[0]
	}
	return "node"
}

// Allows reports whether a ToC may be generated for e
func (s Settings) Allows(e *entity.Entity) bool {
	if !slices.Contains(s.TopLevelTypes, e.Type) {
		return false
	}
	return len(s.NodeBundles) == 0 || slices.Contains(s.NodeBundles, e.Bundle)
}

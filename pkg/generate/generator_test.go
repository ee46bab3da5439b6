package generate

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/toc"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func textField(name, fieldType string, values ...string) entity.Field {
	f := entity.Field{Name: name, Type: fieldType}
	for _, v := range values {
		f.Items = append(f.Items, entity.Item{Value: v})
	}
	return f
}

func refField(name string, targets ...models.EntityRef) entity.Field {
	f := entity.Field{Name: name, Type: entity.TypeReference}
	for i := range targets {
		f.Items = append(f.Items, entity.Item{Target: &targets[i]})
	}
	return f
}

func newStore(t *testing.T, entities ...*entity.Entity) *entity.Store {
	t.Helper()
	s, err := entity.New(entities, nil, "https://example.org")
	require.NoError(t, err)
	return s
}

func testSettings() Settings {
	s := DefaultSettings()
	s.ScannableFieldTypes = []string{"rich_text"}
	s.IsRelative = true
	return s
}

// labels flattens the forest into "label@level" strings in document order
func labels(roots []*models.ToCNode) []string {
	var out []string
	for _, r := range roots {
		r.Walk(func(n *models.ToCNode) {
			if n.Placeholder {
				out = append(out, "_@"+string(rune('0'+n.Level)))
				return
			}
			out = append(out, n.Label+"@"+string(rune('0'+n.Level)))
		})
	}
	return out
}

func TestGenerate_ScannableField(t *testing.T) {
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		textField("body", "rich_text", "<h2>Intro</h2><p>...</p><h3>Details</h3>"),
	}}
	g := NewGenerator(newStore(t, node), testLogger())

	result, err := g.Generate(node, testSettings(), true)
	require.NoError(t, err)

	roots := result.Headings()
	require.Len(t, roots, 1)
	assert.Equal(t, "Intro", roots[0].Label)
	assert.Equal(t, 0, roots[0].Level)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "Details", roots[0].Children[0].Label)
	assert.Equal(t, 1, roots[0].Children[0].Level)
	assert.Empty(t, roots[0].Children[0].Children)

	patch, ok := result.Patches().Get(models.FieldKey{EntityType: "node", EntityID: "1", FieldName: "body", Delta: 0})
	require.True(t, ok)
	assert.Equal(t, models.PatchFragment, patch.Kind)
	assert.Equal(t,
		`<a id="Intro" data-toc-anchor=""></a><h2>Intro</h2><p>...</p><a id="Details" data-toc-anchor=""></a><h3>Details</h3>`,
		patch.Fragment)
}

func TestGenerate_HeadingFieldAndHeadinglessField(t *testing.T) {
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		textField("field_heading", "string", "  Overview  "),
		textField("body", "rich_text", "<p>No headings here.</p>"),
	}}
	s := testSettings()
	s.HeadingFields = []models.FieldRef{{EntityType: "node", Bundle: "page", FieldName: "field_heading"}}
	g := NewGenerator(newStore(t, node), testLogger())

	result, err := g.Generate(node, s, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Overview@0"}, labels(result.Headings()))
	assert.Equal(t, 1, result.Patches().Len())

	patch, ok := result.Patches().Get(models.FieldKey{EntityType: "node", EntityID: "1", FieldName: "field_heading"})
	require.True(t, ok)
	assert.Equal(t, models.NewHeadingMarkerPatch("Overview"), patch)

	_, ok = result.Patches().Get(models.FieldKey{EntityType: "node", EntityID: "1", FieldName: "body"})
	assert.False(t, ok, "headingless field is not patched")
}

func TestGenerate_HeadingFieldTruncated(t *testing.T) {
	long := make([]rune, 200)
	for i := range long {
		long[i] = 'x'
	}
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		textField("field_heading", "string", string(long)),
	}}
	s := testSettings()
	s.HeadingFields = []models.FieldRef{{EntityType: "node", Bundle: "page", FieldName: "field_heading"}}

	result, err := NewGenerator(newStore(t, node), testLogger()).Generate(node, s, true)
	require.NoError(t, err)
	require.Len(t, result.Entries(), 1)
	assert.Len(t, []rune(result.Entries()[0].Label), utils.MaxHeadingLength)
}

func TestGenerate_ToCFieldSkipped(t *testing.T) {
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		textField("field_toc", entity.TypeTableOfContents, "<h2>Never</h2>"),
		textField("body", "rich_text", "<h2>Body</h2>"),
	}}
	s := testSettings()
	s.ScannableFieldTypes = append(s.ScannableFieldTypes, entity.TypeTableOfContents)
	s.HeadingFields = []models.FieldRef{{EntityType: "node", Bundle: "page", FieldName: "field_toc"}}

	result, err := NewGenerator(newStore(t, node), testLogger()).Generate(node, s, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Body@0"}, labels(result.Headings()))
	_, ok := result.Patches().Get(models.FieldKey{EntityType: "node", EntityID: "1", FieldName: "field_toc"})
	assert.False(t, ok)
}

func TestGenerate_RecursesIntoSubEntitiesInDisplayOrder(t *testing.T) {
	para1 := &entity.Entity{Type: "paragraph", ID: "10", Bundle: "section", Fields: []entity.Field{
		textField("field_title", "string", "Setup"),
		textField("field_text", "rich_text", "<h3>Install</h3><h3>Configure</h3>"),
	}}
	para2 := &entity.Entity{Type: "paragraph", ID: "11", Bundle: "text", Fields: []entity.Field{
		textField("field_text", "rich_text", "<h2>Later</h2><h4>Deep</h4>"),
	}}
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		textField("body", "rich_text", "<h2>Intro</h2>"),
		refField("field_sections",
			models.EntityRef{Type: "paragraph", ID: "10"},
			models.EntityRef{Type: "paragraph", ID: "11"}),
	}}
	s := testSettings()
	s.HeadingFields = []models.FieldRef{{EntityType: "paragraph", Bundle: "section", FieldName: "field_title"}}

	result, err := NewGenerator(newStore(t, node, para1, para2), testLogger()).Generate(node, s, true)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"Intro@0", "Setup@0", "Install@1", "Configure@1", "Later@0", "_@1", "Deep@2"},
		labels(result.Headings()))
	assert.Equal(t, 1, result.Placeholders())

	keys := result.Patches().ForEntity(models.EntityRef{Type: "paragraph", ID: "10"})
	require.Len(t, keys, 2)
	assert.Equal(t, "field_text", keys[0].FieldName)
	assert.Equal(t, "field_title", keys[1].FieldName)
	assert.Len(t, result.Patches().ForEntity(models.EntityRef{Type: "paragraph", ID: "11"}), 1)
}

func TestGenerate_MixedSubEntityFieldScansOtherItems(t *testing.T) {
	para := &entity.Entity{Type: "paragraph", ID: "10", Bundle: "text", Fields: []entity.Field{
		textField("field_text", "rich_text", "<h2>Nested</h2>"),
	}}
	target := models.EntityRef{Type: "paragraph", ID: "10"}
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		{Name: "field_content", Type: "rich_text", Items: []entity.Item{
			{Value: "<h2>Before</h2>"},
			{Target: &target},
			{Value: "<h2>After</h2>"},
		}},
	}}

	result, err := NewGenerator(newStore(t, node, para), testLogger()).Generate(node, testSettings(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Before@0", "Nested@0", "After@0"}, labels(result.Headings()))

	for _, delta := range []int{0, 2} {
		patch, ok := result.Patches().Get(models.FieldKey{EntityType: "node", EntityID: "1", FieldName: "field_content", Delta: delta})
		require.True(t, ok)
		assert.Equal(t, models.PatchFragment, patch.Kind)
	}
	_, ok := result.Patches().Get(models.FieldKey{EntityType: "node", EntityID: "1", FieldName: "field_content", Delta: 1})
	assert.False(t, ok, "sub-entity item is patched on the sub-entity")
}

func TestGenerate_MixedSubEntityHeadingField(t *testing.T) {
	para := &entity.Entity{Type: "paragraph", ID: "10", Bundle: "text", Fields: []entity.Field{
		textField("field_text", "rich_text", "<h3>Nested</h3>"),
	}}
	target := models.EntityRef{Type: "paragraph", ID: "10"}
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		{Name: "field_heading", Type: "string", Items: []entity.Item{
			{Value: "Overview"},
			{Target: &target},
		}},
	}}
	s := testSettings()
	s.HeadingFields = []models.FieldRef{{EntityType: "node", Bundle: "page", FieldName: "field_heading"}}

	result, err := NewGenerator(newStore(t, node, para), testLogger()).Generate(node, s, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Overview@0", "Nested@1"}, labels(result.Headings()))

	patch, ok := result.Patches().Get(models.FieldKey{EntityType: "node", EntityID: "1", FieldName: "field_heading"})
	require.True(t, ok)
	assert.Equal(t, models.NewHeadingMarkerPatch("Overview"), patch)
}

// missingSubEntityHost resolves no sub-entity references
type missingSubEntityHost struct {
	*entity.Store
}

func (missingSubEntityHost) ResolveSubEntity(entity.Field, int) (*entity.Entity, bool) {
	return nil, false
}

func TestGenerate_UnresolvedSubEntityFallsBack(t *testing.T) {
	para := &entity.Entity{Type: "paragraph", ID: "10", Bundle: "text", Fields: []entity.Field{
		textField("field_text", "rich_text", "<h2>Unreachable</h2>"),
	}}
	target := models.EntityRef{Type: "paragraph", ID: "10"}
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		{Name: "field_content", Type: "rich_text", Items: []entity.Item{
			{Target: &target},
			{Value: "<h2>Kept</h2>"},
		}},
	}}
	host := missingSubEntityHost{newStore(t, node, para)}

	result, err := NewGenerator(host, testLogger()).Generate(node, testSettings(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kept@0"}, labels(result.Headings()))
	assert.Equal(t, 1, result.Patches().Len())
}

func TestGenerate_RecursionDisabled(t *testing.T) {
	para := &entity.Entity{Type: "paragraph", ID: "10", Bundle: "text", Fields: []entity.Field{
		textField("field_text", "rich_text", "<h2>Nested</h2>"),
	}}
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		textField("body", "rich_text", "<h2>Top</h2>"),
		refField("field_sections", models.EntityRef{Type: "paragraph", ID: "10"}),
	}}
	s := testSettings()
	s.RecurseIntoSubEntities = false

	result, err := NewGenerator(newStore(t, node, para), testLogger()).Generate(node, s, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Top@0"}, labels(result.Headings()))
}

func TestGenerate_NonSubEntityReferenceIgnored(t *testing.T) {
	other := &entity.Entity{Type: "node", ID: "2", Bundle: "page", Fields: []entity.Field{
		textField("body", "rich_text", "<h2>Elsewhere</h2>"),
	}}
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		refField("field_related", models.EntityRef{Type: "node", ID: "2"}),
	}}

	result, err := NewGenerator(newStore(t, node, other), testLogger()).Generate(node, testSettings(), true)
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestGenerate_DeduplicatesAnchorsAcrossFields(t *testing.T) {
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		textField("field_heading", "string", "Setup"),
		textField("body", "rich_text", "<h2>Setup</h2>", `<h2 id="Setup-2">Other</h2><h3>Setup</h3>`),
	}}
	s := testSettings()
	s.HeadingFields = []models.FieldRef{{EntityType: "node", Bundle: "page", FieldName: "field_heading"}}

	result, err := NewGenerator(newStore(t, node), testLogger()).Generate(node, s, true)
	require.NoError(t, err)

	ids := make([]string, 0, len(result.Entries()))
	for _, e := range result.Entries() {
		ids = append(ids, e.AnchorID)
	}
	assert.Equal(t, []string{"Setup", "Setup-2", "Setup-2", "Setup-3"}, ids)
}

func TestGenerate_DuplicatesKeptWhenDedupDisabled(t *testing.T) {
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		textField("body", "rich_text", "<h2>Setup</h2><h2>Setup</h2>"),
	}}
	s := testSettings()
	s.DeduplicateAnchors = false

	result, err := NewGenerator(newStore(t, node), testLogger()).Generate(node, s, true)
	require.NoError(t, err)
	require.Len(t, result.Entries(), 2)
	assert.Equal(t, result.Entries()[0].AnchorID, result.Entries()[1].AnchorID)
}

func TestGenerate_AbsoluteLinks(t *testing.T) {
	node := &entity.Entity{Type: "node", ID: "7", Bundle: "page", Fields: []entity.Field{
		textField("body", "rich_text", "<h2>Intro</h2>"),
	}}
	s := testSettings()
	s.IsRelative = false

	result, err := NewGenerator(newStore(t, node), testLogger()).Generate(node, s, true)
	require.NoError(t, err)
	require.Len(t, result.Headings(), 1)
	assert.False(t, result.IsRelative())
	assert.Equal(t, "https://example.org/node/7#Intro", result.Headings()[0].AnchorLink.Href())
}

func TestGenerate_CacheContract(t *testing.T) {
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		textField("body", "rich_text", "<h2>A</h2><h3>B</h3><h2>C</h2>"),
	}}
	g := NewGenerator(newStore(t, node), testLogger())

	_, ok := g.Lookup("1")
	assert.False(t, ok)

	first, err := g.Generate(node, testSettings(), true)
	require.NoError(t, err)
	second, err := g.Generate(node, testSettings(), true)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, labels(first.Headings()), labels(second.Headings()))
	assert.Equal(t, 1, g.Len())

	cached, ok := g.Lookup("1")
	require.True(t, ok)
	assert.Same(t, first, cached)

	// Differing settings for the same id still hit the first entry.
	other := testSettings()
	other.ScannableFieldTypes = nil
	third, err := g.Generate(node, other, true)
	require.NoError(t, err)
	assert.Same(t, first, third)

	// Bypassing the cache regenerates and replaces the entry.
	fresh, err := g.Generate(node, other, false)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.True(t, fresh.Empty())
	cached, _ = g.Lookup("1")
	assert.Same(t, fresh, cached)
}

func TestGenerate_Preconditions(t *testing.T) {
	para := &entity.Entity{Type: "paragraph", ID: "10", Bundle: "text"}
	blog := &entity.Entity{Type: "node", ID: "2", Bundle: "blog"}
	g := NewGenerator(newStore(t, para, blog), testLogger())

	_, err := g.Generate(nil, testSettings(), true)
	assert.ErrorIs(t, err, utils.ErrInvalidEntity)

	_, err = g.Generate(&entity.Entity{Type: "node"}, testSettings(), true)
	assert.ErrorIs(t, err, utils.ErrInvalidEntity)

	_, err = g.Generate(para, testSettings(), true)
	assert.ErrorIs(t, err, utils.ErrUnsupportedEntity)

	_, err = g.Generate(blog, testSettings(), true)
	assert.ErrorIs(t, err, utils.ErrUnsupportedEntity)

	allBundles := testSettings()
	allBundles.NodeBundles = nil
	_, err = g.Generate(blog, allBundles, true)
	assert.NoError(t, err)
	assert.Equal(t, 1, g.Len())
}

// failingHost renders every field with an error
type failingHost struct {
	*entity.Store
}

func (failingHost) RenderField(*entity.Entity, entity.Field, int, string) (string, error) {
	return "", errors.New("template missing")
}

func TestGenerate_RenderFailureAborts(t *testing.T) {
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		textField("body", "rich_text", "<h2>Intro</h2>"),
	}}
	g := NewGenerator(failingHost{newStore(t, node)}, testLogger())

	_, err := g.Generate(node, testSettings(), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrFieldRender)
	assert.Contains(t, err.Error(), "template missing")
	assert.Equal(t, 0, g.Len(), "failed runs are not cached")
}

func TestGenerate_HiddenFieldsExcluded(t *testing.T) {
	node := &entity.Entity{Type: "node", ID: "1", Bundle: "page", Fields: []entity.Field{
		textField("body", "rich_text", "<h2>Body</h2>"),
		textField("field_notes", "rich_text", "<h2>Internal</h2>"),
		textField("field_lead", "rich_text", "<h2>Lead</h2>"),
	}}
	displays := map[string][]entity.DisplayComponent{
		"node.page": {
			{Field: "body", Weight: 5},
			{Field: "field_notes", Weight: 0, Hidden: true},
			{Field: "field_lead", Weight: 1},
		},
	}
	store, err := entity.New([]*entity.Entity{node}, displays, "")
	require.NoError(t, err)

	result, err := NewGenerator(store, testLogger()).Generate(node, testSettings(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lead@0", "Body@0"}, labels(result.Headings()))
}

func TestSettingsFromConfigDefaults(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, []string{"text_long", "text_with_summary"}, s.ScannableFieldTypes)
	assert.Equal(t, []string{"page", "article"}, s.NodeBundles)
	assert.Equal(t, []string{"node"}, s.TopLevelTypes)
	assert.Equal(t, []string{"paragraph"}, s.SubEntityTypes)
	assert.True(t, s.RecurseIntoSubEntities)
	assert.False(t, s.IsRelative)
	assert.True(t, s.DeduplicateAnchors)
	assert.Equal(t, toc.MarkerAnchor, s.HeadingMarker)
	assert.Equal(t, 2, s.MinLevel)
	assert.Equal(t, 4, s.MaxLevel)
	assert.Equal(t, "full", s.ViewMode)
}

func TestSettings_TypeAndBundleGate(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, "node", s.TopLevelType())
	assert.True(t, s.Allows(&entity.Entity{Type: "node", ID: "1", Bundle: "page"}))
	assert.False(t, s.Allows(&entity.Entity{Type: "node", ID: "1", Bundle: "blog"}))
	assert.False(t, s.Allows(&entity.Entity{Type: "paragraph", ID: "1", Bundle: "page"}))

	s.NodeBundles = nil
	assert.True(t, s.Allows(&entity.Entity{Type: "node", ID: "1", Bundle: "blog"}))

	s.TopLevelTypes = nil
	assert.Equal(t, "node", s.TopLevelType())
}

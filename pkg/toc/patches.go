package toc

import (
	"sort"

	"github.com/Sriram-PR/doc-toc/pkg/models"
)

// PatchStore records replacement content per field item for one generation pass.
// Not safe for concurrent use.
type PatchStore struct {
	patches map[models.FieldKey]models.FieldPatch
}

// NewPatchStore creates an empty store
func NewPatchStore() *PatchStore {
	return &PatchStore{patches: make(map[models.FieldKey]models.FieldPatch)}
}

// Set records a patch; a second write for the same key replaces the first
func (s *PatchStore) Set(key models.FieldKey, patch models.FieldPatch) {
	s.patches[key] = patch
}

// Get returns the patch for key, if any
func (s *PatchStore) Get(key models.FieldKey) (models.FieldPatch, bool) {
	p, ok := s.patches[key]
	return p, ok
}

// Len returns the number of recorded patches
func (s *PatchStore) Len() int {
	return len(s.patches)
}

// ForEntity returns the keys patched on one entity, ordered by field name then delta
func (s *PatchStore) ForEntity(ref models.EntityRef) []models.FieldKey {
	var keys []models.FieldKey
	for k := range s.patches {
		if k.EntityType == ref.Type && k.EntityID == ref.ID {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].FieldName != keys[j].FieldName {
			return keys[i].FieldName < keys[j].FieldName
		}
		return keys[i].Delta < keys[j].Delta
	})
	return keys
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/generate"
	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/render"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

// documentSummary is one entry of the document listing
type documentSummary struct {
	ID        string `json:"id"`
	Bundle    string `json:"bundle"`
	Title     string `json:"title,omitempty"`
	Supported bool   `json:"supported"`
}

// handleListDocuments lists all top-level documents
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := []documentSummary{}
	for _, e := range s.stores.Store().OfType(s.settings.TopLevelType()) {
		docs = append(docs, documentSummary{
			ID:        e.ID,
			Bundle:    e.Bundle,
			Title:     e.Title,
			Supported: s.settings.Allows(e),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleGenerateToC generates the table of contents of one document.
// Query: format=json|html|markdown|tree, relative=true|false.
func (s *Server) handleGenerateToC(w http.ResponseWriter, r *http.Request) {
	settings := s.settings
	if rel := r.URL.Query().Get("relative"); rel != "" {
		v, err := strconv.ParseBool(rel)
		if err != nil {
			jsonError(w, "relative must be true or false", http.StatusBadRequest)
			return
		}
		settings.IsRelative = v
	}

	store := s.stores.Store()
	e, ok := s.lookup(w, store, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	t, err := generate.NewGenerator(store, s.log).Generate(e, settings, true)
	if err != nil {
		s.fail(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, map[string]any{
			"entity_id":    e.ID,
			"is_relative":  t.IsRelative(),
			"headings":     t.ToRenderStructure().Headings,
			"placeholders": t.Placeholders(),
		})
	case "html":
		writeBody(w, "text/html; charset=utf-8", render.ToCHTML(t.ToRenderStructure(), e.Title))
	case "markdown":
		md, err := render.ToCMarkdown(t.ToRenderStructure(), e.Title)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeBody(w, "text/markdown; charset=utf-8", md)
	case "tree":
		var buf bytes.Buffer
		if err := render.WriteTree(&buf, t.Headings()); err != nil {
			s.fail(w, err)
			return
		}
		writeBody(w, "text/plain; charset=utf-8", buf.String())
	default:
		jsonError(w, "unknown format '"+format+"' (supported: json, html, markdown, tree)", http.StatusBadRequest)
	}
}

// handleRenderDocument renders a document page with its ToC fields and anchors.
// Query: format=html|markdown.
func (s *Server) handleRenderDocument(w http.ResponseWriter, r *http.Request) {
	store := s.stores.Store()
	e, ok := s.lookup(w, store, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	renderer := render.NewPageRenderer(store, generate.NewGenerator(store, s.log), s.settings, s.log)

	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		out, err := renderer.Render(e)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeBody(w, "text/html; charset=utf-8", out)
	case "markdown":
		out, err := renderer.RenderMarkdown(e)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeBody(w, "text/markdown; charset=utf-8", out)
	default:
		jsonError(w, "unknown format '"+format+"' (supported: html, markdown)", http.StatusBadRequest)
	}
}

// lookup resolves a document id, writing a 404 when it is missing
func (s *Server) lookup(w http.ResponseWriter, store *entity.Store, id string) (*entity.Entity, bool) {
	e, err := store.Get(models.EntityRef{Type: s.settings.TopLevelType(), ID: id})
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return e, true
}

// fail writes err with the status matching its category
func (s *Server) fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Errorf("Request failed [%s]: %v", utils.CategorizeError(err), err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error":    err.Error(),
		"category": utils.CategorizeError(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, utils.ErrEntityNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrUnsupportedEntity), errors.Is(err, utils.ErrInvalidEntity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeBody(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.Write([]byte(body))
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

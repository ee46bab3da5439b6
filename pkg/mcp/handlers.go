package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Sriram-PR/doc-toc/pkg/config"
	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/generate"
	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/orchestrate"
	"github.com/Sriram-PR/doc-toc/pkg/render"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

const (
	formatJSONName = "json"
	formatHTML     = "html"
	formatMarkdown = "markdown"
	formatTree     = "tree"
)

// handleListDocuments handles the list_documents tool
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	settings := s.cfg.Settings
	ids := orchestrate.GetAllEntityIDs(s.cfg.Store, settings)

	documents := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		e, err := s.document(id)
		if err != nil {
			continue
		}
		_, hasToC := tocField(e)
		docInfo := map[string]interface{}{
			"id":            e.ID,
			"bundle":        e.Bundle,
			"title":         e.Title,
			"fields":        len(e.Fields),
			"has_toc_field": hasToC,
		}
		if !settings.Allows(e) {
			docInfo["unsupported"] = utils.CategorizeError(utils.ErrUnsupportedEntity)
		}
		documents = append(documents, docInfo)
	}

	result := map[string]interface{}{
		"documents":       documents,
		"documents_file":  s.cfg.AppConfig.DocumentsFile,
		"config_path":     s.cfg.ConfigPath,
		"total_documents": len(documents),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGenerateToC handles the generate_toc tool
func (s *Server) handleGenerateToC(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityID := request.GetString("entity_id", "")
	if entityID == "" {
		return mcp.NewToolResultError("entity_id parameter is required"), nil
	}
	format := request.GetString("format", formatJSONName)

	settings := s.cfg.Settings
	if v, ok := request.GetArguments()["is_relative"].(bool); ok {
		settings.IsRelative = v
	}
	if raw := request.GetString("heading_fields", ""); raw != "" {
		refs, err := config.ParseHeadingFields(config.SplitMultiline(raw))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid heading_fields: %v", err)), nil
		}
		settings.HeadingFields = refs
	}

	e, err := s.document(entityID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	startTime := time.Now()
	gen := generate.NewGenerator(s.cfg.Store, s.log.WithField("tool", "generate_toc"))
	t, err := gen.Generate(e, settings, true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot generate table of contents [%s]: %v", utils.CategorizeError(err), err)), nil
	}

	switch format {
	case formatHTML:
		return mcp.NewToolResultText(render.ToCHTML(t.ToRenderStructure(), "")), nil
	case formatMarkdown:
		out, err := render.ToCMarkdown(t.ToRenderStructure(), "")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to convert to markdown: %v", err)), nil
		}
		return mcp.NewToolResultText(out), nil
	case formatTree:
		var buf bytes.Buffer
		if err := render.WriteTree(&buf, t.Headings()); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to write tree: %v", err)), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	case formatJSONName:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format '%s' (supported: json, html, markdown, tree)", format)), nil
	}

	result := map[string]interface{}{
		"entity_id":    e.ID,
		"is_relative":  t.IsRelative(),
		"headings":     t.ToRenderStructure().Headings,
		"entries":      len(t.Entries()),
		"placeholders": t.Placeholders(),
		"patches":      t.Patches().Len(),
		"duration_ms":  time.Since(startTime).Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleRenderDocument handles the render_document tool
func (s *Server) handleRenderDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityID := request.GetString("entity_id", "")
	if entityID == "" {
		return mcp.NewToolResultError("entity_id parameter is required"), nil
	}
	format := request.GetString("format", formatHTML)

	e, err := s.document(entityID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	log := s.log.WithField("tool", "render_document")
	renderer := render.NewPageRenderer(s.cfg.Store, generate.NewGenerator(s.cfg.Store, log), s.cfg.Settings, log)

	var out string
	switch format {
	case formatHTML:
		out, err = renderer.Render(e)
	case formatMarkdown:
		out, err = renderer.RenderMarkdown(e)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format '%s' (supported: html, markdown)", format)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render document [%s]: %v", utils.CategorizeError(err), err)), nil
	}
	return mcp.NewToolResultText(out), nil
}

// handleGenerateAll handles the generate_all tool
func (s *Server) handleGenerateAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const scope = "all"
	ids := orchestrate.GetSupportedEntityIDs(s.cfg.Store, s.cfg.Settings)

	if existing := s.jobManager.GetJobByScope(scope); existing != nil && existing.active() {
		result := map[string]interface{}{
			"message": "A generation job is already running",
			"job_id":  existing.ID,
			"status":  string(existing.Status),
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	job := s.jobManager.CreateJob(scope, len(ids))
	go s.runGenerateJob(job.ID, ids)

	result := map[string]interface{}{
		"job_id":    job.ID,
		"status":    string(JobStatusPending),
		"documents": len(ids),
		"message":   "Generation started. Use get_job_status to check progress.",
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetJobStatus handles the get_job_status tool
func (s *Server) handleGetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	job := s.jobManager.GetJob(jobID)
	if job == nil {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	result := map[string]interface{}{
		"job_id":           job.ID,
		"scope":            job.Scope,
		"status":           string(job.Status),
		"started_at":       job.StartedAt.Format(time.RFC3339),
		"documents_total":  job.DocumentsTotal,
		"documents_ok":     job.DocumentsOK,
		"documents_failed": job.DocumentsFailed,
		"headings":         job.Headings,
	}
	if !job.CompletedAt.IsZero() {
		result["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		result["duration"] = job.CompletedAt.Sub(job.StartedAt).String()
	}
	if job.ErrorMessage != "" {
		result["error"] = job.ErrorMessage
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// runGenerateJob runs the orchestrator in the background for a job
func (s *Server) runGenerateJob(jobID string, ids []string) {
	s.jobManager.UpdateStatus(jobID, JobStatusRunning, "")
	ctx := s.jobManager.GetContext(jobID)

	workers := s.cfg.AppConfig.NumWorkers
	o := orchestrate.NewOrchestrator(s.cfg.Store, s.cfg.Settings, ids, workers, s.log.WithField("job_id", jobID))
	results := o.Run(ctx)

	ok, failed, headings := 0, 0, 0
	var failures []string
	for _, r := range results {
		if r.Success {
			ok++
			headings += r.Headings
			continue
		}
		failed++
		failures = append(failures, fmt.Sprintf("%s: %s", r.EntityID, r.ErrorCategory))
	}
	s.jobManager.UpdateProgress(jobID, ok, failed, headings)

	if ctx.Err() != nil {
		s.jobManager.UpdateStatus(jobID, JobStatusCancelled, "")
		return
	}
	if failed > 0 && ok == 0 && len(results) > 0 {
		s.jobManager.UpdateStatus(jobID, JobStatusFailed, strings.Join(failures, "; "))
		return
	}
	s.jobManager.UpdateStatus(jobID, JobStatusCompleted, strings.Join(failures, "; "))
}

// document looks up a top-level document by id
func (s *Server) document(id string) (*entity.Entity, error) {
	return s.cfg.Store.Get(models.EntityRef{Type: s.cfg.Settings.TopLevelType(), ID: id})
}

// tocField returns the first table_of_contents field of e
func tocField(e *entity.Entity) (entity.Field, bool) {
	for _, f := range e.Fields {
		if f.Type == entity.TypeTableOfContents {
			return f, true
		}
	}
	return entity.Field{}, false
}

// formatJSON formats data as an indented JSON string
func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}

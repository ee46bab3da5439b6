package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/generate"
	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/toc"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

// DocumentResult contains the result of generating the ToC of a single document
type DocumentResult struct {
	EntityID      string        `json:"entity_id"`
	Success       bool          `json:"success"`
	Error         error         `json:"-"`
	ErrorCategory string        `json:"error_category,omitempty"`
	Headings      int           `json:"headings"`
	Placeholders  int           `json:"placeholders"`
	Patches       int           `json:"patches"`
	Duration      time.Duration `json:"duration"`
	ToC           *toc.ToC      `json:"-"`
}

// Orchestrator generates tables of contents for many documents in parallel.
// Every document gets its own Generator, so no cache is shared between workers.
type Orchestrator struct {
	store    *entity.Store
	settings generate.Settings
	ids      []string
	workers  int
	runID    string
	log      *logrus.Entry
}

// NewOrchestrator creates an orchestrator for the given top-level entity ids
func NewOrchestrator(store *entity.Store, settings generate.Settings, ids []string, workers int, log *logrus.Entry) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}
	runID := uuid.NewString()
	return &Orchestrator{
		store:    store,
		settings: settings,
		ids:      ids,
		workers:  workers,
		runID:    runID,
		log:      log.WithField("run_id", runID),
	}
}

// RunID returns the identifier attached to this run's log entries
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run generates all documents and waits for completion. Results keep the order of ids.
func (o *Orchestrator) Run(ctx context.Context) []DocumentResult {
	startTime := time.Now()
	o.log.Infof("Starting generation of %d documents with %d workers", len(o.ids), o.workers)

	results := make([]DocumentResult, len(o.ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, id := range o.ids {
		if err := gctx.Err(); err != nil {
			results[i] = failed(id, err, 0)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = failed(id, err, 0)
				return nil
			}
			results[i] = o.generateDocument(id)
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors; failures live in the results

	o.logSummary(results, time.Since(startTime))
	return results
}

// generateDocument runs one fresh Generator against one document
func (o *Orchestrator) generateDocument(id string) DocumentResult {
	startTime := time.Now()
	docLog := o.log.WithField("entity_id", id)

	e, err := o.store.Get(models.EntityRef{Type: o.settings.TopLevelType(), ID: id})
	if err != nil {
		docLog.Errorf("Document lookup failed: %v", err)
		return failed(id, err, time.Since(startTime))
	}

	gen := generate.NewGenerator(o.store, docLog)
	t, err := gen.Generate(e, o.settings, true)
	if err != nil {
		docLog.Errorf("Generation failed [%s]: %v", utils.CategorizeError(err), err)
		return failed(id, err, time.Since(startTime))
	}

	return DocumentResult{
		EntityID:      id,
		Success:       true,
		ErrorCategory: utils.CategorizeError(nil),
		Headings:      len(t.Entries()),
		Placeholders:  t.Placeholders(),
		Patches:       t.Patches().Len(),
		Duration:      time.Since(startTime),
		ToC:           t,
	}
}

func failed(id string, err error, d time.Duration) DocumentResult {
	return DocumentResult{
		EntityID:      id,
		Error:         err,
		ErrorCategory: utils.CategorizeError(err),
		Duration:      d,
	}
}

// logSummary logs a summary of all generation results
func (o *Orchestrator) logSummary(results []DocumentResult, totalDuration time.Duration) {
	o.log.Info("============================================")
	o.log.Infof("Generation completed in %v", totalDuration)
	o.log.Info("Document Results:")

	totalHeadings := 0
	successCount := 0
	failCount := 0

	for _, r := range results {
		status := "SUCCESS"
		if !r.Success {
			status = "FAILED"
			failCount++
		} else {
			successCount++
		}
		totalHeadings += r.Headings

		o.log.Infof("  %s: %s - %d headings in %v", r.EntityID, status, r.Headings, r.Duration)
		if r.Error != nil {
			o.log.Infof("    Error [%s]: %v", r.ErrorCategory, r.Error)
		}
	}

	o.log.Info("--------------------------------------------")
	o.log.Infof("Total: %d documents (%d success, %d failed), %d headings",
		len(results), successCount, failCount, totalHeadings)
	o.log.Info("============================================")
}

// ValidateEntityIDs checks that all provided ids exist as top-level entities in the store
func ValidateEntityIDs(store *entity.Store, settings generate.Settings, ids []string) error {
	for _, id := range ids {
		if _, err := store.Get(models.EntityRef{Type: settings.TopLevelType(), ID: id}); err != nil {
			return fmt.Errorf("document '%s' not found. Available documents: %v", id, GetAllEntityIDs(store, settings))
		}
	}
	return nil
}

// GetAllEntityIDs returns the ids of all top-level entities in file order
func GetAllEntityIDs(store *entity.Store, settings generate.Settings) []string {
	entities := store.OfType(settings.TopLevelType())
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return ids
}

// GetSupportedEntityIDs returns the ids of the top-level entities settings allow a ToC for
func GetSupportedEntityIDs(store *entity.Store, settings generate.Settings) []string {
	var ids []string
	for _, e := range store.OfType(settings.TopLevelType()) {
		if settings.Allows(e) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

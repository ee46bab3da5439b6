package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/doc-toc/pkg/config"
	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/generate"
	"github.com/Sriram-PR/doc-toc/pkg/models"
	"github.com/Sriram-PR/doc-toc/pkg/orchestrate"
	"github.com/Sriram-PR/doc-toc/pkg/render"
	"github.com/Sriram-PR/doc-toc/pkg/utils"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(os.Args[2:])
	case "render":
		runRender(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "list-documents":
		runListDocuments(os.Args[2:])
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "version":
		fmt.Printf("doc-toc %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `doc-toc - Table of contents generator for structured documents

Usage:
  doc-toc <command> [options]

Commands:
  generate        Generate the table of contents of one or more documents
  render          Render a document with anchors and table of contents fields
  validate        Validate configuration and documents files
  list-documents  List documents in the documents file
  mcp-server      Start MCP server for AI tool integration
  serve           Serve the HTTP API
  version         Show version info

Run 'doc-toc <command> -h' for command-specific help.`)
}

// environment is everything a command needs after loading configuration
type environment struct {
	cfg      *config.AppConfig
	store    *entity.Store
	settings generate.Settings
	warnings []string
}

// loadEnvironment loads and validates the config file and the documents file it names
func loadEnvironment(configPath string) (*environment, error) {
	appCfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	warnings, err := appCfg.Validate()
	if err != nil {
		return nil, err
	}
	if appCfg.DocumentsFile == "" {
		return nil, fmt.Errorf("%w: documents_file is required", utils.ErrConfigValidation)
	}

	settings, err := generate.SettingsFromConfig(appCfg.ToC, appCfg.ViewMode)
	if err != nil {
		return nil, err
	}

	store, err := entity.Load(resolveRelative(configPath, appCfg.DocumentsFile), appCfg.BaseURL)
	if err != nil {
		return nil, err
	}

	return &environment{cfg: appCfg, store: store, settings: settings, warnings: warnings}, nil
}

// resolveRelative resolves path against the directory of the config file
func resolveRelative(configPath, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(configPath), path)
}

// setupLogger creates a configured logrus.Logger writing to w
func setupLogger(logLevelStr string, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}

	return log
}

// splitIDs parses a comma-separated id list
func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// generateOptions holds the flags of the generate subcommand
type generateOptions struct {
	ids      []string
	all      bool
	format   string
	relative bool
	logLevel string
}

// runGenerate handles the generate subcommand
func runGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	id := fs.String("id", "", "Document id (single document)")
	ids := fs.String("ids", "", "Comma-separated document ids for parallel generation")
	all := fs.Bool("all", false, "Generate every document in parallel")
	format := fs.String("format", "json", "Output format for single documents (json, html, markdown, tree)")
	relative := fs.Bool("relative", false, "Force fragment-only links")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: doc-toc generate [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  doc-toc generate -id 1 -format tree\n")
		fmt.Fprintf(os.Stderr, "  doc-toc generate -ids 1,2,3\n")
		fmt.Fprintf(os.Stderr, "  doc-toc generate -all\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	opts := generateOptions{all: *all, format: *format, relative: *relative, logLevel: *logLevel}
	switch {
	case *all:
	case *ids != "":
		opts.ids = splitIDs(*ids)
	case *id != "":
		opts.ids = []string{*id}
	default:
		fmt.Fprintln(os.Stderr, "Error: one of -id, -ids, or -all is required")
		fs.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := doGenerate(ctx, *configFile, opts, os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}

// doGenerate generates tables of contents and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doGenerate(ctx context.Context, configPath string, opts generateOptions, stdout, stderr io.Writer) int {
	env, err := loadEnvironment(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log := setupLogger(opts.logLevel, stderr)
	for _, w := range env.warnings {
		log.Warn(w)
	}
	if opts.relative {
		env.settings.IsRelative = true
	}

	ids := opts.ids
	if opts.all {
		ids = orchestrate.GetSupportedEntityIDs(env.store, env.settings)
	}
	if len(ids) == 1 && !opts.all {
		return generateOne(env, ids[0], opts.format, logrus.NewEntry(log), stdout, stderr)
	}

	if err := orchestrate.ValidateEntityIDs(env.store, env.settings, ids); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	o := orchestrate.NewOrchestrator(env.store, env.settings, ids, env.cfg.NumWorkers, logrus.NewEntry(log))
	results := o.Run(ctx)

	type summary struct {
		orchestrate.DocumentResult
		Error string `json:"error,omitempty"`
	}
	out := make([]summary, len(results))
	exitCode := 0
	for i, r := range results {
		out[i] = summary{DocumentResult: r}
		if r.Error != nil {
			out[i].Error = r.Error.Error()
			exitCode = 1
		}
	}
	if err := writeJSON(stdout, map[string]interface{}{"run_id": o.RunID(), "documents": out}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return exitCode
}

// generateOne generates a single document in the requested format
func generateOne(env *environment, id, format string, log *logrus.Entry, stdout, stderr io.Writer) int {
	e, err := env.store.Get(models.EntityRef{Type: env.settings.TopLevelType(), ID: id})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	t, err := generate.NewGenerator(env.store, log).Generate(e, env.settings, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error [%s]: %v\n", utils.CategorizeError(err), err)
		return 1
	}

	switch format {
	case "json":
		err = writeJSON(stdout, map[string]interface{}{
			"entity_id":    e.ID,
			"is_relative":  t.IsRelative(),
			"headings":     t.ToRenderStructure().Headings,
			"entries":      len(t.Entries()),
			"placeholders": t.Placeholders(),
			"patches":      t.Patches().Len(),
		})
	case "html":
		_, err = fmt.Fprintln(stdout, render.ToCHTML(t.ToRenderStructure(), e.Title))
	case "markdown":
		var md string
		if md, err = render.ToCMarkdown(t.ToRenderStructure(), e.Title); err == nil {
			_, err = fmt.Fprintln(stdout, md)
		}
	case "tree":
		err = render.WriteTree(stdout, t.Headings())
	default:
		fmt.Fprintf(stderr, "Error: unknown format '%s' (supported: json, html, markdown, tree)\n", format)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runRender handles the render subcommand
func runRender(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	id := fs.String("id", "", "Document id")
	format := fs.String("format", "html", "Output format (html, markdown)")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: doc-toc render [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		fs.Usage()
		os.Exit(1)
	}

	exitCode := doRender(*configFile, *id, *format, *logLevel, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doRender renders one document page and writes it to stdout.
// Returns exit code (0 = success, 1 = error).
func doRender(configPath, id, format, logLevel string, stdout, stderr io.Writer) int {
	env, err := loadEnvironment(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log := logrus.NewEntry(setupLogger(logLevel, stderr))

	e, err := env.store.Get(models.EntityRef{Type: env.settings.TopLevelType(), ID: id})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	renderer := render.NewPageRenderer(env.store, generate.NewGenerator(env.store, log), env.settings, log)

	var out string
	switch format {
	case "html":
		out, err = renderer.Render(e)
	case "markdown":
		out, err = renderer.RenderMarkdown(e)
	default:
		fmt.Fprintf(stderr, "Error: unknown format '%s' (supported: html, markdown)\n", format)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error [%s]: %v\n", utils.CategorizeError(err), err)
		return 1
	}
	fmt.Fprintln(stdout, out)
	return 0
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: doc-toc validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doValidate(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	env, err := loadEnvironment(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: [%s] %v\n", utils.CategorizeError(err), err)
		return 1
	}

	for _, w := range env.warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}

	fmt.Fprintf(stdout, "OK: %d entities, %d documents\n",
		len(env.store.Entities()), len(orchestrate.GetSupportedEntityIDs(env.store, env.settings)))
	for _, ref := range env.settings.HeadingFields {
		fmt.Fprintf(stdout, "OK: heading field %s\n", ref)
	}

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// runListDocuments handles the list-documents subcommand
func runListDocuments(args []string) {
	fs := flag.NewFlagSet("list-documents", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: doc-toc list-documents [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doListDocuments(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doListDocuments lists documents and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doListDocuments(configPath string, stdout, stderr io.Writer) int {
	env, err := loadEnvironment(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Documents in %s:\n\n", env.cfg.DocumentsFile)
	for _, e := range env.store.OfType(env.settings.TopLevelType()) {
		fmt.Fprintf(stdout, "  %s\n", e.ID)
		if e.Title != "" {
			fmt.Fprintf(stdout, "    Title: %s\n", e.Title)
		}
		fmt.Fprintf(stdout, "    Bundle: %s\n", e.Bundle)
		fmt.Fprintf(stdout, "    Fields: %d\n", len(e.Fields))
		fmt.Fprintln(stdout)
	}
	return 0
}

// writeJSON writes v as indented JSON followed by a newline
func writeJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: JSON output: %w", utils.ErrParsing, err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

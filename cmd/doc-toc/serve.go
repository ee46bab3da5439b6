package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/doc-toc/pkg/api"
	"github.com/Sriram-PR/doc-toc/pkg/watch"
)

const shutdownTimeout = 10 * time.Second

// runServe handles the serve subcommand
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	port := fs.Int("port", 0, "HTTP port; overrides http.port")
	watchFlag := fs.Bool("watch", false, "Reload the documents file when it changes; overrides http.watch")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: doc-toc serve [options]

Serve table of contents generation over HTTP.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Endpoints:
  GET /health
  GET /api/documents
  GET /api/documents/{id}?format=html|markdown
  GET /api/documents/{id}/toc?format=json|html|markdown|tree&relative=true|false
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := doServe(ctx, *configFile, *port, *watchFlag, *logLevel, os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}

// doServe runs the HTTP API until ctx is done.
// Returns exit code (0 = success, 1 = error).
func doServe(ctx context.Context, configPath string, port int, watchDocs bool, logLevel string, stdout, stderr io.Writer) int {
	env, err := loadEnvironment(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	log := setupLogger(logLevel, stderr)
	for _, w := range env.warnings {
		log.Warn(w)
	}
	if port <= 0 {
		port = env.cfg.HTTP.Port
	}
	watchDocs = watchDocs || env.cfg.HTTP.Watch

	handler, reloader, err := newServeHandler(env, configPath, watchDocs, logrus.NewEntry(log))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if reloader != nil {
		go func() {
			if err := reloader.Run(ctx); err != nil {
				log.Errorf("Documents watcher stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP API listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(stderr, "HTTP server error: %v\n", err)
			return 1
		}
	case <-ctx.Done():
		log.Info("Shutting down HTTP API...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "HTTP shutdown error: %v\n", err)
			return 1
		}
	}
	return 0
}

// newServeHandler builds the API handler. With watchDocs the handler reads
// through a reloader, which the caller must Run.
func newServeHandler(env *environment, configPath string, watchDocs bool, log *logrus.Entry) (http.Handler, *watch.Reloader, error) {
	if !watchDocs {
		return api.NewServer(api.Static(env.store), env.settings, log), nil, nil
	}
	reloader, err := watch.NewReloader(resolveRelative(configPath, env.cfg.DocumentsFile), env.cfg.BaseURL, watch.DefaultDebounce, log)
	if err != nil {
		return nil, nil, err
	}
	return api.NewServer(reloader, env.settings, log), reloader, nil
}

// Package watch republishes the site whenever the content tree changes. It
// watches every directory under the content root, debounces bursts of events
// (editors produce several per save), and runs one publish per quiet period.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/mogura/novelpress/internal/build"
	"github.com/mogura/novelpress/internal/config"
	"github.com/mogura/novelpress/internal/logfields"
	"github.com/mogura/novelpress/internal/metrics"
)

// Watcher monitors the content root and triggers publish runs.
type Watcher struct {
	cfg      *config.Config
	runner   *build.Runner
	watcher  *fsnotify.Watcher
	debounce time.Duration
	trigger  chan struct{}
}

// New creates a watcher for the configured content root. When the config
// enables the metrics listener, runs record to Prometheus.
func New(cfg *config.Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	runner := build.NewRunner(cfg)
	if cfg.Watch.MetricsAddr != "" {
		reg := prom.NewRegistry()
		runner = runner.WithRecorder(metrics.NewPrometheusRecorder(reg))
		go serveMetrics(cfg.Watch.MetricsAddr, reg)
	}

	return &Watcher{
		cfg:      cfg,
		runner:   runner,
		watcher:  fsw,
		debounce: time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
		trigger:  make(chan struct{}, 1),
	}, nil
}

// Run publishes once, then blocks republishing on changes until ctx is
// canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addTree(w.cfg.Content); err != nil {
		return err
	}
	slog.Info("Watching content tree", logfields.Path(w.cfg.Content))

	w.publish(ctx)

	go w.eventLoop(ctx)
	w.publishLoop(ctx)
	return ctx.Err()
}

// addTree registers the root and every subdirectory with the watcher. New
// directories created later are added as their create events arrive.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignore(event) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
					}
				}
			}
			slog.Debug("Content change detected", logfields.Path(event.Name), logfields.Kind(event.Op.String()))
			select {
			case w.trigger <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Watcher error", logfields.Error(err))
		}
	}
}

// ignore filters events that never affect the published site: editor swap
// files, hidden files, and chmod-only events.
func (w *Watcher) ignore(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return true
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".tmp") {
		return true
	}
	return false
}

// publishLoop coalesces triggers: after the first trigger it waits for the
// debounce window to pass without further events, then publishes once.
func (w *Watcher) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.trigger:
		}

		timer := time.NewTimer(w.debounce)
	settle:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-w.trigger:
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			case <-timer.C:
				break settle
			}
		}

		w.publish(ctx)
	}
}

func (w *Watcher) publish(ctx context.Context) {
	report, err := w.runner.Run(ctx)
	if err != nil {
		slog.Error("Publish run failed", logfields.Error(err))
		return
	}
	fmt.Println(report.Summary())
}

func serveMetrics(addr string, reg *prom.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	slog.Info("Serving metrics", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("Metrics listener failed", logfields.Error(err))
	}
}

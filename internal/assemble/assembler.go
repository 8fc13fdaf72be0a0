// Package assemble writes rendered pages and static assets to disk. All of the
// pipeline's side effects on the output tree live here: pages render into a
// staging directory which then replaces the live tree in one swap, so a failed
// run never leaves the published site half-written.
package assemble

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mogura/novelpress/internal/content"
	nperrors "github.com/mogura/novelpress/internal/errors"
	"github.com/mogura/novelpress/internal/logfields"
	"github.com/mogura/novelpress/internal/render"
)

// PageFailure records one page that could not be written.
type PageFailure struct {
	Path string
	Err  error
}

// Result summarizes an assembly run.
type Result struct {
	Published []string // Output-relative paths written successfully
	Failed    []PageFailure
}

// Assembler stages and publishes the output tree.
type Assembler struct {
	contentRoot string
	outputRoot  string
}

// New creates an assembler publishing from contentRoot into outputRoot.
func New(contentRoot, outputRoot string) *Assembler {
	return &Assembler{contentRoot: contentRoot, outputRoot: outputRoot}
}

// Publish writes all pages and assets into a staging directory and swaps it
// into place. Individual page write failures are collected in the result; a
// failure that prevents any publish at all (no staging directory, no
// stylesheet, zero pages written, failed swap) returns a fatal error and
// leaves the previously published tree untouched.
func (a *Assembler) Publish(m *content.Manifest, pages []render.Page) (*Result, error) {
	staging := fmt.Sprintf("%s.staging-%s", a.outputRoot, time.Now().Format("20060102-150405"))
	if err := os.MkdirAll(staging, 0o750); err != nil {
		return nil, nperrors.Wrap(err, nperrors.CategoryAssembly, nperrors.SeverityFatal, "failed to create staging directory")
	}
	defer func() {
		if _, err := os.Stat(staging); err == nil {
			_ = os.RemoveAll(staging)
		}
	}()

	result := &Result{}
	for _, page := range pages {
		if err := writeFile(filepath.Join(staging, filepath.FromSlash(page.Path)), page.HTML); err != nil {
			slog.Error("Failed to write page", logfields.Page(page.Path), logfields.Error(err))
			result.Failed = append(result.Failed, PageFailure{
				Path: page.Path,
				Err:  nperrors.AssemblyError(err, fmt.Sprintf("failed to write %s", page.Path)),
			})
			continue
		}
		result.Published = append(result.Published, page.Path)
	}

	if len(result.Published) == 0 {
		return result, nperrors.New(nperrors.CategoryAssembly, nperrors.SeverityFatal, "no pages could be written, keeping previous output")
	}

	if err := a.copyAssets(m, staging); err != nil {
		return result, err
	}

	if err := a.swap(staging); err != nil {
		return result, err
	}

	slog.Info("Output tree published",
		logfields.Path(a.outputRoot),
		slog.Int("pages", len(result.Published)),
		slog.Int("failed", len(result.Failed)))
	return result, nil
}

// copyAssets refreshes the stylesheet, favicons, and OGP images in staging.
// The stylesheet is required: pages all reference it, so publishing without it
// would break every page at once.
func (a *Assembler) copyAssets(m *content.Manifest, staging string) error {
	if m.Stylesheet == "" {
		return nperrors.New(nperrors.CategoryAssembly, nperrors.SeverityFatal,
			fmt.Sprintf("shared stylesheet not found under %s", a.contentRoot))
	}

	assets := append([]string{m.Stylesheet}, m.Favicons...)
	assets = append(assets, m.OgpImages...)
	for _, rel := range assets {
		src := filepath.Join(a.contentRoot, filepath.FromSlash(rel))
		dst := filepath.Join(staging, filepath.FromSlash(rel))
		if err := copyFile(src, dst); err != nil {
			return nperrors.Wrap(err, nperrors.CategoryAssembly, nperrors.SeverityFatal,
				fmt.Sprintf("failed to copy asset %s", rel))
		}
	}
	return nil
}

// swap replaces the live output tree with staging. The previous tree is moved
// aside first and restored if the swap cannot complete.
func (a *Assembler) swap(staging string) error {
	backup := a.outputRoot + ".previous"
	_ = os.RemoveAll(backup)

	hadPrevious := false
	if _, err := os.Stat(a.outputRoot); err == nil {
		hadPrevious = true
		if err := os.Rename(a.outputRoot, backup); err != nil {
			return nperrors.Wrap(err, nperrors.CategoryAssembly, nperrors.SeverityFatal, "failed to move previous output aside")
		}
	}

	if err := os.Rename(staging, a.outputRoot); err != nil {
		if hadPrevious {
			if restoreErr := os.Rename(backup, a.outputRoot); restoreErr != nil {
				slog.Error("Failed to restore previous output after swap failure", logfields.Error(restoreErr))
			}
		}
		return nperrors.Wrap(err, nperrors.CategoryAssembly, nperrors.SeverityFatal, "failed to swap staging into place")
	}

	if hadPrevious {
		if err := os.RemoveAll(backup); err != nil {
			slog.Warn("Failed to remove previous output backup", logfields.Path(backup), logfields.Error(err))
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

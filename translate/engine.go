package translate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/conner-olsen/eu5-mod-devkit/locfile"
	"github.com/conner-olsen/eu5-mod-devkit/lockfile"
	"github.com/conner-olsen/eu5-mod-devkit/tagmask"
)

// Options controls a sync run.
type Options struct {
	// SourceLang is the localization folder the mod is authored in.
	SourceLang string
	// TargetLangs are the localization folders to produce, processed in
	// this order for reproducible output.
	TargetLangs []string
	// Force re-translates every entry regardless of recorded fingerprints.
	Force bool
	// DryRun decides and reports without writing files or the lock file.
	DryRun bool

	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
	// OnError emits per-entry failure messages.
	OnError func(format string, args ...any)
	// OnProgress is called after each (file, language) pair completes.
	OnProgress func(lang string, done, total int)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// Summary aggregates what a run did and why entries were skipped.
type Summary struct {
	Translated int
	Unchanged  int
	TagOnly    int
	SkipMarked int
	RegionSkip int
	Locked     int
	Failed     int

	// Failures lists "KEY (lang): error" strings for retry diagnostics.
	Failures []string
}

func (s *Summary) merge(o *Summary) {
	s.Translated += o.Translated
	s.Unchanged += o.Unchanged
	s.TagOnly += o.TagOnly
	s.SkipMarked += o.SkipMarked
	s.RegionSkip += o.RegionSkip
	s.Locked += o.Locked
	s.Failed += o.Failed
	s.Failures = append(s.Failures, o.Failures...)
}

// Skipped returns the total number of entries that needed no provider call.
func (s *Summary) Skipped() int {
	return s.Unchanged + s.TagOnly + s.SkipMarked + s.RegionSkip + s.Locked
}

func (s *Summary) String() string {
	return fmt.Sprintf(
		"%d translated, %d skipped (%d unchanged, %d tag-only, %d marked, %d region, %d locked), %d failed",
		s.Translated, s.Skipped(),
		s.Unchanged, s.TagOnly, s.SkipMarked, s.RegionSkip, s.Locked,
		s.Failed)
}

// Engine is the incremental localization synchronizer.
type Engine struct {
	provider Provider
	lock     *lockfile.LockFile
	opts     Options
}

// NewEngine returns an engine bound to a provider and a lock file.
func NewEngine(provider Provider, lock *lockfile.LockFile, opts Options) *Engine {
	return &Engine{provider: provider, lock: lock, opts: opts}
}

// FindSourceFiles returns all source-language localization files under the
// given localization roots, sorted for deterministic processing order.
func FindSourceFiles(rootDir string, locRoots []string, sourceLang string) ([]string, error) {
	var files []string
	for _, root := range locRoots {
		dir := filepath.Join(rootDir, root, sourceLang)
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return filepath.SkipAll
				}
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".yml") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
	}
	return files, nil
}

// Run synchronizes every source file into every target language. The lock
// file is saved after each source file so an interrupted run keeps the work
// already committed. An authentication failure aborts the remaining run;
// any other provider failure is contained to its entry.
func (e *Engine) Run(ctx context.Context, rootDir string, sourceFiles []string) (*Summary, error) {
	total := &Summary{}

	for _, srcPath := range sourceFiles {
		s, err := e.SyncFile(ctx, rootDir, srcPath)
		if s != nil {
			total.merge(s)
		}
		if !e.opts.DryRun {
			if serr := e.lock.Save(); serr != nil {
				return total, serr
			}
		}
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// SyncFile synchronizes one source localization file into every configured
// target language.
func (e *Engine) SyncFile(ctx context.Context, rootDir, srcPath string) (*Summary, error) {
	src, err := locfile.ParseFile(srcPath)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for i, lang := range e.opts.TargetLangs {
		s, err := e.syncLanguage(ctx, src, srcPath, rootDir, lang)
		if s != nil {
			summary.merge(s)
		}
		if err != nil {
			return summary, err
		}
		if e.opts.OnProgress != nil {
			e.opts.OnProgress(lang, i+1, len(e.opts.TargetLangs))
		}
	}
	return summary, nil
}

func (e *Engine) syncLanguage(ctx context.Context, src *locfile.File, srcPath, rootDir, lang string) (*Summary, error) {
	targetPath := locfile.TargetPath(srcPath, e.opts.SourceLang, lang)

	rel, err := filepath.Rel(rootDir, targetPath)
	if err != nil {
		rel = targetPath
	}
	targetKey := lockfile.TargetKey(rel)

	existing, err := locfile.ParseFile(targetPath)
	if err != nil {
		// ParseFile wraps the read error, so unwrap-aware matching is
		// required here.
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		existing = nil
	}

	summary := &Summary{}
	out := locfile.New(src.BOM)

	for _, line := range src.Lines() {
		if line.Kind == locfile.KindHeader {
			out.AppendHeader(lang)
			continue
		}
		if line.Kind != locfile.KindEntry {
			out.Append(line)
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		var exLine locfile.Line
		hasExisting := false
		if existing != nil {
			exLine, hasExisting = existing.Entry(line.Key)
		}

		// A locked target line is never regenerated, and its fingerprint
		// is never advanced: unlocking it later makes the pending source
		// edit visible again.
		if hasExisting && exLine.Locked() {
			out.Append(exLine)
			summary.Locked++
			continue
		}

		masked, placeholders := tagmask.Mask(line.Value)

		// Verbatim classes: copied into every target unchanged. The
		// fingerprint is still recorded so later edits are detected.
		switch {
		case line.InRegion:
			out.Append(line)
			e.record(targetKey, line.Key, line.Value)
			summary.RegionSkip++
			continue
		case line.SkipMarked():
			out.Append(line)
			e.record(targetKey, line.Key, line.Value)
			summary.SkipMarked++
			continue
		case tagmask.OnlyPlaceholders(masked):
			out.Append(line)
			e.record(targetKey, line.Key, line.Value)
			summary.TagOnly++
			continue
		}

		// Unchanged since the last successful translation: keep the
		// existing target line untouched.
		if !e.opts.Force && hasExisting && !e.lock.Changed(targetKey, line.Key, line.Value) {
			out.Append(exLine)
			summary.Unchanged++
			continue
		}

		result, err := e.provider.Translate(ctx, masked, e.opts.SourceLang, lang)
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures,
				fmt.Sprintf("%s (%s): %v", line.Key, lang, err))

			if errors.Is(err, ErrAuth) {
				// Further calls would uniformly fail; abort without
				// writing this half-synced file.
				return summary, fmt.Errorf("provider authentication failed, aborting run: %w", err)
			}

			e.opts.logError("failed to translate %s (%s): %v", line.Key, lang, err)

			// Keep the prior target line if one exists; fall back to the
			// source text. The fingerprint stays put so the entry is
			// retried next run.
			if hasExisting {
				out.Append(exLine)
			} else {
				out.Append(line)
			}
			continue
		}

		if missing := tagmask.Validate(result, placeholders); len(missing) > 0 {
			e.opts.logError("%s (%s): provider dropped tokens %v", line.Key, lang, missing)
		}

		translated := tagmask.Cleanup(tagmask.Unmask(result, placeholders))

		newLine := line
		newLine.Raw = ""
		newLine.Value = translated
		out.Append(newLine)

		e.record(targetKey, line.Key, line.Value)
		summary.Translated++
	}

	if !e.opts.DryRun {
		if err := out.WriteFile(targetPath); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (e *Engine) record(targetKey, key, source string) {
	if e.opts.DryRun {
		return
	}
	e.lock.Update(targetKey, key, source)
}

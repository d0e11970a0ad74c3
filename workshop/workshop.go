// Package workshop generates and plans translated Steam Workshop page
// content: the per-language title_/description_ text files and the ordered
// upload plan built from them.
package workshop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/conner-olsen/eu5-mod-devkit/langtab"
	"github.com/conner-olsen/eu5-mod-devkit/lockfile"
	"github.com/conner-olsen/eu5-mod-devkit/metadata"
	"github.com/conner-olsen/eu5-mod-devkit/tagmask"
	"github.com/conner-olsen/eu5-mod-devkit/translate"
)

const (
	// AssetsDir holds the workshop page sources, relative to the mod root.
	AssetsDir = "assets/workshop"
	// DescriptionFile is the source-language page description inside
	// AssetsDir.
	DescriptionFile = "workshop-description.txt"
	// TranslationsSubdir holds the generated per-language files inside
	// AssetsDir.
	TranslationsSubdir = "translations"
)

var bom = []byte("\uFEFF")

var translationFilePat = regexp.MustCompile(`^(title|description)_(.+)\.txt$`)

func assetsPath(modDir string) string {
	return filepath.Join(modDir, filepath.FromSlash(AssetsDir))
}

func translationsPath(modDir string) string {
	return filepath.Join(assetsPath(modDir), TranslationsSubdir)
}

func readText(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(bytes.TrimPrefix(data, bom)), true, nil
}

func writeText(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".workshop-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Options controls page generation.
type Options struct {
	// SourceLang is the language the page sources are authored in.
	SourceLang string
	// TargetLangs are the languages to generate pages for.
	TargetLangs []string
	// Force regenerates descriptions regardless of recorded state. Titles
	// are still only generated when their file is absent.
	Force bool

	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// Summary reports what a generation run did.
type Summary struct {
	Titles       int
	Descriptions int
	Unchanged    int
	Failed       int
}

func (s *Summary) String() string {
	return fmt.Sprintf("%d titles, %d descriptions, %d unchanged, %d failed",
		s.Titles, s.Descriptions, s.Unchanged, s.Failed)
}

// Generator produces translated title_/description_ files under
// assets/workshop/translations/.
type Generator struct {
	provider translate.Provider
	lock     *lockfile.LockFile
	opts     Options
}

// NewGenerator returns a generator bound to a provider and the lock file.
func NewGenerator(provider translate.Provider, lock *lockfile.LockFile, opts Options) *Generator {
	return &Generator{provider: provider, lock: lock, opts: opts}
}

// Run generates the per-language page files. A title is generated at most
// once: an existing title file is left alone no matter what changed, and
// deleting it is the only way to request a fresh one. A description is
// regenerated when the source description changed or when the configured
// provider differs from the one that produced it. An authentication failure
// aborts the run; other provider failures are contained per language.
func (g *Generator) Run(ctx context.Context, modDir string) (*Summary, error) {
	srcPath := filepath.Join(assetsPath(modDir), DescriptionFile)
	description, ok, err := readText(srcPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("workshop description not found: %s", srcPath)
	}
	srcHash := lockfile.Hash(description)

	title := ""
	if meta, err := metadata.Load(modDir); err == nil {
		title = meta.Title()
	} else if !os.IsNotExist(err) {
		return nil, err
	} else {
		g.opts.log("mod descriptor missing, skipping workshop titles")
	}

	summary := &Summary{}
	for _, lang := range g.opts.TargetLangs {
		if lang == g.opts.SourceLang {
			continue
		}
		if _, known := langtab.Lookup(lang); !known {
			g.opts.log("unknown language %q, skipping", lang)
			continue
		}

		err := g.syncTitle(ctx, modDir, lang, title, summary)
		if err == nil {
			err = g.syncDescription(ctx, modDir, lang, description, srcHash, summary)
		}
		if err != nil {
			// The abort must not lose state recorded for pages already
			// written, or the next run re-spends quota on them.
			if serr := g.lock.Save(); serr != nil {
				g.opts.log("saving lock file: %v", serr)
			}
			return summary, err
		}
	}

	if err := g.lock.Save(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (g *Generator) syncTitle(ctx context.Context, modDir, lang, title string, summary *Summary) error {
	if title == "" {
		return nil
	}
	path := filepath.Join(translationsPath(modDir), "title_"+lang+".txt")
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	translated, err := g.translateText(ctx, title, lang)
	if err != nil {
		if errors.Is(err, translate.ErrAuth) {
			return fmt.Errorf("provider authentication failed, aborting run: %w", err)
		}
		g.opts.log("failed to translate title (%s): %v", lang, err)
		summary.Failed++
		return nil
	}
	if err := writeText(path, translated); err != nil {
		return err
	}
	summary.Titles++
	return nil
}

func (g *Generator) syncDescription(ctx context.Context, modDir, lang, description, srcHash string, summary *Summary) error {
	path := filepath.Join(translationsPath(modDir), "description_"+lang+".txt")
	state, _ := g.lock.WorkshopFor(lang)
	_, statErr := os.Stat(path)
	exists := statErr == nil

	if !g.opts.Force && exists &&
		state.Description == srcHash && state.Provider == g.provider.ID() {
		summary.Unchanged++
		return nil
	}

	translated, err := g.translateText(ctx, description, lang)
	if err != nil {
		if errors.Is(err, translate.ErrAuth) {
			return fmt.Errorf("provider authentication failed, aborting run: %w", err)
		}
		g.opts.log("failed to translate description (%s): %v", lang, err)
		summary.Failed++
		return nil
	}
	if err := writeText(path, translated); err != nil {
		return err
	}
	g.lock.SetWorkshop(lang, lockfile.WorkshopState{
		Provider:    g.provider.ID(),
		Description: srcHash,
	})
	summary.Descriptions++
	return nil
}

// translateText masks BBCode tags and game placeholders before the provider
// call and restores them after.
func (g *Generator) translateText(ctx context.Context, text, lang string) (string, error) {
	masked, placeholders := tagmask.Mask(text)
	result, err := g.provider.Translate(ctx, masked, g.opts.SourceLang, lang)
	if err != nil {
		return "", err
	}
	if missing := tagmask.Validate(result, placeholders); len(missing) > 0 {
		g.opts.log("provider dropped tokens %v (%s)", missing, lang)
	}
	return tagmask.Cleanup(tagmask.Unmask(result, placeholders)), nil
}

// Update is one per-language workshop page change. Empty Title or
// Description means "leave that field alone".
type Update struct {
	Lang        string
	SteamLang   string
	Title       string
	Description string
}

// BuildPlan assembles the ordered upload plan: the source language first,
// built from the mod descriptor and workshop-description.txt, then every
// language with generated files, sorted by folder name. Languages without a
// Steam mapping are skipped and reported in warnings.
func BuildPlan(modDir, sourceLang string) ([]Update, []string, error) {
	src, known := langtab.Lookup(sourceLang)
	if !known {
		return nil, nil, fmt.Errorf("unsupported source language %q", sourceLang)
	}

	description, ok, err := readText(filepath.Join(assetsPath(modDir), DescriptionFile))
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("workshop description not found under %s", AssetsDir)
	}

	title := ""
	if meta, err := metadata.Load(modDir); err == nil {
		title = meta.Title()
	}

	plan := []Update{{
		Lang:        sourceLang,
		SteamLang:   src.Steam,
		Title:       title,
		Description: description,
	}}

	entries, err := os.ReadDir(translationsPath(modDir))
	if os.IsNotExist(err) {
		return plan, []string{"translations folder not found, uploading source language only"}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	type pageFiles struct {
		title, description string
	}
	pages := map[string]*pageFiles{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := translationFilePat.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		kind, lang := m[1], m[2]
		text, ok, err := readText(filepath.Join(translationsPath(modDir), entry.Name()))
		if err != nil || !ok {
			continue
		}
		p := pages[lang]
		if p == nil {
			p = &pageFiles{}
			pages[lang] = p
		}
		if kind == "title" {
			p.title = text
		} else {
			p.description = text
		}
	}

	langs := make([]string, 0, len(pages))
	for lang := range pages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	var warnings []string
	for _, lang := range langs {
		if lang == sourceLang {
			continue
		}
		tab, known := langtab.Lookup(lang)
		if !known {
			warnings = append(warnings, fmt.Sprintf("no Steam language mapping for %q, skipping", lang))
			continue
		}
		p := pages[lang]
		if p.title == "" && p.description == "" {
			continue
		}
		plan = append(plan, Update{
			Lang:        lang,
			SteamLang:   tab.Steam,
			Title:       p.title,
			Description: p.description,
		})
	}
	return plan, warnings, nil
}

// Uploader applies an upload plan to a workshop item.
type Uploader interface {
	Apply(ctx context.Context, itemID int64, plan []Update) error
}

// DryRunUploader prints the plan instead of uploading. It is the built-in
// Uploader; talking to Steamworks itself is left to external tooling.
type DryRunUploader struct {
	Log func(format string, args ...any)
}

// Apply implements Uploader.
func (u *DryRunUploader) Apply(_ context.Context, itemID int64, plan []Update) error {
	log := u.Log
	if log == nil {
		log = func(string, ...any) {}
	}
	log("workshop item %d language updates:", itemID)
	for _, up := range plan {
		titleState := "title"
		if up.Title == "" {
			titleState = "no-title"
		}
		descState := "description"
		if up.Description == "" {
			descState = "no-description"
		}
		log("  - %s (%s): %s, %s", up.Lang, up.SteamLang, titleState, descState)
	}
	log("dry run, no upload performed")
	return nil
}

// modkit — EU5 mod devkit: incremental localization sync, release builds,
// and Workshop page tooling.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conner-olsen/eu5-mod-devkit/config"
	"github.com/conner-olsen/eu5-mod-devkit/deepl"
	"github.com/conner-olsen/eu5-mod-devkit/i18n"
	"github.com/conner-olsen/eu5-mod-devkit/langtab"
	"github.com/conner-olsen/eu5-mod-devkit/locfile"
	"github.com/conner-olsen/eu5-mod-devkit/lockfile"
	"github.com/conner-olsen/eu5-mod-devkit/metadata"
	"github.com/conner-olsen/eu5-mod-devkit/release"
	"github.com/conner-olsen/eu5-mod-devkit/translate"
	"github.com/conner-olsen/eu5-mod-devkit/workshop"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

func configPath() string {
	return filepath.Join(rootDir, config.DefaultName)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "modkit",
		Short: "EU5 mod devkit: localization sync, releases, Workshop pages",
		Long: `modkit — EU5 mod devkit.

Keeps a mod's per-language localization files in sync with the source
language, re-translating only entries whose source text changed. Also builds
release trees and translated Steam Workshop page content.

Commands:
  status      Show mod info and per-language translation progress
  translate   Sync localization files into the target languages
  release     Build a distributable release tree
  workshop    Generate and plan Workshop page translations

Translation providers:
  deepl   DeepL API (DEEPL_API_KEY env var)
  openai  Any OpenAI-compatible endpoint, including local Ollama
          (MODKIT_API_KEY env var where the endpoint needs one)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Mod root directory")

	root.AddCommand(
		newStatusCmd(),
		newTranslateCmd(),
		newReleaseCmd(),
		newWorkshopCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("modkit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// status (read-only: mod info + translation progress)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show mod info and per-language translation progress",
		Long: `Show the mod descriptor, configuration, and how much of each target
language is in sync with the source. Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	absRoot, _ := filepath.Abs(rootDir)

	fmt.Fprintf(os.Stderr, "\n%sMod%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	if meta, err := metadata.Load(rootDir); err == nil {
		fmt.Fprintf(os.Stderr, "  Name:       %s\n", meta.Name)
		if meta.Version != "" {
			fmt.Fprintf(os.Stderr, "  Version:    %s\n", meta.Version)
		}
	} else {
		fmt.Fprintf(os.Stderr, "  Name:       (no %s)\n", metadata.FileName)
	}
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", absRoot)
	fmt.Fprintf(os.Stderr, "  Source:     %s\n", cfg.SourceLanguage)
	fmt.Fprintf(os.Stderr, "  Provider:   %s\n", cfg.Provider)
	fmt.Fprintf(os.Stderr, "  Loc roots:  %s\n", strings.Join(cfg.LocalizationRoots, ", "))
	fmt.Fprintln(os.Stderr)

	files, err := translate.FindSourceFiles(rootDir, cfg.LocalizationRoots, cfg.SourceLanguage)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logInfo(i18n.T("No source localization files found."))
		return nil
	}

	lock, err := lockfile.Load(rootDir)
	if err != nil {
		logWarning("%v", err)
	}

	fmt.Fprintf(os.Stderr, "%sTranslation progress%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	for _, lang := range cfg.Targets() {
		synced, total, err := languageProgress(lock, files, cfg.SourceLanguage, lang)
		if err != nil {
			return err
		}
		percent := 0
		if total > 0 {
			percent = synced * 100 / total
		}
		fmt.Fprintf(os.Stderr, "  %-14s %s  (%d/%d)\n", lang, progressBar(percent, 20), synced, total)
	}
	fmt.Fprintln(os.Stderr)
	return nil
}

// languageProgress counts how many source entries already carry a current
// fingerprint for the given target language.
func languageProgress(lock *lockfile.LockFile, files []string, sourceLang, lang string) (synced, total int, err error) {
	for _, path := range files {
		src, err := locfile.ParseFile(path)
		if err != nil {
			return 0, 0, err
		}
		targetPath := locfile.TargetPath(path, sourceLang, lang)
		rel, err := filepath.Rel(rootDir, targetPath)
		if err != nil {
			rel = targetPath
		}
		key := lockfile.TargetKey(rel)

		for _, line := range src.Lines() {
			if line.Kind != locfile.KindEntry {
				continue
			}
			total++
			if !lock.Changed(key, line.Key, line.Value) {
				synced++
			}
		}
	}
	return synced, total, nil
}

// progressBar renders a fixed-width colored bar for a 0-100 percentage.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 40:
		color = colorYellow
	}
	return fmt.Sprintf("%s%s%s%s %3d%%",
		color,
		strings.Repeat("█", filled),
		strings.Repeat("░", width-filled),
		colorReset,
		percent)
}

// ---------------------------------------------------------------------------
// translate (incremental localization sync)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		langs    string
		provider string
		model    string
		baseURL  string
		force    bool
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Sync localization files into the target languages",
		Long: `Translate the source-language localization files into every target
language, re-translating only entries whose source text changed since the
last run.

Lines inside a # NO_TRANSLATE BELOW region, lines marked # NO_TRANSLATE, and
entries that are nothing but game tags are copied verbatim. Target lines
marked # LOCK are never touched.

Examples:
  # Sync everything with the configured provider
  modkit translate

  # Only French and German, via a local Ollama
  modkit translate --lang french,german --provider openai --base-url http://localhost:11434/v1 --model llama3

  # Show what would change without calling the provider's quota
  modkit translate --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(langs, provider, model, baseURL, force, dryRun)
		},
	}

	cmd.Flags().StringVar(&langs, "lang", "", "Languages to sync (comma-separated, default: all configured)")
	cmd.Flags().StringVar(&provider, "provider", "", "Translation provider: deepl, openai (default: from config)")
	cmd.Flags().StringVar(&model, "model", "", "Model for the openai provider")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Endpoint base URL for the openai provider")
	cmd.Flags().BoolVar(&force, "force", false, "Re-translate every entry regardless of recorded state")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without writing files")

	return cmd
}

func runTranslate(langs, provider, model, baseURL string, force, dryRun bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	targets := cfg.Targets()
	if langs != "" {
		targets = intersectLanguages(targets, splitList(langs))
		if len(targets) == 0 {
			return fmt.Errorf("--lang %q selects none of the configured target languages", langs)
		}
	}

	prov, err := newProvider(cfg, provider, model, baseURL)
	if err != nil {
		return err
	}

	logInfo(i18n.T("Scanning localization files..."))
	files, err := translate.FindSourceFiles(rootDir, cfg.LocalizationRoots, cfg.SourceLanguage)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logWarning(i18n.T("No source localization files found."))
		return nil
	}
	logInfo(i18n.N("Translating %d file", "Translating %d files", len(files)), len(files))

	lock, err := lockfile.Load(rootDir)
	if err != nil {
		logWarning("%v", err)
	}

	// Graceful cancellation: an interrupt stops after the current entry and
	// keeps the progress already saved.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, saving progress...")
		cancel()
	}()

	eng := translate.NewEngine(prov, lock, translate.Options{
		SourceLang:  cfg.SourceLanguage,
		TargetLangs: targets,
		Force:       force,
		DryRun:      dryRun,
		OnLog: func(format string, args ...any) {
			logInfo(format, args...)
		},
		OnError: func(format string, args ...any) {
			logError(format, args...)
		},
		OnProgress: func(lang string, done, total int) {
			logInfo("  %s: %d/%d", lang, done, total)
		},
	})

	summary, err := eng.Run(ctx, rootDir, files)
	if err != nil {
		if summary != nil {
			logInfo("%s", summary)
		}
		return err
	}

	if dryRun {
		logInfo(i18n.T("Dry run, no files written."))
	}
	if summary.Failed > 0 {
		logWarning("%s", summary)
		return nil
	}
	logSuccess("%s", summary)
	return nil
}

// newProvider builds the translation backend from the config and CLI
// overrides.
func newProvider(cfg *config.Config, override, model, baseURL string) (translate.Provider, error) {
	name := cfg.Provider
	if override != "" {
		name = override
	}

	switch name {
	case "deepl":
		if cfg.Credentials.DeepLKey == "" {
			return nil, errors.New("DEEPL_API_KEY is not set")
		}
		return deepl.New(cfg.Credentials.DeepLKey), nil

	case "openai":
		url := cfg.ProviderBaseURL
		if baseURL != "" {
			url = baseURL
		}
		if url == "" {
			return nil, errors.New("no endpoint for the openai provider: set provider_base_url or --base-url")
		}
		m := cfg.ProviderModel
		if model != "" {
			m = model
		}
		if m == "" {
			return nil, errors.New("no model for the openai provider: set provider_model or --model")
		}
		return translate.NewChatProvider(url, cfg.Credentials.APIKey, m), nil

	default:
		return nil, fmt.Errorf("unknown provider %q (supported: deepl, openai)", name)
	}
}

// ---------------------------------------------------------------------------
// release (distributable tree builder)
// ---------------------------------------------------------------------------

func newReleaseCmd() *cobra.Command {
	var (
		dev  bool
		dest string
	)

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Build a distributable release tree",
		Long: `Assemble a clean copy of the mod next to its working tree, with the
development name and id suffixes stripped and the release thumbnail
selected. --dev builds the development variant instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(dev, dest)
		},
	}

	cmd.Flags().BoolVar(&dev, "dev", false, "Build the development variant")
	cmd.Flags().StringVar(&dest, "dest", "", "Parent directory for the release folder (default: next to the mod)")

	return cmd
}

func runRelease(dev bool, dest string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return err
	}

	logInfo(i18n.T("Building release..."))
	res, err := release.Build(release.Options{
		ModDir:     absRoot,
		Sources:    cfg.ReleaseSources,
		Dev:        dev,
		DevName:    cfg.WorkshopDevName,
		DestParent: dest,
	})
	if err != nil {
		return err
	}

	logSuccess(i18n.T("Release built at %s"), res.Dir)
	logInfo("  title:     %s", res.Title)
	if res.Thumbnail != "" {
		logInfo("  thumbnail: %s", res.Thumbnail)
	} else {
		logWarning("no thumbnail found under %s", metadata.Dir)
	}
	return nil
}

// ---------------------------------------------------------------------------
// workshop (page translations + upload plan)
// ---------------------------------------------------------------------------

func newWorkshopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workshop",
		Short: "Generate and plan Workshop page translations",
	}
	cmd.AddCommand(
		newWorkshopGenerateCmd(),
		newWorkshopPlanCmd(),
		newWorkshopItemIDCmd(),
	)
	return cmd
}

func newWorkshopGenerateCmd() *cobra.Command {
	var (
		provider string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate translated Workshop titles and descriptions",
		Long: `Translate the Workshop page into every target language, writing
title_<lang>.txt and description_<lang>.txt under ` + workshop.AssetsDir + `/` + workshop.TranslationsSubdir + `.

A title is generated at most once; delete its file to request a fresh one.
Descriptions are regenerated when the source description or the provider
changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkshopGenerate(provider, force)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Translation provider: deepl, openai (default: from config)")
	cmd.Flags().BoolVar(&force, "force", false, "Regenerate every description")

	return cmd
}

func runWorkshopGenerate(provider string, force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prov, err := newProvider(cfg, provider, "", "")
	if err != nil {
		return err
	}

	lock, err := lockfile.Load(rootDir)
	if err != nil {
		logWarning("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, saving progress...")
		cancel()
	}()

	logInfo(i18n.T("Generating workshop pages..."))
	gen := workshop.NewGenerator(prov, lock, workshop.Options{
		SourceLang:  cfg.SourceLanguage,
		TargetLangs: cfg.Targets(),
		Force:       force,
		OnLog: func(format string, args ...any) {
			logInfo(format, args...)
		},
	})

	summary, err := gen.Run(ctx, rootDir)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		logWarning("%s", summary)
		return nil
	}
	logSuccess("%s", summary)
	return nil
}

func newWorkshopPlanCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the per-language Workshop upload plan",
		Long: `Assemble the upload plan from the page sources and the generated
translations, source language first, and print it. Uploading to Steamworks
itself is handled by external tooling consuming this plan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkshopPlan(dev)
		},
	}

	cmd.Flags().BoolVar(&dev, "dev", false, "Use the development Workshop item id")

	return cmd
}

func runWorkshopPlan(dev bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	plan, warnings, err := workshop.BuildPlan(rootDir, cfg.SourceLanguage)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logWarning("%s", w)
	}

	itemID := cfg.WorkshopItemID
	if dev {
		itemID = cfg.WorkshopItemIDDev
	}
	if itemID == 0 {
		logWarning("workshop item id is 0; set it with 'modkit workshop set-item-id'")
	}

	uploader := &workshop.DryRunUploader{Log: logInfo}
	return uploader.Apply(context.Background(), itemID, plan)
}

func newWorkshopItemIDCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "set-item-id <id>",
		Short: "Record a Workshop item id in config.toml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid item id %q: expected a positive integer", args[0])
			}

			if !fileExists(configPath()) {
				return fmt.Errorf("%s not found; create it before recording an item id", configPath())
			}

			key := "workshop_upload_item_id"
			if dev {
				key = "workshop_upload_item_id_dev"
			}
			if err := config.Patch(configPath(), key, strconv.FormatInt(id, 10)); err != nil {
				return err
			}
			logSuccess("Set %s = %d in %s", key, id, configPath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&dev, "dev", false, "Set the development item id")

	return cmd
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// splitList splits a comma-separated flag value, trimming blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// intersectLanguages keeps the available languages named in filter, warning
// about unknown names.
func intersectLanguages(available, filter []string) []string {
	set := make(map[string]bool, len(available))
	for _, lang := range available {
		set[lang] = true
	}

	var out []string
	for _, lang := range filter {
		if set[lang] {
			out = append(out, lang)
			continue
		}
		if _, known := langtab.Lookup(lang); known {
			logWarning("%s is not in the configured target languages, skipping", lang)
		} else {
			logWarning("unknown language %q, skipping", lang)
		}
	}
	return out
}

// Package config implements the devkit configuration: a config.toml file in
// the project root plus credential overlays from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	env "github.com/caarlos0/env/v11"

	"github.com/conner-olsen/eu5-mod-devkit/langtab"
)

// DefaultName is the config file name, resolved against the project root.
const DefaultName = "config.toml"

// Credentials are read from the environment, never from config.toml.
type Credentials struct {
	// DeepLKey authenticates against the DeepL API.
	DeepLKey string `env:"DEEPL_API_KEY"`
	// APIKey authenticates against an OpenAI-compatible endpoint.
	APIKey string `env:"MODKIT_API_KEY"`
}

// Config holds all devkit settings.
type Config struct {
	// SourceLanguage is the localization folder the mod is authored in.
	SourceLanguage string `toml:"source_language"`
	// TargetLanguages are the localization folders to translate into.
	// Empty means every supported language except the source.
	TargetLanguages []string `toml:"target_languages"`

	// Provider selects the translation backend: "deepl" or "openai".
	Provider string `toml:"provider"`
	// ProviderBaseURL overrides the OpenAI-compatible endpoint base URL.
	ProviderBaseURL string `toml:"provider_base_url"`
	// ProviderModel is the model identifier for the OpenAI-compatible backend.
	ProviderModel string `toml:"provider_model"`

	// LocalizationRoots are directories containing per-language localization
	// folders, relative to the project root.
	LocalizationRoots []string `toml:"localization_roots"`
	// ReleaseSources are the folders copied into a release build.
	ReleaseSources []string `toml:"release_sources"`

	WorkshopItemID    int64  `toml:"workshop_upload_item_id"`
	WorkshopItemIDDev int64  `toml:"workshop_upload_item_id_dev"`
	WorkshopDryRun    bool   `toml:"workshop_upload_dry_run"`
	WorkshopDevName   string `toml:"workshop_dev_name"`

	Credentials Credentials `toml:"-"`
}

// Default returns the configuration used when no config.toml exists.
func Default() *Config {
	return &Config{
		SourceLanguage:    "english",
		Provider:          "deepl",
		LocalizationRoots: []string{"main_menu/localization", "in_game/localization"},
		ReleaseSources:    []string{"in_game", "main_menu"},
	}
}

// Load reads config.toml from path and overlays credentials from the
// environment. A missing file yields the defaults, not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	} else {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg.Credentials); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	return cfg, nil
}

// Targets returns the effective target language list: the configured set,
// or every supported language except the source when none is configured.
func (c *Config) Targets() []string {
	if len(c.TargetLanguages) > 0 {
		return c.TargetLanguages
	}
	return langtab.Targets(c.SourceLanguage)
}

// Validate checks that every configured language is supported.
func (c *Config) Validate() error {
	if _, ok := langtab.Lookup(c.SourceLanguage); !ok {
		return fmt.Errorf("unsupported source_language %q", c.SourceLanguage)
	}
	for _, lang := range c.TargetLanguages {
		if _, ok := langtab.Lookup(lang); !ok {
			return fmt.Errorf("unsupported target language %q", lang)
		}
		if lang == c.SourceLanguage {
			return fmt.Errorf("target language %q equals the source language", lang)
		}
	}
	return nil
}

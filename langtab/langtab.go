// Package langtab provides the registry of localization languages supported
// by the game, mapping localization folder names (e.g. "simp_chinese") to
// DeepL target codes, Steam Workshop language codes, and BCP-47 tags.
package langtab

import (
	"sort"

	"golang.org/x/text/language"
)

// Lang describes one supported localization language.
type Lang struct {
	// Folder is the localization folder name (e.g. "braz_por").
	Folder string
	// Name is the English display name.
	Name string
	// DeepL is the DeepL API target code (e.g. "PT-BR").
	DeepL string
	// Steam is the Steam Workshop language code (e.g. "brazilian").
	Steam string
	// Tag is the BCP-47 language tag.
	Tag language.Tag
}

// Registry contains the languages the game ships localization folders for.
var Registry = map[string]Lang{
	"english":      {Folder: "english", Name: "English", DeepL: "EN", Steam: "english", Tag: language.MustParse("en")},
	"french":       {Folder: "french", Name: "French", DeepL: "FR", Steam: "french", Tag: language.MustParse("fr")},
	"german":       {Folder: "german", Name: "German", DeepL: "DE", Steam: "german", Tag: language.MustParse("de")},
	"spanish":      {Folder: "spanish", Name: "Spanish", DeepL: "ES", Steam: "spanish", Tag: language.MustParse("es")},
	"polish":       {Folder: "polish", Name: "Polish", DeepL: "PL", Steam: "polish", Tag: language.MustParse("pl")},
	"russian":      {Folder: "russian", Name: "Russian", DeepL: "RU", Steam: "russian", Tag: language.MustParse("ru")},
	"simp_chinese": {Folder: "simp_chinese", Name: "Simplified Chinese", DeepL: "ZH", Steam: "schinese", Tag: language.MustParse("zh-Hans")},
	"turkish":      {Folder: "turkish", Name: "Turkish", DeepL: "TR", Steam: "turkish", Tag: language.MustParse("tr")},
	"braz_por":     {Folder: "braz_por", Name: "Brazilian Portuguese", DeepL: "PT-BR", Steam: "brazilian", Tag: language.MustParse("pt-BR")},
	"japanese":     {Folder: "japanese", Name: "Japanese", DeepL: "JA", Steam: "japanese", Tag: language.MustParse("ja")},
	"korean":       {Folder: "korean", Name: "Korean", DeepL: "KO", Steam: "koreana", Tag: language.MustParse("ko")},
}

// Lookup returns the language for a localization folder name.
func Lookup(folder string) (Lang, bool) {
	l, ok := Registry[folder]
	return l, ok
}

// FileID returns the localization file language id for a folder name,
// e.g. "l_english". The id appears both in file names
// (somefile_l_english.yml) and as the file header line ("l_english:").
func FileID(folder string) string {
	return "l_" + folder
}

// Folders returns all supported folder names in sorted order.
func Folders() []string {
	folders := make([]string, 0, len(Registry))
	for f := range Registry {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders
}

// Targets returns all folder names except the given source, in sorted order.
// This is the default target set when the config does not name one.
func Targets(source string) []string {
	var targets []string
	for _, f := range Folders() {
		if f != source {
			targets = append(targets, f)
		}
	}
	return targets
}

// Package locfile implements reading and writing of Paradox-style
// localization files.
//
// Format: a language header followed by indented key/value entries, with
// free-form comment and blank lines in between:
//
//	l_english:
//	 GREETING:0 "Hello $PLAYER$"
//	 # a comment
//	 ONLY_TAG: "[frame]"
//
// The version digits after the key are optional. Files written by the game
// tools start with a UTF-8 BOM, which is preserved on round-trip. The File
// type maintains the original line order so that serializing an unmodified
// file reproduces it byte-for-byte.
//
// Three translation directives are recognized:
//
//	# NO_TRANSLATE BELOW   opens a no-translate region (closed by END or EOF)
//	# NO_TRANSLATE END     closes the region
//	# NO_TRANSLATE         trailing on an entry: never translate this line
//	# LOCK                 trailing on a translated entry: never overwrite it
//
// Regions do not nest; a start marker inside an open region is inert.
package locfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Translation directive markers.
const (
	RegionStartMarker = "# NO_TRANSLATE BELOW"
	RegionEndMarker   = "# NO_TRANSLATE END"
	SkipMarker        = "# NO_TRANSLATE"
	LockMarker        = "# LOCK"
)

const bom = "\uFEFF"

// Kind classifies a line.
type Kind int

const (
	// KindBlank is a blank or whitespace-only line.
	KindBlank Kind = iota
	// KindComment is a standalone comment line.
	KindComment
	// KindHeader is the language header line ("l_english:").
	KindHeader
	// KindEntry is a key/value entry.
	KindEntry
	// KindRaw is any other line, preserved verbatim.
	KindRaw
)

// Line is a single line of a localization file.
type Line struct {
	Kind Kind
	// Raw is the original line text, used verbatim for non-entry kinds.
	Raw string

	// Entry fields (KindEntry only).
	Indent  string
	Key     string
	Version string // digits after the key's colon, may be empty
	Gap     string // whitespace between version and opening quote
	Value   string
	Suffix  string // trailing text after the closing quote

	// InRegion is true when the line sits inside a no-translate region.
	InRegion bool
}

// SkipMarked reports whether the entry carries a single-line
// no-translate directive.
func (l *Line) SkipMarked() bool {
	return strings.Contains(l.Suffix, SkipMarker)
}

// Locked reports whether the entry carries a lock directive.
func (l *Line) Locked() bool {
	return strings.Contains(l.Suffix, LockMarker)
}

// Render returns the serialized form of the line.
func (l *Line) Render() string {
	if l.Kind != KindEntry {
		return l.Raw
	}
	return l.Indent + l.Key + ":" + l.Version + l.Gap + `"` + l.Value + `"` + l.Suffix
}

var (
	headerPat = regexp.MustCompile(`^l_([a-z_]+):\s*$`)
	entryPat  = regexp.MustCompile(`^(\s*)([A-Za-z0-9_.\-]+):(\d*)(\s*)"(.*)"(.*)$`)
)

// File represents a parsed localization file.
type File struct {
	// Lang is the language folder name from the header ("english"),
	// empty when the file has no header.
	Lang string
	// BOM records whether the source file started with a UTF-8 BOM.
	BOM bool

	lines      []Line
	index      map[string]int
	trailingNL bool
}

// New returns an empty file for the given language. The header line itself
// is not added; append one with AppendHeader.
func New(withBOM bool) *File {
	return &File{
		BOM:        withBOM,
		index:      make(map[string]int),
		trailingNL: true,
	}
}

// ParseFile reads and parses a localization file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses localization file content.
func Parse(data []byte) (*File, error) {
	f := &File{index: make(map[string]int)}

	text := string(data)
	if strings.HasPrefix(text, bom) {
		f.BOM = true
		text = strings.TrimPrefix(text, bom)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	f.trailingNL = strings.HasSuffix(text, "\n")
	rawLines := strings.Split(text, "\n")
	if f.trailingNL {
		rawLines = rawLines[:len(rawLines)-1]
	}

	inRegion := false
	for _, raw := range rawLines {
		// Region markers win over everything else on the line. A start
		// marker inside an open region is inert.
		switch {
		case strings.Contains(raw, RegionEndMarker):
			inRegion = false
			f.lines = append(f.lines, Line{Kind: KindComment, Raw: raw, InRegion: true})
			continue
		case strings.Contains(raw, RegionStartMarker):
			inRegion = true
			f.lines = append(f.lines, Line{Kind: KindComment, Raw: raw, InRegion: true})
			continue
		}

		trimmed := strings.TrimSpace(raw)

		switch {
		case trimmed == "":
			f.lines = append(f.lines, Line{Kind: KindBlank, Raw: raw, InRegion: inRegion})

		case headerPat.MatchString(trimmed):
			m := headerPat.FindStringSubmatch(trimmed)
			if f.Lang == "" {
				f.Lang = m[1]
			}
			f.lines = append(f.lines, Line{Kind: KindHeader, Raw: raw, InRegion: inRegion})

		case strings.HasPrefix(trimmed, "#"):
			f.lines = append(f.lines, Line{Kind: KindComment, Raw: raw, InRegion: inRegion})

		default:
			m := entryPat.FindStringSubmatch(raw)
			if m == nil {
				// Not a recognizable entry; keep verbatim.
				f.lines = append(f.lines, Line{Kind: KindRaw, Raw: raw, InRegion: inRegion})
				continue
			}
			l := Line{
				Kind:     KindEntry,
				Raw:      raw,
				Indent:   m[1],
				Key:      m[2],
				Version:  m[3],
				Gap:      m[4],
				Value:    m[5],
				Suffix:   m[6],
				InRegion: inRegion,
			}
			if _, exists := f.index[l.Key]; !exists {
				f.index[l.Key] = len(f.lines)
			}
			f.lines = append(f.lines, l)
		}
	}

	return f, nil
}

// Lines returns all lines in document order.
func (f *File) Lines() []Line {
	return f.lines
}

// Keys returns all entry keys in document order.
func (f *File) Keys() []string {
	var keys []string
	for _, l := range f.lines {
		if l.Kind == KindEntry {
			keys = append(keys, l.Key)
		}
	}
	return keys
}

// Get returns the value for a key.
func (f *File) Get(key string) (string, bool) {
	idx, ok := f.index[key]
	if !ok {
		return "", false
	}
	return f.lines[idx].Value, true
}

// Entry returns the full line for a key.
func (f *File) Entry(key string) (Line, bool) {
	idx, ok := f.index[key]
	if !ok {
		return Line{}, false
	}
	return f.lines[idx], true
}

// Set replaces the value for an existing key. Returns false if the key is
// not present.
func (f *File) Set(key, value string) bool {
	idx, ok := f.index[key]
	if !ok {
		return false
	}
	f.lines[idx].Value = value
	return true
}

// Append adds a line to the end of the file.
func (f *File) Append(l Line) {
	if l.Kind == KindEntry {
		if _, exists := f.index[l.Key]; !exists {
			f.index[l.Key] = len(f.lines)
		}
	}
	f.lines = append(f.lines, l)
}

// AppendHeader adds a language header line for the given folder name and
// records it as the file's language.
func (f *File) AppendHeader(folder string) {
	f.Lang = folder
	f.Append(Line{Kind: KindHeader, Raw: "l_" + folder + ":"})
}

// Stats returns the number of entries and how many of them are locked.
func (f *File) Stats() (entries, locked int) {
	for i := range f.lines {
		if f.lines[i].Kind != KindEntry {
			continue
		}
		entries++
		if f.lines[i].Locked() {
			locked++
		}
	}
	return
}

// Marshal serializes the file, including the BOM when the source had one.
func (f *File) Marshal() []byte {
	var b strings.Builder
	if f.BOM {
		b.WriteString(bom)
	}
	for i := range f.lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.lines[i].Render())
	}
	if f.trailingNL && len(f.lines) > 0 {
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// WriteFile atomically writes the file to path: the content goes to a
// temporary file in the same directory which is then renamed over the
// destination, so a crash never leaves a half-written file.
func (f *File) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(f.Marshal()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming to %s: %w", path, err)
	}
	return nil
}

// TargetPath derives the output path for a source localization file and a
// target language folder. The language folder and the file name's language
// id are both rewritten:
//
//	loc/english/mod_l_english.yml → loc/french/mod_l_french.yml
func TargetPath(sourcePath, sourceFolder, targetFolder string) string {
	dir := filepath.Dir(sourcePath)
	name := filepath.Base(sourcePath)

	name = strings.ReplaceAll(name, "l_"+sourceFolder, "l_"+targetFolder)

	parent := filepath.Dir(dir)
	if filepath.Base(dir) == sourceFolder {
		return filepath.Join(parent, targetFolder, name)
	}
	return filepath.Join(dir, name)
}

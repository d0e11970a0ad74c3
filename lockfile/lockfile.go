// Package lockfile implements modkit.lock — a lock file that tracks
// SHA-1 fingerprints of source strings per target file. This enables
// incremental translation: only new or changed strings are sent to the
// translation provider.
//
// The lock file lives in the project root as modkit.lock. A missing file
// is an empty store; a malformed file is recovered as an empty store and
// reported via ErrMalformed so the caller can warn. Saving is atomic
// (temp file + rename), so a crash mid-run can lose updates but can never
// leave a torn file.
package lockfile

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "modkit.lock"

// Version is the lock file format version.
const Version = 1

// ErrMalformed reports a lock file that could not be parsed. Load recovers
// by returning an empty store alongside this error.
var ErrMalformed = errors.New("malformed lock file")

// WorkshopState records what produced a generated workshop page translation.
type WorkshopState struct {
	// Provider is the translation provider ID used for the description.
	Provider string `yaml:"provider"`
	// Description is the fingerprint of the source description text.
	Description string `yaml:"description"`
}

// LockFile represents the modkit.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"`          // target -> key -> sha1
	Workshop  map[string]WorkshopState     `yaml:"workshop,omitempty"` // lang -> state

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

func empty(path string) *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		Workshop:  make(map[string]WorkshopState),
		path:      path,
	}
}

// Load reads the lock file from the given directory. A missing file yields
// an empty store and no error. A malformed file yields an empty store and
// an error wrapping ErrMalformed; the store is still usable.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := empty(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return empty(path), fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}
	if lf.Workshop == nil {
		lf.Workshop = make(map[string]WorkshopState)
	}

	return lf, nil
}

// Save atomically writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	dir := filepath.Dir(lf.path)
	tmp, err := os.CreateTemp(dir, LockFileName+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp lock file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
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
	if err := os.Rename(tmpName, lf.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming to %s: %w", lf.path, err)
	}
	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// Hash computes the SHA-1 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(s)))
}

// TargetKey builds a stable key for a target file, e.g.
// "main_menu/localization/french/mod_l_french.yml".
func TargetKey(filePath string) string {
	return filepath.ToSlash(filePath)
}

// Changed reports whether a source string is new or has changed since its
// last successful translation into the given target.
func (lf *LockFile) Changed(target, key, source string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	keys, ok := lf.Checksums[target]
	if !ok {
		return true
	}
	old, ok := keys[key]
	if !ok {
		return true
	}
	return old != Hash(source)
}

// Update records the fingerprint of a source string after a successful
// translation into the given target.
func (lf *LockFile) Update(target, key, source string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[target] == nil {
		lf.Checksums[target] = make(map[string]string)
	}
	lf.Checksums[target][key] = Hash(source)
}

// Remove deletes the fingerprint for one key, forcing re-translation on the
// next run. Fingerprints are never removed implicitly.
func (lf *LockFile) Remove(target, key string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if keys, ok := lf.Checksums[target]; ok {
		delete(keys, key)
	}
}

// RemoveTarget deletes all fingerprints for a target, forcing a full
// re-translation of that file on the next run.
func (lf *LockFile) RemoveTarget(target string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Checksums, target)
}

// WorkshopFor returns the recorded workshop page state for a language.
func (lf *LockFile) WorkshopFor(lang string) (WorkshopState, bool) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	s, ok := lf.Workshop[lang]
	return s, ok
}

// SetWorkshop records the workshop page state for a language.
func (lf *LockFile) SetWorkshop(lang string, s WorkshopState) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.Workshop == nil {
		lf.Workshop = make(map[string]WorkshopState)
	}
	lf.Workshop[lang] = s
}

// Stats returns the number of targets and total keys in the store.
func (lf *LockFile) Stats() (targets, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Targets returns the sorted list of target keys.
func (lf *LockFile) Targets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

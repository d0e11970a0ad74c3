// Package release assembles a distributable copy of the mod next to its
// working tree, with development-only naming stripped out.
package release

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/conner-olsen/eu5-mod-devkit/metadata"
)

const (
	thumbnailRelease = "thumbnail-release.png"
	thumbnailName    = "thumbnail.png"
)

// Options controls a release build.
type Options struct {
	// ModDir is the mod working tree.
	ModDir string
	// Sources are the folders and files copied into the release, relative
	// to ModDir. Missing entries are skipped.
	Sources []string
	// Dev builds the development variant: dev metadata, dev thumbnail,
	// "-dev" folder suffix.
	Dev bool
	// DevName overrides the mod name in dev builds when non-empty.
	DevName string
	// DestParent is the directory the release folder is created in.
	// Defaults to the parent of ModDir.
	DestParent string
}

// Result describes a finished build.
type Result struct {
	// Dir is the absolute release directory.
	Dir string
	// Thumbnail is the absolute path of the copied thumbnail, or empty
	// when the mod ships none.
	Thumbnail string
	// Title is the workshop title derived from the mod name.
	Title string
}

// FolderName derives the release folder name from a mod name: lower-cased,
// spaces as dashes, with a variant suffix.
func FolderName(name string, dev bool) string {
	clean := strings.TrimSuffix(name, metadata.DevNameSuffix)
	clean = strings.ReplaceAll(strings.ToLower(clean), " ", "-")
	if dev {
		return clean + "-dev"
	}
	return clean + "-release"
}

// Build assembles the release tree: the destination is recreated from
// scratch, the configured sources are copied in, and the transformed
// descriptor and thumbnail are written under .metadata/.
func Build(opts Options) (*Result, error) {
	meta, err := metadata.Load(opts.ModDir)
	if err != nil {
		return nil, fmt.Errorf("reading mod descriptor: %w", err)
	}

	var out *metadata.Metadata
	var title string
	baseName := meta.Name
	if opts.Dev {
		out = meta.Dev(opts.DevName)
		baseName = out.Name
		title = strings.TrimSpace(out.Name)
	} else {
		out = meta.Release()
		title = meta.Title()
	}

	parent := opts.DestParent
	if parent == "" {
		parent = filepath.Dir(opts.ModDir)
	}
	releaseDir := filepath.Join(parent, FolderName(baseName, opts.Dev))
	releaseDir, err = filepath.Abs(releaseDir)
	if err != nil {
		return nil, err
	}

	if err := removeAll(releaseDir); err != nil {
		return nil, fmt.Errorf("cleaning %s: %w", releaseDir, err)
	}
	if err := os.MkdirAll(releaseDir, 0755); err != nil {
		return nil, err
	}

	for _, item := range opts.Sources {
		src := filepath.Join(opts.ModDir, item)
		dst := filepath.Join(releaseDir, item)

		info, err := os.Stat(src)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			err = copyTree(src, dst)
		} else {
			err = copyFile(src, dst)
		}
		if err != nil {
			return nil, fmt.Errorf("copying %s: %w", item, err)
		}
	}

	if err := out.WriteFile(metadata.Path(releaseDir)); err != nil {
		return nil, fmt.Errorf("writing release descriptor: %w", err)
	}

	thumb, err := copyThumbnail(opts.ModDir, releaseDir, opts.Dev)
	if err != nil {
		return nil, err
	}

	return &Result{Dir: releaseDir, Thumbnail: thumb, Title: title}, nil
}

// copyThumbnail picks the thumbnail for the variant: release builds prefer
// thumbnail-release.png and fall back to thumbnail.png, dev builds only use
// thumbnail.png. Returns the destination path, or empty when the mod has no
// thumbnail at all.
func copyThumbnail(modDir, releaseDir string, dev bool) (string, error) {
	srcDir := filepath.Join(modDir, metadata.Dir)
	dst := filepath.Join(releaseDir, metadata.Dir, thumbnailName)

	candidates := []string{thumbnailName}
	if !dev {
		candidates = []string{thumbnailRelease, thumbnailName}
	}
	for _, name := range candidates {
		src := filepath.Join(srcDir, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, dst); err != nil {
			return "", err
		}
		return dst, nil
	}
	return "", nil
}

// removeAll deletes a tree, clearing read-only bits first so trees the game
// launcher marked read-only still go away.
func removeAll(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return os.Chmod(path, 0755)
	})
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

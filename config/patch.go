package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Patch rewrites a single "key = value" assignment in a TOML config file
// while preserving every other line, comments and spacing included. If the
// key is not present it is appended. Used to persist values the tooling
// discovers at runtime, such as a freshly created workshop item id.
func Patch(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	pat := regexp.MustCompile(`^(\s*` + regexp.QuoteMeta(key) + `\s*=\s*)([^#]*?)(\s*)(#.*)?$`)

	updated := false
	for i, line := range lines {
		m := pat.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		prefix, gap, comment := m[1], m[3], m[4]
		if comment != "" && gap == "" {
			gap = " "
		} else if comment == "" {
			gap = ""
		}
		lines[i] = strings.TrimRight(prefix+value+gap+comment, " \t")
		updated = true
		break
	}

	if !updated {
		lines = append(lines, key+" = "+value)
	}

	out := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

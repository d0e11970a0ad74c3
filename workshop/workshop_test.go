package workshop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conner-olsen/eu5-mod-devkit/lockfile"
	"github.com/conner-olsen/eu5-mod-devkit/metadata"
	"github.com/conner-olsen/eu5-mod-devkit/translate"
)

type fakeProvider struct {
	id    string
	calls int
	fn    func(text, src, dst string) (string, error)
}

func (p *fakeProvider) ID() string {
	if p.id != "" {
		return p.id
	}
	return "fake"
}

func (p *fakeProvider) Translate(_ context.Context, text, src, dst string) (string, error) {
	p.calls++
	if p.fn != nil {
		return p.fn(text, src, dst)
	}
	return "<" + dst + ">" + text, nil
}

func newMod(t *testing.T, description string) string {
	t.Helper()
	modDir := t.TempDir()

	meta := &metadata.Metadata{Name: "My Mod Dev", ID: "my_mod.dev"}
	if err := meta.WriteFile(metadata.Path(modDir)); err != nil {
		t.Fatal(err)
	}
	if err := writeText(filepath.Join(assetsPath(modDir), DescriptionFile), description); err != nil {
		t.Fatal(err)
	}
	return modDir
}

func newGenerator(t *testing.T, modDir string, p translate.Provider, langs ...string) *Generator {
	t.Helper()
	lock, err := lockfile.Load(modDir)
	if err != nil {
		t.Fatal(err)
	}
	return NewGenerator(p, lock, Options{
		SourceLang:  "english",
		TargetLangs: langs,
	})
}

func readFile(t *testing.T, modDir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(translationsPath(modDir), name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestGenerator_Run(t *testing.T) {
	modDir := newMod(t, "[b]Great[/b] mod")
	p := &fakeProvider{}
	g := newGenerator(t, modDir, p, "french")

	s, err := g.Run(context.Background(), modDir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Titles != 1 || s.Descriptions != 1 {
		t.Errorf("summary = %v", s)
	}

	if got := readFile(t, modDir, "title_french.txt"); got != "<french>My Mod" {
		t.Errorf("title = %q", got)
	}
	// BBCode survives the round trip untouched.
	if got := readFile(t, modDir, "description_french.txt"); !strings.Contains(got, "[b]") || !strings.Contains(got, "[/b]") {
		t.Errorf("description = %q", got)
	}
}

func TestGenerator_SecondRunNoCalls(t *testing.T) {
	modDir := newMod(t, "A mod")
	p := &fakeProvider{}
	g := newGenerator(t, modDir, p, "french", "german")
	if _, err := g.Run(context.Background(), modDir); err != nil {
		t.Fatal(err)
	}
	before := p.calls

	g2 := newGenerator(t, modDir, p, "french", "german")
	s, err := g2.Run(context.Background(), modDir)
	if err != nil {
		t.Fatal(err)
	}
	if p.calls != before {
		t.Errorf("second run made %d calls", p.calls-before)
	}
	if s.Unchanged != 2 {
		t.Errorf("summary = %v", s)
	}
}

func TestGenerator_TitleNeverRegenerated(t *testing.T) {
	modDir := newMod(t, "A mod")
	p := &fakeProvider{}
	g := newGenerator(t, modDir, p, "french")
	if _, err := g.Run(context.Background(), modDir); err != nil {
		t.Fatal(err)
	}

	// A different provider re-triggers the description, never the title.
	p2 := &fakeProvider{id: "other"}
	g2 := newGenerator(t, modDir, p2, "french")
	s, err := g2.Run(context.Background(), modDir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Titles != 0 {
		t.Error("title regenerated on provider change")
	}
	if s.Descriptions != 1 {
		t.Errorf("summary = %v", s)
	}
	if got := readFile(t, modDir, "title_french.txt"); got != "<french>My Mod" {
		t.Errorf("title = %q", got)
	}

	// Deleting the title file is the only re-trigger.
	os.Remove(filepath.Join(translationsPath(modDir), "title_french.txt"))
	g3 := newGenerator(t, modDir, p2, "french")
	s, err = g3.Run(context.Background(), modDir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Titles != 1 {
		t.Errorf("summary = %v", s)
	}
}

func TestGenerator_DescriptionFollowsSourceEdit(t *testing.T) {
	modDir := newMod(t, "A mod")
	p := &fakeProvider{}
	g := newGenerator(t, modDir, p, "french")
	if _, err := g.Run(context.Background(), modDir); err != nil {
		t.Fatal(err)
	}

	if err := writeText(filepath.Join(assetsPath(modDir), DescriptionFile), "A better mod"); err != nil {
		t.Fatal(err)
	}
	g2 := newGenerator(t, modDir, p, "french")
	s, err := g2.Run(context.Background(), modDir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Descriptions != 1 {
		t.Errorf("summary = %v", s)
	}
	if got := readFile(t, modDir, "description_french.txt"); got != "<french>A better mod" {
		t.Errorf("description = %q", got)
	}
}

func TestGenerator_AuthAborts(t *testing.T) {
	modDir := newMod(t, "A mod")
	p := &fakeProvider{fn: func(string, string, string) (string, error) {
		return "", &translate.ProviderError{Provider: "fake", Status: 401, Err: translate.ErrAuth}
	}}
	g := newGenerator(t, modDir, p, "french", "german")

	if _, err := g.Run(context.Background(), modDir); err == nil {
		t.Fatal("expected abort on auth failure")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestGenerator_AuthAbortKeepsRecordedState(t *testing.T) {
	modDir := newMod(t, "A mod")
	p := &fakeProvider{fn: func(text, _, dst string) (string, error) {
		if dst == "german" {
			return "", &translate.ProviderError{Provider: "fake", Status: 401, Err: translate.ErrAuth}
		}
		return "<" + dst + ">" + text, nil
	}}
	g := newGenerator(t, modDir, p, "french", "german")

	if _, err := g.Run(context.Background(), modDir); err == nil {
		t.Fatal("expected abort on auth failure")
	}

	// French was fully written before the abort; its state must survive
	// on disk so the next run does not pay for it again.
	lock, err := lockfile.Load(modDir)
	if err != nil {
		t.Fatal(err)
	}
	state, ok := lock.WorkshopFor("french")
	if !ok {
		t.Fatal("french workshop state not persisted")
	}
	if state.Provider != "fake" || state.Description == "" {
		t.Errorf("french state = %+v", state)
	}

	p2 := &fakeProvider{}
	g2 := newGenerator(t, modDir, p2, "french", "german")
	if _, err := g2.Run(context.Background(), modDir); err != nil {
		t.Fatal(err)
	}
	// Only german's title and description remain to translate.
	if p2.calls != 2 {
		t.Errorf("calls = %d, want 2", p2.calls)
	}
}

func TestGenerator_FailureContained(t *testing.T) {
	modDir := newMod(t, "A mod")
	fail := true
	p := &fakeProvider{fn: func(text, _, dst string) (string, error) {
		if fail && dst == "french" {
			return "", &translate.ProviderError{Provider: "fake", Status: 503}
		}
		return "<" + dst + ">" + text, nil
	}}
	g := newGenerator(t, modDir, p, "french", "german")

	s, err := g.Run(context.Background(), modDir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Failed == 0 {
		t.Errorf("summary = %v", s)
	}
	if got := readFile(t, modDir, "description_german.txt"); got != "<german>A mod" {
		t.Errorf("german description = %q", got)
	}

	// The failed language is retried next run.
	fail = false
	g2 := newGenerator(t, modDir, p, "french", "german")
	s, err = g2.Run(context.Background(), modDir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Descriptions != 1 || s.Failed != 0 {
		t.Errorf("retry summary = %v", s)
	}
}

func TestBuildPlan(t *testing.T) {
	modDir := newMod(t, "A mod")
	for name, content := range map[string]string{
		"title_french.txt":         "Mon Mod",
		"description_french.txt":   "Un mod",
		"description_german.txt":   "Ein Mod",
		"title_klingon.txt":        "nuqneH",
		"description_english.txt":  "ignored, source language",
		"notes.txt":                "not a page file",
		"description_braz_por.txt": "",
	} {
		if err := writeText(filepath.Join(translationsPath(modDir), name), content); err != nil {
			t.Fatal(err)
		}
	}

	plan, warnings, err := BuildPlan(modDir, "english")
	if err != nil {
		t.Fatal(err)
	}

	langs := make([]string, len(plan))
	for i, up := range plan {
		langs[i] = up.Lang
	}
	want := []string{"english", "french", "german"}
	if fmt.Sprint(langs) != fmt.Sprint(want) {
		t.Errorf("plan languages = %v, want %v", langs, want)
	}

	if plan[0].SteamLang != "english" || plan[0].Title != "My Mod" || plan[0].Description != "A mod" {
		t.Errorf("source update = %+v", plan[0])
	}
	if plan[1].Title != "Mon Mod" || plan[1].Description != "Un mod" {
		t.Errorf("french update = %+v", plan[1])
	}
	if plan[2].Title != "" || plan[2].SteamLang != "german" {
		t.Errorf("german update = %+v", plan[2])
	}

	if len(warnings) != 1 || !strings.Contains(warnings[0], "klingon") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestBuildPlan_NoTranslationsDir(t *testing.T) {
	modDir := newMod(t, "A mod")
	plan, warnings, err := BuildPlan(modDir, "english")
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 1 || plan[0].Lang != "english" {
		t.Errorf("plan = %v", plan)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestBuildPlan_MissingDescription(t *testing.T) {
	if _, _, err := BuildPlan(t.TempDir(), "english"); err == nil {
		t.Fatal("expected error without workshop-description.txt")
	}
}

func TestDryRunUploader(t *testing.T) {
	var lines []string
	u := &DryRunUploader{Log: func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}}

	plan := []Update{
		{Lang: "english", SteamLang: "english", Title: "My Mod", Description: "A mod"},
		{Lang: "german", SteamLang: "german", Description: "Ein Mod"},
	}
	if err := u.Apply(context.Background(), 42, plan); err != nil {
		t.Fatal(err)
	}

	out := strings.Join(lines, "\n")
	for _, want := range []string{"item 42", "english (english): title, description", "german (german): no-title, description", "dry run"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

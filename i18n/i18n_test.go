package i18n

import "testing"

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		t.Setenv(env, "")
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "LANGUAGE wins and takes the first list entry",
			env:  map[string]string{"LANGUAGE": "ru_RU.UTF-8:en_US", "LC_ALL": "de_DE.UTF-8"},
			want: "ru_RU",
		},
		{
			name: "C and POSIX are skipped",
			env:  map[string]string{"LANGUAGE": "C", "LC_ALL": "POSIX", "LC_MESSAGES": "fr_FR.UTF-8"},
			want: "fr_FR",
		},
		{
			name: "LANG as last resort",
			env:  map[string]string{"LANG": "pl_PL"},
			want: "pl_PL",
		},
		{
			name: "default without any locale env",
			env:  nil,
			want: "en",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearLocaleEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := detectLanguage(); got != tt.want {
				t.Errorf("detectLanguage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPassthroughWhenUninitialized(t *testing.T) {
	old := po
	po = nil
	t.Cleanup(func() { po = old })

	if got := T("Done."); got != "Done." {
		t.Errorf("T = %q", got)
	}
	if got := N("%d file", "%d files", 1); got != "%d file" {
		t.Errorf("N(1) = %q", got)
	}
	if got := N("%d file", "%d files", 3); got != "%d files" {
		t.Errorf("N(3) = %q", got)
	}
}

func TestInitLoadsEmbeddedCatalog(t *testing.T) {
	old := po
	t.Cleanup(func() { po = old })

	Init("fr")
	if got := T("Done."); got != "Terminé." {
		t.Errorf("T = %q", got)
	}
	if got := N("Translating %d file", "Translating %d files", 2); got != "Traduction de %d fichiers" {
		t.Errorf("N = %q", got)
	}

	// Unknown languages fall back to the untranslated message.
	Init("xx")
	if got := T("Done."); got != "Done." {
		t.Errorf("fallback T = %q", got)
	}
}

package tagmask

import (
	"strings"
	"testing"
)

func TestMask_AllFamilies(t *testing.T) {
	text := `Hello $PLAYER$, see [GetCountry] and @gold! or #bold text#!`
	masked, placeholders := Mask(text)

	for _, p := range []string{"$PLAYER$", "[GetCountry]", "@gold!", "#bold", "#!"} {
		if strings.Contains(masked, p) {
			t.Errorf("masked text still contains %q: %s", p, masked)
		}
	}
	if len(placeholders) != 5 {
		t.Fatalf("placeholders = %d, want 5: %v", len(placeholders), placeholders)
	}
	if placeholders[0] != "[GetCountry]" {
		t.Errorf("bracket family should be masked first, got %q", placeholders[0])
	}
}

func TestMaskUnmask_RoundTrip(t *testing.T) {
	texts := []string{
		`Hello $PLAYER$`,
		`[GetName] rules $COUNTRY$ with @crown!`,
		`#bold Important#! news`,
		`no tokens here`,
	}
	for _, text := range texts {
		masked, placeholders := Mask(text)
		restored := Unmask(masked, placeholders)
		if restored != text {
			t.Errorf("round trip: got %q, want %q", restored, text)
		}
	}
}

func TestUnmask_MangledSentinels(t *testing.T) {
	_, placeholders := Mask(`Hello $PLAYER$`)

	for _, mangled := range []string{
		"Bonjour [VAR_0]",
		"Bonjour [ VAR_0 ]",
		"Bonjour VAR_0",
		"Bonjour VAR_0]",
		"Bonjour [VAR_0",
	} {
		got := Unmask(mangled, placeholders)
		if got != "Bonjour $PLAYER$" {
			t.Errorf("Unmask(%q) = %q", mangled, got)
		}
	}
}

func TestUnmask_OutOfRangeIndexKept(t *testing.T) {
	got := Unmask("text [VAR_7]", []string{"$A$"})
	if got != "text [VAR_7]" {
		t.Errorf("got %q", got)
	}
}

func TestValidate_ReportsDropped(t *testing.T) {
	_, placeholders := Mask(`$A$ and [B] and @c!`)

	missing := Validate("only [VAR_1] survived", placeholders)
	if len(missing) != 2 {
		t.Fatalf("missing = %v, want 2 entries", missing)
	}

	if missing := Validate("[VAR_0] [VAR_1] [VAR_2]", placeholders); missing != nil {
		t.Errorf("expected nothing missing, got %v", missing)
	}
}

func TestCleanup(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Bonjour , monde .", "Bonjour, monde."},
		{"double  spaces   here", "double spaces here"},
		{"[[GetName]] broke", "[GetName] broke"},
		{"  trimmed  ", "trimmed"},
	}
	for _, tt := range tests {
		if got := Cleanup(tt.in); got != tt.want {
			t.Errorf("Cleanup(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOnlyPlaceholders(t *testing.T) {
	masked, _ := Mask(`[frame]`)
	if !OnlyPlaceholders(masked) {
		t.Errorf("%q should be placeholder-only", masked)
	}

	masked, _ = Mask(`$A$, $B$!`)
	if !OnlyPlaceholders(masked) {
		t.Errorf("%q should be placeholder-only", masked)
	}

	masked, _ = Mask(`Hello $PLAYER$`)
	if OnlyPlaceholders(masked) {
		t.Errorf("%q should not be placeholder-only", masked)
	}

	if !OnlyPlaceholders("   ") {
		t.Error("whitespace should be placeholder-only")
	}
}

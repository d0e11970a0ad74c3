package langtab

import "testing"

func TestLookup(t *testing.T) {
	l, ok := Lookup("braz_por")
	if !ok {
		t.Fatal("braz_por not found")
	}
	if l.DeepL != "PT-BR" {
		t.Errorf("DeepL = %q, want PT-BR", l.DeepL)
	}
	if l.Steam != "brazilian" {
		t.Errorf("Steam = %q, want brazilian", l.Steam)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup("klingon"); ok {
		t.Error("expected klingon to be unknown")
	}
}

func TestFileID(t *testing.T) {
	if got := FileID("simp_chinese"); got != "l_simp_chinese" {
		t.Errorf("FileID = %q", got)
	}
}

func TestFoldersSorted(t *testing.T) {
	folders := Folders()
	if len(folders) != len(Registry) {
		t.Fatalf("got %d folders, want %d", len(folders), len(Registry))
	}
	for i := 1; i < len(folders); i++ {
		if folders[i-1] >= folders[i] {
			t.Errorf("folders not sorted: %q >= %q", folders[i-1], folders[i])
		}
	}
}

func TestTargetsExcludesSource(t *testing.T) {
	targets := Targets("english")
	if len(targets) != len(Registry)-1 {
		t.Fatalf("got %d targets, want %d", len(targets), len(Registry)-1)
	}
	for _, f := range targets {
		if f == "english" {
			t.Error("targets include the source language")
		}
	}
}

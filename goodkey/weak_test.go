package goodkey

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKnown(t *testing.T) {
	wk := &weakKeys{suffixes: make(map[[10]byte]struct{})}
	if err := wk.addSuffix("200352313bc059445190"); err != nil {
		t.Fatalf("addSuffix: %v", err)
	}
	if !wk.Known([]byte("asd")) {
		t.Error("expected Known to find a suffix that has been added")
	}
	if wk.Known([]byte("ASD")) {
		t.Error("expected Known not to find a suffix that has not been added")
	}
}

func TestAddSuffixRejectsBadLength(t *testing.T) {
	wk := &weakKeys{suffixes: make(map[[10]byte]struct{})}
	if err := wk.addSuffix("abcd"); err == nil {
		t.Error("expected error for short suffix")
	}
	if err := wk.addSuffix("not-hex-not-hex-not-"); err == nil {
		t.Error("expected error for non-hex suffix")
	}
}

func TestLoadSuffixes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a"), []byte("# asd\n200352313bc059445190"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b"), []byte("# asd\ndc47cdf6b45d89e8b2a0"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	wk, err := loadSuffixes(dir)
	if err != nil {
		t.Fatalf("loadSuffixes: %v", err)
	}
	if !wk.Known([]byte("asd")) {
		t.Error("expected Known to find a suffix loaded from file a")
	}
	if !wk.Known([]byte("dsa")) {
		t.Error("expected Known to find a suffix loaded from file b")
	}
}

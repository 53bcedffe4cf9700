package challenge_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/voicepay/voicegate/pkg/challenge"
)

func TestNewDropsBlanksAndDuplicates(t *testing.T) {
	c, err := challenge.New([]string{"a", "", "  ", "b", "a", "b"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestNewEmpty(t *testing.T) {
	if _, err := challenge.New([]string{"", "   "}); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}

func TestDrawDistinct(t *testing.T) {
	c := challenge.Default()
	for range 50 {
		got, err := c.Draw(3)
		if err != nil {
			t.Fatalf("Draw: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("Draw returned %d prompts, want 3", len(got))
		}
		seen := map[string]bool{}
		for _, p := range got {
			if seen[p] {
				t.Fatalf("duplicate prompt in draw: %q", p)
			}
			seen[p] = true
		}
	}
}

func TestDrawTooMany(t *testing.T) {
	c, err := challenge.New([]string{"only one"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Draw(3); !errors.Is(err, challenge.ErrCatalogTooSmall) {
		t.Fatalf("Draw = %v, want ErrCatalogTooSmall", err)
	}
}

func TestDrawCoversCatalog(t *testing.T) {
	// Over many draws every prompt should appear at least once.
	c := challenge.Default()
	seen := map[string]int{}
	for range 500 {
		got, err := c.Draw(3)
		if err != nil {
			t.Fatalf("Draw: %v", err)
		}
		for _, p := range got {
			seen[p]++
		}
	}
	if len(seen) != c.Len() {
		t.Fatalf("draws covered %d prompts, catalog has %d", len(seen), c.Len())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.txt")
	if err := os.WriteFile(path, []byte("first line\n\nsecond line\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := challenge.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

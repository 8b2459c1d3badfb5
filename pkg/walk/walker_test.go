package walk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sdejongh/diffnorris/pkg/compare"
	"github.com/sdejongh/diffnorris/pkg/filter"
	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/storage"
)

// TestHelper provides utilities for walker tests
type TestHelper struct {
	t       *testing.T
	tempDir string
	sides   []storage.Backend
}

// NewTestHelper creates a helper with two side directories
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "diffnorris-walk-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	sides := make([]storage.Backend, 2)
	for i, name := range []string{"a", "b"} {
		sideDir := filepath.Join(tempDir, name)
		if err := os.MkdirAll(sideDir, 0755); err != nil {
			t.Fatalf("failed to create side dir: %v", err)
		}
		side, err := storage.NewLocal(sideDir)
		if err != nil {
			t.Fatalf("failed to create backend: %v", err)
		}
		sides[i] = side
	}

	return &TestHelper{t: t, tempDir: tempDir, sides: sides}
}

// Cleanup removes all temporary files
func (h *TestHelper) Cleanup() {
	os.RemoveAll(h.tempDir)
}

// CreateFile creates a file on one side
func (h *TestHelper) CreateFile(side int, name string, content []byte) {
	h.t.Helper()
	path := filepath.Join(h.tempDir, []string{"a", "b"}[side], name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		h.t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		h.t.Fatalf("failed to create file: %v", err)
	}
}

// CreateDir creates a directory on one side
func (h *TestHelper) CreateDir(side int, name string) {
	h.t.Helper()
	path := filepath.Join(h.tempDir, []string{"a", "b"}[side], name)
	if err := os.MkdirAll(path, 0755); err != nil {
		h.t.Fatalf("failed to create dir: %v", err)
	}
}

// Walker builds a walker over the helper's sides
func (h *TestHelper) Walker(policy compare.Policy, rules []filter.Rule) *Walker {
	h.t.Helper()
	set, err := filter.NewSet(rules)
	if err != nil {
		h.t.Fatalf("failed to build filter set: %v", err)
	}
	w, err := NewWalker(h.sides, policy, set)
	if err != nil {
		h.t.Fatalf("failed to create walker: %v", err)
	}
	return w
}

func bothPresent() []bool {
	return []bool{true, true}
}

func TestNewWalker(t *testing.T) {
	h := NewTestHelper(t)
	defer h.Cleanup()

	t.Run("TwoSides", func(t *testing.T) {
		w, err := NewWalker(h.sides, compare.Default(), nil)
		if err != nil {
			t.Fatalf("NewWalker() error = %v", err)
		}
		if w.Sides() != 2 {
			t.Errorf("Sides() = %d, want 2", w.Sides())
		}
	})

	t.Run("TooFewSides", func(t *testing.T) {
		if _, err := NewWalker(h.sides[:1], compare.Default(), nil); err == nil {
			t.Error("NewWalker() should reject a single side")
		}
	})

	t.Run("TooManySides", func(t *testing.T) {
		four := []storage.Backend{h.sides[0], h.sides[1], h.sides[0], h.sides[1]}
		if _, err := NewWalker(four, compare.Default(), nil); err == nil {
			t.Error("NewWalker() should reject four sides")
		}
	})
}

func TestChildrenUnion(t *testing.T) {
	h := NewTestHelper(t)
	defer h.Cleanup()

	h.CreateFile(0, "both.txt", []byte("x"))
	h.CreateFile(1, "both.txt", []byte("x"))
	h.CreateFile(0, "only_a.txt", []byte("x"))
	h.CreateFile(1, "only_b.txt", []byte("x"))
	h.CreateDir(0, "shared_dir")
	h.CreateDir(1, "shared_dir")

	w := h.Walker(compare.Default(), nil)
	tuples, dirErrs, err := w.Children(context.Background(), "", bothPresent())
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(dirErrs) != 0 {
		t.Fatalf("Children() dirErrs = %v, want none", dirErrs)
	}

	want := []string{"both.txt", "only_a.txt", "only_b.txt", "shared_dir"}
	if len(tuples) != len(want) {
		t.Fatalf("got %d tuples, want %d", len(tuples), len(want))
	}
	for i, name := range want {
		if tuples[i].Name != name {
			t.Errorf("tuple[%d].Name = %s, want %s (sorted union)", i, tuples[i].Name, name)
		}
	}

	t.Run("MissingSidePlaceholder", func(t *testing.T) {
		onlyA := tuples[1]
		if !onlyA.Entries[0].Exists() {
			t.Error("only_a.txt should exist on side 0")
		}
		if onlyA.Entries[1].Exists() {
			t.Error("only_a.txt should be missing on side 1")
		}
		if onlyA.Entries[1].Kind != models.KindMissing {
			t.Errorf("Kind = %s, want %s", onlyA.Entries[1].Kind, models.KindMissing)
		}
	})

	t.Run("DirectoryKind", func(t *testing.T) {
		shared := tuples[3]
		if !shared.Entries[0].IsDir() || !shared.Entries[1].IsDir() {
			t.Error("shared_dir should be a directory on both sides")
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		again, _, err := w.Children(context.Background(), "", bothPresent())
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}
		for i := range again {
			if again[i].Name != tuples[i].Name {
				t.Errorf("second pass tuple[%d] = %s, want %s", i, again[i].Name, tuples[i].Name)
			}
		}
	})
}

func TestChildrenFiltered(t *testing.T) {
	h := NewTestHelper(t)
	defer h.Cleanup()

	h.CreateFile(0, "keep.txt", []byte("x"))
	h.CreateFile(1, "keep.txt", []byte("x"))
	h.CreateFile(0, "notes.txt~", []byte("x"))
	h.CreateDir(1, "build")
	h.CreateFile(1, "build/out.o", []byte("x"))

	rules := []filter.Rule{filter.FilenameRule("Backups", "*~ build")}
	w := h.Walker(compare.Default(), rules)

	tuples, _, err := w.Children(context.Background(), "", bothPresent())
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}

	byName := make(map[string]Tuple, len(tuples))
	for _, tuple := range tuples {
		byName[tuple.Name] = tuple
	}

	if byName["keep.txt"].Filtered {
		t.Error("keep.txt should not be filtered")
	}
	if !byName["notes.txt~"].Filtered {
		t.Error("notes.txt~ should be filtered")
	}
	if !byName["build"].Filtered {
		t.Error("build directory should be filtered, not descended")
	}
}

func TestChildrenIgnoreCase(t *testing.T) {
	h := NewTestHelper(t)
	defer h.Cleanup()

	h.CreateFile(0, "README.md", []byte("x"))
	h.CreateFile(1, "readme.md", []byte("x"))

	t.Run("CaseSensitive", func(t *testing.T) {
		w := h.Walker(compare.Default(), nil)
		tuples, _, err := w.Children(context.Background(), "", bothPresent())
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}
		if len(tuples) != 2 {
			t.Errorf("got %d tuples, want 2 distinct names", len(tuples))
		}
	})

	t.Run("CaseFolded", func(t *testing.T) {
		w := h.Walker(compare.Policy{IgnoreCase: true}, nil)
		tuples, _, err := w.Children(context.Background(), "", bothPresent())
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}
		if len(tuples) != 1 {
			t.Fatalf("got %d tuples, want 1 merged name", len(tuples))
		}
		tuple := tuples[0]
		if !tuple.Entries[0].Exists() || !tuple.Entries[1].Exists() {
			t.Error("merged tuple should pair both spellings")
		}
		if tuple.Entries[0].Name != "README.md" || tuple.Entries[1].Name != "readme.md" {
			t.Errorf("per-side names = %s/%s, want README.md/readme.md",
				tuple.Entries[0].Name, tuple.Entries[1].Name)
		}
	})

	t.Run("ShadowedCollision", func(t *testing.T) {
		// Two spellings on the same side cannot both occupy the folded slot
		h.CreateFile(0, "readme.md", []byte("x"))

		w := h.Walker(compare.Policy{IgnoreCase: true}, nil)
		_, dirErrs, err := w.Children(context.Background(), "", bothPresent())
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}
		if len(dirErrs) == 0 {
			t.Error("shadowed name should surface as a localized error")
		}
	})
}

func TestChildrenSymlinks(t *testing.T) {
	h := NewTestHelper(t)
	defer h.Cleanup()

	h.CreateFile(0, "target.txt", []byte("content"))
	h.CreateFile(1, "target.txt", []byte("content"))
	if err := os.Symlink(
		filepath.Join(h.tempDir, "a", "target.txt"),
		filepath.Join(h.tempDir, "a", "link.txt"),
	); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	h.CreateFile(1, "link.txt", []byte("content"))

	t.Run("Followed", func(t *testing.T) {
		w := h.Walker(compare.Default(), nil)
		tuples, _, err := w.Children(context.Background(), "", bothPresent())
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}

		for _, tuple := range tuples {
			if tuple.Name != "link.txt" {
				continue
			}
			if tuple.Filtered {
				t.Error("followed link should not be filtered")
			}
			if tuple.Entries[0].Kind != models.KindFile {
				t.Errorf("resolved link kind = %s, want %s", tuple.Entries[0].Kind, models.KindFile)
			}
			if tuple.Entries[0].Size != int64(len("content")) {
				t.Errorf("resolved link size = %d, want target size", tuple.Entries[0].Size)
			}
		}
	})

	t.Run("Ignored", func(t *testing.T) {
		w := h.Walker(compare.Policy{IgnoreSymlinks: true}, nil)
		tuples, _, err := w.Children(context.Background(), "", bothPresent())
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}

		for _, tuple := range tuples {
			switch tuple.Name {
			case "link.txt":
				if !tuple.Filtered {
					t.Error("tuple touching a symlink should be filtered in ignore mode")
				}
			case "target.txt":
				if tuple.Filtered {
					t.Error("plain file should not be filtered in ignore mode")
				}
			}
		}
	})

	t.Run("Dangling", func(t *testing.T) {
		if err := os.Symlink(
			filepath.Join(h.tempDir, "a", "missing-target"),
			filepath.Join(h.tempDir, "a", "dangling.txt"),
		); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}

		w := h.Walker(compare.Default(), nil)
		tuples, _, err := w.Children(context.Background(), "", bothPresent())
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}

		for _, tuple := range tuples {
			if tuple.Name != "dangling.txt" {
				continue
			}
			if tuple.Entries[0].Err == nil {
				t.Error("dangling link should carry an entry error")
			}
			if tuple.Entries[0].Kind != models.KindSymlink {
				t.Errorf("dangling link kind = %s, want %s", tuple.Entries[0].Kind, models.KindSymlink)
			}
		}
	})
}

func TestChildrenFollowSharedTarget(t *testing.T) {
	h := NewTestHelper(t)
	defer h.Cleanup()

	shared := filepath.Join(h.tempDir, "shared")
	if err := os.MkdirAll(shared, 0755); err != nil {
		t.Fatalf("failed to create shared dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(shared, "inner.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	for _, side := range []string{"a", "b"} {
		if err := os.Symlink(shared, filepath.Join(h.tempDir, side, "link")); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
	}

	w := h.Walker(compare.Default(), nil)
	tuples, dirErrs, err := w.Children(context.Background(), "", bothPresent())
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(dirErrs) != 0 {
		t.Fatalf("dirErrs = %v, want none", dirErrs)
	}
	if len(tuples) != 1 {
		t.Fatalf("got %d tuples, want 1", len(tuples))
	}

	// Links on different sides pointing at the same directory must both
	// resolve, or two identical trees would compare as changed
	for i := 0; i < 2; i++ {
		if got := tuples[0].Entries[i].Kind; got != models.KindDir {
			t.Errorf("side %d kind = %s, want %s", i, got, models.KindDir)
		}
	}

	t.Run("Descend", func(t *testing.T) {
		inner, _, err := w.Children(context.Background(), "link", bothPresent())
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}
		if len(inner) != 1 || inner[0].Name != "inner.txt" {
			t.Fatalf("inner tuples = %v, want inner.txt", inner)
		}
		if !inner[0].Entries[0].Exists() || !inner[0].Entries[1].Exists() {
			t.Error("shared target contents should be paired on both sides")
		}
	})
}

func TestChildrenSymlinkLoop(t *testing.T) {
	h := NewTestHelper(t)
	defer h.Cleanup()

	h.CreateDir(0, "d")
	h.CreateDir(1, "d")
	if err := os.Symlink(
		filepath.Join(h.tempDir, "a"),
		filepath.Join(h.tempDir, "a", "d", "back"),
	); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	w := h.Walker(compare.Default(), nil)

	// The first encounter dereferences the link
	tuples, _, err := w.Children(context.Background(), "d", bothPresent())
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(tuples) != 1 || tuples[0].Name != "back" {
		t.Fatalf("tuples = %v, want back", tuples)
	}
	if got := tuples[0].Entries[0].Kind; got != models.KindDir {
		t.Fatalf("first encounter kind = %s, want %s", got, models.KindDir)
	}

	// The same link reached again through its own cycle stays a symlink
	again, _, err := w.Children(context.Background(), filepath.Join("d", "back", "d"), []bool{true, false})
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(again) != 1 || again[0].Name != "back" {
		t.Fatalf("tuples = %v, want back", again)
	}
	if got := again[0].Entries[0].Kind; got != models.KindSymlink {
		t.Errorf("revisited link kind = %s, want %s", got, models.KindSymlink)
	}
}

func TestChildrenNormalizeEncoding(t *testing.T) {
	h := NewTestHelper(t)
	defer h.Cleanup()

	composed := "caf\u00e9.txt"
	decomposed := "cafe\u0301.txt"
	h.CreateFile(0, composed, []byte("x"))
	h.CreateFile(1, decomposed, []byte("x"))

	t.Run("RawBytes", func(t *testing.T) {
		w := h.Walker(compare.Default(), nil)
		tuples, _, err := w.Children(context.Background(), "", bothPresent())
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}
		if len(tuples) != 2 {
			t.Errorf("got %d tuples, want 2 distinct spellings", len(tuples))
		}
	})

	t.Run("Normalized", func(t *testing.T) {
		w := h.Walker(compare.Policy{NormalizeEncoding: true}, nil)
		tuples, _, err := w.Children(context.Background(), "", bothPresent())
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}
		if len(tuples) != 1 {
			t.Fatalf("got %d tuples, want 1 merged name", len(tuples))
		}
		tuple := tuples[0]
		if !tuple.Entries[0].Exists() || !tuple.Entries[1].Exists() {
			t.Error("merged tuple should pair both spellings")
		}
		if tuple.Entries[0].Name != composed || tuple.Entries[1].Name != decomposed {
			t.Errorf("per-side names = %q/%q, want %q/%q",
				tuple.Entries[0].Name, tuple.Entries[1].Name, composed, decomposed)
		}
	})

	t.Run("ShadowedCollision", func(t *testing.T) {
		// Both spellings on the same side cannot share the merged slot
		h.CreateFile(0, decomposed, []byte("x"))

		w := h.Walker(compare.Policy{NormalizeEncoding: true}, nil)
		_, dirErrs, err := w.Children(context.Background(), "", bothPresent())
		if err != nil {
			t.Fatalf("Children() error = %v", err)
		}
		if len(dirErrs) == 0 {
			t.Error("shadowed spelling should surface as a localized error")
		}
	})
}

func TestChildrenUnreadableSide(t *testing.T) {
	h := NewTestHelper(t)
	defer h.Cleanup()

	h.CreateFile(0, "sub/x.txt", []byte("x"))

	w := h.Walker(compare.Default(), nil)

	// Side 1 has no "sub" directory: present=false there, so it is never
	// listed and its children come back as missing placeholders
	tuples, dirErrs, err := w.Children(context.Background(), "sub", []bool{true, false})
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(dirErrs) != 0 {
		t.Errorf("dirErrs = %v, want none", dirErrs)
	}
	if len(tuples) != 1 {
		t.Fatalf("got %d tuples, want 1", len(tuples))
	}
	if tuples[0].Entries[1].Exists() {
		t.Error("absent side should yield a missing placeholder")
	}
}

func TestChildrenCancellation(t *testing.T) {
	h := NewTestHelper(t)
	defer h.Cleanup()

	h.CreateFile(0, "x.txt", []byte("x"))

	w := h.Walker(compare.Default(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := w.Children(ctx, "", bothPresent()); err == nil {
		t.Error("Children() should fail on a cancelled context")
	}
}

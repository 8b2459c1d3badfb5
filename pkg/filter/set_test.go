package filter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sdejongh/diffnorris/pkg/models"
)

func TestNewSet(t *testing.T) {
	t.Run("ValidRules", func(t *testing.T) {
		set, err := NewSet([]Rule{
			FilenameRule("Backups", "#*# .#* ~* *~ *.{orig,bak,swp}"),
			TextRule("Trailing Whitespace", `[ \t\r\f\v]*$`),
		})
		if err != nil {
			t.Fatalf("NewSet() error = %v", err)
		}
		if !set.HasFilenameFilters() {
			t.Error("HasFilenameFilters() should be true")
		}
		if !set.HasTextFilters() {
			t.Error("HasTextFilters() should be true")
		}
	})

	t.Run("BadRegex", func(t *testing.T) {
		_, err := NewSet([]Rule{TextRule("broken", `(unclosed`)})
		if err == nil {
			t.Fatal("NewSet() should fail on a malformed regex")
		}
		var cfgErr *models.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("error = %T, want *models.ConfigError", err)
		}
		if cfgErr.Filter != "broken" {
			t.Errorf("ConfigError.Filter = %s, want broken", cfgErr.Filter)
		}
	})

	t.Run("BadGlob", func(t *testing.T) {
		_, err := NewSet([]Rule{FilenameRule("broken", "*.{bak")})
		if err == nil {
			t.Fatal("NewSet() should fail on a malformed glob")
		}
		var cfgErr *models.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("error = %T, want *models.ConfigError", err)
		}
	})

	t.Run("EmptyFilenamePattern", func(t *testing.T) {
		if _, err := NewSet([]Rule{FilenameRule("empty", "   ")}); err == nil {
			t.Error("NewSet() should fail on an empty filename pattern")
		}
	})

	t.Run("UnknownKind", func(t *testing.T) {
		if _, err := NewSet([]Rule{{Name: "odd", Enabled: true, Pattern: "x", Kind: "weird"}}); err == nil {
			t.Error("NewSet() should fail on an unknown rule kind")
		}
	})

	t.Run("DisabledRuleStillValidated", func(t *testing.T) {
		// Disabled rules keep their slot in the config, so a bad pattern
		// must still surface at build time rather than when re-enabled
		if _, err := NewSet([]Rule{{Name: "off", Pattern: `(bad`, Kind: KindText}}); err == nil {
			t.Error("NewSet() should validate disabled rules too")
		}
	})
}

func TestMatchesFilename(t *testing.T) {
	set, err := NewSet([]Rule{
		FilenameRule("Backups", "#*# .#* ~* *~ *.{orig,bak,swp}"),
		{Name: "Media", Enabled: false, Pattern: "*.{jpg,png}", Kind: KindFilename},
	})
	if err != nil {
		t.Fatalf("NewSet() error = %v", err)
	}

	tests := []struct {
		name    string
		matches bool
	}{
		{"notes.txt~", true},
		{"#scratch#", true},
		{".#lockfile", true},
		{"~backup", true},
		{"report.bak", true},
		{"report.orig", true},
		{"report.swp", true},
		{"report.txt", false},
		{"bak", false},
		{"photo.jpg", false}, // rule disabled
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.MatchesFilename(tt.name); got != tt.matches {
				t.Errorf("MatchesFilename(%q) = %t, want %t", tt.name, got, tt.matches)
			}
		})
	}
}

func TestExcludedWithIgnoreList(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "diffnorris-filter-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	ignorePath := filepath.Join(tempDir, ".diffignore")
	content := "# build output\nbuild/\n*.log\n\n"
	if err := os.WriteFile(ignorePath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write ignore file: %v", err)
	}

	ignores, err := LoadIgnoreFile(ignorePath)
	if err != nil {
		t.Fatalf("LoadIgnoreFile() error = %v", err)
	}

	base, err := NewSet([]Rule{FilenameRule("Backups", "*~")})
	if err != nil {
		t.Fatalf("NewSet() error = %v", err)
	}
	set := base.WithIgnoreList(ignores)

	tests := []struct {
		relPath  string
		name     string
		excluded bool
	}{
		{"build/out.o", "out.o", true},
		{"server.log", "server.log", true},
		{"sub/server.log", "server.log", true},
		{"notes.txt~", "notes.txt~", true}, // filename rule still applies
		{"src/main.go", "main.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.relPath, func(t *testing.T) {
			if got := set.Excluded(tt.relPath, tt.name); got != tt.excluded {
				t.Errorf("Excluded(%q, %q) = %t, want %t", tt.relPath, tt.name, got, tt.excluded)
			}
		})
	}

	t.Run("ReceiverUnchanged", func(t *testing.T) {
		if base.Excluded("server.log", "server.log") {
			t.Error("WithIgnoreList() must not mutate the original set")
		}
	})
}

func TestLoadIgnoreFileMissing(t *testing.T) {
	if _, err := LoadIgnoreFile("/nonexistent/.diffignore"); err == nil {
		t.Error("LoadIgnoreFile() should fail on a missing file")
	}
}

func TestApplyTextFilters(t *testing.T) {
	t.Run("TrailingWhitespace", func(t *testing.T) {
		set, err := NewSet([]Rule{TextRule("Trailing Whitespace", `[ \t\r\f\v]*$`)})
		if err != nil {
			t.Fatalf("NewSet() error = %v", err)
		}

		got := set.ApplyTextFilters([]byte("hello   \nworld\t\n"))
		want := "hello\nworld\n"
		if string(got) != want {
			t.Errorf("ApplyTextFilters() = %q, want %q", got, want)
		}
	})

	t.Run("ScriptComment", func(t *testing.T) {
		set, err := NewSet([]Rule{TextRule("Script Comment", `#.*`)})
		if err != nil {
			t.Fatalf("NewSet() error = %v", err)
		}

		got := set.ApplyTextFilters([]byte("code # trailing comment\n# full line\nmore"))
		want := "code \n\nmore"
		if string(got) != want {
			t.Errorf("ApplyTextFilters() = %q, want %q", got, want)
		}
	})

	t.Run("CumulativeOrder", func(t *testing.T) {
		set, err := NewSet([]Rule{
			TextRule("Script Comment", `#.*`),
			TextRule("Trailing Whitespace", `[ \t\r\f\v]*$`),
		})
		if err != nil {
			t.Fatalf("NewSet() error = %v", err)
		}

		// Comment removal leaves trailing space, the second rule eats it
		got := set.ApplyTextFilters([]byte("code # comment"))
		if string(got) != "code" {
			t.Errorf("ApplyTextFilters() = %q, want %q", got, "code")
		}
	})

	t.Run("DisabledRuleSkipped", func(t *testing.T) {
		set, err := NewSet([]Rule{{Name: "off", Pattern: `#.*`, Kind: KindText}})
		if err != nil {
			t.Fatalf("NewSet() error = %v", err)
		}

		input := []byte("# keep me")
		if got := set.ApplyTextFilters(input); string(got) != string(input) {
			t.Errorf("disabled rule modified content: %q", got)
		}
		if set.HasTextFilters() {
			t.Error("HasTextFilters() should be false with only disabled rules")
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		set, err := NewSet([]Rule{TextRule("C++ Comment", `//.*`)})
		if err != nil {
			t.Fatalf("NewSet() error = %v", err)
		}

		once := set.ApplyTextFilters([]byte("x // note\ny"))
		twice := set.ApplyTextFilters(once)
		if string(once) != string(twice) {
			t.Errorf("second application changed content: %q vs %q", once, twice)
		}
	})
}

func TestEmptySet(t *testing.T) {
	set := Empty()
	if set.HasFilenameFilters() || set.HasTextFilters() {
		t.Error("empty set should have no filters")
	}
	if set.Excluded("a/b.txt", "b.txt") {
		t.Error("empty set should exclude nothing")
	}
	input := []byte("unchanged")
	if got := set.ApplyTextFilters(input); string(got) != string(input) {
		t.Errorf("empty set modified content: %q", got)
	}
}

package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/tree"
)

func sampleReport() (*models.CompareReport, *tree.View) {
	root := &models.ComparisonNode{
		Name: ".", RelativePath: ".", Status: models.StatusChanged,
		Entries: []models.Entry{{Kind: models.KindDir}, {Kind: models.KindDir}},
		Children: []*models.ComparisonNode{
			{
				Name: "same.txt", RelativePath: "same.txt", Status: models.StatusSame,
				Entries: []models.Entry{
					{Name: "same.txt", Kind: models.KindFile, Size: 4, ModTime: time.Now()},
					{Name: "same.txt", Kind: models.KindFile, Size: 4, ModTime: time.Now()},
				},
			},
			{
				Name: "gone.txt", RelativePath: "gone.txt", Status: models.StatusDeleted,
				Reason: "entry is missing from the reference side",
				Entries: []models.Entry{
					models.Missing("gone.txt", "gone.txt"),
					{Name: "gone.txt", Kind: models.KindFile, Size: 9, ModTime: time.Now()},
				},
			},
		},
	}

	report := &models.CompareReport{
		OperationID: "op-test",
		Roots:       []string{"/tmp/a", "/tmp/b"},
		Duration:    1500 * time.Millisecond,
		Root:        root,
		Stats:       models.Statistics{EntriesScanned: 3, DirsScanned: 1, Same: 1, Deleted: 1, BytesRead: 8, FilesRead: 2},
		Errors: []*models.CompareError{
			{RelativePath: "odd.txt", Side: 1, Err: errors.New("permission denied")},
		},
	}

	view := tree.FilterView(root, models.NewStatusSet(models.AllStatuses()...))
	return report, view
}

func TestStatusMarker(t *testing.T) {
	tests := []struct {
		status models.Status
		marker string
	}{
		{models.StatusSame, "=="},
		{models.StatusChanged, "!="},
		{models.StatusNew, "++"},
		{models.StatusDeleted, "--"},
		{models.StatusError, "!E"},
		{models.StatusEmpty, "()"},
		{models.StatusFiltered, ".."},
		{models.StatusCancelled, "?C"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := statusMarker(tt.status); got != tt.marker {
				t.Errorf("statusMarker(%s) = %s, want %s", tt.status, got, tt.marker)
			}
		})
	}
}

func TestHumanFormatter(t *testing.T) {
	report, view := sampleReport()

	var buf bytes.Buffer
	f := NewHumanFormatter()
	if err := f.Start(&buf, report.Roots); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.Complete(report, view); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"/tmp/a", "/tmp/b",
		"== ", "-- ",
		"same.txt", "gone.txt",
		"Summary:",
		"Deleted:          1",
		"odd.txt",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q\n%s", want, out)
		}
	}

	t.Run("Cancelled", func(t *testing.T) {
		report.Cancelled = true
		defer func() { report.Cancelled = false }()

		var cbuf bytes.Buffer
		f := NewHumanFormatter()
		f.Start(&cbuf, report.Roots)
		f.Complete(report, view)
		if !strings.Contains(cbuf.String(), "partial") {
			t.Error("cancelled run should be flagged as partial")
		}
	})
}

func TestJSONFormatter(t *testing.T) {
	report, view := sampleReport()

	var buf bytes.Buffer
	f := NewJSONFormatter()
	if err := f.Start(&buf, report.Roots); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.Complete(report, view); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	var doc JSONReport
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if doc.OperationID != "op-test" {
		t.Errorf("operation_id = %s, want op-test", doc.OperationID)
	}
	if doc.Stats.Deleted != 1 {
		t.Errorf("stats.deleted = %d, want 1", doc.Stats.Deleted)
	}
	if doc.Tree == nil || doc.Tree.Status != "changed" {
		t.Fatalf("tree root = %+v, want changed", doc.Tree)
	}
	if len(doc.Tree.Children) != 2 {
		t.Fatalf("tree children = %d, want 2", len(doc.Tree.Children))
	}

	gone := doc.Tree.Children[1]
	if gone.Status != "deleted" {
		t.Errorf("gone.txt status = %s, want deleted", gone.Status)
	}
	if gone.Entries[0].Present {
		t.Error("missing side should report present=false")
	}
	if !gone.Entries[1].Present {
		t.Error("existing side should report present=true")
	}

	if len(doc.Errors) != 1 || doc.Errors[0].Path != "odd.txt" {
		t.Errorf("errors = %+v, want odd.txt", doc.Errors)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{3 * 1024 * 1024, "3.0 MiB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatBytes(tt.n); got != tt.want {
				t.Errorf("formatBytes(%d) = %s, want %s", tt.n, got, tt.want)
			}
		})
	}
}

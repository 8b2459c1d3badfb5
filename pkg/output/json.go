package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/tree"
)

// JSONFormatter emits the full run as a single JSON document, for
// automation and scripting
type JSONFormatter struct {
	writer io.Writer
	roots  []string
}

// JSONReport is the top-level JSON document
type JSONReport struct {
	OperationID string          `json:"operation_id"`
	Roots       []string        `json:"roots"`
	Shallow     bool            `json:"shallow"`
	StartedAt   time.Time       `json:"started_at"`
	DurationMs  int64           `json:"duration_ms"`
	Cancelled   bool            `json:"cancelled,omitempty"`
	Stats       JSONStats       `json:"stats"`
	Errors      []JSONError     `json:"errors,omitempty"`
	Tree        *JSONNode       `json:"tree"`
}

// JSONStats mirrors models.Statistics
type JSONStats struct {
	EntriesScanned int   `json:"entries_scanned"`
	DirsScanned    int   `json:"dirs_scanned"`
	Same           int   `json:"same"`
	Changed        int   `json:"changed"`
	New            int   `json:"new"`
	Deleted        int   `json:"deleted"`
	Errored        int   `json:"errored"`
	Filtered       int   `json:"filtered"`
	EmptyDirs      int   `json:"empty_dirs"`
	FilesRead      int   `json:"files_read"`
	BytesRead      int64 `json:"bytes_read"`
}

// JSONError is one localized comparison error
type JSONError struct {
	Path  string `json:"path"`
	Side  int    `json:"side"`
	Error string `json:"error"`
}

// JSONNode is one node of the filtered tree
type JSONNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Status   string      `json:"status"`
	Reason   string      `json:"reason,omitempty"`
	Entries  []JSONEntry `json:"entries"`
	Children []*JSONNode `json:"children,omitempty"`
}

// JSONEntry is one side of a node
type JSONEntry struct {
	Present bool       `json:"present"`
	Kind    string     `json:"kind"`
	Size    int64      `json:"size,omitempty"`
	ModTime *time.Time `json:"mod_time,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, roots []string) error {
	f.writer = writer
	f.roots = roots
	return nil
}

// Progress is a no-op; JSON output is a single final document
func (f *JSONFormatter) Progress(event tree.Event) error {
	return nil
}

// Complete writes the report document
func (f *JSONFormatter) Complete(report *models.CompareReport, view *tree.View) error {
	if f.writer == nil {
		f.writer = io.Discard
	}

	doc := JSONReport{
		OperationID: report.OperationID,
		Roots:       report.Roots,
		Shallow:     report.Shallow,
		StartedAt:   report.StartTime,
		DurationMs:  report.Duration.Milliseconds(),
		Cancelled:   report.Cancelled,
		Stats: JSONStats{
			EntriesScanned: report.Stats.EntriesScanned,
			DirsScanned:    report.Stats.DirsScanned,
			Same:           report.Stats.Same,
			Changed:        report.Stats.Changed,
			New:            report.Stats.New,
			Deleted:        report.Stats.Deleted,
			Errored:        report.Stats.Errored,
			Filtered:       report.Stats.Filtered,
			EmptyDirs:      report.Stats.EmptyDirs,
			FilesRead:      report.Stats.FilesRead,
			BytesRead:      report.Stats.BytesRead,
		},
		Tree: buildJSONNode(view),
	}

	for _, cerr := range report.Errors {
		doc.Errors = append(doc.Errors, JSONError{
			Path:  cerr.RelativePath,
			Side:  cerr.Side,
			Error: cerr.Err.Error(),
		})
	}

	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Error reports a fatal error as a JSON object
func (f *JSONFormatter) Error(err error) error {
	if f.writer == nil {
		return nil
	}
	return json.NewEncoder(f.writer).Encode(map[string]string{"error": err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func buildJSONNode(view *tree.View) *JSONNode {
	if view == nil {
		return nil
	}

	node := view.Node
	out := &JSONNode{
		Name:   node.Name,
		Path:   node.RelativePath,
		Status: string(node.Status),
		Reason: node.Reason,
	}

	for i := range node.Entries {
		entry := &node.Entries[i]
		je := JSONEntry{
			Present: entry.Exists(),
			Kind:    string(entry.Kind),
		}
		if entry.Exists() {
			je.Size = entry.Size
			if !entry.ModTime.IsZero() {
				mt := entry.ModTime
				je.ModTime = &mt
			}
		}
		if entry.Err != nil {
			je.Error = entry.Err.Error()
		}
		out.Entries = append(out.Entries, je)
	}

	for _, child := range view.Children {
		out.Children = append(out.Children, buildJSONNode(child))
	}
	return out
}

package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/tree"
)

// HumanFormatter renders the comparison tree and summary as plain text
type HumanFormatter struct {
	writer io.Writer
	width  int
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, roots []string) error {
	f.writer = writer
	f.width = terminalWidth(writer)

	if writer != nil {
		fmt.Fprintf(writer, "Comparing %s\n\n", strings.Join(roots, "  <->  "))
	}
	return nil
}

// Progress is a no-op for the plain formatter
func (f *HumanFormatter) Progress(event tree.Event) error {
	return nil
}

// Complete renders the filtered tree followed by the run summary
func (f *HumanFormatter) Complete(report *models.CompareReport, view *tree.View) error {
	if f.writer == nil {
		f.writer = io.Discard
	}

	f.renderNode(view, 0)
	fmt.Fprintf(f.writer, "\n")

	if report.Cancelled {
		fmt.Fprintf(f.writer, "Comparison cancelled after %s; results are partial\n\n",
			report.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(f.writer, "Comparison completed in %s\n\n",
			report.Duration.Round(time.Millisecond))
	}

	fmt.Fprintf(f.writer, "Summary:\n")
	fmt.Fprintf(f.writer, "  Entries scanned:  %d (%d directories)\n",
		report.Stats.EntriesScanned, report.Stats.DirsScanned)
	fmt.Fprintf(f.writer, "  Same:             %d\n", report.Stats.Same)
	fmt.Fprintf(f.writer, "  Changed:          %d\n", report.Stats.Changed)
	fmt.Fprintf(f.writer, "  New:              %d\n", report.Stats.New)
	fmt.Fprintf(f.writer, "  Deleted:          %d\n", report.Stats.Deleted)
	fmt.Fprintf(f.writer, "  Filtered:         %d\n", report.Stats.Filtered)
	fmt.Fprintf(f.writer, "  Errors:           %d\n", report.Stats.Errored)
	if report.Stats.FilesRead > 0 {
		fmt.Fprintf(f.writer, "  Content read:     %d files, %s\n",
			report.Stats.FilesRead, formatBytes(report.Stats.BytesRead))
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(f.writer, "\nErrors:\n")
		for _, cerr := range report.Errors {
			fmt.Fprintf(f.writer, "  %v\n", cerr)
		}
	}

	return nil
}

// Error reports a fatal error
func (f *HumanFormatter) Error(err error) error {
	w := f.writer
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func (f *HumanFormatter) renderNode(view *tree.View, depth int) {
	if view == nil {
		return
	}

	node := view.Node
	line := fmt.Sprintf("%s %s%s", statusMarker(node.Status), strings.Repeat("  ", depth), node.Name)
	if node.Reason != "" && node.Status != models.StatusSame {
		line += "  (" + node.Reason + ")"
	}
	if f.width > 4 && len(line) > f.width {
		line = line[:f.width-3] + "..."
	}
	fmt.Fprintln(f.writer, line)

	for _, child := range view.Children {
		f.renderNode(child, depth+1)
	}
}

// terminalWidth returns the width of the terminal backing the writer, or
// zero when the writer is not a terminal
func terminalWidth(writer io.Writer) int {
	file, ok := writer.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// formatBytes renders a byte count in human units
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

package output

import (
	"io"

	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/tree"
)

// Formatter defines the interface for presenting a comparison run.
// Implementations include human-readable, JSON and progress formatters.
type Formatter interface {
	// Start initializes the formatter for a new comparison
	Start(writer io.Writer, roots []string) error

	// Progress reports a walk event; may be called from multiple
	// goroutines
	Progress(event tree.Event) error

	// Complete renders the filtered view and the run summary
	Complete(report *models.CompareReport, view *tree.View) error

	// Error reports a fatal error before any report exists
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// statusMarker maps a status to the two-character marker shown in front
// of each tree row
func statusMarker(status models.Status) string {
	switch status {
	case models.StatusSame:
		return "=="
	case models.StatusChanged:
		return "!="
	case models.StatusNew:
		return "++"
	case models.StatusDeleted:
		return "--"
	case models.StatusError:
		return "!E"
	case models.StatusEmpty:
		return "()"
	case models.StatusFiltered:
		return ".."
	case models.StatusCancelled:
		return "?C"
	default:
		return "??"
	}
}

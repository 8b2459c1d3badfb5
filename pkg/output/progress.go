package output

import (
	"io"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/tree"
)

// progressTemplate shows elapsed time, the entry counter and the path
// currently being scanned
const progressTemplate = `{{etime .}} | {{counters .}} entries | {{string . "path"}}`

// ProgressFormatter shows a live progress bar while the walk runs, then
// falls back to the human formatter for the final tree and summary. The
// total entry count is unknown up front, so the bar renders a counter
// rather than a percentage.
type ProgressFormatter struct {
	human *HumanFormatter

	mu  sync.Mutex
	bar *pb.ProgressBar
}

// NewProgressFormatter creates a new progress formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{human: NewHumanFormatter()}
}

// Start initializes the progress bar
func (f *ProgressFormatter) Start(writer io.Writer, roots []string) error {
	if err := f.human.Start(writer, roots); err != nil {
		return err
	}

	bar := pb.ProgressBarTemplate(progressTemplate).New(0)
	if writer != nil {
		bar.SetWriter(writer)
	}
	f.bar = bar.Start()
	return nil
}

// Progress advances the bar
func (f *ProgressFormatter) Progress(event tree.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bar == nil {
		return nil
	}

	switch event.Type {
	case "scan_dir":
		f.bar.Set("path", event.Path)
	case "entry":
		f.bar.Increment()
	}
	return nil
}

// Complete stops the bar and renders the final tree and summary
func (f *ProgressFormatter) Complete(report *models.CompareReport, view *tree.View) error {
	f.mu.Lock()
	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	f.mu.Unlock()

	return f.human.Complete(report, view)
}

// Error stops the bar and reports the error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	f.mu.Unlock()

	return f.human.Error(err)
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

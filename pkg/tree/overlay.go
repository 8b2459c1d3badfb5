package tree

import (
	"github.com/sdejongh/diffnorris/pkg/models"
)

// Overlay supplies an externally-derived status for a path, typically from
// a version-control system. The engine never runs VCS commands itself; it
// only consults the hook. Returning false means the overlay has no opinion
// about the path.
type Overlay func(relPath string) (models.Status, bool)

// applyOverlay merges an overlay verdict with the filesystem-derived
// status. The overlay takes precedence only over Same and Changed;
// New, Deleted and Error observed on disk always win over a possibly
// stale overlay.
func applyOverlay(overlay Overlay, relPath string, status models.Status) models.Status {
	if overlay == nil {
		return status
	}
	if status != models.StatusSame && status != models.StatusChanged {
		return status
	}
	if overlaid, ok := overlay(relPath); ok {
		return overlaid
	}
	return status
}

package pipeline

import (
	"time"

	"github.com/rs/zerolog"
)

// Summary describes what a run did.
type Summary struct {
	RunID    string
	Variant  string
	Examined int
	Parsed   int

	Invalid          int
	Suppressed       int
	MajorOnlySkipped int
	Duplicates       int

	Existing []string // identities that already had an open ticket
	Created  []string // keys of created tickets
	DryRun   []string // identities a ticket would have been created for
	Failed   []string // identities whose processing failed

	AttachmentFailures int
	Duration           time.Duration
}

// Processed is the number of findings that reached the per-record loop.
func (s *Summary) Processed() int {
	return len(s.Existing) + len(s.Created) + len(s.DryRun) + len(s.Failed)
}

// MarshalZerologObject lets the summary be logged with Object().
func (s *Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Str("variant", s.Variant).
		Int("examined", s.Examined).
		Int("parsed", s.Parsed).
		Int("invalid", s.Invalid).
		Int("suppressed", s.Suppressed).
		Int("major_only_skipped", s.MajorOnlySkipped).
		Int("duplicates", s.Duplicates).
		Int("existing", len(s.Existing)).
		Strs("created", s.Created).
		Int("dry_run", len(s.DryRun)).
		Strs("failed", s.Failed).
		Int("attachment_failures", s.AttachmentFailures).
		Dur("duration", s.Duration)
}

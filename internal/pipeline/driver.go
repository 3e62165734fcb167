// Package pipeline drives one run: load the report, normalise and filter its
// findings, then search for and create one tracker ticket per new finding.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcourtman/scanticket/internal/config"
	"github.com/rcourtman/scanticket/internal/dedupe"
	internalerrors "github.com/rcourtman/scanticket/internal/errors"
	"github.com/rcourtman/scanticket/internal/logging"
	"github.com/rcourtman/scanticket/internal/metrics"
	"github.com/rcourtman/scanticket/internal/models"
	"github.com/rcourtman/scanticket/internal/policy"
	"github.com/rcourtman/scanticket/internal/scanners"
	"github.com/rcourtman/scanticket/internal/ticket"
	"github.com/rcourtman/scanticket/pkg/jira"
)

// Gateway is the tracker surface the driver needs. *jira.Client satisfies it.
type Gateway interface {
	ticket.UserLookup
	SearchIssues(ctx context.Context, jql string) ([]jira.Issue, error)
	CreateIssue(ctx context.Context, fields map[string]any) (*jira.CreatedIssue, error)
	AddAttachment(ctx context.Context, issueKey, filename string, content io.Reader) error
}

// Driver runs the pipeline once. It is not safe for concurrent use.
type Driver struct {
	cfg        *config.Config
	gateway    Gateway
	resolver   *ticket.Resolver
	suppressor *policy.Suppressor
	metrics    *metrics.Recorder
	logger     zerolog.Logger
	runID      string
	readFile   func(string) ([]byte, error)

	state   State
	report  []byte
	summary *Summary
}

type Option func(*Driver)

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// WithMetrics records run counters into r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(d *Driver) { d.metrics = r }
}

// WithRunID tags the summary with an externally generated run ID.
func WithRunID(id string) Option {
	return func(d *Driver) { d.runID = id }
}

// WithReadFile replaces os.ReadFile for loading the report.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(d *Driver) { d.readFile = fn }
}

func New(cfg *config.Config, gateway Gateway, opts ...Option) *Driver {
	d := &Driver{
		cfg:        cfg,
		gateway:    gateway,
		resolver:   ticket.NewResolver(gateway),
		suppressor: policy.NewSuppressor(cfg.Suppress),
		logger:     zerolog.Nop(),
		readFile:   os.ReadFile,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.NewRecorder()
	}
	if d.runID == "" {
		d.runID = logging.NewRunID()
	}
	return d
}

// State returns the current state of the run.
func (d *Driver) State() State {
	return d.state
}

func (d *Driver) transition(next State, identity string) {
	if d.state.Terminal() {
		d.logger.Warn().Str("state", string(d.state)).Str("to", string(next)).Msg("Ignoring transition out of terminal state")
		return
	}
	event := d.logger.Debug().Str("from", string(d.state)).Str("to", string(next))
	if identity != "" {
		event = event.Str("identity", identity)
	}
	event.Msg("Pipeline state transition")
	d.state = next
}

func (d *Driver) fail(err error) error {
	d.transition(StateFailed, "")
	return err
}

// Run executes the pipeline. Configuration and parse errors abort before any
// tracker call. Per-finding tracker errors are logged and the run continues
// (unless AbortOnTrackerError is set); the run then reports a tracker error.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()
	d.summary = &Summary{RunID: d.runID}
	defer func() {
		d.summary.Duration = time.Since(started)
		d.metrics.RunDuration.Set(d.summary.Duration.Seconds())
	}()

	if d.state != StateIdle {
		return d.summary, internalerrors.New(internalerrors.KindInternal, "run_pipeline", fmt.Errorf("driver already ran (state %s)", d.state))
	}

	records, err := d.prepare()
	if err != nil {
		return d.summary, d.fail(err)
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return d.summary, d.fail(internalerrors.New(internalerrors.KindInternal, "run_pipeline", fmt.Errorf("run interrupted: %w", err)))
		}

		if err := d.processRecord(ctx, record); err != nil {
			d.summary.Failed = append(d.summary.Failed, record.Identity)
			d.metrics.RecordTicket("failed")
			d.logger.Error().Err(err).
				Str("identity", record.Identity).
				Bool("auth_error", internalerrors.IsAuthError(err)).
				Msg("Failed to process finding")

			if ctx.Err() != nil {
				return d.summary, d.fail(internalerrors.New(internalerrors.KindInternal, "run_pipeline", fmt.Errorf("run interrupted: %w", ctx.Err())))
			}
			if d.cfg.AbortOnTrackerError {
				return d.summary, d.fail(err)
			}
		}
	}

	d.transition(StateDone, "")
	if len(d.summary.Failed) > 0 {
		return d.summary, internalerrors.Tracker("process_findings",
			fmt.Errorf("%d of %d findings failed", len(d.summary.Failed), d.summary.Processed()), 0)
	}
	return d.summary, nil
}

// prepare loads, parses, filters and de-duplicates the report.
func (d *Driver) prepare() ([]models.Vulnerability, error) {
	raw, err := d.readFile(d.cfg.ReportPath)
	if err != nil {
		return nil, internalerrors.Configuration("load_report", fmt.Errorf("read scan output %s: %w", d.cfg.ReportPath, err))
	}
	d.report = raw
	d.transition(StateLoaded, "")

	result, err := scanners.Parse(d.cfg.ScanType, raw, d.cfg.ScannerOptions())
	if err != nil {
		return nil, err
	}
	d.summary.Variant = result.Variant
	d.summary.Examined = result.Examined
	d.summary.Parsed = len(result.Records)
	d.metrics.RecordParsed(result.Variant, result.Examined, len(result.Records))
	d.logger.Info().
		Str("variant", result.Variant).
		Int("examined", result.Examined).
		Int("parsed", len(result.Records)).
		Msg("Parsed scan report")
	d.transition(StateParsed, "")

	filtered := d.filter(result.Records)
	d.transition(StateFiltered, "")

	unique := dedupe.ByIdentity(filtered)
	d.summary.Duplicates = len(filtered) - len(unique)
	d.metrics.RecordDropped("duplicate", d.summary.Duplicates)
	d.logger.Info().
		Int("unique", len(unique)).
		Int("duplicates", d.summary.Duplicates).
		Msg("Deduplicated findings")
	d.transition(StateDeduplicated, "")

	return unique, nil
}

func (d *Driver) filter(records []models.Vulnerability) []models.Vulnerability {
	kept := make([]models.Vulnerability, 0, len(records))
	for _, record := range records {
		if err := record.Validate(); err != nil {
			d.summary.Invalid++
			d.logger.Warn().Err(err).Str("identity", record.Identity).Str("source", string(record.Source)).Msg("Dropping incomplete finding")
			continue
		}

		if pattern, ok := d.suppressor.Match(record.Identity); ok {
			d.summary.Suppressed++
			d.logger.Info().Str("identity", record.Identity).Str("pattern", pattern).Msg("Finding suppressed")
			continue
		}

		if d.cfg.MajorVersionOnly {
			decision := policy.EvaluateMajorOnly(record)
			if !decision.Allowed {
				d.summary.MajorOnlySkipped++
				d.logger.Info().
					Str("identity", record.Identity).
					Str("package", record.Package).
					Str("current", record.CurrentVersion).
					Str("candidate", decision.Candidate).
					Str("reason", decision.Reason).
					Msg("Skipping finding without a major version upgrade")
				continue
			}
		}

		kept = append(kept, record)
	}

	d.metrics.RecordDropped("invalid", d.summary.Invalid)
	d.metrics.RecordDropped("suppressed", d.summary.Suppressed)
	d.metrics.RecordDropped("major_only", d.summary.MajorOnlySkipped)
	return kept
}

func (d *Driver) processRecord(ctx context.Context, record models.Vulnerability) error {
	ctx, _ = logging.WithRecordID(ctx, "")
	logger := logging.FromContext(ctx, d.logger).With().Str("identity", record.Identity).Logger()

	d.transition(StateSearching, record.Identity)
	jql := ticket.SearchQuery(d.cfg.ProjectKey, record.Identity, d.cfg.SearchWindowDays, d.cfg.ExcludedStatuses)
	logger.Debug().Str("jql", jql).Msg("Searching for existing ticket")

	started := time.Now()
	issues, err := d.gateway.SearchIssues(ctx, jql)
	d.metrics.ObserveTrackerCall("search_issues", started, err)
	if err != nil {
		return withIdentity(err, internalerrors.KindTracker, "search_issues", record.Identity)
	}

	if len(issues) > 0 {
		d.transition(StateSkipping, record.Identity)
		d.summary.Existing = append(d.summary.Existing, record.Identity)
		d.metrics.RecordTicket("existing")
		logger.Info().Str("key", issues[0].Key).Str("status", issues[0].Fields.Status.Name).Msg("Active ticket already exists")
		return nil
	}

	d.transition(StateCreating, record.Identity)
	draft := ticket.Assemble(record, d.cfg.TicketSettings(), d.resolveAssignee(ctx, logger))

	if d.cfg.DryRun {
		d.summary.DryRun = append(d.summary.DryRun, record.Identity)
		d.metrics.RecordTicket("dry_run")
		logger.Info().Str("summary", draft.Summary).Msg("Dry run: would create ticket")
		if logging.IsLevelEnabled(zerolog.DebugLevel) {
			logger.Debug().Interface("fields", draft.Fields()).Msg("Dry run ticket fields")
		}
		return nil
	}

	started = time.Now()
	created, err := d.gateway.CreateIssue(ctx, draft.Fields())
	d.metrics.ObserveTrackerCall("create_issue", started, err)
	if err != nil {
		return withIdentity(err, internalerrors.KindTracker, "create_issue", record.Identity)
	}

	d.summary.Created = append(d.summary.Created, created.Key)
	d.metrics.RecordTicket("created")
	logger.Info().Str("key", created.Key).Str("summary", draft.Summary).Msg("Created ticket")

	if d.cfg.AttachReport {
		d.attachReport(ctx, logger, record.Identity, created.Key)
	}
	return nil
}

func (d *Driver) resolveAssignee(ctx context.Context, logger zerolog.Logger) string {
	resolution := d.resolver.Resolve(ctx, d.cfg.Assignee)
	if resolution.Result != ticket.Skipped {
		d.metrics.RecordLookup(resolution.Result.String())
	}

	switch resolution.Result {
	case ticket.NotFound:
		logger.Info().Str("assignee", resolution.Candidate).Msg("Assignee not found; creating ticket unassigned")
	case ticket.LookupFailed:
		logger.Warn().Err(resolution.Err).Str("assignee", resolution.Candidate).Msg("Assignee lookup failed; creating ticket unassigned")
	}
	return resolution.Assignee()
}

func (d *Driver) attachReport(ctx context.Context, logger zerolog.Logger, identity, key string) {
	d.transition(StateAttaching, identity)

	started := time.Now()
	err := d.gateway.AddAttachment(ctx, key, filepath.Base(d.cfg.ReportPath), bytes.NewReader(d.report))
	d.metrics.ObserveTrackerCall("add_attachment", started, err)
	d.metrics.RecordAttachment(err == nil)
	if err != nil {
		d.summary.AttachmentFailures++
		logger.Warn().Err(withIdentity(err, internalerrors.KindAttachment, "add_attachment", identity)).Str("key", key).Msg("Failed to attach scan report")
		return
	}
	logger.Debug().Str("key", key).Msg("Attached scan report")
}

// withIdentity tags err with the finding identity, wrapping foreign errors in kind.
func withIdentity(err error, kind internalerrors.Kind, op, identity string) error {
	var pipeErr *internalerrors.Error
	if errors.As(err, &pipeErr) {
		pipeErr.Identity = identity
		return pipeErr
	}
	return internalerrors.New(kind, op, err).WithIdentity(identity)
}

// Package cycle orchestrates one full crawl cycle: the discovery pass
// followed by the detection pass, then delivery of the aggregated change
// batch to reporting and alerting collaborators.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/bookwatch/internal/fetcher"
	"github.com/Houeta/bookwatch/internal/metrics"
	"github.com/Houeta/bookwatch/internal/models"
	"github.com/Houeta/bookwatch/internal/repository"
)

// LastCompletedStateKey records the wall-clock instant of the last finished
// cycle.
const LastCompletedStateKey = "cycle:last_completed_at"

// Discoverer is the discovery-phase contract.
type Discoverer interface {
	Discover(ctx context.Context, fetch fetcher.Fetcher) ([]models.ChangeRecord, error)
}

// Detector is the detection-phase contract.
type Detector interface {
	Detect(ctx context.Context, fetch fetcher.Fetcher) ([]models.ChangeRecord, error)
}

// Sink receives the ordered batch of change records produced by one cycle.
// Delivery failures never affect stored state.
type Sink interface {
	Deliver(ctx context.Context, changes []models.ChangeRecord) error
}

// ReportWriter persists the cycle's change batch as report files.
type ReportWriter interface {
	Write(changes []models.ChangeRecord) (string, error)
}

// Orchestrator runs the two phases in strict sequence. Each phase gets a
// freshly acquired fetch session that is released on every exit path, so a
// fatal failure in one phase cannot corrupt the other.
type Orchestrator struct {
	log        *slog.Logger
	sessions   fetcher.Factory
	discoverer Discoverer
	detector   Detector
	state      repository.StateRepository
	sinks      []Sink
	reports    ReportWriter
	metrics    *metrics.Metrics
}

func New(
	log *slog.Logger,
	sessions fetcher.Factory,
	disc Discoverer,
	det Detector,
	state repository.StateRepository,
	sinks []Sink,
	reports ReportWriter,
	mtr *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		log:        log,
		sessions:   sessions,
		discoverer: disc,
		detector:   det,
		state:      state,
		sinks:      sinks,
		reports:    reports,
		metrics:    mtr,
	}
}

// Run performs one full cycle. Phase failures are absorbed here: a fatal
// discovery error is logged and detection still runs. The returned summary
// counts the change records actually produced.
func (o *Orchestrator) Run(ctx context.Context) models.CycleSummary {
	const opn = "cycle.Run"
	log := o.log.With("op", opn)
	start := time.Now()

	log.InfoContext(ctx, "Starting discovery and change-detection cycle")

	newRecords := o.runPhase(ctx, "discovery", o.discoverer.Discover)
	log.InfoContext(ctx, "Discovery phase complete", "new", len(newRecords))

	updateRecords := o.runPhase(ctx, "detection", o.detector.Detect)
	log.InfoContext(ctx, "Detection phase complete", "updates", len(updateRecords))

	// Discovery records precede detection records, matching wall-clock
	// detection order within the cycle.
	batch := make([]models.ChangeRecord, 0, len(newRecords)+len(updateRecords))
	batch = append(batch, newRecords...)
	batch = append(batch, updateRecords...)

	o.deliver(ctx, batch)

	if err := o.state.SetState(ctx, LastCompletedStateKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.WarnContext(ctx, "Failed to persist cycle completion state", "error", err)
	}

	o.metrics.CycleDuration.Observe(time.Since(start).Seconds())

	summary := models.CycleSummary{NewCount: len(newRecords), UpdateCount: len(updateRecords)}
	log.InfoContext(ctx, "Cycle complete", "new", summary.NewCount, "updates", summary.UpdateCount)

	return summary
}

type phaseFunc func(ctx context.Context, fetch fetcher.Fetcher) ([]models.ChangeRecord, error)

// runPhase acquires a session, runs the phase body and releases the session
// unconditionally, whatever the exit path. A phase error is logged and the
// records produced before the failure are kept.
func (o *Orchestrator) runPhase(ctx context.Context, name string, run phaseFunc) []models.ChangeRecord {
	session, err := o.sessions.NewSession(ctx)
	if err != nil {
		o.log.ErrorContext(ctx, "Failed to acquire fetch session, phase not run", "phase", name, "error", err)
		return nil
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			o.log.WarnContext(ctx, "Failed to release fetch session", "phase", name, "error", closeErr)
		}
	}()

	records, err := run(ctx, session)
	if err != nil {
		o.log.ErrorContext(ctx, "Phase failed", "phase", name, "error", err)
	}

	return records
}

// deliver hands the batch to every sink and the report writer. Failures are
// independent per collaborator.
func (o *Orchestrator) deliver(ctx context.Context, batch []models.ChangeRecord) {
	for _, sink := range o.sinks {
		if err := sink.Deliver(ctx, batch); err != nil {
			o.log.ErrorContext(ctx, "Failed to deliver change batch", "sink", fmt.Sprintf("%T", sink), "error", err)
		}
	}

	if o.reports == nil {
		return
	}

	path, err := o.reports.Write(batch)
	if err != nil {
		o.log.ErrorContext(ctx, "Failed to write cycle report", "error", err)
		return
	}
	o.log.InfoContext(ctx, "Report generated", "path", path)
}

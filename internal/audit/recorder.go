package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oncosaferx/authcore/internal/observability"
	"github.com/oncosaferx/authcore/internal/shared"
)

// AlertDispatcher delivers out-of-band security alerts. Delivery is
// best-effort; the recorder logs failures and never raises them to callers.
type AlertDispatcher interface {
	DispatchSecurityAlert(ctx context.Context, e Entry) error
}

// RecorderConfig tunes brute-force detection.
type RecorderConfig struct {
	BruteForceThreshold int64
	BruteForceWindow    time.Duration
}

// Recorder writes every security-relevant event to the primary sink
// synchronously and to secondary sinks detached. Secondary failures go to
// the emergency channel (structured ERROR log); only the failure of every
// sink aborts the caller's operation.
type Recorder struct {
	primary   Sink
	secondary []Sink
	searcher  Searcher
	hasher    *Hasher
	alerts    AlertDispatcher
	failures  FailureTracker
	cfg       RecorderConfig
	logger    *slog.Logger
	metrics   *observability.Metrics
	now       func() time.Time

	wg sync.WaitGroup
}

// WithMetrics attaches a metrics collector.
func (r *Recorder) WithMetrics(metrics *observability.Metrics) *Recorder {
	r.metrics = metrics
	return r
}

// NewRecorder constructs a Recorder. primary is required; secondary sinks,
// the alert dispatcher and the failure tracker are optional.
func NewRecorder(primary Sink, secondary []Sink, hasher *Hasher, alerts AlertDispatcher, failures FailureTracker, cfg RecorderConfig, logger *slog.Logger) *Recorder {
	if cfg.BruteForceThreshold <= 0 {
		cfg.BruteForceThreshold = 5
	}
	if cfg.BruteForceWindow <= 0 {
		cfg.BruteForceWindow = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		primary:   primary,
		secondary: secondary,
		hasher:    hasher,
		alerts:    alerts,
		failures:  failures,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s, ok := primary.(Searcher); ok {
		r.searcher = s
	}
	return r
}

// Record classifies, hashes and persists the event. The returned error is
// non-nil only when every sink rejected the write; that failure must abort
// the originating mutation.
func (r *Recorder) Record(ctx context.Context, ev Event) (string, error) {
	entry, err := r.record(ctx, ev)
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// record persists the event and returns the entry as written, so alerting
// can reference the same audit id.
func (r *Recorder) record(ctx context.Context, ev Event) (Entry, error) {
	entry := r.buildEntry(ev)

	// Audit writes must survive caller cancellation: losing a record is
	// worse than a late write.
	ctx = context.WithoutCancel(ctx)

	primaryErr := r.primary.Write(ctx, entry)
	if primaryErr == nil {
		r.writeSecondaryDetached(ctx, entry)
	} else {
		r.emergency("primary audit sink failed", r.primary.Name(), entry, primaryErr)
		if !r.writeSecondarySync(ctx, entry) {
			names := []string{r.primary.Name()}
			for _, s := range r.secondary {
				names = append(names, s.Name())
			}
			return entry, &shared.AuditWriteError{Sinks: names, Err: primaryErr}
		}
	}

	r.postProcess(ctx, ev, entry)
	return entry, nil
}

// Search serves compliance reporting queries. Not used in the hot
// authorization path.
func (r *Recorder) Search(ctx context.Context, c SearchCriteria) ([]Entry, error) {
	if r.searcher == nil {
		return nil, fmt.Errorf("audit: primary sink does not support search")
	}
	return r.searcher.Search(ctx, c)
}

// HashActor exposes the PII hash so search criteria can be built from raw
// identifiers without re-implementing the salt handling.
func (r *Recorder) HashActor(actor string) string {
	return r.hasher.Hash(actor)
}

// Flush waits for in-flight detached writes and alert dispatches.
func (r *Recorder) Flush() {
	r.wg.Wait()
}

func (r *Recorder) buildEntry(ev Event) Entry {
	risk, category, retention, flags := classify(ev.Type)
	outcome := ev.Outcome
	if outcome == "" {
		outcome = OutcomeSuccess
	}
	return Entry{
		ID:              uuid.NewString(),
		Timestamp:       r.now(),
		EventType:       ev.Type,
		EventCategory:   category,
		RiskLevel:       risk,
		ActorHash:       r.hasher.Hash(ev.Actor),
		TenantID:        ev.TenantID,
		SessionID:       ev.SessionID,
		IPHash:          r.hasher.Hash(ev.IP),
		Resource:        ev.Resource,
		Outcome:         outcome,
		ComplianceFlags: flags,
		RetentionDays:   retention,
		Detail:          ev.Detail,
	}
}

func (r *Recorder) writeSecondaryDetached(ctx context.Context, entry Entry) {
	for _, sink := range r.secondary {
		sink := sink
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := sink.Write(ctx, entry); err != nil {
				r.emergency("secondary audit sink failed", sink.Name(), entry, err)
			}
		}()
	}
}

// writeSecondarySync is the degraded path when the primary sink is down.
// Returns true when at least one secondary accepted the entry.
func (r *Recorder) writeSecondarySync(ctx context.Context, entry Entry) bool {
	ok := false
	for _, sink := range r.secondary {
		if err := sink.Write(ctx, entry); err != nil {
			r.emergency("secondary audit sink failed", sink.Name(), entry, err)
			continue
		}
		ok = true
	}
	return ok
}

// postProcess handles alerting: critical events always alert, and repeated
// failures for one principal trigger a brute-force alert.
func (r *Recorder) postProcess(ctx context.Context, ev Event, entry Entry) {
	if entry.RiskLevel == RiskCritical {
		r.dispatchAlert(ctx, entry)
	}
	if r.failures == nil {
		return
	}
	if entry.Outcome != OutcomeDenied && entry.Outcome != OutcomeFailure {
		return
	}
	count, err := r.failures.RecordFailure(ctx, entry.ActorHash, r.cfg.BruteForceWindow)
	if err != nil {
		r.logger.Warn("failure tracker unavailable", slog.Any("error", err))
		return
	}
	if count == r.cfg.BruteForceThreshold {
		// Success outcome keeps the tracker from counting the marker event
		// itself and re-triggering.
		marker := Event{
			Type:     EventBruteForceSuspected,
			Actor:    ev.Actor,
			TenantID: ev.TenantID,
			Outcome:  OutcomeSuccess,
			Detail:   map[string]string{"recent_failures": fmt.Sprintf("%d", count)},
		}
		// The alert carries the entry as persisted so its audit id lines
		// up with the stored marker.
		markerEntry, err := r.record(ctx, marker)
		if err != nil {
			r.logger.Error("brute force audit write failed", slog.Any("error", err))
		}
		r.dispatchAlert(ctx, markerEntry)
	}
}

func (r *Recorder) dispatchAlert(ctx context.Context, entry Entry) {
	if r.alerts == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.alerts.DispatchSecurityAlert(ctx, entry); err != nil {
			r.logger.Error("security alert dispatch failed",
				slog.String("event_type", entry.EventType), slog.Any("error", err))
		}
	}()
}

// emergency is the out-of-band channel for sink failures. It must never
// panic or block the caller.
func (r *Recorder) emergency(msg, sink string, entry Entry, err error) {
	r.metrics.RecordSinkError(sink)
	r.logger.Error(msg,
		slog.String("channel", "audit_emergency"),
		slog.String("sink", sink),
		slog.String("audit_id", entry.ID),
		slog.String("event_type", entry.EventType),
		slog.Any("error", err))
}

// IsWriteFailure reports whether err is a total audit write failure.
func IsWriteFailure(err error) bool {
	var w *shared.AuditWriteError
	return errors.As(err, &w)
}

package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/gxo-labs/trialkit/internal/config"
	intTracing "github.com/gxo-labs/trialkit/internal/tracing"
	trialkit "github.com/gxo-labs/trialkit/pkg/trialkit/v1"
	gxoerrors "github.com/gxo-labs/trialkit/pkg/trialkit/v1/errors"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RunSession loads a session document and runs its trials in order on the
// scheduler, pausing for the inter-trial interval between them. Cancelling
// ctx stops the session before the next trial; the running trial still
// finishes and is stored.
func (e *Engine) RunSession(ctx context.Context, sessionYAML []byte) (finalReport *trialkit.SessionReport, finalErr error) {
	tracer := e.tracerProvider.GetTracer(intTracing.TracerName)
	runCtx, span := tracer.Start(ctx, "trialkit.session.run")
	defer span.End()

	startTime := time.Now()
	finalReport = &trialkit.SessionReport{StartTime: startTime}

	defer func() {
		finalReport.EndTime = time.Now()
		finalReport.Duration = finalReport.EndTime.Sub(startTime)
		status := "Completed"
		if finalErr != nil {
			status = "Failed"
			finalReport.Error = finalErr.Error()
			intTracing.RecordError(span, finalErr)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		if e.sessionCounter != nil {
			e.sessionCounter.WithLabelValues(status).Inc()
		}
		if e.sessionDuration != nil {
			e.sessionDuration.Observe(finalReport.Duration.Seconds())
		}
		span.SetAttributes(
			intTracing.AttrSession.String(finalReport.SessionName),
			attribute.String("trialkit.session.status", status),
			attribute.Int("trialkit.session.total_trials", finalReport.TotalTrials),
			attribute.Int("trialkit.session.completed_trials", finalReport.CompletedCount),
		)
		e.eventBus.Emit(events.Event{
			Type:        events.SessionEnd,
			Timestamp:   finalReport.EndTime,
			SessionName: finalReport.SessionName,
			Payload: map[string]interface{}{
				"status":           status,
				"completed_trials": finalReport.CompletedCount,
				"response_trials":  finalReport.ResponseCount,
				"deadline_trials":  finalReport.DeadlineCount,
			},
		})
		e.log.Infof("Session '%s' finished: %s (%d/%d trials)", finalReport.SessionName, status, finalReport.CompletedCount, finalReport.TotalTrials)
	}()

	session, err := config.LoadSession(sessionYAML, "session.yaml", e.registry)
	if err != nil {
		e.log.Errorf("Failed to load or validate session: %v", err)
		return finalReport, err
	}
	finalReport.SessionName = session.Name
	finalReport.TotalTrials = len(session.Trials)
	e.log.Infof("Starting session: %s (Schema: %s, %d trials)", session.Name, session.SchemaVersion, len(session.Trials))

	e.eventBus.Emit(events.Event{
		Type:        events.SessionStart,
		Timestamp:   startTime,
		SessionName: session.Name,
		Payload:     map[string]interface{}{"total_trials": len(session.Trials)},
	})

	records, runErr := e.runSessionTrials(runCtx, session)
	for _, rec := range records {
		finalReport.Records = append(finalReport.Records, rec)
		finalReport.CompletedCount++
		switch rec.EndReason() {
		case trial.EndResponse:
			finalReport.ResponseCount++
		case trial.EndDeadline:
			finalReport.DeadlineCount++
		}
	}
	return finalReport, runErr
}

// runSessionTrials chains the trials on the scheduler. Each trial starts from
// the finish callback of the previous one.
func (e *Engine) runSessionTrials(ctx context.Context, session *config.Session) ([]trial.Record, error) {
	rnd := e.rnd
	if session.Seed != nil {
		rnd = rand.New(rand.NewSource(*session.Seed))
	}
	iti := e.interTrialInterval
	if d, ok := session.Pacing.InterTrialInterval(); ok {
		iti = d
	}

	sched := e.sched()
	n := len(session.Trials)
	recordsCh := make(chan trial.Record, n)
	done := make(chan error, 1)

	var runNext func(i int)
	runNext = func(i int) {
		if i == n {
			done <- nil
			return
		}
		if err := ctx.Err(); err != nil {
			done <- err
			return
		}
		entry := session.Trials[i]
		meta := trialMeta{ctx: ctx, session: session.Name, index: i, name: entry.Name, rnd: rnd}
		_, err := e.startTrial(entry.Type, session.TrialSpec(i), meta, func(rec trial.Record) {
			recordsCh <- rec
			switch {
			case i+1 == n:
				runNext(i + 1)
			case iti > 0:
				sched.AfterFunc(iti, func() { runNext(i + 1) })
			default:
				sched.Post(func() { runNext(i + 1) })
			}
		})
		if err != nil {
			done <- err
		}
	}
	sched.Post(func() { runNext(0) })

	var runErr error
	select {
	case runErr = <-done:
	case <-ctx.Done():
		runErr = ctx.Err()
	}
	if runErr != nil && ctx.Err() != nil {
		runErr = gxoerrors.NewTrialError("", "", ctx.Err())
	}

	var records []trial.Record
	for {
		select {
		case rec := <-recordsCh:
			records = append(records, rec)
		default:
			return records, runErr
		}
	}
}

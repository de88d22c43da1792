package dispatch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/flags-survey-backend/internal/logger"
	"github.com/AnshRaj112/flags-survey-backend/internal/models"
)

// SinkWebhook names the notification sink in reports.
const SinkWebhook = "webhook"

// Sink is one destination a submission is delivered to.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, s *models.Submission) error
}

// Notifier announces submissions; RecordStore keeps them.
type (
	Notifier    = Sink
	RecordStore = Sink
)

type Status int

const (
	// Delivered: every sink accepted the submission.
	Delivered Status = iota
	// Degraded: at least one sink accepted it, at least one did not.
	Degraded
	// Failed: no sink accepted it.
	Failed
)

func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Degraded:
		return "degraded"
	default:
		return "failed"
	}
}

// Report is the outcome of one Dispatch call.
type Report struct {
	Status Status
	Failed []string
}

// Accepted reports whether the submission is durable in at least one sink.
func (r Report) Accepted() bool {
	return r.Status != Failed
}

type Options struct {
	Timeout time.Duration
	Retry   RetryPolicy
}

// Dispatcher fans a submission out to the notifier and the record store.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	retry   RetryPolicy
}

func NewDispatcher(notifier Notifier, records RecordStore, opts Options) *Dispatcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		sinks:   []Sink{notifier, records},
		timeout: timeout,
		retry:   opts.Retry,
	}
}

// Dispatch delivers s to every sink concurrently. Each sink gets its own
// deadline and retries; one sink failing never cancels the other.
func (d *Dispatcher) Dispatch(ctx context.Context, s *models.Submission) Report {
	errs := make([]error, len(d.sinks))

	var g errgroup.Group
	for i, sink := range d.sinks {
		i, sink := i, sink
		g.Go(func() error {
			sinkCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			errs[i] = retry(sinkCtx, d.retry, func(ctx context.Context) error {
				return sink.Deliver(ctx, s)
			})
			return nil
		})
	}
	g.Wait()

	var report Report
	for i, err := range errs {
		if err == nil {
			continue
		}
		name := d.sinks[i].Name()
		report.Failed = append(report.Failed, name)
		logger.WithFields(logger.Fields{
			"sink":       name,
			"submission": s.ID.String(),
		}).WithError(err).Warn("delivery failed")
	}

	switch len(report.Failed) {
	case 0:
		report.Status = Delivered
	case len(d.sinks):
		report.Status = Failed
	default:
		report.Status = Degraded
	}
	return report
}

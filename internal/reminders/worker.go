package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/flowiq/scheduling-platform/internal/notify"
	"github.com/flowiq/scheduling-platform/internal/observability/metrics"
	"github.com/flowiq/scheduling-platform/pkg/logging"
)

// SMSSender abstracts outbound SMS sending.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Worker dispatches due reminders: email via the configured EmailSender,
// SMS via the provider client. Failed sends are retried with exponential
// backoff until attempts run out.
type Worker struct {
	store       *Store
	email       notify.EmailSender
	sms         SMSSender
	metrics     *metrics.SchedulingMetrics
	logger      *logging.Logger
	maxAttempts int
	baseDelay   time.Duration
	interval    time.Duration
	batchSize   int
}

// NewWorker creates a reminder dispatch worker.
func NewWorker(store *Store, email notify.EmailSender, sms SMSSender, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:       store,
		email:       email,
		sms:         sms,
		logger:      logger.Component("reminders.worker"),
		maxAttempts: 5,
		baseDelay:   5 * time.Minute,
		interval:    time.Minute,
		batchSize:   50,
	}
}

func (w *Worker) WithMaxAttempts(n int) *Worker {
	if n > 0 {
		w.maxAttempts = n
	}
	return w
}

func (w *Worker) WithBaseDelay(d time.Duration) *Worker {
	if d > 0 {
		w.baseDelay = d
	}
	return w
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Worker) WithBatchSize(n int) *Worker {
	if n > 0 {
		w.batchSize = n
	}
	return w
}

func (w *Worker) WithMetrics(m *metrics.SchedulingMetrics) *Worker {
	w.metrics = m
	return w
}

// Run polls for due reminders until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// ProcessDue dispatches one batch of due reminders and reports how many
// were delivered.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	due, err := w.store.ListDue(ctx, time.Now().UTC(), w.batchSize, w.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("reminders worker: list due: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	w.logger.Info("dispatching due reminders", "count", len(due))

	sent := 0
	for i := range due {
		n := &due[i]
		if err := w.dispatchOne(ctx, n); err != nil {
			w.metrics.ObserveReminderDispatch(string(n.Channel), "failed")
			w.logger.Error("reminder dispatch failed",
				"id", n.ID, "channel", n.Channel, "retry_count", n.RetryCount, "error", err)
			next := time.Now().UTC().Add(w.nextDelay(n.RetryCount))
			if err := w.store.RecordFailure(ctx, n.ID, err.Error(), next, w.maxAttempts); err != nil {
				w.logger.Error("record reminder failure", "id", n.ID, "error", err)
			}
			continue
		}
		if err := w.store.MarkSent(ctx, n.ID); err != nil {
			w.logger.Error("mark reminder sent", "id", n.ID, "error", err)
			continue
		}
		w.metrics.ObserveReminderDispatch(string(n.Channel), "sent")
		sent++
	}
	return sent, nil
}

func (w *Worker) drain(ctx context.Context) {
	if _, err := w.ProcessDue(ctx); err != nil {
		w.logger.Error("reminder drain failed", "error", err)
	}
}

func (w *Worker) dispatchOne(ctx context.Context, n *Notification) error {
	switch n.Channel {
	case ChannelEmail:
		if w.email == nil {
			return fmt.Errorf("no email sender configured")
		}
		return w.email.Send(ctx, notify.EmailMessage{
			To:      n.Recipient,
			Subject: "Appointment reminder",
			Body:    n.Body,
		})
	case ChannelSMS:
		if w.sms == nil {
			return fmt.Errorf("no sms sender configured")
		}
		return w.sms.SendSMS(ctx, n.Recipient, n.Body)
	default:
		return fmt.Errorf("unknown channel %q", n.Channel)
	}
}

func (w *Worker) nextDelay(attempts int) time.Duration {
	delay := w.baseDelay * time.Duration(1<<attempts)
	if delay > 24*time.Hour {
		delay = 24 * time.Hour
	}
	return delay
}

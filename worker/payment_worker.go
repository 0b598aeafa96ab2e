package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"payments-authorizenet/logger"
	"payments-authorizenet/models"
	"payments-authorizenet/queue"
)

type jobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	CompleteJob(ctx context.Context, job *queue.Job) error
	FailJob(ctx context.Context, job *queue.Job, err error) error
	ProcessDelayedJobs(ctx context.Context) error
}

type paymentLoader interface {
	GetPaymentByToken(ctx context.Context, token string) (*models.Payment, error)
}

type refunder interface {
	Refund(ctx context.Context, payment *models.Payment) error
}

var errInvalidJobData = errors.New("invalid job data")

// Worker handles background payment jobs.
type Worker struct {
	queue    jobSource
	payments paymentLoader
	provider refunder
	log      *slog.Logger

	pollInterval  time.Duration
	delayInterval time.Duration
	jobTimeout    time.Duration

	shutdown chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

func NewWorker(q jobSource, payments paymentLoader, provider refunder) *Worker {
	return &Worker{
		queue:         q,
		payments:      payments,
		provider:      provider,
		log:           logger.WithComponent("worker"),
		pollInterval:  5 * time.Second,
		delayInterval: 10 * time.Second,
		jobTimeout:    60 * time.Second,
		shutdown:      make(chan struct{}),
	}
}

// Start launches concurrency job goroutines and the delayed-job scheduler.
func (w *Worker) Start(concurrency int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	if concurrency < 1 {
		concurrency = 1
	}
	w.running = true

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(i)
	}
	w.wg.Add(1)
	go w.scheduleDelayed()

	w.log.Info("worker started", "concurrency", concurrency)
}

// Stop blocks until in-flight jobs finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.shutdown)
	w.mu.Unlock()

	w.log.Info("stopping worker")
	w.wg.Wait()
	w.log.Info("worker stopped")
}

func (w *Worker) scheduleDelayed() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.delayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := w.queue.ProcessDelayedJobs(ctx); err != nil {
				w.log.Error("failed to process delayed jobs", "error", err)
			}
			cancel()
		}
	}
}

func (w *Worker) processJobs(workerID int) {
	defer w.wg.Done()
	log := w.log.With("worker_id", workerID)

	for {
		select {
		case <-w.shutdown:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.pollInterval+5*time.Second)
		job, err := w.queue.Dequeue(ctx, w.pollInterval)
		cancel()
		if err != nil {
			log.Error("failed to dequeue job", "error", err)
			w.sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		w.handle(log, job)
	}
}

func (w *Worker) handle(log *slog.Logger, job *queue.Job) {
	log = log.With("job_id", job.ID, "type", job.Type)
	log.Info("processing job", "retry", job.RetryCount)

	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	jobErr := w.processJob(ctx, job)
	cancel()

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if jobErr != nil {
		if queue.IsLastAttempt(job) {
			log.Error("job failed on last attempt", "error", jobErr)
		} else {
			log.Warn("job failed", "error", jobErr)
		}
		if err := w.queue.FailJob(ctx, job, jobErr); err != nil {
			log.Error("failed to mark job as failed", "error", err)
		}
		return
	}

	if err := w.queue.CompleteJob(ctx, job); err != nil {
		log.Error("failed to mark job as complete", "error", err)
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.shutdown:
	case <-time.After(d):
	}
}

func (w *Worker) processJob(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeRefundPayment:
		return w.processRefund(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (w *Worker) processRefund(ctx context.Context, job *queue.Job) error {
	token, ok := job.StringField("payment_token")
	if !ok {
		return fmt.Errorf("%w: missing payment_token", errInvalidJobData)
	}

	payment, err := w.payments.GetPaymentByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to load payment %s: %w", token, err)
	}

	if err := w.provider.Refund(ctx, payment); err != nil {
		return fmt.Errorf("failed to refund payment %s: %w", token, err)
	}

	w.log.Info("payment refunded", "payment_id", payment.ID, "status", payment.Status)
	return nil
}

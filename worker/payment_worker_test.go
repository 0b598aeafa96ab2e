package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payments-authorizenet/models"
	"payments-authorizenet/queue"
)

type fakeQueue struct {
	mu        sync.Mutex
	jobs      []*queue.Job
	completed []string
	failed    []string
	delayed   int
}

func (q *fakeQueue) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error) {
	q.mu.Lock()
	if len(q.jobs) == 0 {
		q.mu.Unlock()
		time.Sleep(timeout)
		return nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	q.mu.Unlock()
	return job, nil
}

func (q *fakeQueue) CompleteJob(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completed = append(q.completed, job.ID)
	return nil
}

func (q *fakeQueue) FailJob(ctx context.Context, job *queue.Job, err error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed = append(q.failed, job.ID)
	return nil
}

func (q *fakeQueue) ProcessDelayedJobs(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.delayed++
	return nil
}

func (q *fakeQueue) snapshot() (completed, failed []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.completed...), append([]string(nil), q.failed...)
}

type fakePayments map[string]*models.Payment

func (f fakePayments) GetPaymentByToken(ctx context.Context, token string) (*models.Payment, error) {
	if p, ok := f[token]; ok {
		return p, nil
	}
	return nil, errors.New("payment not found")
}

type fakeRefunder struct {
	mu       sync.Mutex
	refunded []int64
	err      error
}

func (r *fakeRefunder) Refund(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.refunded = append(r.refunded, payment.ID)
	payment.ChangeStatus(models.PaymentStatusRefunded, "")
	return nil
}

func refundJob(token string) *queue.Job {
	return &queue.Job{
		ID:   "job-" + token,
		Type: queue.JobTypeRefundPayment,
		Data: map[string]interface{}{"payment_token": token},
	}
}

func TestProcessJobRefund(t *testing.T) {
	payments := fakePayments{"tok": {ID: 7, Status: models.PaymentStatusConfirmed}}
	refunder := &fakeRefunder{}
	w := NewWorker(&fakeQueue{}, payments, refunder)

	require.NoError(t, w.processJob(context.Background(), refundJob("tok")))
	assert.Equal(t, []int64{7}, refunder.refunded)
	assert.Equal(t, models.PaymentStatusRefunded, payments["tok"].Status)
}

func TestProcessJobErrors(t *testing.T) {
	payments := fakePayments{"tok": {ID: 7}}

	tests := []struct {
		name     string
		job      *queue.Job
		refunder *fakeRefunder
		wantErr  error
	}{
		{
			name:     "missing token",
			job:      &queue.Job{Type: queue.JobTypeRefundPayment, Data: map[string]interface{}{}},
			refunder: &fakeRefunder{},
			wantErr:  errInvalidJobData,
		},
		{
			name:     "unknown payment",
			job:      refundJob("nope"),
			refunder: &fakeRefunder{},
		},
		{
			name:     "gateway failure",
			job:      refundJob("tok"),
			refunder: &fakeRefunder{err: errors.New("declined")},
		},
		{
			name:     "unknown type",
			job:      &queue.Job{Type: "mystery", Data: map[string]interface{}{}},
			refunder: &fakeRefunder{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorker(&fakeQueue{}, payments, tt.refunder)
			err := w.processJob(context.Background(), tt.job)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, tt.refunder.refunded)
		})
	}
}

func TestWorkerCompletesAndFailsJobs(t *testing.T) {
	q := &fakeQueue{jobs: []*queue.Job{refundJob("tok"), refundJob("missing")}}
	w := NewWorker(q, fakePayments{"tok": {ID: 1}}, &fakeRefunder{})
	w.pollInterval = 10 * time.Millisecond

	w.Start(1)
	require.Eventually(t, func() bool {
		completed, failed := q.snapshot()
		return len(completed) == 1 && len(failed) == 1
	}, 2*time.Second, 10*time.Millisecond)
	w.Stop()

	completed, failed := q.snapshot()
	assert.Equal(t, []string{"job-tok"}, completed)
	assert.Equal(t, []string{"job-missing"}, failed)
}

func TestStopIsIdempotent(t *testing.T) {
	w := NewWorker(&fakeQueue{}, fakePayments{}, &fakeRefunder{})
	w.pollInterval = 10 * time.Millisecond
	w.Start(2)
	w.Stop()
	w.Stop()
}

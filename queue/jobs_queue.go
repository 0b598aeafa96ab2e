package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"payments-authorizenet/logger"
)

type JobType string

const (
	JobTypeRefundPayment JobType = "refund_payment"
)

const (
	DefaultQueueName = "payment_jobs"
	MaxRetries       = 5
)

type Job struct {
	ID         string                 `json:"id"`
	Type       JobType                `json:"type"`
	Data       map[string]interface{} `json:"data"`
	CreatedAt  time.Time              `json:"created_at"`
	RetryCount int                    `json:"retry_count"`
}

// StringField returns a string entry of the job payload.
func (j *Job) StringField(key string) (string, bool) {
	v, ok := j.Data[key].(string)
	return v, ok && v != ""
}

type Queue struct {
	client     *redis.Client
	queueName  string
	processing string
	delayed    string
	failed     string
	log        *slog.Logger
}

func NewQueue(redisURL, queueName string) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewQueueFromClient(client, queueName), nil
}

func NewQueueFromClient(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:     client,
		queueName:  queueName,
		processing: queueName + ":processing",
		delayed:    queueName + ":delayed",
		failed:     queueName + ":failed",
		log:        logger.WithComponent("queue"),
	}
}

func newJob(jobType JobType, data map[string]interface{}) Job {
	if data == nil {
		data = map[string]interface{}{}
	}
	return Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

func (q *Queue) Enqueue(ctx context.Context, jobType JobType, data map[string]interface{}) (*Job, error) {
	job := newJob(jobType, data)

	jobJSON, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.RPush(ctx, q.queueName, jobJSON).Err(); err != nil {
		return nil, fmt.Errorf("failed to push job to queue: %w", err)
	}

	q.log.Info("enqueued job", "job_id", job.ID, "type", job.Type)
	return &job, nil
}

func (q *Queue) EnqueueRefund(ctx context.Context, paymentToken string) (*Job, error) {
	return q.Enqueue(ctx, JobTypeRefundPayment, map[string]interface{}{
		"payment_token": paymentToken,
	})
}

// Dequeue returns nil, nil when the wait times out.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected BLPOP result format")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	if err := q.client.RPush(ctx, q.processing, result[1]).Err(); err != nil {
		q.log.Warn("failed to move job to processing list", "job_id", job.ID, "error", err)
	}

	return &job, nil
}

func (q *Queue) CompleteJob(ctx context.Context, job *Job) error {
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LRem(ctx, q.processing, 1, jobJSON).Err(); err != nil {
		return fmt.Errorf("failed to remove job from processing list: %w", err)
	}

	q.log.Info("completed job", "job_id", job.ID, "type", job.Type)
	return nil
}

// RetryDelay is 15s doubled per attempt.
func RetryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	return time.Duration(15*(1<<(retryCount-1))) * time.Second
}

func (q *Queue) FailJob(ctx context.Context, job *Job, jobErr error) error {
	// The processing entry was written before RetryCount changed.
	original, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LRem(ctx, q.processing, 1, original).Err(); err != nil {
		q.log.Warn("failed to remove job from processing list", "job_id", job.ID, "error", err)
	}

	job.RetryCount++
	job.Data["last_error"] = jobErr.Error()
	job.Data["failed_at"] = time.Now().UTC()

	if job.RetryCount <= MaxRetries {
		delay := RetryDelay(job.RetryCount)
		retryAt := time.Now().Add(delay)
		job.Data["next_retry_at"] = retryAt.UTC()
		job.Data["is_last_attempt"] = job.RetryCount == MaxRetries

		updated, _ := json.Marshal(job)
		if err := q.client.ZAdd(ctx, q.delayed, &redis.Z{
			Score:  float64(retryAt.Unix()),
			Member: updated,
		}).Err(); err != nil {
			q.log.Warn("failed to schedule retry, moving job to failed list", "job_id", job.ID, "error", err)
			if err := q.client.RPush(ctx, q.failed, updated).Err(); err != nil {
				return fmt.Errorf("failed to push job to failed list: %w", err)
			}
			return nil
		}

		q.log.Info("scheduled job retry",
			"job_id", job.ID, "type", job.Type,
			"attempt", job.RetryCount, "max", MaxRetries, "delay", delay)
		return nil
	}

	job.Data["all_retries_exhausted"] = true
	job.Data["final_failure_at"] = time.Now().UTC()
	final, _ := json.Marshal(job)

	if err := q.client.RPush(ctx, q.failed, final).Err(); err != nil {
		return fmt.Errorf("failed to push job to failed list: %w", err)
	}

	q.log.Error("job moved to failed list", "job_id", job.ID, "type", job.Type, "retries", job.RetryCount)
	return nil
}

func (q *Queue) ProcessDelayedJobs(ctx context.Context) error {
	now := float64(time.Now().Unix())

	jobs, err := q.client.ZRangeByScore(ctx, q.delayed, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get delayed jobs: %w", err)
	}

	for _, jobJSON := range jobs {
		// ZREM first so two schedulers never requeue the same job.
		removed, err := q.client.ZRem(ctx, q.delayed, jobJSON).Result()
		if err != nil {
			q.log.Warn("failed to remove job from delayed set", "error", err)
			continue
		}
		if removed == 0 {
			continue
		}
		if err := q.client.RPush(ctx, q.queueName, jobJSON).Err(); err != nil {
			q.log.Warn("failed to move delayed job to main queue", "error", err)
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(jobJSON), &job); err == nil {
			q.log.Debug("requeued delayed job", "job_id", job.ID, "type", job.Type, "retry", job.RetryCount)
		}
	}

	return nil
}

// RetryJob moves a job from the failed list back onto the main queue.
func (q *Queue) RetryJob(ctx context.Context, jobID string) error {
	jobs, err := q.client.LRange(ctx, q.failed, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list failed jobs: %w", err)
	}

	for _, jobJSON := range jobs {
		var job Job
		if err := json.Unmarshal([]byte(jobJSON), &job); err != nil {
			q.log.Warn("skipping malformed failed job", "error", err)
			continue
		}
		if job.ID != jobID {
			continue
		}

		if err := q.client.LRem(ctx, q.failed, 1, jobJSON).Err(); err != nil {
			return fmt.Errorf("failed to remove job from failed list: %w", err)
		}

		resetForManualRetry(&job)
		updated, _ := json.Marshal(job)
		if err := q.client.RPush(ctx, q.queueName, updated).Err(); err != nil {
			return fmt.Errorf("failed to push job to main queue: %w", err)
		}

		q.log.Info("manually requeued job", "job_id", job.ID, "type", job.Type)
		return nil
	}

	return fmt.Errorf("job %s not found in failed list", jobID)
}

func resetForManualRetry(job *Job) {
	job.RetryCount = 0
	job.Data["manual_retry"] = true
	job.Data["manual_retry_at"] = time.Now().UTC()
	delete(job.Data, "all_retries_exhausted")
	delete(job.Data, "final_failure_at")
	delete(job.Data, "is_last_attempt")
}

func IsLastAttempt(job *Job) bool {
	if v, ok := job.Data["is_last_attempt"].(bool); ok {
		return v
	}
	return job.RetryCount >= MaxRetries
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) Client() *redis.Client {
	return q.client
}

func (q *Queue) Close() error {
	return q.client.Close()
}
